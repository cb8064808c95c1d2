package debug

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/jnnycn007/fbalpha2012-cps3/go/models"
	"github.com/jnnycn007/fbalpha2012-cps3/go/models/cpu"
)

var errDetached = errors.New("detached")

func escape(p []byte) []byte {
	out := make([]byte, 0, len(p))
	for _, c := range p {
		if c == '#' || c == '$' || c == '}' || c == '*' {
			out = append(out, '}')
			out = append(out, c^0x20)
		} else {
			out = append(out, c)
		}
	}
	return out
}

func unescape(p []byte) []byte {
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '}' && i < len(p)-1 {
			i++
			out = append(out, p[i]^0x20)
		} else {
			out = append(out, p[i])
		}
	}
	return out
}

func checksum(p []byte) []byte {
	chk := 0
	for _, c := range p {
		chk = (chk + int(c)) % 256
	}
	return []byte(fmt.Sprintf("%02x", chk))
}

// parseRange reads "addr,len", ignoring anything before the last colon.
func parseRange(s string) (uint64, uint64) {
	tmp := strings.Split(s, ":")
	tmp = strings.Split(tmp[len(tmp)-1], ",")
	if len(tmp) != 2 {
		return 0, 0
	}
	a, _ := strconv.ParseUint(tmp[0], 16, 0)
	b, _ := strconv.ParseUint(tmp[1], 16, 0)
	return a, b
}

// Target is a core the stub can drive directly. The stub runs it in slices
// from its own goroutine, so nothing else may run it while a client is
// attached.
type Target interface {
	cpu.Cpu
	Run(cycles int) int
}

type Gdbstub struct {
	Target Target
	// register names in gdb order
	Regs []string
	// cycles per Run while continuing; the stub polls for ^C between slices
	Slice  int
	Config *models.Config

	pcReg int
}

func NewGdbstub(t Target, regs []string, config *models.Config) *Gdbstub {
	d := &Gdbstub{Target: t, Regs: regs, Slice: 10000, Config: config.Init()}
	for i, name := range regs {
		if name == "pc" {
			d.pcReg = i
		}
	}
	return d
}

// Run serves one client until it detaches or disconnects.
func (d *Gdbstub) Run(conn net.Conn) error {
	d.Config.Printf("GDB stub connected from %s\n", conn.RemoteAddr())
	c := &gdbClient{
		Conn:        conn,
		stub:        d,
		t:           d.Target,
		in:          make(chan packet, 16),
		breakpoints: make(map[uint64]cpu.Hook),
	}
	err := c.Run()
	for _, h := range c.breakpoints {
		d.Target.HookDel(h)
	}
	if err == errDetached {
		return nil
	}
	return err
}

type packet struct {
	// '$' for a command, '+'/'-' for acks, 3 for ^C, 0 for a bad checksum
	kind byte
	data []byte
}

type gdbClient struct {
	net.Conn
	noAck     bool
	noAckTest bool
	stub      *Gdbstub
	t         Target
	in        chan packet

	breakpoints map[uint64]cpu.Hook
	stepping    bool
	hit         bool
}

func (c *gdbClient) debugf(f string, args ...interface{}) {
	c.stub.Config.Debugf("gdb: "+f, args...)
}

func (c *gdbClient) fmtreg(val uint64) string {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(val))
	return hex.EncodeToString(tmp[:])
}

func (c *gdbClient) parsereg(s string) (uint64, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 4 {
		return 0, errors.Errorf("bad register value %q", s)
	}
	return uint64(binary.BigEndian.Uint32(b)), nil
}

func (c *gdbClient) Send(s string) error {
	c.debugf("sending %v\n", s)
	data := escape([]byte(s))
	data = []byte("$" + string(data) + "#" + string(checksum(data)))
	_, err := c.Write(data)
	return errors.Wrap(err, "gdbstub socket write failed")
}

// Wait reports the stop to the client.
func (c *gdbClient) Wait() error {
	pc, _ := c.t.RegRead(c.stub.pcReg)
	return c.Send(fmt.Sprintf("T05%02x:%s;thread:1;", c.stub.pcReg, c.fmtreg(pc)))
}

func (c *gdbClient) onBreak(_ cpu.Cpu, addr uint64, size uint32) {
	if c.stepping {
		return
	}
	c.hit = true
	c.t.Stop()
}

// resume executes one instruction with breakpoints disarmed, then keeps
// running until a breakpoint, a ^C or a disconnect unless single is set.
func (c *gdbClient) resume(single bool) error {
	c.hit = false
	c.stepping = true
	c.t.Run(1)
	c.stepping = false
	if single {
		return c.Wait()
	}
	for !c.hit {
		select {
		case p, ok := <-c.in:
			if !ok {
				return io.EOF
			}
			if p.kind == 3 {
				return c.Wait()
			}
		default:
		}
		c.t.Run(c.stub.Slice)
	}
	return c.Wait()
}

func (c *gdbClient) Handle(cmdb []byte) error {
	c.debugf("handling %v\n", string(cmdb))
	t := c.t
	if len(cmdb) == 0 {
		return nil
	}
	b, rest := cmdb[0], string(cmdb[1:])
	var cmd, args string
	if strings.Contains(rest, ":") {
		tmp := strings.SplitN(rest, ":", 2)
		cmd, args = tmp[0], tmp[1]
	} else {
		cmd = rest
	}
	switch b {
	case 'q': // query
		switch cmd {
		case "Supported":
			return c.Send("PacketSize=4000;QStartNoAckMode+")
		case "Attached":
			return c.Send("1")
		case "Symbol":
			return c.Send("OK")
		case "C":
			return c.Send("QC1")
		case "fThreadInfo":
			return c.Send("m1")
		case "sThreadInfo":
			return c.Send("l")
		case "TStatus":
			return c.Send("T0")
		default:
			c.debugf("unknown cmd q %s %s\n", cmd, args)
			return c.Send("")
		}
	case 'Q': // set query
		if cmd == "StartNoAckMode" {
			c.noAckTest = true
			return c.Send("OK")
		}
		c.debugf("unknown cmd Q %s %s\n", cmd, args)
		return c.Send("")
	case 'v':
		return c.Send("")
	case 'g': // read regs
		var vals []string
		for i := range c.stub.Regs {
			val, _ := t.RegRead(i)
			vals = append(vals, c.fmtreg(val))
		}
		return c.Send(strings.Join(vals, ""))
	case 'G': // write regs
		for i := range c.stub.Regs {
			if len(rest) < (i+1)*8 {
				break
			}
			val, err := c.parsereg(rest[i*8 : (i+1)*8])
			if err != nil {
				return c.Send("E01")
			}
			t.RegWrite(i, val)
		}
		return c.Send("OK")
	case 'p': // read one reg
		i, _ := strconv.ParseUint(cmd, 16, 0)
		if int(i) >= len(c.stub.Regs) {
			return c.Send("E01")
		}
		val, _ := t.RegRead(int(i))
		return c.Send(c.fmtreg(val))
	case 'P': // write one reg
		tmp := strings.SplitN(rest, "=", 2)
		if len(tmp) != 2 {
			return c.Send("E01")
		}
		i, err := strconv.ParseUint(tmp[0], 16, 0)
		if err != nil || int(i) >= len(c.stub.Regs) {
			return c.Send("E01")
		}
		val, err := c.parsereg(tmp[1])
		if err != nil {
			return c.Send("E01")
		}
		t.RegWrite(int(i), val)
		return c.Send("OK")
	case 'm': // read memory
		a, n := parseRange(rest)
		mem, err := t.MemRead(a, n)
		if err != nil {
			c.debugf("error reading mem: %v\n", err)
			return c.Send("E01")
		}
		return c.Send(hex.EncodeToString(mem))
	case 'M': // write memory
		a, _ := parseRange(cmd)
		data, err := hex.DecodeString(args)
		if err != nil {
			c.debugf("error parsing hex %s: %v\n", args, err)
			return c.Send("E01")
		}
		if err := t.MemWrite(a, data); err != nil {
			c.debugf("error writing mem: %v\n", err)
			return c.Send("E01")
		}
		return c.Send("OK")
	case 'Z', 'z': // add/remove breakpoint
		args := strings.Split(rest, ",")
		if len(args) != 3 || (args[0] != "0" && args[0] != "1") {
			return c.Send("")
		}
		addr, _ := strconv.ParseUint(args[1], 16, 0)
		h, ok := c.breakpoints[addr]
		if b == 'z' {
			if ok {
				t.HookDel(h)
				delete(c.breakpoints, addr)
			}
			return c.Send("OK")
		}
		if !ok {
			h, err := t.HookAdd(cpu.HOOK_CODE, c.onBreak, addr, addr)
			if err != nil {
				return c.Send("E01")
			}
			c.breakpoints[addr] = h
		}
		return c.Send("OK")
	case 'c': // continue
		return c.resume(false)
	case 's': // step
		return c.resume(true)
	case '?': // last signal
		return c.Wait()
	case 'H', 'T': // threads
		return c.Send("OK")
	case 'D': // detach
		c.Send("OK")
		return errDetached
	case 'k': // kill
		return errDetached
	default:
		c.debugf("unknown command %c %s %s\n", b, cmd, args)
		return c.Send("")
	}
}

func (c *gdbClient) readPackets(input *bufio.Reader) {
	defer close(c.in)
	for {
		b, err := input.ReadByte()
		if err != nil {
			return
		}
		switch b {
		case 3, '+', '-':
			c.in <- packet{kind: b}
		case '$':
			data, err := input.ReadBytes('#')
			if err != nil {
				return
			}
			var chk [2]byte
			if _, err := io.ReadFull(input, chk[:]); err != nil {
				return
			}
			data = data[:len(data)-1]
			if string(checksum(data)) == string(chk[:]) {
				c.in <- packet{kind: '$', data: unescape(data)}
			} else {
				c.in <- packet{}
			}
		}
	}
}

func (c *gdbClient) Run() error {
	defer c.Close()
	go c.readPackets(bufio.NewReader(c))
	for p := range c.in {
		switch p.kind {
		case '+':
			if c.noAckTest {
				c.noAck = true
			}
			c.noAckTest = false
		case 3:
			// already stopped
			if err := c.Wait(); err != nil {
				return err
			}
		case 0:
			c.ack('-')
		case '$':
			c.ack('+')
			if err := c.Handle(p.data); err != nil {
				if err != errDetached {
					c.stub.Config.Printf("GDB stub error: %v\n", err)
				}
				return err
			}
		}
	}
	return nil
}

func (c *gdbClient) ack(b byte) {
	if !c.noAck {
		c.Write([]byte{b})
	}
}
