package debug

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"net"
	"strings"
	"testing"

	"github.com/jnnycn007/fbalpha2012-cps3/go/cpu/sh2"
	"github.com/jnnycn007/fbalpha2012-cps3/go/models"
)

type gdbConn struct {
	t *testing.T
	net.Conn
	r *bufio.Reader
}

func (g *gdbConn) cmd(s string) string {
	g.t.Helper()
	data := []byte(s)
	fmt.Fprintf(g, "$%s#%s", data, checksum(data))
	for {
		b, err := g.r.ReadByte()
		if err != nil {
			g.t.Fatal(err)
		}
		if b == '$' {
			break
		}
	}
	body, err := g.r.ReadString('#')
	if err != nil {
		g.t.Fatal(err)
	}
	var chk [2]byte
	if _, err := g.r.Read(chk[:1]); err != nil {
		g.t.Fatal(err)
	}
	if _, err := g.r.Read(chk[1:]); err != nil {
		g.t.Fatal(err)
	}
	g.Write([]byte{'+'})
	return string(unescape([]byte(strings.TrimSuffix(body, "#"))))
}

func newStub(t *testing.T) (*sh2.Core, *gdbConn, chan error) {
	c := sh2.New()
	c.BusyLoops = false
	ram := make([]byte, 0x10000)
	if err := c.MapMemory(ram, 0, 0xffff, sh2.MapAll); err != nil {
		t.Fatal(err)
	}
	// add #1,r0 forever
	for i := 0; i < 0x100; i++ {
		binary.BigEndian.PutUint16(ram[0x1000+i*2:], 0x7001)
	}
	c.Reset(0x1000, 0x8000)

	config := (&models.Config{Output: nopWriteCloser{}}).Init()
	stub := NewGdbstub(c, sh2.RegNames[:sh2.PPC], config)
	server, client := net.Pipe()
	done := make(chan error, 1)
	go func() { done <- stub.Run(server) }()
	return c, &gdbConn{t: t, Conn: client, r: bufio.NewReader(client)}, done
}

type nopWriteCloser struct{}

func (nopWriteCloser) Write(p []byte) (int, error) { return ioutil.Discard.Write(p) }
func (nopWriteCloser) Close() error                { return nil }

func TestGdbRegisters(t *testing.T) {
	_, g, done := newStub(t)
	regs := g.cmd("g")
	if len(regs) != 8*sh2.PPC {
		t.Fatalf("g returned %d hex digits", len(regs))
	}
	if pc := regs[8*sh2.PC : 8*sh2.PC+8]; pc != "00001000" {
		t.Fatalf("pc = %s", pc)
	}
	if sp := regs[8*15 : 8*16]; sp != "00008000" {
		t.Fatalf("r15 = %s", sp)
	}
	if r := g.cmd("P0=00000010"); r != "OK" {
		t.Fatalf("P: %s", r)
	}
	if r := g.cmd("p0"); r != "00000010" {
		t.Fatalf("p0 = %s", r)
	}
	if r := g.cmd("p99"); r != "E01" {
		t.Fatalf("p99 = %s", r)
	}
	if r := g.cmd("D"); r != "OK" {
		t.Fatalf("D: %s", r)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestGdbMemory(t *testing.T) {
	_, g, done := newStub(t)
	if r := g.cmd("m1000,4"); r != "70017001" {
		t.Fatalf("m = %s", r)
	}
	if r := g.cmd("M3000,2:beef"); r != "OK" {
		t.Fatalf("M: %s", r)
	}
	if r := g.cmd("m3000,2"); r != "beef" {
		t.Fatalf("m after M = %s", r)
	}
	g.cmd("D")
	<-done
}

func TestGdbBreakpointAndStep(t *testing.T) {
	c, g, done := newStub(t)
	if r := g.cmd("Z0,1006,2"); r != "OK" {
		t.Fatalf("Z0: %s", r)
	}
	if r := g.cmd("c"); !strings.HasPrefix(r, "T05") || !strings.Contains(r, "10:00001006;") {
		t.Fatalf("stop reply %s", r)
	}
	if r := g.cmd("p0"); r != "00000003" {
		t.Fatalf("r0 at breakpoint = %s", r)
	}
	// stepping off the breakpoint executes it exactly once
	if r := g.cmd("s"); !strings.Contains(r, "10:00001008;") {
		t.Fatalf("step reply %s", r)
	}
	if r := g.cmd("p0"); r != "00000004" {
		t.Fatalf("r0 after step = %s", r)
	}
	if r := g.cmd("z0,1006,2"); r != "OK" {
		t.Fatalf("z0: %s", r)
	}
	g.cmd("D")
	<-done
	if c.GetPC() != 0x1008 {
		t.Fatalf("core pc = %#x", c.GetPC())
	}
}

func TestEscape(t *testing.T) {
	in := []byte("a$b#c}d*")
	if out := unescape(escape(in)); string(out) != string(in) {
		t.Fatalf("escape round trip gave %q", out)
	}
}
