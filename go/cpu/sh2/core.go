package sh2

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/jnnycn007/fbalpha2012-cps3/go/models/cpu"
)

// fetchCache remembers the host buffer behind the last fetched page.
type fetchCache struct {
	page  uint32
	gen   uint32
	mem   []byte
	base  int64
	valid bool
}

// Core is one SH-2 with its address space and on-chip peripherals.
type Core struct {
	State
	*AddressSpace
	*cpu.Hooks

	// BusyLoops enables the idle-loop shortcuts for BRA-to-self and DT/BF
	// spins.
	BusyLoops bool

	icount      int32
	cyclesToRun int32
	running     bool
	halted      bool

	fc fetchCache
}

// New returns a core in its reset state with the on-chip register block
// mapped at 0xe0000000-0xffffffff and open bus everywhere else.
func New() *Core {
	c := &Core{AddressSpace: NewAddressSpace(), BusyLoops: true}
	c.Hooks = cpu.NewHooks(c)
	c.SetReadByteHandler(HandlerInternal, c.internalRead8)
	c.SetReadWordHandler(HandlerInternal, c.internalRead16)
	c.SetReadLongHandler(HandlerInternal, c.internalRead32)
	c.SetWriteByteHandler(HandlerInternal, c.internalWrite8)
	c.SetWriteWordHandler(HandlerInternal, c.internalWrite16)
	c.SetWriteLongHandler(HandlerInternal, c.internalWrite32)
	c.MapHandler(HandlerOpenBus, 0x40000000, 0xbfffffff, MapAll)
	c.MapHandler(HandlerInternal, 0xe0000000, 0xffffffff, MapAll)
	c.Reset(0, 0)
	return c
}

// Reset clears every register, peripheral and counter, then loads PC and R15
// and masks all interrupts.
func (c *Core) Reset(pc, sp uint32) {
	c.State = State{}
	c.PC = pc
	c.R[15] = sp
	c.SR = srI
	c.IntLevel = -1
	c.IntVector = -1
	c.fc.valid = false
}

func (c *Core) fetch(addr uint32) uint16 {
	page := addr >> pageShift
	if !c.fc.valid || c.fc.page != page || c.fc.gen != c.gen {
		mem, base, ok := c.fetchPage(page)
		if !ok {
			c.fc.valid = false
			return c.Fetch16(addr)
		}
		c.fc = fetchCache{page: page, gen: c.gen, mem: mem, base: base, valid: true}
	}
	i := c.fc.base + int64(addr&pageMask&^1)
	if i < 0 || i+2 > int64(len(c.fc.mem)) {
		return openBus16
	}
	return binary.BigEndian.Uint16(c.fc.mem[i:])
}

// data accesses record EA and feed the memory hooks

func (c *Core) rb(a uint32) uint8 {
	c.EA = a
	v := c.Read8(a)
	if c.AnyMem() {
		c.OnMem(cpu.MEM_READ, uint64(a), 1, int64(v))
	}
	return v
}

func (c *Core) rw(a uint32) uint16 {
	c.EA = a
	v := c.Read16(a)
	if c.AnyMem() {
		c.OnMem(cpu.MEM_READ, uint64(a), 2, int64(v))
	}
	return v
}

func (c *Core) rl(a uint32) uint32 {
	c.EA = a
	v := c.Read32(a)
	if c.AnyMem() {
		c.OnMem(cpu.MEM_READ, uint64(a), 4, int64(v))
	}
	return v
}

func (c *Core) wb(a uint32, v uint8) {
	c.EA = a
	c.Write8(a, v)
	if c.AnyMem() {
		c.OnMem(cpu.MEM_WRITE, uint64(a), 1, int64(v))
	}
}

func (c *Core) ww(a uint32, v uint16) {
	c.EA = a
	c.Write16(a, v)
	if c.AnyMem() {
		c.OnMem(cpu.MEM_WRITE, uint64(a), 2, int64(v))
	}
}

func (c *Core) wl(a uint32, v uint32) {
	c.EA = a
	c.Write32(a, v)
	if c.AnyMem() {
		c.OnMem(cpu.MEM_WRITE, uint64(a), 4, int64(v))
	}
}

// GetReg returns the register numbered per the R0..PPC constants.
func (c *Core) GetReg(reg int) (uint32, error) {
	p := c.regPtr(reg)
	if p == nil {
		return 0, errors.Errorf("sh2: no register %d", reg)
	}
	if reg == PC {
		return c.GetPC(), nil
	}
	return *p, nil
}

func (c *Core) SetReg(reg int, v uint32) error {
	p := c.regPtr(reg)
	if p == nil {
		return errors.Errorf("sh2: no register %d", reg)
	}
	if reg == SR {
		v &= srFlags
		c.TestIRQ = true
	}
	if reg == PC {
		c.Delay = 0
	}
	*p = v
	return nil
}

// RegRead, RegWrite, MemRead, MemWrite and Stop make Core a cpu.Cpu.

func (c *Core) RegRead(reg int) (uint64, error) {
	v, err := c.GetReg(reg)
	return uint64(v), err
}

func (c *Core) RegWrite(reg int, val uint64) error {
	return c.SetReg(reg, uint32(val))
}

// MemRead reads through the read table a byte at a time, so handlers see the
// same accesses a DMA byte transfer would make.
func (c *Core) MemRead(addr, size uint64) ([]byte, error) {
	if addr+size > 1<<32 {
		return nil, errors.Errorf("read %#x+%#x wraps the address space", addr, size)
	}
	out := make([]byte, size)
	for i := range out {
		out[i] = c.Read8(uint32(addr) + uint32(i))
	}
	return out, nil
}

func (c *Core) MemWrite(addr uint64, p []byte) error {
	if addr+uint64(len(p)) > 1<<32 {
		return errors.Errorf("write %#x+%#x wraps the address space", addr, len(p))
	}
	for i, b := range p {
		c.Write8(uint32(addr)+uint32(i), b)
	}
	return nil
}

// Stop halts Run before the next instruction executes. A stop requested from
// a code hook also cancels the instruction that fired the hook.
func (c *Core) Stop() error {
	c.halted = true
	c.StopRun()
	return nil
}

var _ cpu.Cpu = &Core{}
