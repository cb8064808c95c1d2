package sh2

import (
	"encoding/binary"
	"testing"
)

const (
	ramSize   = 0x10000
	codeBase  = 0x1000
	stackTop  = 0x8000
	opNOP     = 0x0009
	opRTE     = 0x002b
	opRTS     = 0x000b
	opSLEEP   = 0x001b
	opCLRMAC  = 0x0028
	opIllegal = 0xffff
)

// instruction encoders for tests
func opADD(n, m int) uint16   { return 0x300c | uint16(n)<<8 | uint16(m)<<4 }
func opADDV(n, m int) uint16  { return 0x300f | uint16(n)<<8 | uint16(m)<<4 }
func opADDI(n, i int) uint16  { return 0x7000 | uint16(n)<<8 | uint16(uint8(i)) }
func opMOVI(n, i int) uint16  { return 0xe000 | uint16(n)<<8 | uint16(uint8(i)) }
func opMOVLS(n, m int) uint16 { return 0x2002 | uint16(n)<<8 | uint16(m)<<4 }
func opMULL(n, m int) uint16  { return 0x0007 | uint16(n)<<8 | uint16(m)<<4 }
func opBRA(d int) uint16      { return 0xa000 | uint16(d)&0xfff }
func opBSR(d int) uint16      { return 0xb000 | uint16(d)&0xfff }
func opBF(d int) uint16       { return 0x8b00 | uint16(uint8(d)) }
func opJMP(n int) uint16      { return 0x402b | uint16(n)<<8 }
func opDT(n int) uint16       { return 0x4010 | uint16(n)<<8 }
func opLDCSR(n int) uint16    { return 0x400e | uint16(n)<<8 }

func load(ram []byte, addr uint32, code ...uint16) {
	for i, op := range code {
		binary.BigEndian.PutUint16(ram[addr+uint32(i)*2:], op)
	}
}

func newTestCore(t testing.TB, code ...uint16) (*Core, []byte) {
	c := New()
	c.BusyLoops = false
	ram := make([]byte, ramSize)
	if err := c.MapMemory(ram, 0, ramSize-1, MapAll); err != nil {
		t.Fatal(err)
	}
	c.Reset(codeBase, stackTop)
	load(ram, codeBase, code...)
	return c, ram
}

// step executes exactly n instructions.
func step(c *Core, n int) {
	for i := 0; i < n; i++ {
		c.Run(1)
	}
}

func TestResetState(t *testing.T) {
	c, _ := newTestCore(t)
	if c.PC != codeBase || c.R[15] != stackTop {
		t.Fatalf("reset pc/sp = %#x/%#x", c.PC, c.R[15])
	}
	if c.SR != srI {
		t.Fatalf("reset SR = %#x, want all interrupts masked", c.SR)
	}
	if c.IntLevel != -1 || c.Delay != 0 || c.TotalCycles() != 0 {
		t.Fatalf("reset left state behind: %+v", c.State)
	}
}

func TestAddAllRegisters(t *testing.T) {
	for n := 0; n < 16; n++ {
		for m := 0; m < 16; m++ {
			c, _ := newTestCore(t, opADD(n, m))
			for i := range c.R {
				c.R[i] = uint32(i)*0x11111111 + 7
			}
			before := c.State
			want := before.R[n] + before.R[m]
			if used := c.Run(1); used != 1 {
				t.Fatalf("add r%d,r%d took %d cycles", m, n, used)
			}
			if c.R[n] != want {
				t.Fatalf("add r%d,r%d = %#x, want %#x", m, n, c.R[n], want)
			}
			for i := range c.R {
				if i != n && c.R[i] != before.R[i] {
					t.Fatalf("add r%d,r%d clobbered r%d", m, n, i)
				}
			}
			if c.SR != before.SR {
				t.Fatalf("add changed SR: %#x -> %#x", before.SR, c.SR)
			}
		}
	}
}

func TestAddOverflow(t *testing.T) {
	cases := []struct {
		a, b uint32
		t    bool
	}{
		{1, 2, false},
		{0x7fffffff, 1, true},
		{0x80000000, 0xffffffff, true},
		{0xffffffff, 0xffffffff, false},
		{0x80000000, 1, false},
		{0x7fffffff, 0x80000000, false},
		{0x80000000, 0x80000000, true},
		{0x7fffffff, 0x7fffffff, true},
	}
	for _, v := range cases {
		c, _ := newTestCore(t, opADDV(1, 2))
		c.R[1], c.R[2] = v.a, v.b
		c.Run(1)
		if c.R[1] != v.a+v.b {
			t.Errorf("addv %#x+%#x = %#x", v.a, v.b, c.R[1])
		}
		if (c.SR&srT != 0) != v.t {
			t.Errorf("addv %#x+%#x: T=%d, want %v", v.a, v.b, c.SR&srT, v.t)
		}
	}
}

func TestUndefinedOpcodeIsNop(t *testing.T) {
	c, _ := newTestCore(t, opIllegal)
	before := c.State
	if used := c.Run(1); used != 1 {
		t.Fatalf("undefined opcode took %d cycles", used)
	}
	if c.R != before.R || c.SR != before.SR || c.PC != before.PC+2 {
		t.Fatal("undefined opcode changed state")
	}
}

func TestBranchDelaySlot(t *testing.T) {
	// bra 0x1010; add #1,r0 (slot); add #16,r0 (skipped)
	c, _ := newTestCore(t, opBRA(6), opADDI(0, 1), opADDI(0, 16))
	if used := c.Run(1); used != 2 {
		t.Fatalf("bra took %d cycles, want 2", used)
	}
	if c.GetPC() != codeBase+2 || c.R[0] != 0 {
		t.Fatalf("after bra: pc=%#x r0=%d", c.GetPC(), c.R[0])
	}
	step(c, 1)
	if c.R[0] != 1 || c.GetPC() != codeBase+0x10 {
		t.Fatalf("after slot: pc=%#x r0=%d", c.GetPC(), c.R[0])
	}
	step(c, 1)
	if c.R[0] != 1 {
		t.Fatalf("skipped instruction ran: r0=%d", c.R[0])
	}
}

func TestJumpTargetReadBeforeSlot(t *testing.T) {
	// jmp @r2; mov #0,r2 (slot rewrites the jump register)
	c, _ := newTestCore(t, opJMP(2), opMOVI(2, 0), opADDI(3, 1))
	c.R[2] = codeBase + 0x10
	step(c, 2)
	if c.GetPC() != codeBase+0x10 || c.R[2] != 0 || c.R[3] != 0 {
		t.Fatalf("pc=%#x r2=%#x r3=%d", c.GetPC(), c.R[2], c.R[3])
	}
}

func TestBsrReturnAddress(t *testing.T) {
	c, ram := newTestCore(t, opBSR(6), opNOP)
	load(ram, codeBase+0x10, opRTS, opADDI(4, 1))
	step(c, 2)
	if c.PR != codeBase+4 || c.GetPC() != codeBase+0x10 {
		t.Fatalf("pr=%#x pc=%#x", c.PR, c.GetPC())
	}
	step(c, 2)
	if c.GetPC() != codeBase+4 || c.R[4] != 1 {
		t.Fatalf("after rts: pc=%#x r4=%d", c.GetPC(), c.R[4])
	}
}

func TestCycleCosts(t *testing.T) {
	cases := []struct {
		op   uint16
		want int
	}{
		{opNOP, 1},
		{opMULL(1, 2), 2},
		{opSLEEP, 3},
		{0xc300, 8}, // trapa #0
		{0x401b, 4}, // tas.b @r0
		{0xcf01, 3}, // or.b #1,@(r0,gbr)
		{0xcb01, 1}, // or #1,r0
		{0x4107, 3}, // ldc.l @r1+,sr
	}
	for _, v := range cases {
		c, _ := newTestCore(t, v.op)
		c.R[0], c.R[1] = 0x3000, 0x3000
		c.GBR = 0x100
		if used := c.Run(1); used != v.want {
			t.Errorf("%04x: %d cycles, want %d", v.op, used, v.want)
		}
	}
}

func TestSleepHoldsPC(t *testing.T) {
	c, _ := newTestCore(t, opSLEEP)
	c.Run(30)
	if c.GetPC() != codeBase {
		t.Fatalf("sleep moved pc to %#x", c.GetPC())
	}
}

func TestCycleAccounting(t *testing.T) {
	c, _ := newTestCore(t)
	if used := c.Run(100); used != 100 {
		t.Fatalf("ran %d cycles, want 100", used)
	}
	c.BurnCycles(10)
	if c.TotalCycles() != 110 {
		t.Fatalf("total %d, want 110", c.TotalCycles())
	}
	c.NewFrame()
	if c.TotalCycles() != 0 {
		t.Fatalf("new frame left %d cycles", c.TotalCycles())
	}
	c.Run(5)
	if c.TotalCycles() != 5 {
		t.Fatalf("total %d after new frame, want 5", c.TotalCycles())
	}
}

func TestStopRunFromHandler(t *testing.T) {
	c, _ := newTestCore(t, opMOVLS(2, 1), opNOP, opNOP)
	c.SetWriteLongHandler(0, func(addr, v uint32) { c.StopRun() })
	if err := c.MapHandler(0, 0x20000000, 0x2000ffff, MapWrite); err != nil {
		t.Fatal(err)
	}
	c.R[2] = 0x20000000
	if used := c.Run(100); used != 1 {
		t.Fatalf("stopped run used %d cycles, want 1", used)
	}
	if c.GetPC() != codeBase+2 {
		t.Fatalf("pc %#x after stop", c.GetPC())
	}
}

func TestSuspendBurnsBudget(t *testing.T) {
	c, _ := newTestCore(t)
	c.BurnUntilInterrupt()
	if used := c.Run(50); used != 50 {
		t.Fatalf("suspended run used %d", used)
	}
	if c.GetPC() != codeBase {
		t.Fatal("suspended core executed code")
	}
	c.SetIRQLine(1, true)
	c.Run(1)
	if c.GetPC() != codeBase+2 {
		t.Fatal("core did not resume after interrupt line")
	}
}

func TestBusyLoopMatchesPlainExecution(t *testing.T) {
	prog := []uint16{opADDI(0, 1), opDT(1), opBF(-4), opDT(2), opBF(-3), opBRA(-2), opNOP}
	run := func(busy bool) State {
		c, _ := newTestCore(t, prog...)
		c.BusyLoops = busy
		c.R[1] = 3
		c.R[2] = 20
		c.Run(400)
		return c.State
	}
	// the idle BRA is entered with a budget that is a multiple of three, so
	// the shortcut ends on the BRA while plain execution ends on its slot;
	// registers and flags must agree
	plain, fast := run(false), run(true)
	if plain.R != fast.R || plain.SR != fast.SR {
		t.Fatalf("busy loop diverged:\n%v\n%v", plain.R, fast.R)
	}
}
