package sh2

import (
	"testing"

	"github.com/jnnycn007/fbalpha2012-cps3/go/models/cpu"
)

func TestIRQPriority(t *testing.T) {
	c, ram := newTestCore(t, opLDCSR(0), opNOP, opNOP)
	load(ram, 66*4, 0, 0x2000)
	load(ram, 65*4, 0, 0x3000)
	load(ram, 0x2000, opRTE, opNOP)
	var vectors []uint32
	c.HookAdd(cpu.HOOK_INTR, func(_ cpu.Cpu, v uint32) { vectors = append(vectors, v) }, 1, 0)

	c.SetIRQLine(3, true)
	c.SetIRQLine(5, true)
	if c.GetPC() != codeBase || len(vectors) != 0 {
		t.Fatal("masked interrupt was taken")
	}
	// ldc r0,sr drops the mask; line 5 wins
	step(c, 1)
	if c.GetPC() != 0x2000 || c.SR>>4&15 != 5 {
		t.Fatalf("pc=%#x mask=%d, want line 5 handler", c.GetPC(), c.SR>>4&15)
	}
	c.SetIRQLine(5, false)
	// rte and its slot, then line 3
	step(c, 1)
	if c.GetPC() != 0x2002 {
		t.Fatalf("interrupt taken inside rte delay slot: pc=%#x", c.GetPC())
	}
	step(c, 1)
	if c.GetPC() != 0x3000 || c.SR>>4&15 != 3 {
		t.Fatalf("pc=%#x mask=%d, want line 3 handler", c.GetPC(), c.SR>>4&15)
	}
	if len(vectors) != 2 || vectors[0] != 66 || vectors[1] != 65 {
		t.Fatalf("vectors %v", vectors)
	}
	// line 3 frame returns to the instruction after ldc
	if c.Read32(c.R[15]) != codeBase+2 {
		t.Fatalf("return address %#x", c.Read32(c.R[15]))
	}
}

func TestIRQDeferredInDelaySlot(t *testing.T) {
	c, ram := newTestCore(t, opBRA(6), opADDI(0, 1))
	load(ram, 68*4, 0, 0x2000)
	c.SR = 0
	step(c, 1)
	c.SetIRQLine(8, true)
	if c.GetPC() != codeBase+2 {
		t.Fatal("interrupt split a branch from its slot")
	}
	step(c, 1)
	if c.R[0] != 1 || c.GetPC() != 0x2000 {
		t.Fatalf("r0=%d pc=%#x", c.R[0], c.GetPC())
	}
	// the frame resumes at the branch target
	if c.Read32(c.R[15]) != codeBase+0x10 {
		t.Fatalf("return address %#x", c.Read32(c.R[15]))
	}
}

func TestNMI(t *testing.T) {
	c, ram := newTestCore(t)
	load(ram, vectorNMI*4, 0, 0x2000)
	c.SetIRQLine(LineNMI, true)
	if c.GetPC() != 0x2000 {
		t.Fatalf("NMI ignored under full mask: pc=%#x", c.GetPC())
	}
	if c.SR&srI != srI {
		t.Fatalf("NMI mask %#x", c.SR&srI)
	}
	if c.Pending&pendingNMI != 0 || !c.IRQLine(LineNMI) {
		t.Fatal("NMI should be consumed while the line stays asserted")
	}
	// repeating the same level does not retrigger
	c.SetIRQLine(LineNMI, true)
	if c.R[15] != stackTop-8 {
		t.Fatal("NMI retriggered without an edge")
	}
}

func TestInternalSourceBeatsLowerLine(t *testing.T) {
	c, ram := newTestCore(t, opNOP)
	load(ram, 0x70*4, 0, 0x2000)
	c.Onchip[regFTCSR] = 0x08000000 | frtOCFA
	c.Write32(addrIPRB, 0x0c000000)
	c.Write32(addrVCRC, 0x70)
	c.SetIRQLine(4, true)
	c.SR = 0
	c.TestIRQ = true
	step(c, 1)
	if c.GetPC() != 0x2000 || c.SR>>4&15 != 12 {
		t.Fatalf("pc=%#x mask=%d, want the timer at level 12", c.GetPC(), c.SR>>4&15)
	}
}

func TestVectorBase(t *testing.T) {
	c, ram := newTestCore(t, opNOP)
	load(ram, 0x4000+66*4, 0, 0x2400)
	c.SR = 0
	c.SetVectorBase(0x4000)
	c.SetIRQLine(4, true)
	if c.GetPC() != 0x2400 || c.VBR != 0x4000 {
		t.Fatalf("pc=%#x vbr=%#x", c.GetPC(), c.VBR)
	}
}
