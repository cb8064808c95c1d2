package sh2

import (
	"testing"

	"github.com/jnnycn007/fbalpha2012-cps3/go/models/cpu"
)

func traceRun(c *Core, steps int) []uint64 {
	var trace []uint64
	hh, _ := c.HookAdd(cpu.HOOK_CODE, func(_ cpu.Cpu, addr uint64, size uint32) {
		trace = append(trace, addr)
	}, 1, 0)
	step(c, steps)
	c.HookDel(hh)
	return trace
}

func TestSaveRestore(t *testing.T) {
	prog := []uint16{opADDI(0, 1), opDT(1), opBF(-4), opMULL(0, 1), opBRA(-2), opNOP}
	c, _ := newTestCore(t, prog...)
	c.R[1] = 40
	c.Write32(addrOCR, 0x80000100)
	c.Write16(addrFTCSR+2, 1)
	step(c, 25)

	blob, err := c.SaveState()
	if err != nil {
		t.Fatal(err)
	}
	saved := c.State
	first := traceRun(c, 200)
	after := c.State

	if err := c.LoadState(blob); err != nil {
		t.Fatal(err)
	}
	if c.State != saved {
		t.Fatal("restored state differs from saved state")
	}
	second := traceRun(c, 200)
	if len(first) != len(second) {
		t.Fatalf("trace lengths %d != %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("trace diverged at step %d: %#x != %#x", i, first[i], second[i])
		}
	}
	if c.State != after {
		t.Fatal("final state differs after replay")
	}
}

func TestLoadStateRejectsGarbage(t *testing.T) {
	c, _ := newTestCore(t)
	c.R[3] = 0x1234
	blob, err := c.SaveState()
	if err != nil {
		t.Fatal(err)
	}
	before := c.State
	bad := append([]byte{}, blob...)
	bad[0] = 'X'
	if err := c.LoadState(bad); err == nil {
		t.Fatal("accepted bad magic")
	}
	if err := c.LoadState(blob[:len(blob)-4]); err == nil {
		t.Fatal("accepted truncated state")
	}
	if c.State != before {
		t.Fatal("failed load modified the core")
	}
}
