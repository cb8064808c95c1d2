package trace

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/ioutil"
	"testing"

	"github.com/jnnycn007/fbalpha2012-cps3/go/cpu/sh2"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func TestTraceCore(t *testing.T) {
	c := sh2.New()
	c.BusyLoops = false
	ram := make([]byte, 0x10000)
	if err := c.MapMemory(ram, 0, 0xffff, sh2.MapAll); err != nil {
		t.Fatal(err)
	}
	// mov #1,r0; mov.l r0,@r1; add #1,r0
	for i, op := range []uint16{0xe001, 0x2102, 0x7001} {
		binary.BigEndian.PutUint16(ram[0x1000+i*2:], op)
	}
	c.Reset(0x1000, 0x8000)
	c.R[1] = 0x3000

	var buf bytes.Buffer
	tr, err := NewTrace(c, sh2.RegCount, nopCloser{&buf}, TraceConfig{Exec: true, Intr: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Attach(uint64(c.TotalCycles())); err != nil {
		t.Fatal(err)
	}
	c.Run(3)
	if err := tr.Frame(uint64(c.TotalCycles())); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(ioutil.NopCloser(&buf))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.Header.Arch != "sh2" || int(r.Header.RegCount) != sh2.RegCount {
		t.Fatalf("bad header %+v", r.Header)
	}
	op, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	key, ok := op.(*OpKeyframe)
	if !ok || len(key.Ops) != sh2.RegCount {
		t.Fatalf("want keyframe first, got %#v", op)
	}
	if pc := key.Ops[sh2.PC].(*OpReg); pc.Val != 0x1000 {
		t.Fatalf("keyframe pc = %#x", pc.Val)
	}

	op, err = r.Next()
	if err != nil {
		t.Fatal(err)
	}
	frame := op.(*OpFrame)
	if frame.Cycles != 3 {
		t.Fatalf("frame cycles = %d", frame.Cycles)
	}
	var steps []uint32
	var writes []*OpMemWrite
	for _, op := range frame.Ops {
		switch o := op.(type) {
		case *OpStep:
			steps = append(steps, o.Addr)
		case *OpMemWrite:
			writes = append(writes, o)
		}
	}
	if len(steps) != 3 || steps[0] != 0x1000 || steps[2] != 0x1004 {
		t.Fatalf("steps %#x", steps)
	}
	if len(writes) != 1 || writes[0].Addr != 0x3000 || writes[0].Size != 4 || writes[0].Val != 1 {
		t.Fatalf("writes %+v", writes)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("want EOF, got %v", err)
	}
}

func TestTraceRecordsFetchedWord(t *testing.T) {
	c := sh2.New()
	c.BusyLoops = false
	code := make([]byte, 0x10000)
	data := make([]byte, 0x10000)
	c.MapMemory(code, 0, 0xffff, sh2.MapFetch)
	c.MapMemory(data, 0, 0xffff, sh2.MapRead|sh2.MapWrite)
	binary.BigEndian.PutUint16(code[0x1000:], 0x7001)
	binary.BigEndian.PutUint16(data[0x1000:], 0xe0ff)
	c.Reset(0x1000, 0x8000)

	var buf bytes.Buffer
	tr, err := NewTrace(c, sh2.RegCount, nopCloser{&buf}, TraceConfig{Exec: true})
	if err != nil {
		t.Fatal(err)
	}
	tr.Attach(0)
	c.Run(1)
	tr.Frame(1)
	tr.Close()
	if c.R[0] != 1 {
		t.Fatalf("executed the data word: r0 = %#x", c.R[0])
	}

	r, err := NewReader(ioutil.NopCloser(&buf))
	if err != nil {
		t.Fatal(err)
	}
	r.Next()
	op, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	step := op.(*OpFrame).Ops[0].(*OpStep)
	if step.Opcode != 0x7001 {
		t.Fatalf("traced opcode %#04x, want the fetched 0x7001", step.Opcode)
	}
}
