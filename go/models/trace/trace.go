package trace

import (
	"io"

	"github.com/pkg/errors"

	"github.com/jnnycn007/fbalpha2012-cps3/go/models"
	"github.com/jnnycn007/fbalpha2012-cps3/go/models/cpu"
)

type TraceConfig struct {
	// trace every executed instruction
	Exec bool
	// trace data reads as well as writes
	Mem bool
	// trace exception entries
	Intr bool
}

// Trace records what a core does through its hooks. Ops accumulate into a
// frame until Frame is called, normally once per Run slice.
type Trace struct {
	c        cpu.Cpu
	regCount int
	config   TraceConfig

	hooks []cpu.Hook
	frame *OpFrame
	tf    *TraceWriter

	attached bool
}

func NewTrace(c cpu.Cpu, regCount int, w io.WriteCloser, config TraceConfig) (*Trace, error) {
	tf, err := NewWriter(w, regCount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create trace writer")
	}
	return &Trace{
		c:        c,
		regCount: regCount,
		config:   config,
		frame:    &OpFrame{},
		tf:       tf,
	}, nil
}

func (t *Trace) hook(htype int, f interface{}) error {
	hh, err := t.c.HookAdd(htype, f, 1, 0)
	if err != nil {
		return errors.Wrap(err, "HookAdd failed")
	}
	t.hooks = append(t.hooks, hh)
	return nil
}

// Attach writes a keyframe with the current registers and starts tracing.
func (t *Trace) Attach(cycles uint64) error {
	if t.attached {
		return nil
	}
	key := &OpKeyframe{Cycles: cycles}
	for i := 0; i < t.regCount; i++ {
		val, err := t.c.RegRead(i)
		if err != nil {
			return err
		}
		key.Ops = append(key.Ops, &OpReg{Num: uint16(i), Val: uint32(val)})
	}
	if err := t.tf.Pack(key); err != nil {
		return errors.Wrap(err, "writing keyframe")
	}
	if t.config.Exec {
		if err := t.hook(cpu.HOOK_CODE, t.OnCode); err != nil {
			return err
		}
	}
	if t.config.Intr {
		if err := t.hook(cpu.HOOK_INTR, t.OnIntr); err != nil {
			return err
		}
	}
	mem := cpu.HOOK_MEM_WRITE
	if t.config.Mem {
		mem |= cpu.HOOK_MEM_READ
	}
	if err := t.hook(mem, t.OnMem); err != nil {
		return err
	}
	t.attached = true
	return nil
}

func (t *Trace) Detach() {
	for _, hh := range t.hooks {
		t.c.HookDel(hh)
	}
	t.hooks = nil
	t.attached = false
}

func (t *Trace) Append(op models.Op) {
	t.frame.Ops = append(t.frame.Ops, op)
}

func (t *Trace) OnCode(c cpu.Cpu, addr uint64, size uint32) {
	var opcode uint16
	if f, ok := c.(cpu.Fetcher); ok {
		opcode = f.Fetch16(uint32(addr))
	} else if b, err := c.MemRead(addr, 2); err == nil {
		opcode = order.Uint16(b)
	}
	t.Append(&OpStep{Addr: uint32(addr), Opcode: opcode})
}

func (t *Trace) OnIntr(c cpu.Cpu, vector uint32) {
	t.Append(&OpIntr{Vector: vector})
}

func (t *Trace) OnMem(c cpu.Cpu, access int, addr uint64, size int, val int64) {
	m := memOp{Addr: uint32(addr), Size: uint8(size), Val: uint32(val)}
	if access == cpu.MEM_WRITE {
		t.Append(&OpMemWrite{m})
	} else {
		t.Append(&OpMemRead{m})
	}
}

// Frame flushes everything since the last call, stamped with the cycle
// counter. Empty frames are still written so readers see the time base.
func (t *Trace) Frame(cycles uint64) error {
	t.frame.Cycles = cycles
	err := t.tf.Pack(t.frame)
	t.frame = &OpFrame{}
	return err
}

func (t *Trace) Close() error {
	t.Detach()
	if len(t.frame.Ops) > 0 {
		t.tf.Pack(t.frame)
	}
	return t.tf.Close()
}
