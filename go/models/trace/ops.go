package trace

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/jnnycn007/fbalpha2012-cps3/go/models"
)

// ops are stored in the core's byte order
var order = binary.BigEndian

const (
	OP_NOP       = 0
	OP_FRAME     = 1
	OP_KEYFRAME  = 2
	OP_STEP      = 3
	OP_INTR      = 4
	OP_REG       = 5
	OP_MEM_READ  = 6
	OP_MEM_WRITE = 7
)

// used by frame and keyframe
func packOps(p []byte, ops []models.Op) {
	for _, op := range ops {
		op.Pack(p)
		p = p[op.Sizeof():]
	}
}

func unpackOps(r io.Reader, count int) (ops []models.Op, total int, err error) {
	ops = make([]models.Op, count)
	for i := 0; i < count; i++ {
		op, n, err := Unpack(r, true)
		total += n
		if err != nil {
			return ops, total, errors.Wrap(err, "unpacking op list")
		}
		ops[i] = op
	}
	return ops, total, nil
}

// Unpack reads one op. Frames may not nest.
func Unpack(r io.Reader, nested bool) (models.Op, int, error) {
	var tmp [1]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return nil, 0, err
	}
	var op models.Op
	switch tmp[0] {
	case OP_NOP:
		op = &OpNop{}
	case OP_STEP:
		op = &OpStep{}
	case OP_INTR:
		op = &OpIntr{}
	case OP_REG:
		op = &OpReg{}
	case OP_MEM_READ:
		op = &OpMemRead{}
	case OP_MEM_WRITE:
		op = &OpMemWrite{}
	case OP_FRAME:
		op = &OpFrame{}
	case OP_KEYFRAME:
		op = &OpKeyframe{}
	default:
		return nil, 1, errors.Errorf("unknown op: %d", tmp[0])
	}
	if nested && (tmp[0] == OP_FRAME || tmp[0] == OP_KEYFRAME) {
		return nil, 1, errors.New("nested frame")
	}
	n, err := op.Unpack(r)
	return op, n + 1, err
}

type OpNop struct{}

func (o *OpNop) Sizeof() int                     { return 1 }
func (o *OpNop) Pack(p []byte)                   { p[0] = OP_NOP }
func (o *OpNop) Unpack(r io.Reader) (int, error) { return 0, nil }

// OpStep is one executed instruction.
type OpStep struct {
	Addr   uint32
	Opcode uint16
}

func (o *OpStep) Sizeof() int { return 1 + 4 + 2 }
func (o *OpStep) Pack(p []byte) {
	p[0] = OP_STEP
	order.PutUint32(p[1:], o.Addr)
	order.PutUint16(p[5:], o.Opcode)
}

func (o *OpStep) Unpack(r io.Reader) (int, error) {
	var tmp [4 + 2]byte
	n, err := io.ReadFull(r, tmp[:])
	if err == nil {
		o.Addr = order.Uint32(tmp[:])
		o.Opcode = order.Uint16(tmp[4:])
	}
	return n, err
}

// OpIntr is an exception entry: an accepted interrupt or a TRAPA.
type OpIntr struct {
	Vector uint32
}

func (o *OpIntr) Sizeof() int { return 1 + 4 }
func (o *OpIntr) Pack(p []byte) {
	p[0] = OP_INTR
	order.PutUint32(p[1:], o.Vector)
}

func (o *OpIntr) Unpack(r io.Reader) (int, error) {
	var tmp [4]byte
	n, err := io.ReadFull(r, tmp[:])
	if err == nil {
		o.Vector = order.Uint32(tmp[:])
	}
	return n, err
}

type OpReg struct {
	Num uint16
	Val uint32
}

func (o *OpReg) Sizeof() int { return 1 + 2 + 4 }
func (o *OpReg) Pack(p []byte) {
	p[0] = OP_REG
	order.PutUint16(p[1:], o.Num)
	order.PutUint32(p[3:], o.Val)
}

func (o *OpReg) Unpack(r io.Reader) (int, error) {
	var tmp [2 + 4]byte
	n, err := io.ReadFull(r, tmp[:])
	if err == nil {
		o.Num = order.Uint16(tmp[:])
		o.Val = order.Uint32(tmp[2:])
	}
	return n, err
}

// memory ops share a body: addr, access size, value
type memOp struct {
	Addr uint32
	Size uint8
	Val  uint32
}

func (o *memOp) pack(p []byte, kind byte) {
	p[0] = kind
	order.PutUint32(p[1:], o.Addr)
	p[5] = o.Size
	order.PutUint32(p[6:], o.Val)
}

func (o *memOp) Unpack(r io.Reader) (int, error) {
	var tmp [4 + 1 + 4]byte
	n, err := io.ReadFull(r, tmp[:])
	if err == nil {
		o.Addr = order.Uint32(tmp[:])
		o.Size = tmp[4]
		o.Val = order.Uint32(tmp[5:])
	}
	return n, err
}

type OpMemRead struct{ memOp }

func (o *OpMemRead) Sizeof() int   { return 1 + 4 + 1 + 4 }
func (o *OpMemRead) Pack(p []byte) { o.pack(p, OP_MEM_READ) }

type OpMemWrite struct{ memOp }

func (o *OpMemWrite) Sizeof() int   { return 1 + 4 + 1 + 4 }
func (o *OpMemWrite) Pack(p []byte) { o.pack(p, OP_MEM_WRITE) }

// OpFrame holds everything that happened during one Run slice. Cycles is
// the core's total cycle count when the slice ended.
type OpFrame struct {
	Cycles uint64
	Ops    []models.Op
}

func (o *OpFrame) Sizeof() int {
	size := 1 + 8 + 4
	for _, op := range o.Ops {
		size += op.Sizeof()
	}
	return size
}

func (o *OpFrame) Pack(p []byte) {
	o.pack(p, OP_FRAME)
}

func (o *OpFrame) pack(p []byte, kind byte) {
	p[0] = kind
	order.PutUint64(p[1:], o.Cycles)
	order.PutUint32(p[9:], uint32(len(o.Ops)))
	packOps(p[1+8+4:], o.Ops)
}

func (o *OpFrame) Unpack(r io.Reader) (int, error) {
	var tmp [8 + 4]byte
	total, err := io.ReadFull(r, tmp[:])
	if err != nil {
		return total, errors.Wrap(err, "frame unpack")
	}
	o.Cycles = order.Uint64(tmp[:])
	count := int(order.Uint32(tmp[8:]))
	ops, n, err := unpackOps(r, count)
	o.Ops = ops
	return total + n, err
}

// OpKeyframe carries the full register file so a reader can start from it.
type OpKeyframe OpFrame

func (o *OpKeyframe) Sizeof() int   { return (*OpFrame)(o).Sizeof() }
func (o *OpKeyframe) Pack(p []byte) { (*OpFrame)(o).pack(p, OP_KEYFRAME) }

func (o *OpKeyframe) Unpack(r io.Reader) (int, error) {
	return (*OpFrame)(o).Unpack(r)
}
