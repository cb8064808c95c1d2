package trace

import (
	"encoding/json"
	"fmt"
)

func bprintf(f string, args ...interface{}) []byte {
	return []byte(fmt.Sprintf(f, args...))
}

func (o *OpNop) MarshalJSON() ([]byte, error) {
	return bprintf(`{"op":%d}`, OP_NOP), nil
}

func (o *OpStep) MarshalJSON() ([]byte, error) {
	return bprintf(`{"op":%d,"addr":%d,"opcode":%d}`, OP_STEP, o.Addr, o.Opcode), nil
}

func (o *OpIntr) MarshalJSON() ([]byte, error) {
	return bprintf(`{"op":%d,"vector":%d}`, OP_INTR, o.Vector), nil
}

func (o *OpReg) MarshalJSON() ([]byte, error) {
	return bprintf(`{"op":%d,"num":%d,"val":%d}`, OP_REG, o.Num, o.Val), nil
}

func (o *OpMemRead) MarshalJSON() ([]byte, error) {
	return bprintf(`{"op":%d,"addr":%d,"size":%d,"val":%d}`, OP_MEM_READ, o.Addr, o.Size, o.Val), nil
}

func (o *OpMemWrite) MarshalJSON() ([]byte, error) {
	return bprintf(`{"op":%d,"addr":%d,"size":%d,"val":%d}`, OP_MEM_WRITE, o.Addr, o.Size, o.Val), nil
}

func (o *OpKeyframe) MarshalJSON() ([]byte, error) {
	ops, err := json.Marshal(o.Ops)
	if err != nil {
		return nil, err
	}
	return bprintf(`{"op":%d,"cycles":%d,"ops":%s}`, OP_KEYFRAME, o.Cycles, ops), nil
}

func (o *OpFrame) MarshalJSON() ([]byte, error) {
	ops, err := json.Marshal(o.Ops)
	if err != nil {
		return nil, err
	}
	return bprintf(`{"op":%d,"cycles":%d,"ops":%s}`, OP_FRAME, o.Cycles, ops), nil
}
