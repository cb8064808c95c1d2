package cpu

import (
	"github.com/pkg/errors"
)

type Hook interface{}

// type CodeCb func(Cpu, uint64, uint32)
// type IntrCb func(Cpu, uint32)
// type MemCb func(Cpu, int, uint64, int, int64)

type hookInfo struct {
	htype int
	start uint64
	end   uint64
}

func (h *hookInfo) Type() int {
	return h.htype
}

// an inverted range (start > end) matches every address
func (h *hookInfo) Contains(addr uint64) bool {
	return h.start > h.end || addr >= h.start && addr <= h.end
}

type hinfo interface {
	Type() int
}

type codeHook struct {
	hookInfo
	cb func(Cpu, uint64, uint32)
}

type intrHook struct {
	hookInfo
	cb func(Cpu, uint32)
}

type memHook struct {
	hookInfo
	cb func(Cpu, int, uint64, int, int64)
}

// Hooks is a callback registry an interpreter embeds and fires from its
// execution loop.
type Hooks struct {
	cpu Cpu

	code  []*codeHook
	block []*codeHook
	intr  []*intrHook
	mem   []*memHook
}

func NewHooks(cpu Cpu) *Hooks {
	return &Hooks{cpu: cpu}
}

func (h *Hooks) HookAdd(htype int, cb interface{}, start uint64, end uint64, extra ...int) (Hook, error) {
	info := hookInfo{htype, start, end}
	var hook interface{}
	switch htype {
	case HOOK_BLOCK, HOOK_CODE:
		fn, ok := cb.(func(Cpu, uint64, uint32))
		if !ok {
			return nil, errors.Errorf("hook type %d: bad callback %T", htype, cb)
		}
		hh := &codeHook{info, fn}
		if htype == HOOK_BLOCK {
			h.block, hook = append(h.block, hh), hh
		} else {
			h.code, hook = append(h.code, hh), hh
		}

	case HOOK_INTR:
		fn, ok := cb.(func(Cpu, uint32))
		if !ok {
			return nil, errors.Errorf("hook type %d: bad callback %T", htype, cb)
		}
		hh := &intrHook{info, fn}
		h.intr, hook = append(h.intr, hh), hh

	case HOOK_MEM_READ, HOOK_MEM_WRITE, HOOK_MEM_READ | HOOK_MEM_WRITE:
		fn, ok := cb.(func(Cpu, int, uint64, int, int64))
		if !ok {
			return nil, errors.Errorf("hook type %d: bad callback %T", htype, cb)
		}
		hh := &memHook{info, fn}
		h.mem, hook = append(h.mem, hh), hh

	default:
		return nil, errors.Errorf("unknown hook type %d", htype)
	}
	return hook, nil
}

func (h *Hooks) HookDel(hh Hook) error {
	info, ok := hh.(hinfo)
	if !ok {
		return errors.Errorf("not a hook: %T", hh)
	}
	switch info.Type() {
	case HOOK_BLOCK:
		h.block = delCode(h.block, hh)
	case HOOK_CODE:
		h.code = delCode(h.code, hh)
	case HOOK_INTR:
		var tmp []*intrHook
		for _, v := range h.intr {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.intr = tmp
	case HOOK_MEM_READ, HOOK_MEM_WRITE, HOOK_MEM_READ | HOOK_MEM_WRITE:
		var tmp []*memHook
		for _, v := range h.mem {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.mem = tmp
	}
	return nil
}

func delCode(list []*codeHook, hh Hook) []*codeHook {
	var tmp []*codeHook
	for _, v := range list {
		if v != hh {
			tmp = append(tmp, v)
		}
	}
	return tmp
}

// Any* let the interpreter skip building hook arguments on the hot path.
func (h *Hooks) AnyCode() bool  { return len(h.code) > 0 }
func (h *Hooks) AnyBlock() bool { return len(h.block) > 0 }
func (h *Hooks) AnyMem() bool   { return len(h.mem) > 0 }

func (h *Hooks) OnBlock(addr uint64, size uint32) {
	for _, v := range h.block {
		if v.Contains(addr) {
			v.cb(h.cpu, addr, size)
		}
	}
}

func (h *Hooks) OnCode(addr uint64, size uint32) {
	for _, v := range h.code {
		if v.Contains(addr) {
			v.cb(h.cpu, addr, size)
		}
	}
}

func (h *Hooks) OnIntr(intno uint32) {
	for _, v := range h.intr {
		v.cb(h.cpu, intno)
	}
}

func (h *Hooks) OnMem(access int, addr uint64, size int, val int64) {
	for _, v := range h.mem {
		if v.Contains(addr) {
			if access == MEM_READ && v.htype&HOOK_MEM_READ == 0 {
				continue
			}
			if access == MEM_WRITE && v.htype&HOOK_MEM_WRITE == 0 {
				continue
			}
			v.cb(h.cpu, access, addr, size, val)
		}
	}
}
