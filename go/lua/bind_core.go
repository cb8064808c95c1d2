package lua

import (
	"github.com/lunixbochs/luaish"

	"github.com/jnnycn007/fbalpha2012-cps3/go/cpu/sh2"
	"github.com/jnnycn007/fbalpha2012-cps3/go/models/cpu"
)

type binding struct {
	L *LuaRepl
}

func (b *binding) Exports() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"mem_read":  b.MemRead,
		"mem_write": b.MemWrite,
		"read32":    b.Read32,
		"write32":   b.Write32,
		"describe":  b.Describe,

		"reg_read":  b.RegRead,
		"reg_write": b.RegWrite,

		"run":    b.Run,
		"step":   b.Step,
		"stop":   b.Stop,
		"reset":  b.Reset,
		"irq":    b.Irq,
		"cycles": b.Cycles,

		"save": b.Save,
		"load": b.Load,

		"dis": b.Dis,

		"hook_add": b.HookAdd,
		"hook_del": b.HookDel,
	}
}

func (b *binding) checkErr(err error) {
	if err != nil {
		b.L.RaiseError(err.Error())
	}
}

// registers can be named or numbered
func (b *binding) checkReg(L *lua.LState, n int) int {
	switch v := L.CheckAny(n).(type) {
	case lua.LInt:
		return int(v)
	case lua.LString:
		if i, ok := sh2.RegIndex(string(v)); ok {
			return i
		}
		L.RaiseError("unknown register %s", string(v))
	default:
		L.ArgError(n, "register name or number expected")
	}
	return 0
}

func (b *binding) MemRead(L *lua.LState) int {
	addr, size := L.CheckUint64(1), L.CheckUint64(2)
	mem, err := b.L.core.MemRead(addr, size)
	b.checkErr(err)
	L.Push(lua.LString(mem))
	return 1
}

func (b *binding) MemWrite(L *lua.LState) int {
	addr, data := L.CheckUint64(1), L.CheckString(2)
	b.checkErr(b.L.core.MemWrite(addr, []byte(data)))
	return 0
}

func (b *binding) Read32(L *lua.LState) int {
	L.Push(lua.LInt(b.L.core.Read32(uint32(L.CheckUint64(1)))))
	return 1
}

func (b *binding) Write32(L *lua.LState) int {
	b.L.core.Write32(uint32(L.CheckUint64(1)), uint32(L.CheckUint64(2)))
	return 0
}

func (b *binding) RegRead(L *lua.LState) int {
	val, err := b.L.core.GetReg(b.checkReg(L, 1))
	b.checkErr(err)
	L.Push(lua.LInt(val))
	return 1
}

func (b *binding) RegWrite(L *lua.LState) int {
	reg := b.checkReg(L, 1)
	b.checkErr(b.L.core.SetReg(reg, uint32(L.CheckUint64(2))))
	return 0
}

// run(cycles) returns the cycles actually used
func (b *binding) Run(L *lua.LState) int {
	b.L.EnvFromLua()
	used := b.L.core.Run(L.CheckInt(1))
	b.L.EnvToLua()
	L.Push(lua.LInt(used))
	return 1
}

// step(n) executes n instructions, stopping early if a hook stops the core
func (b *binding) Step(L *lua.LState) int {
	n := L.OptInt(1, 1)
	b.L.EnvFromLua()
	for i := 0; i < n; i++ {
		if b.L.core.Run(1) == 0 {
			break
		}
	}
	b.L.EnvToLua()
	return 0
}

func (b *binding) Stop(L *lua.LState) int {
	b.checkErr(b.L.core.Stop())
	return 0
}

func (b *binding) Reset(L *lua.LState) int {
	b.L.core.Reset(uint32(L.CheckUint64(1)), uint32(L.CheckUint64(2)))
	b.L.EnvToLua()
	return 0
}

func (b *binding) Irq(L *lua.LState) int {
	line := L.CheckInt(1)
	if line < 0 || line > sh2.LineNMI {
		L.ArgError(1, "line out of range")
	}
	b.L.core.SetIRQLine(line, L.OptBool(2, true))
	return 0
}

// Describe reports what backs an address for reads, writes and fetches.
func (b *binding) Describe(L *lua.LState) int {
	L.Push(lua.LString(b.L.core.Describe(uint32(L.CheckUint64(1)))))
	return 1
}

func (b *binding) Cycles(L *lua.LState) int {
	L.Push(lua.LInt(b.L.core.TotalCycles()))
	return 1
}

func (b *binding) Save(L *lua.LState) int {
	data, err := b.L.core.SaveState()
	b.checkErr(err)
	L.Push(lua.LString(data))
	return 1
}

func (b *binding) Load(L *lua.LState) int {
	b.checkErr(b.L.core.LoadState([]byte(L.CheckString(1))))
	b.L.EnvToLua()
	return 0
}

// dis(addr, size) returns a list of {addr, name, op_str, bytes}
func (b *binding) Dis(L *lua.LState) int {
	addr, size := L.CheckUint64(1), L.CheckUint64(2)
	mem, err := b.L.core.MemRead(addr, size)
	b.checkErr(err)
	dis, err := (&sh2.Dis{}).Dis(mem, addr)
	b.checkErr(err)
	out := L.NewTable()
	for i, ins := range dis {
		t := L.NewTable()
		t.RawSetString("addr", lua.LInt(ins.Addr()))
		t.RawSetString("name", lua.LString(ins.Mnemonic()))
		t.RawSetString("op_str", lua.LString(ins.OpStr()))
		t.RawSetString("bytes", lua.LString(ins.Bytes()))
		out.RawSetInt(i+1, t)
	}
	L.Push(out)
	return 1
}

// callHook runs a lua callback from inside the core. Errors stop the core.
func (b *binding) callHook(fn *lua.LFunction, args ...lua.LValue) {
	L := b.L
	L.EnvToLua()
	L.Push(fn)
	for _, v := range args {
		L.Push(v)
	}
	if err := L.PCall(len(args), 0, nil); err != nil {
		L.Println(err)
		L.core.Stop()
		return
	}
	L.EnvFromLua()
}

// hook_add(type, fn[, start, stop]) returns a handle for hook_del
func (b *binding) HookAdd(L *lua.LState) int {
	htype, fn := L.CheckInt(1), L.CheckFunction(2)
	start, end := uint64(1), uint64(0)
	if L.GetTop() >= 3 {
		start = L.CheckUint64(3)
		end = start
		if L.GetTop() >= 4 {
			end = L.CheckUint64(4)
		}
	}
	var cb interface{}
	switch htype {
	case cpu.HOOK_CODE, cpu.HOOK_BLOCK:
		cb = func(_ cpu.Cpu, addr uint64, size uint32) {
			b.callHook(fn, lua.LInt(addr), lua.LInt(size))
		}
	case cpu.HOOK_INTR:
		cb = func(_ cpu.Cpu, vector uint32) {
			b.callHook(fn, lua.LInt(vector))
		}
	default:
		cb = func(_ cpu.Cpu, access int, addr uint64, size int, val int64) {
			b.callHook(fn, lua.LInt(access), lua.LInt(addr), lua.LInt(size), lua.LInt(val))
		}
	}
	h, err := b.L.core.HookAdd(htype, cb, start, end)
	b.checkErr(err)
	b.L.hookId++
	b.L.hooks[b.L.hookId] = h
	L.Push(lua.LInt(b.L.hookId))
	return 1
}

func (b *binding) HookDel(L *lua.LState) int {
	id := L.CheckInt(1)
	if h, ok := b.L.hooks[id]; ok {
		b.checkErr(b.L.core.HookDel(h))
		delete(b.L.hooks, id)
	}
	return 0
}
