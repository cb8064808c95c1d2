package lua

import (
	"strconv"

	"github.com/lunixbochs/luaish"
	"github.com/lunixbochs/luaish-luar"

	"github.com/jnnycn007/fbalpha2012-cps3/go/cpu/sh2"
	"github.com/jnnycn007/fbalpha2012-cps3/go/models/cpu"
)

var cpuEnums = map[string]lua.LInt{
	"HOOK_INTR":      cpu.HOOK_INTR,
	"HOOK_CODE":      cpu.HOOK_CODE,
	"HOOK_BLOCK":     cpu.HOOK_BLOCK,
	"HOOK_MEM_READ":  cpu.HOOK_MEM_READ,
	"HOOK_MEM_WRITE": cpu.HOOK_MEM_WRITE,

	"MEM_WRITE": cpu.MEM_WRITE,
	"MEM_READ":  cpu.MEM_READ,
	"MEM_FETCH": cpu.MEM_FETCH,

	"LINE_NMI": sh2.LineNMI,
}

func (L *LuaRepl) printFunc(_ *lua.LState) int {
	L.PrettyPrint(L.getArgs(), false)
	return 0
}

func (L *LuaRepl) intFunc(_ *lua.LState) int {
	switch v := L.CheckAny(1).(type) {
	case lua.LString:
		n, err := strconv.ParseInt(string(v), 0, 64)
		if err == nil {
			L.Push(lua.LInt(n))
			return 1
		}
	case lua.LFloat:
		L.Push(lua.LInt(v))
		return 1
	case lua.LInt:
		L.Push(v)
		return 1
	}
	return 0
}

func (L *LuaRepl) loadBindings() error {
	L.SetGlobal("print", L.NewFunction(L.printFunc))
	L.SetGlobal("int", L.NewFunction(L.intFunc))

	mod := L.NewTable()
	for k, v := range cpuEnums {
		mod.RawSetString(k, v)
	}
	L.SetGlobal("cpu", mod)

	b := &binding{L}
	L.SetGlobal("u", L.SetFuncs(L.NewTable(), b.Exports()))
	// reflective access to the live core, e.g. core.BusyLoops = false
	L.SetGlobal("core", luar.New(L.LState, L.core))

	if err := L.DoString(sugarRc); err != nil {
		return err
	}
	return L.DoString(cmdRc)
}
