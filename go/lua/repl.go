package lua

import (
	"fmt"
	"io"
	"strings"

	"github.com/lunixbochs/luaish"
	"github.com/lunixbochs/luaish/parse"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"

	"github.com/jnnycn007/fbalpha2012-cps3/go/cpu/sh2"
	"github.com/jnnycn007/fbalpha2012-cps3/go/models/cpu"
)

type LuaRepl struct {
	*lua.LState
	core *sh2.Core
	io.Writer

	preRegs [sh2.RegCount]uint32
	hooks   map[int]cpu.Hook
	hookId  int
}

// NewRepl returns a lua monitor bound to a core. Any init.lish found in the
// user's config folders runs before the first prompt.
func NewRepl(c *sh2.Core, o io.Writer) (*LuaRepl, error) {
	repl := &LuaRepl{
		LState: lua.NewState(),
		core:   c,
		Writer: o,
		hooks:  make(map[int]cpu.Hook),
	}
	if err := repl.loadBindings(); err != nil {
		return nil, errors.Wrap(err, "failed to load repl bindings")
	}
	repl.EnvToLua()
	configDirs := configdir.New("fbalpha2012-cps3", "sh2mon")
	for _, config := range configDirs.QueryFolders(configdir.All) {
		if data, err := config.ReadFile("init.lish"); err == nil {
			if err := repl.DoString(string(data)); err != nil {
				repl.Printf("error while reading init.lish: %v\n", err)
			}
		}
	}
	return repl, nil
}

func (L *LuaRepl) Close() {
	for _, h := range L.hooks {
		L.core.HookDel(h)
	}
	L.hooks = nil
	L.LState.Close()
}

// EnvToLua copies the registers and the next instruction into lua globals.
func (L *LuaRepl) EnvToLua() {
	c := L.core
	for i, name := range sh2.RegNames {
		val, _ := c.GetReg(i)
		L.preRegs[i] = val
		L.SetGlobal(name, lua.LInt(val))
	}
	L.SetGlobal("sp", lua.LInt(c.R[15]))
	pc := c.GetPC()
	name, args := sh2.Format(pc, c.Read16(pc))
	ins := L.NewTable()
	ins.RawSetString("addr", lua.LInt(pc))
	ins.RawSetString("name", lua.LString(name))
	ins.RawSetString("op_str", lua.LString(args))
	L.SetGlobal("ins", ins)
}

// EnvFromLua writes back any register global the script changed.
func (L *LuaRepl) EnvFromLua() {
	c := L.core
	for i, name := range sh2.RegNames {
		v := L.GetGlobal(name)
		if val, ok := v.(lua.LInt); !ok {
			L.Printf("could not restore %s: bad type: %v\n", name, v)
		} else if uint32(val) != L.preRegs[i] {
			c.SetReg(i, uint32(val))
		}
	}
	if sp, ok := L.GetGlobal("sp").(lua.LInt); ok && uint32(sp) != L.preRegs[sh2.R15] {
		c.SetReg(sh2.R15, uint32(sp))
	}
}

func (L *LuaRepl) preRun() {
	L.EnvToLua()
}

func (L *LuaRepl) postRun(lv []lua.LValue) {
	// if exactly one value was returned, and it's a function, call it with no args
	if len(lv) == 1 && lv[0].Type() == lua.LTFunction {
		if lv2, err := L.call(lv[0].(*lua.LFunction)); err != nil {
			L.Println(err)
			lv = nil
		} else {
			lv = lv2
		}
	}

	// ignore len(1) if nil, otherwise print all values
	if len(lv) == 1 && lv[0] == lua.LNil {
	} else if len(lv) > 0 {
		L.PrettyPrint(lv, true)
	}

	// set the _ global
	if len(lv) == 1 {
		L.SetGlobal("_", lv[0])
	} else if len(lv) > 1 {
		tmp := L.NewTable()
		for i, v := range lv {
			L.RawSetInt(tmp, i+1, v)
		}
		L.SetGlobal("_", tmp)
	} else {
		L.SetGlobal("_", lua.LNil)
	}
	L.EnvFromLua()
}

func (L *LuaRepl) loadstring(lines []string, recurse bool) (*lua.LFunction, error, bool) {
	code := strings.Join(lines, "\n")
	if len(lines) == 1 && recurse {
		code = "return " + code
	}
	fn, err := L.LoadString(code)
	if err == nil {
		return fn, nil, false
	}
	// check for incomplete parse
	if lerr, ok := err.(*lua.ApiError); ok {
		if perr, ok := lerr.Cause.(*parse.Error); ok {
			if perr.Pos.Line == parse.EOF {
				return nil, err, true
			} else if recurse {
				// still a parse error: try without return
				return L.loadstring(lines, false)
			}
		}
	}
	return nil, err, false
}

// Exec runs a multiline script, returning true if more input is needed.
// Errors are printed.
func (L *LuaRepl) Exec(lines []string) bool {
	if len(lines) == 0 {
		return true
	}
	fn, err, incomplete := L.loadstring(lines, true)
	if incomplete {
		return true
	}
	if err != nil {
		L.Println(err)
		return false
	}
	L.preRun()
	lv, err := L.call(fn)
	if err != nil {
		L.Println(err)
	}
	L.postRun(lv)
	return false
}

// Returns a list of lua.LValue for each value on the stack.
func (L *LuaRepl) getArgs() []lua.LValue {
	lv := make([]lua.LValue, L.GetTop())
	for i := range lv {
		lv[i] = L.CheckAny(i + 1)
	}
	return lv
}

// Runs a loaded lua function, returning any errors or return values
func (L *LuaRepl) call(fn *lua.LFunction) ([]lua.LValue, error) {
	L.SetTop(0)
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, err
	}
	return L.getArgs(), nil
}

func (L *LuaRepl) Printf(f string, arg ...interface{}) {
	fmt.Fprintf(L, f, arg...)
}

func (L *LuaRepl) Println(arg ...interface{}) {
	fmt.Fprintln(L, arg...)
}
