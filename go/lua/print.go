package lua

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lunixbochs/luaish"
)

// formatWord renders an integer the way a register would be read: small
// values in decimal, addresses in hex. Negative values that fit in 32 bits
// are shown as the unsigned word they came from.
func formatWord(n lua.LInt) string {
	v := uint64(n)
	if n < 0 && n >= -0x80000000 {
		v = uint64(uint32(n))
	}
	switch {
	case v < 10:
		return fmt.Sprintf("%d", v)
	case v <= 0x10000:
		return fmt.Sprintf("%#x(%d)", v, v)
	}
	return fmt.Sprintf("%#x", v)
}

type dumper struct {
	quote bool
	seen  map[*lua.LTable]bool
}

func (d *dumper) value(v lua.LValue, top bool) string {
	switch s := v.(type) {
	case lua.LInt:
		return formatWord(s)
	case lua.LFloat:
		return fmt.Sprintf("%g", float64(s))
	case lua.LString:
		if d.quote {
			return fmt.Sprintf("%q", string(s))
		}
		return string(s)
	case *lua.LTable:
		return d.table(s, top)
	}
	return v.String()
}

// sequence entries print bare, the rest as sorted key = value pairs
func (d *dumper) table(t *lua.LTable, top bool) string {
	if d.seen[t] {
		return "{...}"
	}
	d.seen[t] = true
	defer delete(d.seen, t)

	n := t.Len()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, d.value(t.RawGetInt(i), false))
	}
	var keyed []string
	t.ForEach(func(k, v lua.LValue) {
		if i, ok := k.(lua.LInt); ok && i >= 1 && int(i) <= n {
			return
		}
		keyed = append(keyed, d.value(k, false)+" = "+d.value(v, false))
	})
	sort.Strings(keyed)
	parts = append(parts, keyed...)
	sep := ", "
	if top {
		sep = ",\n "
	}
	return "{" + strings.Join(parts, sep) + "}"
}

// PrettyDump formats values for display. With implicit set, strings are
// quoted so results echoed by the prompt are unambiguous.
func (L *LuaRepl) PrettyDump(lv []lua.LValue, implicit bool) []string {
	d := &dumper{quote: implicit, seen: make(map[*lua.LTable]bool)}
	out := make([]string, len(lv))
	for i, v := range lv {
		out[i] = d.value(v, true)
	}
	return out
}

func (L *LuaRepl) PrettyPrint(lv []lua.LValue, implicit bool) {
	L.Printf("%s\n", strings.Join(L.PrettyDump(lv, implicit), " "))
}
