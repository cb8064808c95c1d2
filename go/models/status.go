package models

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"

	"github.com/jnnycn007/fbalpha2012-cps3/go/models/cpu"
)

// StatusDiff renders the register file, highlighting whatever changed since
// the previous call.
type StatusDiff struct {
	Cpu   cpu.Cpu
	Names []string
	// registers below Hidden are printed in full dumps, the rest only when
	// they change
	Hidden int

	oldRegs []uint64
}

var chSame = ansi.ColorCode("default:default")
var chNew = ansi.ColorCode("default+bu:default")

// all SH-2 registers are 32 bits
const hexWidth = 8

func colorPad(s, color string, pad int) string {
	length := len(s)
	s = color + s + ansi.Reset
	if length < pad {
		s = strings.Repeat(" ", pad-length) + s
	}
	return s
}

type ChangeMask struct {
	Old, New string
	Changed  bool
}

type Change struct {
	Old, New uint64
	Enum     int
	Name     string
}

func (c *Change) Changed() bool {
	return c.Old != c.New
}

// Mask splits the hex rendering into runs of changed and unchanged digits.
func (c *Change) Mask() []ChangeMask {
	s1 := fmt.Sprintf("%0*x", hexWidth, c.New)
	s2 := fmt.Sprintf("%0*x", hexWidth, c.Old)
	var masks []ChangeMask
	start := 0
	for i := 1; i <= len(s1); i++ {
		if i == len(s1) || (s1[i] == s2[i]) != (s1[start] == s2[start]) {
			masks = append(masks, ChangeMask{
				New:     s1[start:i],
				Old:     s2[start:i],
				Changed: s1[start] != s2[start],
			})
			start = i
		}
	}
	return masks
}

func (c *Change) String(color bool) string {
	if !c.Changed() {
		return fmt.Sprintf(" %4s 0x%0*x", c.Name, hexWidth, c.New)
	}
	if !color {
		return fmt.Sprintf("+%4s 0x%0*x", c.Name, hexWidth, c.New)
	}
	out := []string{fmt.Sprintf(" %s 0x", colorPad(c.Name, chNew, 4))}
	for _, mask := range c.Mask() {
		col := chSame
		if mask.Changed {
			col = chNew
		}
		out = append(out, col+mask.New)
	}
	out = append(out, ansi.Reset)
	return strings.Join(out, "")
}

type Changes struct {
	Changes []*Change
}

// String lays the registers out column-major, four to a row.
func (cs *Changes) String(color bool) string {
	const cols = 4
	var out []string
	rows := (len(cs.Changes) + cols - 1) / cols
	for i := 0; i < rows; i++ {
		var line []string
		for j := 0; j < cols; j++ {
			if k := j*rows + i; k < len(cs.Changes) {
				line = append(line, cs.Changes[k].String(color))
			}
		}
		out = append(out, strings.Join(line, " ")+"\n")
	}
	return strings.Join(out, "")
}

func (cs *Changes) Count() int {
	ret := 0
	for _, c := range cs.Changes {
		if c.Changed() {
			ret += 1
		}
	}
	return ret
}

func (cs *Changes) Find(enum int) *Change {
	for _, c := range cs.Changes {
		if c.Enum == enum {
			return c
		}
	}
	return nil
}

// Changes reads every named register. With onlyChanged set, unchanged
// registers are left out.
func (s *StatusDiff) Changes(onlyChanged bool) *Changes {
	first := s.oldRegs == nil
	if first {
		s.oldRegs = make([]uint64, len(s.Names))
	}
	cs := make([]*Change, 0, len(s.Names))
	for i, name := range s.Names {
		val, err := s.Cpu.RegRead(i)
		if err != nil {
			continue
		}
		change := &Change{Old: s.oldRegs[i], New: val, Enum: i, Name: name}
		if first {
			change.Old = val
		}
		s.oldRegs[i] = val
		if onlyChanged && !change.Changed() {
			continue
		}
		if !onlyChanged && s.Hidden > 0 && i >= s.Hidden && !change.Changed() {
			continue
		}
		cs = append(cs, change)
	}
	return &Changes{Changes: cs}
}
