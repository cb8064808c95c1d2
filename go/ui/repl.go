package ui

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/shibukawa/configdir"

	"github.com/jnnycn007/fbalpha2012-cps3/go/cpu/sh2"
	"github.com/jnnycn007/fbalpha2012-cps3/go/lua"
	"github.com/jnnycn007/fbalpha2012-cps3/go/models"
)

// Repl is the interactive monitor. It runs on the caller's goroutine and
// owns the core until the user quits.
type Repl struct {
	core   *sh2.Core
	config *models.Config
	lua    *lua.LuaRepl
	rl     *readline.Instance

	multiline bool
	lines     []string
}

type nullCloser struct{ io.Writer }

func (n *nullCloser) Close() error { return nil }

func NewRepl(c *sh2.Core, config *models.Config) (*Repl, error) {
	// get history path
	configDirs := configdir.New("fbalpha2012-cps3", "sh2mon")
	cacheDir := configDirs.QueryCacheFolder()
	historyPath := ""
	if err := cacheDir.MkdirAll(); err == nil {
		historyPath = filepath.Join(cacheDir.Path, "history")
	}
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "\n",
		HistoryFile:     historyPath,
	})
	if err != nil {
		return nil, err
	}
	luaRepl, err := lua.NewRepl(c, rl.Stderr())
	if err != nil {
		rl.Close()
		return nil, err
	}
	// route diagnostics through readline so the prompt is redrawn
	config.Output = &nullCloser{rl.Stderr()}
	r := &Repl{core: c, config: config, lua: luaRepl, rl: rl}
	rl.Config.Listener = r
	return r, nil
}

func (r *Repl) OnChange(line []rune, pos int, key rune) (newLine []rune, newPos int, ok bool) {
	rl := r.rl
	if key == '\n' || key == '\r' && !r.multiline {
		rl.Config.UniqueEditLine = true
	} else if key > 0 {
		rl.Config.UniqueEditLine = false
	}
	// returning false keeps readline from messing up the prompt
	return line, pos, false
}

// the prompt shows the next instruction
func (r *Repl) setPrompt() {
	pc := r.core.GetPC()
	name, args := sh2.Format(pc, r.core.Read16(pc))
	r.rl.SetPrompt(fmt.Sprintf("%08x [%s %s]> ", pc, name, args))
}

func (r *Repl) Reset() {
	r.lines = nil
	r.multiline = false
	r.setPrompt()
}

// Run reads and executes lines until EOF.
func (r *Repl) Run() {
	defer r.Close()
	r.rl.Config.Listener = r
	r.setPrompt()
	for {
		ln := r.rl.Line()
		if ln.Error == readline.ErrInterrupt {
			r.rl.Config.UniqueEditLine = false
			r.Reset()
			continue
		} else if ln.CanContinue() {
			continue
		} else if ln.CanBreak() {
			break
		}
		if !r.multiline {
			if ln.Line == "" {
				continue
			}
			r.lines = []string{ln.Line}
		} else {
			r.lines = append(r.lines, ln.Line)
		}
		if r.lua.Exec(r.lines) {
			r.rl.Config.UniqueEditLine = false
			r.rl.SetPrompt("... ")
			r.multiline = true
		} else {
			r.multiline = false
			r.setPrompt()
		}
	}
}

func (r *Repl) Close() {
	r.lua.Close()
	r.rl.Close()
}
