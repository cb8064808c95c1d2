package cmd

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/jnnycn007/fbalpha2012-cps3/go/cpu/sh2"
	"github.com/jnnycn007/fbalpha2012-cps3/go/debug"
	"github.com/jnnycn007/fbalpha2012-cps3/go/models"
	"github.com/jnnycn007/fbalpha2012-cps3/go/models/trace"
	"github.com/jnnycn007/fbalpha2012-cps3/go/ui"
)

// SH2Cmd builds a machine of one or more cores from a raw big-endian image
// and drives it. Subcommands customize it through the hooks below.
type SH2Cmd struct {
	Config *models.Config

	SetupFlags func() error
	SetupCore  func() error
	RunCore    func() error
	Teardown   func()

	NoImage bool

	Image []byte
	Pool  *sh2.Pool
	Ram   [][]byte
	Trace *trace.Trace
	Flags *flag.FlagSet
}

func NewSH2Cmd() *SH2Cmd {
	fs := flag.NewFlagSet("cli", flag.ExitOnError)
	return &SH2Cmd{Flags: fs, Config: (&models.Config{}).Init()}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// PrintError prints an error, and a stacktrace if available.
func (c *SH2Cmd) PrintError(err error) {
	out := os.Stderr
	fmt.Fprintf(out, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(out, "Error: %s\n", err)
	st, ok := err.(stackTracer)
	if !ok {
		return
	}
	// parse full path and method name for each stack frame
	var frames [][]string
	for _, f := range st.StackTrace() {
		fullpath := ""
		fileline := fmt.Sprintf("%s:%d", f, f)
		method := fmt.Sprintf("%n", f)

		tmp := strings.SplitN(fmt.Sprintf("%+s", f), "\n", 3)
		if len(tmp) == 2 {
			pathsplit := strings.Split(tmp[0], "/")
			method = pathsplit[len(pathsplit)-1]
			fullpath = strings.TrimSpace(tmp[1])
		}
		frames = append(frames, []string{fullpath, fileline, method})
		if method == "main.main" {
			break
		}
	}
	// calculate column widths
	widths := make([]int, 3)
	for _, f := range frames {
		for i, s := range f {
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}
	for _, f := range frames {
		for i := 0; i < 2; i++ {
			if widths[i] > 0 {
				fmt.Fprintf(out, "%-*s | ", widths[i], f[i])
			}
		}
		fmt.Fprintf(out, "%s()\n", f[2])
	}
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Core returns the first core of the machine.
func (c *SH2Cmd) Core() *sh2.Core {
	core, _ := c.Pool.Core(0)
	return core
}

// Build creates the pool, maps RAM and the image into every core and resets
// them. With no entry point the reset vectors at 0 and 4 supply PC and SP.
func (c *SH2Cmd) Build(cores int) error {
	config := c.Config
	pool, err := sh2.NewPool(cores)
	if err != nil {
		return err
	}
	c.Pool = pool
	c.Ram = make([][]byte, cores)
	for i := 0; i < cores; i++ {
		core, _ := pool.Core(i)
		core.BusyLoops = config.BusyLoops
		if config.RamSize > 0 {
			ram := make([]byte, config.RamSize)
			if err := core.MapMemory(ram, config.RamBase, config.RamBase+config.RamSize-1, sh2.MapAll); err != nil {
				return errors.Wrap(err, "mapping ram")
			}
			c.Ram[i] = ram
		}
		if len(c.Image) > 0 {
			if err := c.loadImage(core, c.Ram[i]); err != nil {
				return err
			}
		}
		pc, sp := config.Entry, config.Stack
		if pc == 0 {
			pc, sp = core.Read32(0), core.Read32(4)
		}
		core.Reset(pc, sp)
	}
	config.Debugf("%d core(s), ram %#x+%#x, image %#x+%#x\n", cores, config.RamBase, config.RamSize, config.LoadAddr, len(c.Image))
	return nil
}

// images inside RAM are copied there, anything else is mapped read-only
func (c *SH2Cmd) loadImage(core *sh2.Core, ram []byte) error {
	config := c.Config
	off := uint64(config.LoadAddr) - uint64(config.RamBase)
	if ram != nil && config.LoadAddr >= config.RamBase && off+uint64(len(c.Image)) <= uint64(len(ram)) {
		copy(ram[off:], c.Image)
		return nil
	}
	end := uint64(config.LoadAddr) + uint64(len(c.Image)) - 1
	if end > 0xffffffff {
		return errors.Errorf("image at %#x+%#x runs off the address space", config.LoadAddr, len(c.Image))
	}
	return errors.Wrap(core.MapMemory(c.Image, config.LoadAddr, uint32(end), sh2.MapRead|sh2.MapFetch), "mapping image")
}

// SaveState writes every core's registers and RAM to one save file.
func (c *SH2Cmd) SaveState(path string) error {
	var blobs [][]byte
	for i := 0; i < c.Pool.Len(); i++ {
		core, _ := c.Pool.Core(i)
		state, err := core.SaveState()
		if err != nil {
			return err
		}
		blobs = append(blobs, state, c.Ram[i])
	}
	data, err := models.Save(blobs...)
	if err != nil {
		return err
	}
	return errors.Wrap(ioutil.WriteFile(path, data, 0644), "writing save file")
}

func (c *SH2Cmd) LoadState(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading save file")
	}
	blobs, err := models.Load(data)
	if err != nil {
		return err
	}
	if len(blobs) != 2*c.Pool.Len() {
		return errors.Errorf("save file holds %d cores, machine has %d", len(blobs)/2, c.Pool.Len())
	}
	// check every core before changing any of them
	states := make([]*sh2.State, c.Pool.Len())
	for i := range states {
		st, err := sh2.DecodeState(blobs[i*2])
		if err != nil {
			return errors.Wrapf(err, "core %d", i)
		}
		if len(blobs[i*2+1]) != len(c.Ram[i]) {
			return errors.Errorf("core %d: saved ram is %#x bytes, machine has %#x", i, len(blobs[i*2+1]), len(c.Ram[i]))
		}
		states[i] = st
	}
	for i, st := range states {
		core, _ := c.Pool.Core(i)
		core.SetState(st)
		copy(c.Ram[i], blobs[i*2+1])
	}
	return nil
}

// RunFrames runs every core for Config.Frames slices of Config.Cycles,
// round robin.
func (c *SH2Cmd) RunFrames() error {
	config := c.Config
	var status *models.StatusDiff
	if config.TraceReg {
		status = &models.StatusDiff{Cpu: c.Core(), Names: sh2.RegNames[:], Hidden: sh2.PPC}
		status.Changes(false)
	}
	for frame := 0; frame < config.Frames; frame++ {
		for i := 0; i < c.Pool.Len(); i++ {
			err := c.Pool.With(i, func(core *sh2.Core) error {
				core.NewFrame()
				used := core.Run(int(config.Cycles))
				config.Debugf("frame %d core %d: %d cycles, pc=%#08x\n", frame, i, used, core.GetPC())
				if i != 0 {
					return nil
				}
				if status != nil {
					config.Printf("%s", status.Changes(true).String(config.Color))
				}
				if c.Trace != nil {
					return c.Trace.Frame(uint64(core.Cycles))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *SH2Cmd) Run(argv []string) int {
	fs := c.Flags
	loadAddr := fs.Uint64("load", 0, "address to load the image at")
	ramBase := fs.Uint64("rambase", 0x06000000, "ram base address")
	ramSize := fs.Uint64("ram", 0x80000, "ram size in bytes (0 for none)")
	entry := fs.Uint64("entry", 0, "initial pc (default: read the reset vector at 0)")
	stack := fs.Uint64("sp", 0, "initial r15 when -entry is set")
	cores := fs.Int("cores", 1, "number of independent cores")
	cycles := fs.Int("cycles", 100000, "cycles per frame")
	frames := fs.Int("frames", 60, "frames to run")
	nobusy := fs.Bool("nobusy", false, "disable idle loop acceleration")

	tracefile := fs.String("to", "", "binary trace output file")
	etrace := fs.Bool("etrace", false, "trace execution")
	mtrace := fs.Bool("mtrace", false, "trace memory reads as well as writes")
	rtrace := fs.Bool("rtrace", false, "print register changes after each frame")
	tnames := []string{"to", "etrace", "mtrace", "rtrace"}

	verbose := fs.Bool("v", false, "verbose output")
	nocolor := fs.Bool("nocolor", false, "never colorize output")
	outfile := fs.String("o", "", "redirect debugging output to file (default stderr)")
	loadstate := fs.String("loadstate", "", "restore state from file before running")
	savepost := fs.String("savepost", "", "save state to file after running")
	gdb := fs.Int("gdb", -1, "listen for gdb connection on localhost:<port>")
	repl := fs.Bool("repl", false, "start the lua monitor instead of running frames")
	cpuprofile := fs.String("cpuprofile", "", "write cpu profile to <file>")

	fs.Usage = func() {
		usage := "Usage: %s [options]"
		if !c.NoImage {
			usage += " <image>"
		}
		fmt.Fprintf(os.Stderr, usage+"\n\nOptions:\n", argv[0])
		var flags, tflags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) {
			for _, name := range tnames {
				if name == f.Name {
					tflags = append(tflags, f)
					return
				}
			}
			flags = append(flags, f)
		})
		models.PrintFlags(os.Stderr, flags)
		fmt.Fprintf(os.Stderr, "\nTrace Options:\n")
		models.PrintFlags(os.Stderr, tflags)
	}
	if c.SetupFlags != nil {
		if err := c.SetupFlags(); err != nil {
			c.PrintError(err)
			return 1
		}
	}
	fs.Parse(argv[1:])

	args := fs.Args()
	if !c.NoImage {
		if len(args) < 1 {
			fs.Usage()
			return 1
		}
		image, err := ioutil.ReadFile(args[0])
		if err != nil {
			c.PrintError(errors.Wrap(err, "reading image"))
			return 1
		}
		c.Image = image
	}

	config := c.Config
	config.LoadAddr = uint32(*loadAddr)
	config.RamBase = uint32(*ramBase)
	config.RamSize = uint32(*ramSize)
	config.Entry = uint32(*entry)
	config.Stack = uint32(*stack)
	config.Cycles = int32(*cycles)
	config.Frames = *frames
	config.BusyLoops = !*nobusy
	config.TraceFile = *tracefile
	config.TraceExec = *etrace
	config.TraceMem = *mtrace
	config.TraceReg = *rtrace
	config.Verbose = *verbose
	config.SaveFile = *savepost
	config.LoadFile = *loadstate
	config.GdbPort = *gdb

	if *outfile != "" {
		out, err := os.OpenFile(*outfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			c.PrintError(err)
			return 1
		}
		config.Output = out
	}
	if f, ok := config.Output.(*os.File); ok {
		config.Color = !*nocolor && IsTerminal(f)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			c.PrintError(err)
			return 1
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}
	if c.Teardown != nil {
		defer c.Teardown()
	}

	if err := c.Build(*cores); err != nil {
		c.PrintError(err)
		return 1
	}
	defer c.Pool.Exit()
	if config.LoadFile != "" {
		if err := c.LoadState(config.LoadFile); err != nil {
			c.PrintError(err)
			return 1
		}
	}
	if config.TraceFile != "" {
		f, err := os.Create(config.TraceFile)
		if err != nil {
			c.PrintError(errors.Wrapf(err, "failed to create tracefile '%s'", config.TraceFile))
			return 1
		}
		tc := trace.TraceConfig{Exec: config.TraceExec, Mem: config.TraceMem, Intr: true}
		if c.Trace, err = trace.NewTrace(c.Core(), sh2.RegCount, f, tc); err != nil {
			c.PrintError(err)
			return 1
		}
		if err := c.Trace.Attach(uint64(c.Core().Cycles)); err != nil {
			c.PrintError(err)
			return 1
		}
		defer c.Trace.Close()
	}
	if c.SetupCore != nil {
		if err := c.SetupCore(); err != nil {
			c.PrintError(err)
			return 1
		}
	}

	var err error
	switch {
	case config.GdbPort > 0:
		err = c.serveGdb()
	case *repl:
		var r *ui.Repl
		if r, err = ui.NewRepl(c.Core(), config); err == nil {
			r.Run()
		}
	case c.RunCore != nil:
		err = c.RunCore()
	default:
		err = c.RunFrames()
	}
	if err != nil {
		c.PrintError(err)
		return 1
	}
	if config.SaveFile != "" {
		if err := c.SaveState(config.SaveFile); err != nil {
			c.PrintError(err)
			return 1
		}
	}
	return 0
}

// serveGdb hands core 0 to a gdb client until it detaches.
func (c *SH2Cmd) serveGdb() error {
	conn, err := debug.Accept("localhost", c.Config.GdbPort, c.Config)
	if err != nil {
		return errors.Wrapf(err, "error accepting conn on port %d", c.Config.GdbPort)
	}
	stub := debug.NewGdbstub(c.Core(), sh2.RegNames[:sh2.PPC], c.Config)
	stub.Slice = int(c.Config.Cycles)
	return stub.Run(conn)
}
