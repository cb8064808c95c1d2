package models

import (
	"fmt"
	"io"
	"os"
)

type Config struct {
	Output  io.WriteCloser
	Color   bool
	Verbose bool

	// memory layout of the loaded image
	LoadAddr uint32
	RamBase  uint32
	RamSize  uint32
	Entry    uint32
	Stack    uint32

	// execution slicing: Frames calls to Run, Cycles each
	Cycles    int32
	Frames    int
	BusyLoops bool

	TraceFile string
	TraceMem  bool
	TraceExec bool
	TraceReg  bool

	SaveFile string
	LoadFile string
	GdbPort  int
}

// Init fills in the defaults for any unset fields.
func (c *Config) Init() *Config {
	if c == nil {
		c = &Config{}
	}
	if c.Output == nil {
		c.Output = os.Stderr
	}
	if c.Cycles <= 0 {
		c.Cycles = 100000
	}
	return c
}

func (c *Config) Printf(f string, args ...interface{}) {
	fmt.Fprintf(c.Output, f, args...)
}

func (c *Config) Println(s ...interface{}) {
	fmt.Fprintln(c.Output, s...)
}

// Debugf only prints with -v.
func (c *Config) Debugf(f string, args ...interface{}) {
	if c.Verbose {
		c.Printf(f, args...)
	}
}
