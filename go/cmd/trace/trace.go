package trace

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mgutz/ansi"
	"github.com/pkg/errors"

	"github.com/jnnycn007/fbalpha2012-cps3/go/cmd"
	"github.com/jnnycn007/fbalpha2012-cps3/go/cpu/sh2"
	"github.com/jnnycn007/fbalpha2012-cps3/go/models"
	"github.com/jnnycn007/fbalpha2012-cps3/go/models/trace"
)

var intrColor = ansi.ColorCode("yellow+b")

func PrintJson(tf *trace.TraceReader, w io.Writer) error {
	out, err := json.Marshal(&tf.Header)
	if err != nil {
		return errors.Wrap(err, "error printing header")
	}
	fmt.Fprintf(w, "%s\n", out)
	for {
		op, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace operation")
		}
		out, _ := json.Marshal(op)
		fmt.Fprintf(w, "%s\n", out)
	}
	return nil
}

func printOp(w io.Writer, op models.Op, color bool) {
	switch o := op.(type) {
	case *trace.OpStep:
		name, args := sh2.Format(o.Addr, o.Opcode)
		fmt.Fprintf(w, "  %08x: %04x  %-8s %s\n", o.Addr, o.Opcode, name, args)
	case *trace.OpIntr:
		line := fmt.Sprintf("  -- exception vector %d", o.Vector)
		if color {
			line = intrColor + line + ansi.Reset
		}
		fmt.Fprintln(w, line)
	case *trace.OpMemWrite:
		fmt.Fprintf(w, "           W%d [%08x] = %#x\n", o.Size, o.Addr, o.Val)
	case *trace.OpMemRead:
		fmt.Fprintf(w, "           R%d [%08x] = %#x\n", o.Size, o.Addr, o.Val)
	case *trace.OpReg:
		name := "?"
		if int(o.Num) < len(sh2.RegNames) {
			name = sh2.RegNames[o.Num]
		}
		fmt.Fprintf(w, "  %4s = %08x\n", name, o.Val)
	}
}

// PrintPretty dumps the trace with each step disassembled.
func PrintPretty(tf *trace.TraceReader, w io.Writer, color bool) error {
	for {
		op, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace operation")
		}
		switch frame := op.(type) {
		case *trace.OpKeyframe:
			fmt.Fprintf(w, "keyframe @%d\n", frame.Cycles)
			for _, op := range frame.Ops {
				printOp(w, op, color)
			}
		case *trace.OpFrame:
			for _, op := range frame.Ops {
				printOp(w, op, color)
			}
			fmt.Fprintf(w, "frame end @%d\n", frame.Cycles)
		}
	}
	return nil
}

// PrintHot lists the n most executed instruction addresses.
func PrintHot(tf *trace.TraceReader, w io.Writer, n int) error {
	counts := make(map[uint32]int)
	opcodes := make(map[uint32]uint16)
	for {
		op, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace operation")
		}
		if frame, ok := op.(*trace.OpFrame); ok {
			for _, op := range frame.Ops {
				if step, ok := op.(*trace.OpStep); ok {
					counts[step.Addr]++
					opcodes[step.Addr] = step.Opcode
				}
			}
		}
	}
	addrs := make([]uint32, 0, len(counts))
	for addr := range counts {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		if counts[addrs[i]] != counts[addrs[j]] {
			return counts[addrs[i]] > counts[addrs[j]]
		}
		return addrs[i] < addrs[j]
	})
	if len(addrs) > n {
		addrs = addrs[:n]
	}
	for _, addr := range addrs {
		name, args := sh2.Format(addr, opcodes[addr])
		fmt.Fprintf(w, "%10d  %08x: %-8s %s\n", counts[addr], addr, name, args)
	}
	return nil
}

func Main(args []string) {
	fs := flag.NewFlagSet("args", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output trace as line-delimited JSON objects")
	prettyFlag := fs.Bool("pretty", false, "output trace as human-readable console text")
	hotFlag := fs.Int("hot", 0, "list the N most executed addresses")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <tracefile>\n", args[0])
		fs.PrintDefaults()
	}

	fs.Parse(args[1:])
	if fs.NArg() == 0 || !(*jsonFlag || *prettyFlag || *hotFlag > 0) {
		fs.Usage()
		os.Exit(1)
	}
	args = fs.Args()

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open: %s %v\n", args[0], err)
		os.Exit(1)
	}
	tf, err := trace.NewReader(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening trace file: %v\n", err)
		os.Exit(1)
	}
	defer tf.Close()
	switch {
	case *jsonFlag:
		err = PrintJson(tf, os.Stdout)
	case *prettyFlag:
		err = PrintPretty(tf, os.Stdout, cmd.IsTerminal(os.Stdout))
	default:
		err = PrintHot(tf, os.Stdout, *hotFlag)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error printing trace: %v\n", err)
		os.Exit(1)
	}
}

func init() { cmd.Register("trace", "dump a saved trace file", Main) }
