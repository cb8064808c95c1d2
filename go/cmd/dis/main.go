package dis

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/jnnycn007/fbalpha2012-cps3/go/cmd"
	"github.com/jnnycn007/fbalpha2012-cps3/go/cpu/sh2"
)

// Print disassembles code as if loaded at base, marking delay slots.
func Print(w io.Writer, code []byte, base uint64) error {
	dis, err := (&sh2.Dis{}).Dis(code, base)
	slot := false
	for _, ins := range dis {
		b := ins.Bytes()
		prefix := "  "
		if slot {
			prefix = " +"
		}
		fmt.Fprintf(w, "%s%08x: %02x%02x  %-8s %s\n", prefix, ins.Addr(), b[0], b[1], ins.Mnemonic(), ins.OpStr())
		slot = sh2.Delayed(uint16(b[0])<<8 | uint16(b[1]))
	}
	return err
}

func Main(args []string) {
	fs := flag.NewFlagSet("dis", flag.ExitOnError)
	base := fs.Uint64("base", 0, "address of the first byte")
	offset := fs.Uint64("off", 0, "file offset to start at")
	length := fs.Uint64("len", 0, "bytes to disassemble (0 for the rest of the file)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <image>\n", args[0])
		fs.PrintDefaults()
	}
	fs.Parse(args[1:])
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	data, err := ioutil.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read: %v\n", err)
		os.Exit(1)
	}
	if *offset > uint64(len(data)) {
		fmt.Fprintf(os.Stderr, "offset %#x is past the end of the file\n", *offset)
		os.Exit(1)
	}
	data = data[*offset:]
	if *length > 0 && *length < uint64(len(data)) {
		data = data[:*length]
	}
	if err := Print(os.Stdout, data, *base+*offset); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func init() { cmd.Register("dis", "disassemble a raw SH-2 image", Main) }
