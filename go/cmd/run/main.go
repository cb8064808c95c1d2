package run

import (
	"os"

	"github.com/jnnycn007/fbalpha2012-cps3/go/cmd"
)

func Main(args []string) {
	os.Exit(cmd.NewSH2Cmd().Run(args))
}

func init() { cmd.Register("run", "run a raw SH-2 image", Main) }
