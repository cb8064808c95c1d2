package main

import (
	"github.com/jnnycn007/fbalpha2012-cps3/go/cmd"

	_ "github.com/jnnycn007/fbalpha2012-cps3/go/cmd/dis"
	_ "github.com/jnnycn007/fbalpha2012-cps3/go/cmd/run"
	_ "github.com/jnnycn007/fbalpha2012-cps3/go/cmd/trace"
)

func main() { cmd.Main() }
