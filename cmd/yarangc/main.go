// Command yarangc compiles a YARA-compatible rule file into a rule
// program: patterns.txt, rules.def, and the serialized matching-engine
// databases, all written next to the rule file.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/avast/yarang/compiler"
	"github.com/avast/yarang/parser"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: yarangc <rules.yar>\n")
		os.Exit(1)
	}
	rulesFile := os.Args[1]

	src, err := os.ReadFile(rulesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", rulesFile, err)
		os.Exit(1)
	}

	ruleSet, err := parser.Parse(rulesFile, string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error parsing rules: %v\n", err)
		os.Exit(1)
	}

	rp, err := compiler.Compile(ruleSet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error compiling rules: %v\n", err)
		os.Exit(1)
	}

	dir := filepath.Dir(rulesFile)
	base := strings.TrimSuffix(filepath.Base(rulesFile), filepath.Ext(rulesFile))

	if err := rp.WriteArtifacts(dir, base); err != nil {
		fmt.Fprintf(os.Stderr, "error writing artifacts: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "compiled %d rules (%d regex, %d literal, %d mutex patterns)\n",
		len(rp.Rules), rp.RegexCount, rp.LiteralCount, rp.MutexCount)
}
