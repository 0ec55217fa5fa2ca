// Command yarang scans a file against a rule program, printing one line
// per public-rule hit in the form "<path>: <rule>". The program is loaded
// from the compiled bundle next to the rule file when one exists, and
// compiled from the rule file otherwise.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/avast/yarang/runtime"
)

type hitPrinter struct {
	path string
}

func (h hitPrinter) RuleMatching(ruleName string) (abort bool, err error) {
	fmt.Printf("%s: %s\n", h.path, ruleName)
	return false, nil
}

func main() {
	mutexInput := flag.String("mutex-input", "", "path to a JSON mutex-name report (behavior.summary.mutexes)")
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: yarang [-mutex-input path] <rules.yar> <target>\n")
		os.Exit(1)
	}
	rulesFile, target := args[0], args[1]

	dir := filepath.Dir(rulesFile)
	base := strings.TrimSuffix(filepath.Base(rulesFile), filepath.Ext(rulesFile))

	rp, err := loadOrCompile(rulesFile, dir, base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading rule program: %v\n", err)
		os.Exit(1)
	}

	scanner := runtime.NewScanner(rp)
	if err := scanner.ScanFile(target, *mutexInput, hitPrinter{path: target}); err != nil {
		fmt.Fprintf(os.Stderr, "error scanning %s: %v\n", target, err)
		os.Exit(1)
	}
}
