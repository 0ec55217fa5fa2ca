package main

import (
	"fmt"
	"os"

	"github.com/avast/yarang/compiler"
	"github.com/avast/yarang/parser"
)

// loadOrCompile prefers a previously compiled rule program bundle
// (base.program + its database files, next to the rule file) and falls
// back to compiling rulesFile fresh when no bundle is present yet.
func loadOrCompile(rulesFile, dir, base string) (*compiler.RuleProgram, error) {
	if rp, err := compiler.LoadFiles(dir, base); err == nil {
		return rp, nil
	}

	src, err := os.ReadFile(rulesFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rulesFile, err)
	}
	ruleSet, err := parser.Parse(rulesFile, string(src))
	if err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	return compiler.Compile(ruleSet)
}
