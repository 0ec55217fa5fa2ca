// Command yaradiff differentially tests the yarang runtime against
// libyara (via hillu/go-yara/v4), scanning the same target with both
// engines and reporting any rule-name mismatch.
//
//go:build yara

package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	yara "github.com/hillu/go-yara/v4"

	"github.com/avast/yarang/compiler"
	"github.com/avast/yarang/parser"
	"github.com/avast/yarang/runtime"
)

func compileGoYaraRules(rulesFile string) (*yara.Rules, error) {
	c, err := yara.NewCompiler()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(rulesFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := c.AddFile(f, ""); err != nil {
		return nil, err
	}
	return c.GetRules()
}

func compileYarangRules(rulesFile string) (*compiler.RuleProgram, error) {
	src, err := os.ReadFile(rulesFile)
	if err != nil {
		return nil, err
	}
	ruleSet, err := parser.Parse(rulesFile, string(src))
	if err != nil {
		return nil, err
	}
	return compiler.Compile(ruleSet)
}

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: yaradiff <rules.yar> <path>\n")
		os.Exit(1)
	}
	rulesFile, scanPath := os.Args[1], os.Args[2]

	goYaraRules, err := compileGoYaraRules(rulesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error compiling go-yara rules: %v\n", err)
		os.Exit(1)
	}

	rp, err := compileYarangRules(rulesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error compiling yarang rules: %v\n", err)
		os.Exit(1)
	}

	var scanned, mismatched int

	err = filepath.WalkDir(scanPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		scanned++

		var goYaraMatches yara.MatchRules
		if err := goYaraRules.ScanMem(data, yara.ScanFlagsFastMode, 0, &goYaraMatches); err != nil {
			fmt.Fprintf(os.Stderr, "go-yara scan error on %s: %v\n", path, err)
			return nil
		}
		goYaraSet := make(map[string]bool, len(goYaraMatches))
		for _, m := range goYaraMatches {
			goYaraSet[m.Rule] = true
		}

		var yarangMatches runtime.MatchRules
		scanner := runtime.NewScanner(rp)
		if err := scanner.ScanMem(data, nil, &yarangMatches); err != nil {
			fmt.Fprintf(os.Stderr, "yarang scan error on %s: %v\n", path, err)
			return nil
		}
		yarangSet := make(map[string]bool, len(yarangMatches))
		for _, rule := range yarangMatches {
			yarangSet[rule] = true
		}

		diff := false
		for rule := range goYaraSet {
			if !yarangSet[rule] {
				fmt.Printf("%s: go-yara only: %s\n", path, rule)
				diff = true
			}
		}
		for rule := range yarangSet {
			if !goYaraSet[rule] {
				fmt.Printf("%s: yarang only: %s\n", path, rule)
				diff = true
			}
		}
		if diff {
			mismatched++
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error walking path: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "scanned %d files, %d with mismatches\n", scanned, mismatched)
}
