package runtime

import (
	"encoding/json"
	"fmt"
	"os"
)

// mutexReport mirrors the host-defined sandbox report shape spec.md §6
// names: a "behavior.summary.mutexes" array of mutex names observed
// during dynamic analysis.
type mutexReport struct {
	Behavior struct {
		Summary struct {
			Mutexes []string `json:"mutexes"`
		} `json:"summary"`
	} `json:"behavior"`
}

// LoadMutexNames reads a mutex input file and returns its mutex name
// list. A missing file is the caller's concern, not this function's:
// per spec.md §4.G, a rule program that references mutexes with no input
// supplied behaves as if every mutex count were zero, not an error.
func LoadMutexNames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("runtime: read mutex input %s: %w", path, err)
	}
	var report mutexReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("runtime: parse mutex input %s: %w", path, err)
	}
	return report.Behavior.Summary.Mutexes, nil
}
