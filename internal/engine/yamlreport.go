package engine

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// yamlReport is the document written by --report.
type yamlReport struct {
	Created  time.Time   `yaml:"created"`
	Duration float64     `yaml:"duration"`
	ExitCode int         `yaml:"exitcode"`
	Root     string      `yaml:"root"`
	Summary  yamlSummary `yaml:"summary"`
	Tests    []yamlTest  `yaml:"tests"`
}

type yamlSummary struct {
	Passed     int `yaml:"passed,omitempty"`
	Failed     int `yaml:"failed,omitempty"`
	Skipped    int `yaml:"skipped,omitempty"`
	Deselected int `yaml:"deselected,omitempty"`
	Total      int `yaml:"total"`
}

type yamlTest struct {
	NodeID   string   `yaml:"nodeid"`
	Outcome  Outcome  `yaml:"outcome"`
	Duration float64  `yaml:"duration"`
	Output   []string `yaml:"output,omitempty"`
	Reason   string   `yaml:"reason,omitempty"`
}

func newYAMLReport(root string, code ExitCode, start time.Time, elapsed time.Duration, results []Result, deselected int) *yamlReport {
	r := &yamlReport{
		Created:  start.UTC(),
		Duration: elapsed.Seconds(),
		ExitCode: int(code),
		Root:     root,
	}
	r.Summary.Deselected = deselected
	for _, res := range results {
		switch res.Outcome {
		case OutcomePassed:
			r.Summary.Passed++
		case OutcomeFailed:
			r.Summary.Failed++
		case OutcomeSkipped:
			r.Summary.Skipped++
		}
		r.Tests = append(r.Tests, yamlTest{
			NodeID:   res.NodeID,
			Outcome:  res.Outcome,
			Duration: res.Duration.Seconds(),
			Output:   res.Output,
			Reason:   res.SkipReason,
		})
	}
	r.Summary.Total = len(results)
	return r
}

func writeReport(fs afero.Fs, path string, r *yamlReport) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0o644)
}
