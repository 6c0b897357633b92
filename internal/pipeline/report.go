package pipeline

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tidycsv/internal/cleaning"
	"github.com/KaramelBytes/tidycsv/internal/table"
	"github.com/KaramelBytes/tidycsv/internal/utils"
)

// Report describes one run. It is written as YAML when --report is given.
type Report struct {
	RunID     string                `yaml:"run_id"`
	Input     string                `yaml:"input"`
	Output    string                `yaml:"output"`
	Method    string                `yaml:"method"`
	StartedAt time.Time             `yaml:"started_at"`
	Duration  string                `yaml:"duration"`
	RowsIn    int                   `yaml:"rows_in"`
	RowsOut   int                   `yaml:"rows_out"`
	Columns   int                   `yaml:"columns"`
	Missing   []table.ColumnMissing `yaml:"missing"`
	FillOrder []string              `yaml:"fill_order,omitempty"`
	Outliers  *OutlierSummary       `yaml:"outliers,omitempty"`
	Warnings  []string              `yaml:"warnings,omitempty"`
}

// OutlierSummary records the outlier step of a run.
type OutlierSummary struct {
	Target     string               `yaml:"target"`
	Threshold  float64              `yaml:"threshold"`
	Iterations []cleaning.Iteration `yaml:"iterations"`
}

// YAML renders the report.
func (r *Report) YAML() ([]byte, error) {
	b, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return b, nil
}

// WriteReport writes the report atomically to path.
func WriteReport(path string, r *Report) error {
	b, err := r.YAML()
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, b)
}
