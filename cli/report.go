package cli

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sokinpui/recon/internal/jsonx"
	"github.com/sokinpui/recon/model"
)

// Report is the machine-readable outcome of a run.
type Report struct {
	model.Summary `yaml:",inline"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`
}

// WriteReport encodes summary and err to w as json or yaml.
func WriteReport(w io.Writer, format string, summary model.Summary, err error) error {
	report := Report{Summary: summary}
	if err != nil {
		report.Error = err.Error()
	}

	switch format {
	case "json":
		data, err := jsonx.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", format)
}
