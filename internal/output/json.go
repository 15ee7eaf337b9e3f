package output

import (
	"encoding/json"
	"io"

	"github.com/quorumgit/quorum/internal/policy"
)

// JSONWriter outputs the report as machine-readable JSON.
type JSONWriter struct{}

type jsonReport struct {
	Range     string     `json:"range"`
	Base      string     `json:"base,omitempty"`
	Head      string     `json:"head"`
	Satisfied bool       `json:"satisfied"`
	Paths     []jsonPath `json:"paths"`
}

type jsonPath struct {
	Path      string     `json:"path"`
	ContentID string     `json:"contentId"`
	Satisfied bool       `json:"satisfied"`
	Rules     []jsonRule `json:"rules"`
}

type jsonRule struct {
	Pattern   string   `json:"pattern"`
	Scrutiny  int      `json:"scrutiny"`
	Required  int      `json:"required"`
	Reviewers []string `json:"reviewers"`
	Approvers []string `json:"approvers,omitempty"`
	Satisfied bool     `json:"satisfied"`
}

func (j *JSONWriter) Write(w io.Writer, report *policy.Report) error {
	out := jsonReport{
		Range:     report.Range.Spec,
		Head:      report.Range.Head.String(),
		Satisfied: report.Satisfied(),
	}
	if !report.Range.Base.IsZero() {
		out.Base = report.Range.Base.String()
	}
	for _, p := range report.Paths {
		jp := jsonPath{
			Path:      p.Path,
			ContentID: p.Blob.String(),
			Satisfied: p.Satisfied(),
		}
		for _, rr := range p.Rules {
			jp.Rules = append(jp.Rules, jsonRule{
				Pattern:   rr.Rule.Pattern,
				Scrutiny:  int(rr.Rule.Level),
				Required:  rr.Rule.Required,
				Reviewers: rr.Rule.Reviewers,
				Approvers: rr.Approvers,
				Satisfied: rr.Satisfied,
			})
		}
		out.Paths = append(out.Paths, jp)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
