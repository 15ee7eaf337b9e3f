package output

import (
	"fmt"
	"io"

	"github.com/quorumgit/quorum/internal/policy"
)

// Writer renders a requirement report.
type Writer interface {
	Write(w io.Writer, report *policy.Report) error
}

// New returns the Writer for a format name.
func New(format string) (Writer, error) {
	switch format {
	case "", "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}

// errWriter accumulates the first write error so render code can stay
// linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
