package build

import (
	"fmt"
	"strings"
	"time"
)

// Failure records a document whose compiler chain aborted.
type Failure struct {
	DocumentID string
	Err        error
}

// Report summarizes one build run.
type Report struct {
	BuildID   string
	StartedAt time.Time
	Duration  time.Duration

	Built    int // documents compiled and emitted or captured
	Excluded int // documents matching no rule
	Drafts   int // documents excluded by draft status
	Failed   int

	Failures []Failure
}

// Succeeded reports whether every matched document compiled.
func (r *Report) Succeeded() bool { return r.Failed == 0 }

// Summary renders a single-line human summary.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "built %d documents in %s", r.Built, r.Duration.Round(time.Millisecond))
	if r.Excluded > 0 {
		fmt.Fprintf(&sb, ", %d unmatched", r.Excluded)
	}
	if r.Drafts > 0 {
		fmt.Fprintf(&sb, ", %d drafts skipped", r.Drafts)
	}
	if r.Failed > 0 {
		fmt.Fprintf(&sb, ", %d FAILED", r.Failed)
	}
	return sb.String()
}
