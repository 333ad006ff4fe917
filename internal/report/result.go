package report

import (
	"time"

	"github.com/google/uuid"
)

// Result is the immutable record of one launch. Set once at completion,
// never recomputed.
type Result struct {
	// Identity
	ID     string   `json:"id"`
	Module string   `json:"module"`
	Args   []string `json:"args"`
	PID    int      `json:"pid"`

	// Timing
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration_ns"`

	// Outcome
	ExitCode int  `json:"exit_code"`
	VenvUsed bool `json:"venv_used"`
}

// New starts a result for a launch of module with the forwarded args.
func New(module string, args []string) *Result {
	return &Result{
		ID:        uuid.NewString(),
		Module:    module,
		Args:      args,
		StartTime: time.Now(),
	}
}

// Complete records the outcome. Call this once, when the child has exited.
func (r *Result) Complete(pid, exitCode int, venvUsed bool) {
	r.PID = pid
	r.ExitCode = exitCode
	r.VenvUsed = venvUsed
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}
