package sweep

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"collatz-checker/internal/collatz"
)

const (
	// Default inclusive range
	DefaultLower = 1
	DefaultUpper = 99

	// Progress reporting interval, in candidates
	progressReportInterval = 10_000
)

// Policy decides what a sweep does after a divergence.
type Policy int

const (
	// HaltOnDivergence stops at the first divergent candidate.
	HaltOnDivergence Policy = iota
	// ContinueOnDivergence checks every candidate and collects divergences.
	ContinueOnDivergence
)

func (p Policy) String() string {
	switch p {
	case HaltOnDivergence:
		return "halt"
	case ContinueOnDivergence:
		return "continue"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses "halt" or "continue".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "halt":
		return HaltOnDivergence, nil
	case "continue":
		return ContinueOnDivergence, nil
	default:
		return 0, fmt.Errorf("unknown divergence policy %q (want halt or continue)", s)
	}
}

// Options configures a sweep. Lower and Upper are inclusive.
type Options struct {
	Lower    uint64
	Upper    uint64
	Policy   Policy
	Workers  int
	Progress func(string)
}

// Validate checks the range.
func (o Options) Validate() error {
	if o.Lower == 0 {
		return fmt.Errorf("lower bound must be positive")
	}
	if o.Lower > o.Upper {
		return fmt.Errorf("lower bound %d is greater than upper bound %d", o.Lower, o.Upper)
	}
	if o.Upper > collatz.MaxStart {
		return fmt.Errorf("upper bound %d exceeds the largest checkable value %d", o.Upper, collatz.MaxStart)
	}
	return nil
}

// Divergence is one candidate whose sequence closed a cycle.
type Divergence struct {
	Start uint64
	Trace []uint64
}

// Summary describes a finished sweep.
// Unresolved holds starts whose walk was abandoned before leaving the
// uint64 range; they count as neither converged nor divergent.
type Summary struct {
	RunID       string
	StartedAt   time.Time
	Lower       uint64
	Upper       uint64
	Policy      Policy
	Checked     int
	Converged   int
	Divergences []Divergence
	Unresolved  []uint64
	Halted      bool
	MemoSize    int
	Elapsed     time.Duration
}

// Divergent returns the divergent start values in ascending order.
func (s Summary) Divergent() []uint64 {
	out := make([]uint64, len(s.Divergences))
	for i, d := range s.Divergences {
		out[i] = d.Start
	}
	slices.Sort(out)
	return out
}

// Run checks every candidate from opts.Lower to opts.Upper in increasing
// order against memo. Each candidate is fully resolved before the next one
// starts. The context is only consulted between candidates.
func Run(ctx context.Context, checker *collatz.Checker, memo collatz.Memo, opts Options) (Summary, error) {
	if err := opts.Validate(); err != nil {
		return Summary{}, err
	}

	summary := newSummary(opts)
	progress(opts.Progress, fmt.Sprintf("Checking %d..%d (policy: %s)", opts.Lower, opts.Upper, opts.Policy))

	for n := opts.Lower; ; n++ {
		if err := ctx.Err(); err != nil {
			return finish(summary, memo), fmt.Errorf("sweep interrupted before %d: %w", n, err)
		}

		result := checker.Walk(n, memo)
		summary.Checked++

		switch {
		case result.Converged:
			summary.Converged++
		case result.Overflow:
			summary.Unresolved = append(summary.Unresolved, n)
		default:
			summary.Divergences = append(summary.Divergences, Divergence{Start: n, Trace: result.Trace})
			if opts.Policy == HaltOnDivergence {
				checker.Reporter().Halted(n)
				summary.Halted = true
			}
		}
		if summary.Halted {
			break
		}

		if summary.Checked%progressReportInterval == 0 {
			progress(opts.Progress, fmt.Sprintf("  Checked %d candidates (memo size %d)", summary.Checked, memo.Len()))
		}

		if n == opts.Upper {
			break
		}
	}

	summary = finish(summary, memo)
	progress(opts.Progress, fmt.Sprintf("Checked %d candidates, %d converged, %d diverged",
		summary.Checked, summary.Converged, len(summary.Divergences)))
	return summary, nil
}

func newSummary(opts Options) Summary {
	return Summary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Lower:     opts.Lower,
		Upper:     opts.Upper,
		Policy:    opts.Policy,
	}
}

func finish(s Summary, memo collatz.Memo) Summary {
	s.MemoSize = memo.Len()
	s.Elapsed = time.Since(s.StartedAt)
	return s
}

func progress(cb func(string), msg string) {
	if cb != nil {
		cb(msg)
	}
}
