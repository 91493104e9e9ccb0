package collatz

// Reporter receives the outcome of every check and the driver's halt notice.
// A walk that leaves the uint64 range is reported through Overflowed
// instead of Checked.
type Reporter interface {
	Checked(start uint64, trace []uint64, converged bool)
	Overflowed(start uint64, trace []uint64)
	Halted(start uint64)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Checked(uint64, []uint64, bool) {}
func (NopReporter) Overflowed(uint64, []uint64)    {}
func (NopReporter) Halted(uint64)                  {}

// Result is the outcome of a single walk.
// Overflow means the walk stopped at an odd value above MaxStart; such a
// walk is neither converged nor diverged.
type Result struct {
	Start     uint64
	Trace     []uint64
	Converged bool
	Overflow  bool
}

// Checker walks sequences against a memo.
type Checker struct {
	step     StepFunc
	reporter Reporter
}

// Option configures a Checker.
type Option func(*Checker)

// WithStepper replaces the standard Collatz step.
func WithStepper(step StepFunc) Option {
	return func(c *Checker) {
		if step != nil {
			c.step = step
		}
	}
}

// WithReporter sets where check outcomes are sent.
func WithReporter(r Reporter) Option {
	return func(c *Checker) {
		if r != nil {
			c.reporter = r
		}
	}
}

// NewChecker returns a Checker using Step and NopReporter unless overridden.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		step:     Step,
		reporter: NopReporter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reporter returns the checker's reporter.
func (c *Checker) Reporter() Reporter {
	return c.reporter
}

// Check reports whether the sequence from start reaches a memoized value.
// On success every visited value is merged into memo; on failure memo is
// left untouched.
func (c *Checker) Check(start uint64, memo Memo) bool {
	return c.Walk(start, memo).Converged
}

// Walk is Check but also returns the visited trace.
//
// The memo is consulted before the trace, so a value that is memoized and
// would also close a cycle counts as converged. The memo is only changed
// when the walk converges.
func (c *Checker) Walk(start uint64, memo Memo) Result {
	var trace []uint64
	seen := make(map[uint64]struct{})
	current := start

	for {
		if memo.Contains(current) {
			trace = append(trace, current)
			memo.Merge(trace)
			c.reporter.Checked(start, trace, true)
			return Result{Start: start, Trace: trace, Converged: true}
		}

		if _, ok := seen[current]; ok {
			trace = append(trace, current)
			c.reporter.Checked(start, trace, false)
			return Result{Start: start, Trace: trace, Converged: false}
		}

		trace = append(trace, current)
		if !canStep(current) {
			c.reporter.Overflowed(start, trace)
			return Result{Start: start, Trace: trace, Overflow: true}
		}
		seen[current] = struct{}{}
		current = c.step(current)
	}
}
