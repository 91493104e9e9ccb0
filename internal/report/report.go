package report

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapReporter writes check outcomes to a zap logger.
type ZapReporter struct {
	logger *zap.Logger
}

// NewZapReporter returns a reporter on logger. A nil logger is replaced by zap.NewNop().
func NewZapReporter(logger *zap.Logger) *ZapReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapReporter{logger: logger}
}

// Checked logs one line with the full trace and its classification.
func (r *ZapReporter) Checked(start uint64, trace []uint64, converged bool) {
	fields := []zap.Field{
		zap.Uint64("start", start),
		zap.Int("steps", Steps(trace)),
	}
	if converged {
		r.logger.Info(fmt.Sprintf("  %d: %s (converged)", start, FormatTrace(trace)), fields...)
		return
	}
	r.logger.Error(fmt.Sprintf("! %d: %s (diverged)", start, FormatTrace(trace)), fields...)
}

// Overflowed logs a walk that was abandoned before 3n+1 left the uint64 range.
func (r *ZapReporter) Overflowed(start uint64, trace []uint64) {
	r.logger.Warn(fmt.Sprintf("? %d: %s (overflow, unresolved)", start, FormatTrace(trace)),
		zap.Uint64("start", start),
		zap.Int("steps", Steps(trace)),
		zap.Uint64("last", trace[len(trace)-1]),
	)
}

// Halted logs that a run stopped at start.
func (r *ZapReporter) Halted(start uint64) {
	r.logger.Error(fmt.Sprintf("found a divergent sequence for %d", start), zap.Uint64("start", start))
}

// Steps is the number of transitions in trace, one fewer than its length.
func Steps(trace []uint64) int {
	if len(trace) == 0 {
		return 0
	}
	return len(trace) - 1
}

// FormatTrace renders a trace as "[a, b, c]".
func FormatTrace(trace []uint64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range trace {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatUint(v, 10))
	}
	b.WriteByte(']')
	return b.String()
}

// NewLogger builds a zap logger at the given level ("debug", "info", "warn", "error").
func NewLogger(level string, development bool) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	config := zap.NewProductionConfig()
	if development {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
