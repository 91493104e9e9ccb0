package sweep

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"collatz-checker/internal/collatz"
)

// cycleStepper sends 5 -> 6 -> 7 -> 5 and defers to collatz.Step elsewhere.
func cycleStepper(n uint64) uint64 {
	switch n {
	case 5:
		return 6
	case 6:
		return 7
	case 7:
		return 5
	}
	return collatz.Step(n)
}

// escapeStepper sends 3 straight past collatz.MaxStart.
func escapeStepper(n uint64) uint64 {
	if n == 3 {
		return collatz.MaxStart + 1
	}
	return collatz.Step(n)
}

type haltRecorder struct {
	collatz.NopReporter
	halted []uint64
}

func (h *haltRecorder) Halted(start uint64) {
	h.halted = append(h.halted, start)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input       string
		want        Policy
		expectedErr bool
	}{
		{input: "", want: HaltOnDivergence},
		{input: "halt", want: HaltOnDivergence},
		{input: " Continue ", want: ContinueOnDivergence},
		{input: "stop", expectedErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePolicy(tt.input)
			if tt.expectedErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.String(), mustRoundTrip(t, got))
		})
	}
}

func mustRoundTrip(t *testing.T, p Policy) string {
	t.Helper()
	back, err := ParsePolicy(p.String())
	require.NoError(t, err)
	return back.String()
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, Options{Lower: 1, Upper: 1}.Validate())
	assert.Error(t, Options{Lower: 0, Upper: 10}.Validate())
	assert.Error(t, Options{Lower: 11, Upper: 10}.Validate())
	assert.NoError(t, Options{Lower: collatz.MaxStart, Upper: collatz.MaxStart}.Validate())
	assert.Error(t, Options{Lower: 1, Upper: collatz.MaxStart + 1}.Validate())
}

func TestRun_OneThroughNinetyNine(t *testing.T) {
	memo := collatz.NewSet()
	var messages []string

	summary, err := Run(context.Background(), collatz.NewChecker(), memo, Options{
		Lower:    DefaultLower,
		Upper:    DefaultUpper,
		Progress: func(msg string) { messages = append(messages, msg) },
	})
	require.NoError(t, err)

	assert.Equal(t, 99, summary.Checked)
	assert.Equal(t, 99, summary.Converged)
	assert.Empty(t, summary.Divergences)
	assert.False(t, summary.Halted)
	assert.Equal(t, memo.Len(), summary.MemoSize)
	assert.NotEmpty(t, summary.RunID)
	assert.NotEmpty(t, messages)
	for n := uint64(1); n <= 99; n++ {
		assert.True(t, memo.Contains(n))
	}
}

func TestRun_HaltOnDivergence(t *testing.T) {
	memo := collatz.NewSet()
	reporter := &haltRecorder{}
	checker := collatz.NewChecker(collatz.WithStepper(cycleStepper), collatz.WithReporter(reporter))

	summary, err := Run(context.Background(), checker, memo, Options{Lower: 1, Upper: 20})
	require.NoError(t, err)

	assert.True(t, summary.Halted)
	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 2, summary.Converged)
	assert.Equal(t, []uint64{3}, summary.Divergent())
	assert.Equal(t, []uint64{3, 10, 5, 6, 7, 5}, summary.Divergences[0].Trace)
	assert.Equal(t, []uint64{3}, reporter.halted)
	assert.Equal(t, []uint64{1, 2}, memo.Values())
}

func TestRun_ContinueOnDivergence(t *testing.T) {
	memo := collatz.NewSet()
	reporter := &haltRecorder{}
	checker := collatz.NewChecker(collatz.WithStepper(cycleStepper), collatz.WithReporter(reporter))

	summary, err := Run(context.Background(), checker, memo, Options{Lower: 1, Upper: 10, Policy: ContinueOnDivergence})
	require.NoError(t, err)

	assert.False(t, summary.Halted)
	assert.Equal(t, 10, summary.Checked)
	assert.Equal(t, 4, summary.Converged)
	assert.Equal(t, []uint64{3, 5, 6, 7, 9, 10}, summary.Divergent())
	assert.Empty(t, reporter.halted)
	assert.Equal(t, []uint64{1, 2, 4, 8}, memo.Values())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := Run(ctx, collatz.NewChecker(), collatz.NewSet(), Options{Lower: 1, Upper: 10})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Checked)
}

func TestRun_InvalidOptions(t *testing.T) {
	_, err := Run(context.Background(), collatz.NewChecker(), collatz.NewSet(), Options{Lower: 5, Upper: 1})
	assert.Error(t, err)
}

func TestRun_SingleCandidateAtUpperLimit(t *testing.T) {
	// Upper == Lower must check exactly one value and terminate.
	summary, err := Run(context.Background(), collatz.NewChecker(), collatz.NewSet(), Options{Lower: 27, Upper: 27})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Converged)
}

func TestRunParallel_MatchesSequential(t *testing.T) {
	tests := []struct {
		name    string
		workers int
	}{
		{name: "OneWorker", workers: 1},
		{name: "FourWorkers", workers: 4},
		{name: "DefaultWorkers", workers: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memo := collatz.NewSyncSet(nil)
			summary, err := RunParallel(context.Background(), collatz.NewChecker(), memo, Options{
				Lower:   1,
				Upper:   2000,
				Workers: tt.workers,
			})
			require.NoError(t, err)

			assert.Equal(t, 2000, summary.Checked)
			assert.Equal(t, 2000, summary.Converged)
			assert.False(t, summary.Halted)

			sequential := collatz.NewSet()
			_, err = Run(context.Background(), collatz.NewChecker(), sequential, Options{Lower: 1, Upper: 2000})
			require.NoError(t, err)
			assert.Equal(t, sequential.Values(), memo.Values())
		})
	}
}

func TestRunParallel_ContinueOnDivergence(t *testing.T) {
	memo := collatz.NewSyncSet(nil)
	checker := collatz.NewChecker(collatz.WithStepper(cycleStepper))

	summary, err := RunParallel(context.Background(), checker, memo, Options{
		Lower:   1,
		Upper:   10,
		Policy:  ContinueOnDivergence,
		Workers: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, summary.Checked)
	assert.Equal(t, []uint64{3, 5, 6, 7, 9, 10}, summary.Divergent())
	assert.Equal(t, []uint64{1, 2, 4, 8}, memo.Values())
}

func TestRunParallel_HaltOnDivergence(t *testing.T) {
	memo := collatz.NewSyncSet(nil)
	reporter := &haltRecorder{}
	checker := collatz.NewChecker(collatz.WithStepper(cycleStepper), collatz.WithReporter(reporter))

	summary, err := RunParallel(context.Background(), checker, memo, Options{
		Lower:   1,
		Upper:   10_000,
		Workers: 4,
	})
	require.NoError(t, err)

	assert.True(t, summary.Halted)
	require.NotEmpty(t, summary.Divergences)
	assert.LessOrEqual(t, summary.Checked, 10_000)
	require.Len(t, reporter.halted, 1)
	assert.Equal(t, summary.Divergent()[0], reporter.halted[0])
}

func TestRunParallel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunParallel(ctx, collatz.NewChecker(), collatz.NewSyncSet(nil), Options{Lower: 1, Upper: 100, Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_OverflowIsUnresolved(t *testing.T) {
	memo := collatz.NewSet()
	reporter := &haltRecorder{}
	checker := collatz.NewChecker(collatz.WithStepper(escapeStepper), collatz.WithReporter(reporter))

	summary, err := Run(context.Background(), checker, memo, Options{Lower: 1, Upper: 5})
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Checked)
	assert.Equal(t, 4, summary.Converged)
	assert.Equal(t, []uint64{3}, summary.Unresolved)
	assert.Empty(t, summary.Divergences)
	assert.False(t, summary.Halted, "an unresolved walk must not halt the sweep")
	assert.Empty(t, reporter.halted)
	assert.False(t, memo.Contains(3))
}

func TestRun_UpperAtMaxStart(t *testing.T) {
	summary, err := Run(context.Background(), collatz.NewChecker(), collatz.NewSet(), Options{
		Lower: collatz.MaxStart,
		Upper: collatz.MaxStart,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Converged+len(summary.Unresolved))
}

func TestRunParallel_OverflowIsUnresolved(t *testing.T) {
	memo := collatz.NewSyncSet(nil)
	checker := collatz.NewChecker(collatz.WithStepper(escapeStepper))

	summary, err := RunParallel(context.Background(), checker, memo, Options{
		Lower:   1,
		Upper:   50,
		Workers: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, 50, summary.Checked)
	assert.Contains(t, summary.Unresolved, uint64(3))
	assert.Equal(t, 50, summary.Converged+len(summary.Unresolved))
	assert.Empty(t, summary.Divergences)
	assert.False(t, summary.Halted)
	assert.False(t, memo.Contains(3))
}
