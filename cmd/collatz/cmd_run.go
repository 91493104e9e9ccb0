package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"collatz-checker/internal/collatz"
	"collatz-checker/internal/report"
	"collatz-checker/internal/store"
	"collatz-checker/internal/sweep"
)

var (
	lowerFlag   uint64
	upperFlag   uint64
	policyFlag  string
	workersFlag int
)

// runCmd sweeps the configured range
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check every candidate in the range",
	Long: `Loads the memo, checks every candidate from --lower to --upper in
increasing order, then saves the memo.

A divergence is reported and, with --policy=halt (the default), stops the
run. Divergences and persistence failures never change the exit status.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)

	flags := cmd.Flags()
	if flags.Changed("lower") {
		cfg.Range.Lower = lowerFlag
	}
	if flags.Changed("upper") {
		cfg.Range.Upper = upperFlag
	}
	if flags.Changed("policy") {
		cfg.Policy = policyFlag
	}
	if flags.Changed("workers") {
		cfg.Workers = workersFlag
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	st, closeStore := openStore(ctx)
	defer closeStore()

	memo := store.LoadMemo(ctx, st, logger)
	checker := collatz.NewChecker(collatz.WithReporter(report.NewZapReporter(logger)))

	opts := cfg.SweepOptions()
	opts.Progress = func(msg string) {
		logger.Debug(msg)
	}

	var summary sweep.Summary
	var err error
	if useParallel(opts.Workers) {
		summary, err = sweep.RunParallel(ctx, checker, collatz.NewSyncSet(memo), opts)
	} else {
		summary, err = sweep.Run(ctx, checker, memo, opts)
	}
	if err != nil {
		logger.Warn("Sweep stopped early", zap.Error(err))
	}

	// Converged values are already proven, so keep them even after an interrupt.
	saveCtx := context.WithoutCancel(ctx)
	_ = store.SaveMemo(saveCtx, st, memo.Values(), logger)
	recordRun(saveCtx, st, summary)

	printSummary(cmd.OutOrStdout(), summary)
	return err
}

// useParallel reports whether workers selects the worker pool.
// 0 means one worker per CPU, matching sweep.RunParallel.
func useParallel(workers int) bool {
	return workers != 1
}

// openStore opens the configured store. Failures are logged and the run
// continues without persistence.
func openStore(ctx context.Context) (store.Store, func()) {
	st, closeFn, err := cfg.OpenStore(ctx)
	if err != nil {
		logger.Warn("Memo store unavailable, continuing without persistence", zap.Error(err))
		return nil, func() {}
	}
	return st, func() {
		if err := closeFn(); err != nil {
			logger.Warn("Failed to close memo store", zap.Error(err))
		}
	}
}

// recordRun stores the summary when the store keeps run history.
func recordRun(ctx context.Context, st store.Store, summary sweep.Summary) {
	sqlStore, ok := st.(*store.SQLiteStore)
	if !ok || summary.RunID == "" {
		return
	}

	divergences := make([]store.Divergence, len(summary.Divergences))
	for i, d := range summary.Divergences {
		divergences[i] = store.Divergence{Start: d.Start, Trace: d.Trace}
	}

	err := sqlStore.RecordRun(ctx, store.RunRecord{
		ID:          summary.RunID,
		StartedAt:   summary.StartedAt,
		Lower:       summary.Lower,
		Upper:       summary.Upper,
		Policy:      summary.Policy.String(),
		Checked:     summary.Checked,
		Converged:   summary.Converged,
		Halted:      summary.Halted,
		MemoSize:    summary.MemoSize,
		Divergences: divergences,
	})
	if err != nil {
		logger.Error("Failed to record run", zap.String("run_id", summary.RunID), zap.Error(err))
		return
	}
	logger.Debug("Recorded run", zap.String("run_id", summary.RunID))
}

func printSummary(w io.Writer, s sweep.Summary) {
	fmt.Fprintf(w, "\nRun %s\n", s.RunID)
	fmt.Fprintf(w, "  Range: %d..%d (policy: %s)\n", s.Lower, s.Upper, s.Policy)
	fmt.Fprintf(w, "  Checked: %d\n", s.Checked)
	fmt.Fprintf(w, "  Converged: %d\n", s.Converged)
	if len(s.Divergences) > 0 {
		fmt.Fprintf(w, "  Diverged: %v\n", s.Divergent())
	}
	if len(s.Unresolved) > 0 {
		fmt.Fprintf(w, "  Unresolved (overflow): %v\n", s.Unresolved)
	}
	if s.Halted {
		fmt.Fprintf(w, "  Halted at first divergence\n")
	}
	fmt.Fprintf(w, "  Memo size: %d\n", s.MemoSize)
	fmt.Fprintf(w, "  Processing time: %s\n", formatElapsed(s.Elapsed))
}

// formatElapsed renders short runs in milliseconds and longer ones as
// h/m/s, dropping leading zero units.
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}

	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)

	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
