package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"collatz-checker/internal/collatz"
	"collatz-checker/internal/report"
	"collatz-checker/internal/store"
)

// checkCmd checks a single value
var checkCmd = &cobra.Command{
	Use:   "check [n]",
	Short: "Check one value against the memo",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)

	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || n == 0 {
		return fmt.Errorf("%q is not a positive integer", args[0])
	}
	if n > collatz.MaxStart {
		return fmt.Errorf("%d exceeds the largest checkable value %d", n, collatz.MaxStart)
	}

	st, closeStore := openStore(ctx)
	defer closeStore()

	memo := store.LoadMemo(ctx, st, logger)
	checker := collatz.NewChecker(collatz.WithReporter(report.NewZapReporter(logger)))

	result := checker.Walk(n, memo)
	if result.Converged {
		_ = store.SaveMemo(ctx, st, memo.Values(), logger)
	}

	status := "converged"
	switch {
	case result.Overflow:
		status = "unresolved, overflow"
	case !result.Converged:
		status = "diverged"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d: %s (%s, %d steps)\n", n, report.FormatTrace(result.Trace), status, report.Steps(result.Trace))
	return nil
}
