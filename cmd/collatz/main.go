package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"collatz-checker/internal/config"
	"collatz-checker/internal/report"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "collatz",
	Short: "Memoized Collatz convergence checker",
	Long: `collatz checks that Collatz sequences starting in a range reach 1.

Values already known to reach 1 are kept in a memo that is loaded at start
and saved at the end of every run, so later runs only walk new ground.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger, err = report.NewLogger(level, cfg.Log.Development)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "collatz.yaml", "Path to the YAML config file")

	runCmd.Flags().Uint64Var(&lowerFlag, "lower", 0, "First candidate (inclusive)")
	runCmd.Flags().Uint64Var(&upperFlag, "upper", 0, "Last candidate (inclusive)")
	runCmd.Flags().StringVar(&policyFlag, "policy", "", "What to do after a divergence: halt or continue")
	runCmd.Flags().IntVar(&workersFlag, "workers", 0, "Number of parallel workers (1 runs sequentially, 0 uses every CPU)")

	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address")

	initDBCmd.Flags().StringVar(&dbPathFlag, "db", "", "Path to the SQLite database (default: store.path)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initDBCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// cmdContext returns the command's context, or Background when the command
// was not started through Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
