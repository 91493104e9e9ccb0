package store

import (
	"context"

	"go.uber.org/zap"

	"collatz-checker/internal/collatz"
)

// Store persists the memo between runs.
type Store interface {
	Load(ctx context.Context) ([]uint64, error)
	Save(ctx context.Context, values []uint64) error
}

// LoadMemo reads the memo from s. Any failure is logged and the default {1}
// seed is returned instead. The result always contains 1.
func LoadMemo(ctx context.Context, s Store, logger *zap.Logger) *collatz.Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	if s == nil {
		return collatz.NewSet()
	}

	values, err := s.Load(ctx)
	if err != nil {
		logger.Warn("Failed to load memo, using default seed", zap.Error(err))
		return collatz.NewSet()
	}

	set := collatz.NewSet()
	set.Merge(values)
	logger.Info("Loaded memo", zap.Int("size", set.Len()))
	return set
}

// SaveMemo writes the memo to s. Errors are logged and returned for reporting;
// they never change results already computed.
func SaveMemo(ctx context.Context, s Store, values []uint64, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if s == nil {
		return nil
	}

	if err := s.Save(ctx, values); err != nil {
		logger.Error("Failed to save memo", zap.Error(err))
		return err
	}
	logger.Info("Saved memo", zap.Int("size", len(values)))
	return nil
}
