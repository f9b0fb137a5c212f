// Package report runs the load, group and render pipeline for one input
// file and publishes the resulting chart.
package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vjranagit/exacorona-plot/internal/config"
	"github.com/vjranagit/exacorona-plot/pkg/api"
	"github.com/vjranagit/exacorona-plot/pkg/grouper"
	"github.com/vjranagit/exacorona-plot/pkg/loader"
	"github.com/vjranagit/exacorona-plot/pkg/render"
	"github.com/vjranagit/exacorona-plot/pkg/storage"
	"github.com/vjranagit/exacorona-plot/pkg/types"
)

// Result is the outcome of a successful run
type Result struct {
	Series []types.Series
	PNG    []byte
	Output string
}

// Run produces the chart described by cfg. With display enabled it blocks
// serving the chart until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	records, err := loader.Load(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", cfg.Input, err)
	}
	logger.Debug("records loaded", zap.String("input", cfg.Input), zap.Int("records", len(records)))

	series, err := grouper.Group(records, cfg.Mode())
	if err != nil {
		return nil, fmt.Errorf("failed to group records: %w", err)
	}
	if gaps := grouper.Gaps(series); len(gaps) > 0 {
		logger.Warn("series ids without rows, plotting empty series",
			zap.Ints("ids", gaps),
			zap.String("grouping", cfg.Grouping))
	}

	var buf bytes.Buffer
	if err := render.PNG(&buf, series, cfg.ToRenderOptions()); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	result := &Result{
		Series: series,
		PNG:    buf.Bytes(),
		Output: cfg.Output,
	}

	var store storage.Storage
	if cfg.ArchiveEnabled() {
		store, err = storage.NewStorage(cfg.ToStorageConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		defer store.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := os.WriteFile(cfg.Output, result.PNG, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", cfg.Output, err)
		}
		return nil
	})
	if store != nil {
		run := filepath.Base(cfg.Input)
		g.Go(func() error {
			if err := store.Write(gctx, run, series); err != nil {
				return fmt.Errorf("failed to archive run %s: %w", run, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("chart written",
		zap.String("output", cfg.Output),
		zap.Int("series", len(series)),
		zap.Int("records", len(records)),
		zap.Int("bytes", len(result.PNG)))

	if cfg.Display.Enabled {
		viewer := api.NewServer(cfg.Display.ListenAddr, result.PNG, series, store, logger)
		if err := viewer.Serve(ctx, cfg.Display.ShutdownTimeout); err != nil {
			return result, fmt.Errorf("failed to display chart: %w", err)
		}
	}

	return result, nil
}
