package report

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vjranagit/exacorona-plot/internal/config"
	"github.com/vjranagit/exacorona-plot/pkg/grouper"
	"github.com/vjranagit/exacorona-plot/pkg/loader"
	"github.com/vjranagit/exacorona-plot/pkg/storage"
	"github.com/vjranagit/exacorona-plot/pkg/types"
)

func setup(t *testing.T, csv string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Input = filepath.Join(dir, "exacorona-0.csv")
	cfg.Output = filepath.Join(dir, "exacorona.png")

	require.NoError(t, os.WriteFile(cfg.Input, []byte(csv), 0644))
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	cfg := setup(t, "0,0.0,10.0\n0,1.0,12.0\n1,0.0,5.0\n")

	result, err := Run(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.Len(t, result.Series, 2)
	assert.Equal(t, "Location 0", result.Series[0].Label)
	assert.Equal(t, []types.Point{{Timestamp: 0, Value: 10}, {Timestamp: 1, Value: 12}}, result.Series[0].Points)
	assert.Equal(t, "Location 1", result.Series[1].Label)
	assert.Equal(t, []types.Point{{Timestamp: 0, Value: 5}}, result.Series[1].Points)

	info, err := os.Stat(cfg.Output)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestRunOverwritesOutput(t *testing.T) {
	cfg := setup(t, "0,0,1\n0,1,2\n")
	require.NoError(t, os.WriteFile(cfg.Output, []byte("stale"), 0644))

	result, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, result.PNG, data)
}

func TestRunWithGap(t *testing.T) {
	cfg := setup(t, "0,0,1\n0,1,2\n2,0,3\n2,1,4\n")

	result, err := Run(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, result.Series, 3)
	assert.Empty(t, result.Series[1].Points)

	_, err = os.Stat(cfg.Output)
	assert.NoError(t, err)
}

func TestRunObservedGrouping(t *testing.T) {
	cfg := setup(t, "0,0,1\n0,1,2\n2,0,3\n2,1,4\n")
	cfg.Grouping = string(grouper.ModeObserved)

	result, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, result.Series, 2)
	assert.Equal(t, 2, result.Series[1].ID)
}

func TestRunMalformedRowWritesNothing(t *testing.T) {
	cfg := setup(t, "0,0,1\n0,soon,2\n")

	_, err := Run(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, loader.ErrBadField))

	_, err = os.Stat(cfg.Output)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestRunMissingInput(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input = filepath.Join(t.TempDir(), "absent.csv")
	cfg.Output = filepath.Join(t.TempDir(), "exacorona.png")

	_, err := Run(context.Background(), cfg, nil)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestRunEmptyInput(t *testing.T) {
	cfg := setup(t, "")

	_, err := Run(context.Background(), cfg, nil)
	assert.True(t, errors.Is(err, grouper.ErrNoRecords))

	_, err = os.Stat(cfg.Output)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestRunArchivesSeries(t *testing.T) {
	cfg := setup(t, "0,0,1\n1,0,2\n0,1,3\n1,1,4\n")
	cfg.Archive.Path = t.TempDir()

	result, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	store, err := storage.NewStorage(cfg.ToStorageConfig())
	require.NoError(t, err)
	defer store.Close()

	archived, err := store.Read(context.Background(), "exacorona-0.csv")
	require.NoError(t, err)
	assert.Equal(t, result.Series, archived)
}

func TestRunDisplayBlocksUntilCancelled(t *testing.T) {
	cfg := setup(t, "0,0,1\n0,1,2\n")
	cfg.Display.Enabled = true
	cfg.Display.ListenAddr = "127.0.0.1:0"
	cfg.Display.ShutdownTimeout = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Run(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}
