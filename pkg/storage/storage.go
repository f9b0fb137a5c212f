package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/vjranagit/exacorona-plot/pkg/types"
)

// Storage archives the grouped series of report runs
type Storage interface {
	// Write stores all series of a run, replacing whatever the run held before
	Write(ctx context.Context, run string, series []types.Series) error

	// Read returns the series of a run in ascending id order
	Read(ctx context.Context, run string) ([]types.Series, error)

	// Runs lists the archived run names
	Runs(ctx context.Context) ([]string, error)

	// Close closes the storage
	Close() error
}

// ErrRunNotFound is returned by Read for a run with no archived series
var ErrRunNotFound = errors.New("run not found")

// Config holds storage configuration
type Config struct {
	Path             string
	CompressionLevel int
}

// DefaultConfig returns default storage configuration
func DefaultConfig() *Config {
	return &Config{
		Path:             "./data",
		CompressionLevel: 3,
	}
}

// badgerStorage implements Storage using BadgerDB
type badgerStorage struct {
	cfg        *Config
	db         *badger.DB
	compressor *Compressor
	mu         sync.RWMutex
}

// NewStorage opens (or creates) the archive under cfg.Path
func NewStorage(cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := badger.DefaultOptions(filepath.Join(cfg.Path, "badger"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	compressor, err := NewCompressor(cfg.CompressionLevel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}

	return &badgerStorage{
		cfg:        cfg,
		db:         db,
		compressor: compressor,
	}, nil
}

type seriesPayload struct {
	Label      string
	Count      int
	Timestamps []byte
	Values     []byte
}

// Write implements Storage.Write
func (s *badgerStorage) Write(ctx context.Context, run string, series []types.Series) error {
	if err := validateRun(run); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, runPrefix(run)); err != nil {
			return fmt.Errorf("failed to clear run %s: %w", run, err)
		}

		for _, ser := range series {
			payload, err := s.encode(ser)
			if err != nil {
				return fmt.Errorf("failed to encode series %d: %w", ser.ID, err)
			}
			if err := txn.Set(generateKey(run, ser.ID), payload); err != nil {
				return fmt.Errorf("failed to store series %d: %w", ser.ID, err)
			}
		}
		return nil
	})
}

// deletePrefix removes every key under prefix within txn
func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *badgerStorage) encode(ser types.Series) ([]byte, error) {
	ts, err := s.compressor.Compress(ser.XValues())
	if err != nil {
		return nil, fmt.Errorf("failed to compress timestamps: %w", err)
	}
	vals, err := s.compressor.Compress(ser.YValues())
	if err != nil {
		return nil, fmt.Errorf("failed to compress values: %w", err)
	}

	return json.Marshal(&seriesPayload{
		Label:      ser.Label,
		Count:      len(ser.Points),
		Timestamps: ts,
		Values:     vals,
	})
}

// Read implements Storage.Read
func (s *badgerStorage) Read(ctx context.Context, run string) ([]types.Series, error) {
	if err := validateRun(run); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []types.Series
	prefix := runPrefix(run)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			id := parseKeyID(item.Key()[len(prefix):])

			var payload seriesPayload
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &payload)
			}); err != nil {
				return fmt.Errorf("failed to unmarshal series %d: %w", id, err)
			}

			ser, err := s.decode(id, &payload)
			if err != nil {
				return err
			}
			result = append(result, ser)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, run)
	}

	return result, nil
}

func (s *badgerStorage) decode(id int, payload *seriesPayload) (types.Series, error) {
	timestamps, err := s.compressor.Decompress(payload.Timestamps, payload.Count)
	if err != nil {
		return types.Series{}, fmt.Errorf("failed to decompress timestamps: %w", err)
	}
	values, err := s.compressor.Decompress(payload.Values, payload.Count)
	if err != nil {
		return types.Series{}, fmt.Errorf("failed to decompress values: %w", err)
	}
	if len(timestamps) != payload.Count || len(values) != payload.Count {
		return types.Series{}, fmt.Errorf("series %d: corrupt payload, want %d points", id, payload.Count)
	}

	points := make([]types.Point, payload.Count)
	for i := range points {
		points[i] = types.Point{Timestamp: timestamps[i], Value: values[i]}
	}

	return types.Series{ID: id, Label: payload.Label, Points: points}, nil
}

// Runs implements Storage.Runs
func (s *badgerStorage) Runs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().Key()
			if len(key) < 9 {
				continue
			}
			seen[string(key[:len(key)-9])] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	runs := make([]string, 0, len(seen))
	for run := range seen {
		runs = append(runs, run)
	}
	sort.Strings(runs)

	return runs, nil
}

// Close implements Storage.Close
func (s *badgerStorage) Close() error {
	s.compressor.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func validateRun(run string) error {
	if run == "" {
		return fmt.Errorf("run name is required")
	}
	if strings.ContainsRune(run, '/') {
		return fmt.Errorf("run name %q must not contain '/'", run)
	}
	return nil
}

func runPrefix(run string) []byte {
	return append([]byte(run), '/')
}

// generateKey builds run/<id>; the id is stored big-endian with the sign
// bit flipped so negative ids sort before positive ones
func generateKey(run string, id int) []byte {
	key := runPrefix(run)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(int64(id))^(1<<63))
	return append(key, buf[:]...)
}

func parseKeyID(b []byte) int {
	return int(int64(binary.BigEndian.Uint64(b) ^ (1 << 63)))
}
