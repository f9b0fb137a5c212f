// Package loader parses ExaCorona simulation CSV output into records.
//
// The input has no header row. Each row carries a series id, a timestamp in
// seconds and a total infection count:
//
//	0,0.0,10
//	0,1.0,12
//	1,0.0,5
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/vjranagit/exacorona-plot/pkg/types"
)

const minColumns = 3

var (
	// ErrShortRow is returned for a row with fewer than three columns
	ErrShortRow = errors.New("row has fewer than 3 columns")

	// ErrBadField is returned for a field that does not parse as its column
	// type, including nan and inf
	ErrBadField = errors.New("unparseable field")
)

// Load reads all records from the CSV file at path
func Load(path string) ([]types.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer file.Close()

	return Read(file)
}

// Read parses records from r. Any malformed row aborts the whole read.
func Read(r io.Reader) ([]types.Record, error) {
	reader := csv.NewReader(r)
	reader.Comma = ','
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	var records []types.Record
	prevEnd := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}

		// encoding/csv drops empty lines; an empty line is a row with no columns
		line, _ := reader.FieldPos(0)
		if line > prevEnd+1 {
			return nil, fmt.Errorf("line %d: %w: got 0", prevEnd+1, ErrShortRow)
		}
		last := len(row) - 1
		prevEnd, _ = reader.FieldPos(last)
		prevEnd += strings.Count(row[last], "\n")

		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseRow(row []string) (types.Record, error) {
	if len(row) < minColumns {
		return types.Record{}, fmt.Errorf("%w: got %d", ErrShortRow, len(row))
	}

	id, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return types.Record{}, fieldError(0, "series id", row[0])
	}
	ts, err := parseFinite(row[1])
	if err != nil {
		return types.Record{}, fieldError(1, "timestamp", row[1])
	}
	val, err := parseFinite(row[2])
	if err != nil {
		return types.Record{}, fieldError(2, "value", row[2])
	}

	return types.Record{SeriesID: id, Timestamp: ts, Value: val}, nil
}

// parseFinite rejects nan and inf, which have no place on a chart axis
func parseFinite(raw string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite number %q", raw)
	}
	return f, nil
}

func fieldError(col int, name, raw string) error {
	return fmt.Errorf("%w: column %d (%s) %q", ErrBadField, col, name, raw)
}
