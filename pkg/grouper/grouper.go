package grouper

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vjranagit/exacorona-plot/pkg/types"
)

// Mode selects which series ids produce a series
type Mode string

const (
	// ModeRange emits every id in [min, max], empty ones included
	ModeRange Mode = "range"
	// ModeObserved emits only the ids present in the input
	ModeObserved Mode = "observed"
)

// MaxRangeSeries caps the number of series range mode may emit
const MaxRangeSeries = 1 << 16

var (
	// ErrNoRecords is returned when there is nothing to group
	ErrNoRecords = errors.New("no records to group")

	// ErrRangeTooLarge is returned when [min, max] spans more than MaxRangeSeries ids
	ErrRangeTooLarge = errors.New("series id range too large")
)

// ParseMode validates a grouping mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRange, ModeObserved:
		return Mode(s), nil
	case "":
		return ModeRange, nil
	}
	return "", fmt.Errorf("unknown grouping mode %q", s)
}

// Group splits records into series ordered by ascending id. Points keep
// the input row order; nothing is sorted or deduplicated.
func Group(records []types.Record, mode Mode) ([]types.Series, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	switch mode {
	case ModeRange, "":
		return groupRange(records)
	case ModeObserved:
		return groupObserved(records), nil
	}
	return nil, fmt.Errorf("unknown grouping mode %q", mode)
}

// groupRange scans all records once per id in [min, max]
func groupRange(records []types.Record) ([]types.Series, error) {
	minID, maxID := bounds(records)

	// unsigned difference stays exact even when max-min overflows int
	span := uint64(maxID) - uint64(minID)
	if span >= MaxRangeSeries {
		return nil, fmt.Errorf("%w: ids %d..%d, use observed grouping", ErrRangeTooLarge, minID, maxID)
	}

	result := make([]types.Series, 0, span+1)
	for i := uint64(0); i <= span; i++ {
		id := minID + int(i)
		series := types.Series{
			ID:     id,
			Label:  types.Label(id),
			Points: []types.Point{},
		}
		for _, rec := range records {
			if rec.SeriesID == id {
				series.Points = append(series.Points, types.Point{
					Timestamp: rec.Timestamp,
					Value:     rec.Value,
				})
			}
		}
		result = append(result, series)
	}

	return result, nil
}

func groupObserved(records []types.Record) []types.Series {
	byID := make(map[int][]types.Point)
	for _, rec := range records {
		byID[rec.SeriesID] = append(byID[rec.SeriesID], types.Point{
			Timestamp: rec.Timestamp,
			Value:     rec.Value,
		})
	}

	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	result := make([]types.Series, 0, len(ids))
	for _, id := range ids {
		result = append(result, types.Series{
			ID:     id,
			Label:  types.Label(id),
			Points: byID[id],
		})
	}

	return result
}

func bounds(records []types.Record) (int, int) {
	minID, maxID := records[0].SeriesID, records[0].SeriesID
	for _, rec := range records[1:] {
		if rec.SeriesID < minID {
			minID = rec.SeriesID
		}
		if rec.SeriesID > maxID {
			maxID = rec.SeriesID
		}
	}
	return minID, maxID
}

// Gaps returns the ids of series that have no points
func Gaps(series []types.Series) []int {
	var gaps []int
	for _, s := range series {
		if s.Empty() {
			gaps = append(gaps, s.ID)
		}
	}
	return gaps
}
