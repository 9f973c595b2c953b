package vftransform

import (
	"time"

	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// unitOrder lists each supported timeunit name, from coarsest to finest
// (spec.md §4.2 timeunit()).
var unitOrder = []string{"year", "quarter", "month", "date", "hours", "minutes", "seconds", "milliseconds"}

// evalTimeUnit truncates TimeUnitField to the finest unit named in Units
// and writes [unitStart, unitEnd) into TimeUnitAs.
func (t Transform) evalTimeUnit(input *vfvalue.Table) (*vfvalue.Table, []any, error) {
	col := input.Col(t.TimeUnitField)
	startCol := make([]any, len(col))
	endCol := make([]any, len(col))

	finest := finestUnit(t.Units)
	loc := time.UTC
	if !t.UTC {
		if l, err := time.LoadLocation("Local"); err == nil {
			loc = l
		}
	}

	for i, v := range col {
		ms, ok := toMillis(v)
		if !ok {
			startCol[i] = nil
			endCol[i] = nil
			continue
		}
		tt := time.UnixMilli(ms).In(loc)
		start := truncateTo(tt, finest)
		end := advance(start, finest)
		startCol[i] = start.UTC().UnixMilli()
		endCol[i] = end.UTC().UnixMilli()
	}

	out := input.WithColumn(t.TimeUnitAs[0], vfvalue.TypeTimestampMs, startCol)
	out = out.WithColumn(t.TimeUnitAs[1], vfvalue.TypeTimestampMs, endCol)
	return out, nil, nil
}

func toMillis(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), true
	}
	return 0, false
}

// finestUnit returns the most fine-grained unit named in units, defaulting
// to "date" (day) when units is empty.
func finestUnit(units []string) string {
	want := map[string]struct{}{}
	for _, u := range units {
		want[u] = struct{}{}
	}
	finest := "date"
	for _, u := range unitOrder {
		if _, ok := want[u]; ok {
			finest = u
		}
	}
	return finest
}

func truncateTo(t time.Time, unit string) time.Time {
	y, m, d := t.Date()
	switch unit {
	case "year":
		return time.Date(y, time.January, 1, 0, 0, 0, 0, t.Location())
	case "quarter":
		q := (int(m) - 1) / 3
		return time.Date(y, time.Month(q*3+1), 1, 0, 0, 0, 0, t.Location())
	case "month":
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	case "date":
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case "hours":
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, t.Location())
	case "minutes":
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, t.Location())
	case "seconds":
		return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
	default:
		return t
	}
}

func advance(t time.Time, unit string) time.Time {
	switch unit {
	case "year":
		return t.AddDate(1, 0, 0)
	case "quarter":
		return t.AddDate(0, 3, 0)
	case "month":
		return t.AddDate(0, 1, 0)
	case "date":
		return t.AddDate(0, 0, 1)
	case "hours":
		return t.Add(time.Hour)
	case "minutes":
		return t.Add(time.Minute)
	case "seconds":
		return t.Add(time.Second)
	case "milliseconds":
		return t.Add(time.Millisecond)
	default:
		return t
	}
}
