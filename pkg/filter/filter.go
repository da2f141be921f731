package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mchurichi/logdash/pkg/record"
)

// ErrInvalidCriteria marks query input that cannot be turned into a filter.
var ErrInvalidCriteria = errors.New("invalid criteria")

// Criteria are the optional query filters. Empty fields are not applied.
type Criteria struct {
	Level         string
	SourceFile    string
	MetadataKey   string
	MetadataValue string
	Start         *time.Time
	End           *time.Time
	// Where is an optional boolean expression over the record, see ExprFilter.
	Where string
}

// Filter represents a record predicate
type Filter interface {
	Match(r *record.Record) bool
}

// Compile builds the conjunction of every criterion present in c.
func Compile(c Criteria) (Filter, error) {
	var filters []Filter

	if c.Level != "" {
		filters = append(filters, &LevelFilter{Level: c.Level})
	}
	if c.SourceFile != "" {
		filters = append(filters, &SourceFileFilter{File: c.SourceFile})
	}
	if c.MetadataKey != "" && c.MetadataValue != "" {
		filters = append(filters, &MetadataFilter{Key: c.MetadataKey, Value: c.MetadataValue})
	}
	if c.Start != nil || c.End != nil {
		filters = append(filters, &TimeRangeFilter{Start: c.Start, End: c.End})
	}
	if strings.TrimSpace(c.Where) != "" {
		f, err := NewExprFilter(c.Where)
		if err != nil {
			return nil, fmt.Errorf("%w: where: %v", ErrInvalidCriteria, err)
		}
		filters = append(filters, f)
	}

	switch len(filters) {
	case 0:
		return &AllFilter{}, nil
	case 1:
		return filters[0], nil
	default:
		return &AndFilter{Filters: filters}, nil
	}
}

// Apply returns the records matching f, in their original order.
func Apply(records []*record.Record, f Filter) []*record.Record {
	out := make([]*record.Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Filter implementations

// AllFilter matches all records
type AllFilter struct{}

func (f *AllFilter) Match(r *record.Record) bool {
	return true
}

// AndFilter matches when every inner filter matches
type AndFilter struct {
	Filters []Filter
}

func (f *AndFilter) Match(r *record.Record) bool {
	for _, inner := range f.Filters {
		if !inner.Match(r) {
			return false
		}
	}
	return true
}

// LevelFilter matches records by exact level
type LevelFilter struct {
	Level string
}

func (f *LevelFilter) Match(r *record.Record) bool {
	return r.Level == f.Level
}

// SourceFileFilter matches records by exact source file name
type SourceFileFilter struct {
	File string
}

func (f *SourceFileFilter) Match(r *record.Record) bool {
	return r.SourceFile == f.File
}

// MetadataFilter matches records whose metadata object has Key and whose
// value at Key, in text form, equals Value.
type MetadataFilter struct {
	Key   string
	Value string
}

func (f *MetadataFilter) Match(r *record.Record) bool {
	v, ok := r.MetadataField(f.Key)
	if !ok {
		return false
	}
	return v.Text() == f.Value
}

// TimeRangeFilter filters by an inclusive timestamp range. A nil bound is
// open.
type TimeRangeFilter struct {
	Start *time.Time
	End   *time.Time
}

func (f *TimeRangeFilter) Match(r *record.Record) bool {
	if f.Start != nil && r.Timestamp.Before(*f.Start) {
		return false
	}
	if f.End != nil && r.Timestamp.After(*f.End) {
		return false
	}
	return true
}
