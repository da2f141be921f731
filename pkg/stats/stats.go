// Package stats computes grouped counts over a record sequence.
package stats

import (
	"maps"
	"slices"

	"github.com/mchurichi/logdash/pkg/record"
)

const (
	// HourLayout is the bucket key format for ByHour.
	HourLayout = "2006-01-02 15:00"
	// NullFile is the ByFile key for records with no source file.
	NullFile = "null"
)

// Bundle holds the four grouping tables. The maps are never nil.
type Bundle struct {
	ByLevel map[string]int `json:"by_level"`
	ByHour  map[string]int `json:"by_hour"`
	ByFile  map[string]int `json:"by_file"`
	ByName  map[string]int `json:"by_name"`
}

// New returns an empty Bundle.
func New() *Bundle {
	return &Bundle{
		ByLevel: map[string]int{},
		ByHour:  map[string]int{},
		ByFile:  map[string]int{},
		ByName:  map[string]int{},
	}
}

// Add counts one record in every table.
func (b *Bundle) Add(r *record.Record) {
	b.ByLevel[r.Level]++
	b.ByHour[r.Timestamp.Format(HourLayout)]++
	file := r.SourceFile
	if file == "" {
		file = NullFile
	}
	b.ByFile[file]++
	b.ByName[r.Name]++
}

// Compute builds a Bundle over records.
func Compute(records []*record.Record) *Bundle {
	b := New()
	for _, r := range records {
		b.Add(r)
	}
	return b
}

// Total is the number of records counted.
func (b *Bundle) Total() int {
	n := 0
	for _, c := range b.ByLevel {
		n += c
	}
	return n
}

// Levels returns the level keys in sorted order.
func (b *Bundle) Levels() []string {
	return SortedKeys(b.ByLevel)
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys(m map[string]int) []string {
	return slices.Sorted(maps.Keys(m))
}

// Entry is one key and its count.
type Entry struct {
	Key   string
	Count int
}

// Top returns up to n entries of m with the highest counts. Equal counts
// are ordered by key.
func Top(m map[string]int, n int) []Entry {
	entries := make([]Entry, 0, len(m))
	for k, c := range m {
		entries = append(entries, Entry{Key: k, Count: c})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		if a.Key < b.Key {
			return -1
		}
		if a.Key > b.Key {
			return 1
		}
		return 0
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
