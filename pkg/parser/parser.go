package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mchurichi/logdash/pkg/record"
)

const (
	// Separator delimits the timestamp, name, level and message fields.
	Separator = " - "
	// TimestampLayout is the only accepted timestamp format.
	TimestampLayout = "2006-01-02 15:04:05"

	metadataOpen  = "[metadata:"
	metadataClose = "]"
)

// ErrNoMatch is returned for lines that do not have the
// "<timestamp> - <name> - <level> - <message>" shape.
var ErrNoMatch = errors.New("line does not match log format")

// Parser interface for log line formats
type Parser interface {
	Parse(line string) (*record.Record, error)
	CanParse(line string) bool
}

// LineParser parses "<timestamp> - <name> - <level> - <message>" lines,
// where the message may end in a "[metadata:<json>]" suffix.
type LineParser struct{}

// NewLineParser creates a new line parser
func NewLineParser() *LineParser {
	return &LineParser{}
}

var defaultParser = NewLineParser()

// ParseLine parses line with the default parser and reports whether it
// produced a record.
func ParseLine(line string) (*record.Record, bool) {
	rec, err := defaultParser.Parse(line)
	return rec, err == nil
}

// CanParse checks if the line has the expected shape and timestamp
func (p *LineParser) CanParse(line string) bool {
	_, err := p.Parse(line)
	return err == nil
}

// Parse parses one line. The returned record has no SourceFile; that is
// the loader's job.
func (p *LineParser) Parse(line string) (*record.Record, error) {
	tsField, name, level, rest, ok := splitFields(line)
	if !ok {
		return nil, ErrNoMatch
	}

	ts, err := parseTimestamp(tsField)
	if err != nil {
		return nil, err
	}

	entry := &record.Record{
		Timestamp: ts,
		Name:      strings.TrimSpace(name),
		Level:     strings.TrimSpace(level),
		Raw:       line,
	}

	body, blob, found := splitMetadata(rest)
	if !found {
		entry.Message = strings.TrimSpace(rest)
		return entry, nil
	}

	meta, err := record.ParseValue(blob)
	if err != nil {
		// Broken metadata is kept as part of the message, verbatim.
		entry.Message = rest
		return entry, nil
	}
	entry.Message = strings.TrimSpace(body)
	entry.Metadata = &meta
	return entry, nil
}

// splitFields cuts the three leading fields off line. Name and level end
// at the first separator after them; everything else belongs to rest.
func splitFields(line string) (ts, name, level, rest string, ok bool) {
	ts, rest, ok = strings.Cut(line, Separator)
	if !ok {
		return
	}
	name, rest, ok = strings.Cut(rest, Separator)
	if !ok || name == "" {
		return "", "", "", "", false
	}
	level, rest, ok = strings.Cut(rest, Separator)
	if !ok || level == "" || rest == "" {
		return "", "", "", "", false
	}
	return ts, name, level, rest, true
}

// parseTimestamp requires the exact "dddd-dd-dd dd:dd:dd" shape before
// handing off to time.Parse, which would otherwise accept a one-digit hour.
func parseTimestamp(s string) (time.Time, error) {
	if len(s) != len(TimestampLayout) {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrNoMatch, s)
	}
	for i := 0; i < len(s); i++ {
		layoutChar := TimestampLayout[i]
		isDigit := s[i] >= '0' && s[i] <= '9'
		if layoutChar >= '0' && layoutChar <= '9' {
			if !isDigit {
				return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrNoMatch, s)
			}
		} else if s[i] != layoutChar {
			return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrNoMatch, s)
		}
	}
	ts, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return ts, nil
}

// splitMetadata finds a "[metadata:...]" suffix anchored at the end of
// rest. The blob runs from the first "[metadata:" to the final "]".
func splitMetadata(rest string) (body, blob string, found bool) {
	if !strings.HasSuffix(rest, metadataClose) {
		return "", "", false
	}
	i := strings.Index(rest, metadataOpen)
	if i < 0 {
		return "", "", false
	}
	return rest[:i], rest[i+len(metadataOpen) : len(rest)-len(metadataClose)], true
}
