package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// ISOLayout is the timestamp layout used on the wire. Log timestamps carry
// no zone, so neither does the encoded form.
const ISOLayout = "2006-01-02T15:04:05"

// Record represents one parsed log line
type Record struct {
	Timestamp time.Time
	Level     string
	Name      string
	Message   string
	// Metadata is nil when the line had no metadata suffix or the suffix
	// was not valid JSON.
	Metadata *Value
	Raw      string
	// SourceFile is the base name of the file the line was read from.
	// Empty means unknown.
	SourceFile string
}

type wireRecord struct {
	Timestamp string  `json:"timestamp"`
	Level     string  `json:"level"`
	Name      string  `json:"name"`
	Message   string  `json:"message"`
	Metadata  *Value  `json:"metadata"`
	File      *string `json:"file"`
	Raw       string  `json:"raw"`
}

// MarshalJSON encodes the record in the dashboard's wire shape.
func (r *Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		Timestamp: r.Timestamp.Format(ISOLayout),
		Level:     r.Level,
		Name:      r.Name,
		Message:   r.Message,
		Metadata:  r.Metadata,
		Raw:       r.Raw,
	}
	if r.SourceFile != "" {
		file := r.SourceFile
		w.File = &file
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire shape produced by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := time.Parse(ISOLayout, w.Timestamp)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*r = Record{
		Timestamp: ts,
		Level:     w.Level,
		Name:      w.Name,
		Message:   w.Message,
		Metadata:  w.Metadata,
		Raw:       w.Raw,
	}
	if w.File != nil {
		r.SourceFile = *w.File
	}
	return nil
}

// ToJSON serializes the Record to JSON
func (r *Record) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON deserializes JSON to a Record
func FromJSON(data []byte) (*Record, error) {
	var r Record
	err := json.Unmarshal(data, &r)
	return &r, err
}

// MetadataField returns the value stored under key when the record's
// metadata is an object.
func (r *Record) MetadataField(key string) (Value, bool) {
	if r.Metadata == nil {
		return Value{}, false
	}
	return r.Metadata.Get(key)
}
