package record

import (
	"testing"
	"time"
)

func TestRecordJSONShape(t *testing.T) {
	meta, err := ParseValue(`{"job_id":42}`)
	if err != nil {
		t.Fatalf("ParseValue() error = %v", err)
	}
	r := &Record{
		Timestamp:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Level:      "INFO",
		Name:       "worker1",
		Message:    "started job",
		Metadata:   &meta,
		Raw:        `2024-01-01 10:00:00 - worker1 - INFO - started job [metadata:{"job_id":42}]`,
		SourceFile: "a.log",
	}

	data, err := r.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	want := `{"timestamp":"2024-01-01T10:00:00","level":"INFO","name":"worker1","message":"started job","metadata":{"job_id":42},"file":"a.log","raw":"2024-01-01 10:00:00 - worker1 - INFO - started job [metadata:{\"job_id\":42}]"}`
	if string(data) != want {
		t.Errorf("ToJSON() = %s, want %s", data, want)
	}

	back, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if !back.Timestamp.Equal(r.Timestamp) || back.SourceFile != "a.log" || back.Metadata.Text() != `{"job_id":42}` {
		t.Errorf("FromJSON() = %+v, want %+v", back, r)
	}
}

func TestRecordJSONNulls(t *testing.T) {
	r := &Record{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Level: "DEBUG"}

	data, err := r.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	want := `{"timestamp":"2024-01-01T00:00:00","level":"DEBUG","name":"","message":"","metadata":null,"file":null,"raw":""}`
	if string(data) != want {
		t.Errorf("ToJSON() = %s, want %s", data, want)
	}
}

func TestFromJSONBadTimestamp(t *testing.T) {
	if _, err := FromJSON([]byte(`{"timestamp":"yesterday"}`)); err == nil {
		t.Error("FromJSON() expected error for bad timestamp")
	}
}

func TestMetadataField(t *testing.T) {
	arr, _ := ParseValue(`[1]`)
	obj, _ := ParseValue(`{"k":"v"}`)

	tests := []struct {
		name   string
		meta   *Value
		wantOK bool
	}{
		{"absent", nil, false},
		{"array", &arr, false},
		{"object", &obj, true},
	}
	for _, tt := range tests {
		r := &Record{Metadata: tt.meta}
		if _, ok := r.MetadataField("k"); ok != tt.wantOK {
			t.Errorf("%s: MetadataField() ok = %v, want %v", tt.name, ok, tt.wantOK)
		}
	}
}
