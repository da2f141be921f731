package filter

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Query parameter names accepted at the boundary.
const (
	ParamLevel         = "level"
	ParamFile          = "file"
	ParamMetadataKey   = "metadata_key"
	ParamMetadataValue = "metadata_value"
	ParamStartDate     = "start_date"
	ParamEndDate       = "end_date"
	ParamWhere         = "where"
)

// isoLayouts are tried in order. Fractional seconds are accepted by
// time.Parse after any layout that has seconds.
var isoLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05Z07:00",
}

// ParseCriteria decodes query parameters into Criteria. Dates are ISO-8601;
// dates without a zone are taken as UTC, like log timestamps.
func ParseCriteria(params url.Values) (Criteria, error) {
	c := Criteria{
		Level:         params.Get(ParamLevel),
		SourceFile:    params.Get(ParamFile),
		MetadataKey:   params.Get(ParamMetadataKey),
		MetadataValue: params.Get(ParamMetadataValue),
		Where:         params.Get(ParamWhere),
	}

	var err error
	if c.Start, err = parseDateParam(params, ParamStartDate); err != nil {
		return Criteria{}, err
	}
	if c.End, err = parseDateParam(params, ParamEndDate); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// Values encodes c back into query parameters.
func (c Criteria) Values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set(ParamLevel, c.Level)
	set(ParamFile, c.SourceFile)
	set(ParamMetadataKey, c.MetadataKey)
	set(ParamMetadataValue, c.MetadataValue)
	set(ParamWhere, c.Where)
	if c.Start != nil {
		v.Set(ParamStartDate, c.Start.Format(time.RFC3339Nano))
	}
	if c.End != nil {
		v.Set(ParamEndDate, c.End.Format(time.RFC3339Nano))
	}
	return v
}

func parseDateParam(params url.Values, name string) (*time.Time, error) {
	raw := strings.TrimSpace(params.Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := ParseISOTime(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCriteria, name, err)
	}
	return &t, nil
}

// ParseISOTime parses an ISO-8601 date or date-time. A space may replace
// the "T" separator.
func ParseISOTime(s string) (time.Time, error) {
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO-8601 date", s)
}
