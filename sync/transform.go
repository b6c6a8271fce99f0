package sync

import (
	"fmt"
	"time"
)

// Record is one row of a stream, as decoded from the service response.
type Record = map[string]interface{}

// TimeFormat is the canonical UTC textual form every emitted timestamp takes.
const TimeFormat = "2006-01-02T15:04:05.000000Z"

// NormalizeTimes recursively rewrites every time.Time in an arbitrarily
// nested response structure into the canonical UTC text form. All other
// scalars, map keys, and sequence order pass through unchanged, so the
// transform is idempotent and the sink never observes a native time value.
func NormalizeTimes(data interface{}) interface{} {
	switch v := data.(type) {
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = NormalizeTimes(item)
		}
		return result
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, item := range v {
			result[k] = NormalizeTimes(item)
		}
		return result
	case time.Time:
		return v.UTC().Format(TimeFormat)
	default:
		return data
	}
}

// ParseTime reads a timestamp in the canonical form, falling back to RFC3339
// for values written by hand (start dates, older state files).
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeFormat, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q %w", s, err)
	}
	return t.UTC(), nil
}

// AddListID injects the owning list's ListID into every child record.
// Records are mutated in place, after normalization.
func AddListID(lst Record, records []Record) []Record {
	for _, record := range records {
		record["ListID"] = lst["ListID"]
	}
	return records
}

// AddMsgID injects the owning message's MsgID into every child record.
func AddMsgID(msg Record, records []Record) []Record {
	for _, record := range records {
		record["MsgID"] = msg["MsgID"]
	}
	return records
}

// recordTime reads a required timestamp field from a normalized record.
// A missing or unparsable value is fatal to the sweep.
func recordTime(record Record, field string) (time.Time, error) {
	v, ok := record[field]
	if !ok {
		return time.Time{}, fmt.Errorf("record is missing expected field %s", field)
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("record field %s is not a timestamp: %v", field, v)
	}
	return ParseTime(s)
}
