package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Timestamp decodes last_updated written either as an RFC 3339 string or as
// Unix seconds, the form older builds and hand-edited files use. It always
// encodes as an RFC 3339 string.
type Timestamp time.Time

// UnmarshalJSON accepts a JSON string, a JSON number or null. Null leaves the
// value untouched.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var t time.Time
		if err := t.UnmarshalJSON(data); err != nil {
			return err
		}
		*ts = Timestamp(t)
		return nil
	}

	if sec, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*ts = Timestamp(time.Unix(sec, 0).UTC())
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return fmt.Errorf("last_updated: %s is neither a timestamp string nor Unix seconds", data)
	}
	whole, frac := math.Modf(f)
	*ts = Timestamp(time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC())
	return nil
}

// MarshalJSON writes the RFC 3339 form.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return time.Time(ts).MarshalJSON()
}

// UnmarshalJSON decodes over the receiver's current values, so absent fields
// keep what the caller preset (defaults, or the snapshot being patched).
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type plain Snapshot
	aux := struct {
		*plain
		LastUpdated Timestamp `json:"last_updated"`
	}{
		plain:       (*plain)(s),
		LastUpdated: Timestamp(s.LastUpdated),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.LastUpdated = time.Time(aux.LastUpdated)
	return nil
}
