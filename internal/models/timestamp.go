package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Millis is a unix timestamp in milliseconds, the unit every stored document uses.
type Millis int64

func Now() Millis { return Millis(time.Now().UnixMilli()) }

func MillisOf(t time.Time) Millis { return Millis(t.UnixMilli()) }

func (m Millis) Time() time.Time { return time.UnixMilli(int64(m)).UTC() }

// UnmarshalJSON accepts a number of milliseconds or an RFC3339 string.
// null and empty strings leave zero.
func (m *Millis) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*m = 0
			return nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			*m = Millis(n)
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		*m = MillisOf(t)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = Millis(int64(f))
	return nil
}
