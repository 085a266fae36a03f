package models

import (
	"encoding/json"
	"time"
)

// Time is an instant carried in documents as Unix milliseconds, the
// representation the store uses for server-assigned timestamps.
type Time struct {
	time.Time
}

// At builds a document Time from a time.Time, truncated to millisecond
// precision so a round trip through a document is lossless.
func At(t time.Time) Time {
	return Time{time.UnixMilli(t.UnixMilli()).UTC()}
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UnixMilli())
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}
