package lifecycle

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp formats observed on the wire. The samples show milliseconds, but
// real traffic sometimes arrives without them, and devices with no clock send
// the UNIX epoch, which we interpret as "now".
const (
	timestampMillis  = "2006-01-02T15:04:05.000Z"
	timestampSeconds = "2006-01-02T15:04:05Z"

	epochMillis  = "1970-01-01T00:00:00.000Z"
	epochSeconds = "1970-01-01T00:00:00Z"
)

// Timestamp is an ISO-8601 UTC instant as used in lifecycle payloads. It
// always serializes with milliseconds.
type Timestamp struct {
	time.Time
}

// Now returns the current instant as a Timestamp.
func Now() Timestamp {
	return Timestamp{time.Now().UTC()}
}

// MarshalJSON renders the timestamp in UTC with millisecond precision.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(timestampMillis))
}

// UnmarshalJSON accepts both second and millisecond precision, mapping the
// UNIX epoch to the current time.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTimestamp parses a wire-format timestamp string.
func ParseTimestamp(raw string) (Timestamp, error) {
	if raw == epochMillis || raw == epochSeconds {
		return Now(), nil
	}
	switch len(raw) {
	case len(timestampMillis):
		parsed, err := time.Parse(timestampMillis, raw)
		if err != nil {
			return Timestamp{}, fmt.Errorf("unknown timestamp format: %q", raw)
		}
		return Timestamp{parsed}, nil
	case len(timestampSeconds):
		parsed, err := time.Parse(timestampSeconds, raw)
		if err != nil {
			return Timestamp{}, fmt.Errorf("unknown timestamp format: %q", raw)
		}
		return Timestamp{parsed}, nil
	default:
		return Timestamp{}, fmt.Errorf("unknown timestamp format: %q", raw)
	}
}
