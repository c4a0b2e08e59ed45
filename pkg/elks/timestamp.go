package elks

import (
	"fmt"
	"time"
)

// The API sends timestamps in GMT with microsecond digits, for example
// "2012-05-08T20:38:11.623000". Only millisecond precision is kept.
const (
	timestampLayout = "2006-01-02T15:04:05.000"
	timestampLength = len(timestampLayout)
	timestampSuffix = "000"
)

// ParseTimestamp reads the first 23 characters of text as a GMT timestamp.
// Trailing digits beyond milliseconds are discarded.
func ParseTimestamp(text string) (time.Time, error) {
	if len(text) < timestampLength {
		return time.Time{}, &DecodeError{
			Value:  text,
			Reason: fmt.Sprintf("timestamp must be at least %d characters", timestampLength),
		}
	}
	if !hasTimestampShape(text[:timestampLength]) {
		return time.Time{}, &DecodeError{Value: text, Reason: "malformed timestamp"}
	}
	t, err := time.ParseInLocation(timestampLayout, text[:timestampLength], time.UTC)
	if err != nil {
		return time.Time{}, &DecodeError{Value: text, Reason: "malformed timestamp", Err: err}
	}
	return t, nil
}

// hasTimestampShape reports whether s has the separators of timestampLayout
// in place and digits everywhere else. time.Parse alone also accepts a comma
// before the fraction.
func hasTimestampShape(s string) bool {
	for i := 0; i < len(s); i++ {
		switch sep := timestampLayout[i]; sep {
		case '-', 'T', ':', '.':
			if s[i] != sep {
				return false
			}
		default:
			if s[i] < '0' || s[i] > '9' {
				return false
			}
		}
	}
	return true
}

// FormatTimestamp renders t in the API's wire format: GMT, three millisecond
// digits followed by three zeros.
func FormatTimestamp(t time.Time) (string, error) {
	t = t.UTC()
	if year := t.Year(); year < 0 || year > 9999 {
		return "", fmt.Errorf("timestamp year %d out of range", year)
	}
	return t.Format(timestampLayout) + timestampSuffix, nil
}
