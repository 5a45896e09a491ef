package subtitle

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// MaxTimestamp is the largest offset, in seconds, that fits the two-digit
// hour field of the clock format (99:59:59,999).
const MaxTimestamp = 359999.999

const maxMillis = 359999999

var timestampPattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}),(\d{3})$`)

// FormatError reports a malformed or out-of-range timestamp or cue block.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("subtitle format error: %s (%q)", e.Reason, e.Input)
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. The value is rounded to
// the nearest millisecond; inputs beyond MaxTimestamp are rejected rather
// than truncated.
func FormatTimestamp(seconds float64) (string, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "", &FormatError{Input: strconv.FormatFloat(seconds, 'f', -1, 64), Reason: "offset must be a finite non-negative number"}
	}
	ms := int64(math.Round(seconds * 1000))
	if ms > maxMillis {
		return "", &FormatError{Input: strconv.FormatFloat(seconds, 'f', -1, 64), Reason: "offset exceeds 99:59:59,999"}
	}
	return formatMillis(ms), nil
}

func formatMillis(ms int64) string {
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	secs := ms / 1000
	ms -= secs * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, ms)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (float64, error) {
	m := timestampPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, &FormatError{Input: s, Reason: "expected HH:MM:SS,mmm"}
	}
	hours, _ := strconv.ParseInt(m[1], 10, 64)
	minutes, _ := strconv.ParseInt(m[2], 10, 64)
	secs, _ := strconv.ParseInt(m[3], 10, 64)
	ms, _ := strconv.ParseInt(m[4], 10, 64)
	if minutes > 59 || secs > 59 {
		return 0, &FormatError{Input: s, Reason: "minutes and seconds must be below 60"}
	}
	total := ((hours*60+minutes)*60+secs)*1000 + ms
	return float64(total) / 1000, nil
}
