package subtitle

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var srtTimestampRegex = regexp.MustCompile(`^(\d{2,}):(\d{2}):(\d{2}),(\d{3})$`)

// FormatError reports a timestamp or timing line that is not valid SRT.
type FormatError struct {
	Value  string
	Line   int // 1-based line in the source document, 0 when unknown
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid SRT timestamp %q at line %d: %s", e.Value, e.Line, e.Reason)
	}
	return fmt.Sprintf("invalid SRT timestamp %q: %s", e.Value, e.Reason)
}

// 99:59:59,999, the last time a two-digit hour field can carry
const maxTimestampSeconds = 99*3600 + 59*60 + 59.999

// clampSeconds limits seconds to what a timestamp can show. NaN becomes 0.
func clampSeconds(seconds float64) float64 {
	switch {
	case math.IsNaN(seconds) || seconds < 0:
		return 0
	case seconds > maxTimestampSeconds:
		return maxTimestampSeconds
	}
	return seconds
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. Negative input is clamped
// to zero and anything past 99:59:59,999 (infinity included) to that value.
func FormatTimestamp(seconds float64) string {
	totalMillis := int64(math.Round(clampSeconds(seconds) * 1000))
	hours := totalMillis / 3_600_000
	minutes := (totalMillis / 60_000) % 60
	secs := (totalMillis / 1000) % 60
	millis := totalMillis % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (float64, error) {
	value := strings.TrimSpace(s)
	matches := srtTimestampRegex.FindStringSubmatch(value)
	if matches == nil {
		return 0, &FormatError{Value: s, Reason: "expected HH:MM:SS,mmm"}
	}

	hours, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, &FormatError{Value: s, Reason: "hours out of range"}
	}
	minutes, _ := strconv.Atoi(matches[2])
	secs, _ := strconv.Atoi(matches[3])
	millis, _ := strconv.Atoi(matches[4])

	if minutes >= 60 {
		return 0, &FormatError{Value: s, Reason: "minutes must be below 60"}
	}
	if secs >= 60 {
		return 0, &FormatError{Value: s, Reason: "seconds must be below 60"}
	}

	return float64(hours)*3600 +
		float64(minutes)*60 +
		float64(secs) +
		float64(millis)/1000, nil
}
