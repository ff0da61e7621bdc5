package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp accepts RFC3339 variants, naive "YYYY-MM-DD HH:MM:SS" (read
// as UTC) and chat-style epoch seconds such as "1712040000.000200".
// The result is always UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	if t, ok := parseEpoch(s); ok {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func parseEpoch(s string) (time.Time, bool) {
	secPart, fracPart, _ := strings.Cut(s, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}, false
	}

	var nsec int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		frac, err := strconv.ParseUint(fracPart, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		for i := len(fracPart); i < 9; i++ {
			frac *= 10
		}
		nsec = int64(frac)
	}

	return time.Unix(sec, nsec).UTC(), true
}
