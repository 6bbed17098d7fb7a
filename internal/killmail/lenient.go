package killmail

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"
)

// Partial data is common on public feeds, so numeric fields never fail a
// decode. A value that cannot be read is recorded as malformed and left at zero.

type lenientInt struct {
	Value     int64
	Present   bool
	Malformed bool
}

func (n *lenientInt) UnmarshalJSON(b []byte) error {
	s, ok := scalarText(b)
	if !ok {
		*n = lenientInt{Present: true, Malformed: true}
		return nil
	}
	if s == "" {
		*n = lenientInt{}
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = lenientInt{Value: v, Present: true}
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && f >= -(1<<63) && f < 1<<63 {
		*n = lenientInt{Value: int64(f), Present: true}
		return nil
	}
	*n = lenientInt{Present: true, Malformed: true}
	return nil
}

type lenientFloat struct {
	Value     float64
	Present   bool
	Malformed bool
}

func (n *lenientFloat) UnmarshalJSON(b []byte) error {
	s, ok := scalarText(b)
	if !ok {
		*n = lenientFloat{Present: true, Malformed: true}
		return nil
	}
	if s == "" {
		*n = lenientFloat{}
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = lenientFloat{Present: true, Malformed: true}
		return nil
	}
	*n = lenientFloat{Value: f, Present: true}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006.01.02 15:04:05",
}

type lenientTime struct {
	Value     time.Time
	Present   bool
	Malformed bool
}

func (t *lenientTime) UnmarshalJSON(b []byte) error {
	s, ok := scalarText(b)
	if !ok {
		*t = lenientTime{Present: true, Malformed: true}
		return nil
	}
	if s == "" {
		*t = lenientTime{}
		return nil
	}
	// bare numbers are unix seconds
	if !bytes.HasPrefix(bytes.TrimSpace(b), []byte(`"`)) {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
			*t = lenientTime{Value: time.Unix(secs, 0).UTC(), Present: true}
			return nil
		}
		*t = lenientTime{Present: true, Malformed: true}
		return nil
	}
	for _, layout := range timeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			*t = lenientTime{Value: v.UTC(), Present: true}
			return nil
		}
	}
	*t = lenientTime{Present: true, Malformed: true}
	return nil
}

// scalarText unquotes a JSON scalar. null and "" come back empty; objects,
// arrays and booleans are reported as not scalar.
func scalarText(b []byte) (string, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", true
	}
	switch b[0] {
	case '{', '[', 't', 'f':
		return "", false
	case '"':
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
	return string(b), true
}
