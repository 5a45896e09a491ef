package subtitle

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

// TestFormatTimestamp checks field widths and the comma separator.
func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00,000"},
		{1, "00:00:01,000"},
		{2.5, "00:00:02,500"},
		{61.001, "00:01:01,001"},
		{3723.456, "01:02:03,456"},
		{0.0004, "00:00:00,000"},
		{0.9996, "00:00:01,000"},
		{MaxTimestamp, "99:59:59,999"},
	}
	for _, tc := range cases {
		got, err := FormatTimestamp(tc.in)
		if err != nil {
			t.Fatalf("FormatTimestamp(%v) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// TestFormatTimestampRejectsOutOfRange covers negative, NaN and >99h inputs.
func TestFormatTimestampRejectsOutOfRange(t *testing.T) {
	for _, in := range []float64{-0.5, math.NaN(), math.Inf(1), 360000, MaxTimestamp + 0.001} {
		_, err := FormatTimestamp(in)
		var fErr *FormatError
		if !errors.As(err, &fErr) {
			t.Fatalf("FormatTimestamp(%v) error = %v, want *FormatError", in, err)
		}
	}
}

// TestParseTimestampRejectsMalformed covers shape and range violations.
func TestParseTimestampRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"00:00:01.000",
		"0:00:01,000",
		"00:00:01,00",
		"00:60:00,000",
		"00:00:60,000",
		"100:00:00,000",
		" 00:00:01,000",
		"aa:bb:cc,ddd",
	} {
		_, err := ParseTimestamp(in)
		var fErr *FormatError
		if !errors.As(err, &fErr) {
			t.Fatalf("ParseTimestamp(%q) error = %v, want *FormatError", in, err)
		}
	}
}

// TestTimestampRoundTrip checks parse(format(s)) to millisecond precision.
func TestTimestampRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	samples := []float64{0, 0.001, 59.999, 3599.999, MaxTimestamp}
	for i := 0; i < 2000; i++ {
		samples = append(samples, rng.Float64()*MaxTimestamp)
	}

	for _, s := range samples {
		formatted, err := FormatTimestamp(s)
		if err != nil {
			t.Fatalf("FormatTimestamp(%v) error = %v", s, err)
		}
		parsed, err := ParseTimestamp(formatted)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) error = %v", formatted, err)
		}
		if math.Abs(parsed-s) > 0.0005+1e-9 {
			t.Fatalf("round trip of %v = %v (via %q)", s, parsed, formatted)
		}
		again, _ := FormatTimestamp(parsed)
		if again != formatted {
			t.Fatalf("format(parse(%q)) = %q", formatted, again)
		}
	}
}
