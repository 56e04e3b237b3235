package duration

import "testing"

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	want := D(1_500_000_000)

	for _, token := range []string{"1.5s", "1500ms", "1500000us", "1500000000ns"} {
		got, err := Parse(token)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", token, err)
		}

		if got != want {
			t.Fatalf("Parse(%q) = %d, want %d", token, got, want)
		}
	}
}

func TestParseSentinels(t *testing.T) {
	t.Parallel()

	got, err := Parse("0%")
	if err != nil || got != Immediate {
		t.Fatalf("Parse(0%%) = %d, %v, want Immediate", got, err)
	}

	got, err = Parse("100%")
	if err != nil || got != Infinite {
		t.Fatalf("Parse(100%%) = %d, %v, want Infinite", got, err)
	}

	if !got.IsInfinite() {
		t.Fatalf("IsInfinite() = false for Infinite sentinel")
	}
}

func TestParseDefaultUnit(t *testing.T) {
	t.Parallel()

	got, err := Parse("2")
	if err != nil {
		t.Fatalf("Parse(\"2\") returned error: %v", err)
	}

	if got != D(2_000_000_000) {
		t.Fatalf("Parse(\"2\") = %d, want 2s in ns", got)
	}
}

func TestParseRateUnits(t *testing.T) {
	t.Parallel()

	cases := []struct {
		token string
		want  D
	}{
		{"8bps", D(1_000_000_000)},       // 8 bits/sec -> 1 char/sec -> 1s period
		{"8000bps", D(1_000_000)},        // 8000 bits/sec -> 1ms period
		{"8kbps", D(1_000_000)},          // 8 kbit/s -> 1ms period
		{"10cps", D(1_000_000_000)},      // 10 bits/char convention, 10 units -> 1s
		{"8000000bps", D(1_000)},         // 1us period
	}

	for _, tc := range cases {
		got, err := Parse(tc.token)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", tc.token, err)
		}

		if got != tc.want {
			t.Fatalf("Parse(%q) = %d, want %d", tc.token, got, tc.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"-1s",
		"abc",
		"50%",
		"9999999999s",     // integer part exceeds i32::MAX
		"9000000000bps",   // integer part exceeds i32::MAX (period would also be < 1ns)
		"1xyz",
		string(make([]byte, 64)), // over length bound
	}

	for _, token := range cases {
		if _, err := Parse(token); err == nil {
			t.Fatalf("Parse(%q) succeeded, want error", token)
		}
	}
}

func TestParseUpperBound(t *testing.T) {
	t.Parallel()

	if _, err := Parse("2147483647s"); err != nil {
		t.Fatalf("Parse at i32::MAX boundary returned error: %v", err)
	}

	if _, err := Parse("2147483648s"); err == nil {
		t.Fatalf("Parse above i32::MAX boundary succeeded, want error")
	}
}
