package pricing

import "testing"

func ptr(v int64) *int64 { return &v }

func TestEffectivePrice(t *testing.T) {
	cases := []struct {
		name     string
		base     int64
		override *int64
		want     int64
	}{
		{"no override uses base", 95000, nil, 95000},
		{"override wins", 95000, ptr(80000), 80000},
		{"zero override is kept", 95000, ptr(0), 0},
		{"override above base", 100, ptr(250), 250},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EffectivePrice(tc.base, tc.override); got != tc.want {
				t.Fatalf("EffectivePrice(%d, %v) = %d, want %d", tc.base, tc.override, got, tc.want)
			}
		})
	}
}

func TestFormatCents(t *testing.T) {
	cases := map[int64]string{
		0:         "$0",
		95000:     "$950",
		150000:    "$1,500",
		123456:    "$1,234.56",
		150050:    "$1,500.5",
		100000000: "$1,000,000",
		-2500:     "-$25",
	}
	for cents, want := range cases {
		if got := FormatCents(cents); got != want {
			t.Fatalf("FormatCents(%d) = %q, want %q", cents, got, want)
		}
	}
}

func TestParseFeatures(t *testing.T) {
	if got := ParseFeatures(`["Drone","Raw footage"]`); len(got) != 2 || got[0] != "Drone" {
		t.Fatalf("unexpected features %v", got)
	}
	for _, raw := range []string{"", "not json", `{"a":1}`, "null", `[1,2]`} {
		got := ParseFeatures(raw)
		if got == nil || len(got) != 0 {
			t.Fatalf("ParseFeatures(%q) = %v, want empty list", raw, got)
		}
	}
}

func TestEncodeFeatures(t *testing.T) {
	if got := EncodeFeatures(nil); got != "[]" {
		t.Fatalf("expected [] got %s", got)
	}
	if got := ParseFeatures(EncodeFeatures([]string{"a", "b"})); len(got) != 2 {
		t.Fatalf("unexpected decoded features %v", got)
	}
}
