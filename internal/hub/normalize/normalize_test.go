package normalize

import "testing"

func TestLine(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"type dash value", " Temperature - 23.5 C", "Temperature-23.5_C"},
		{"already canonical", "Temperature-23.5_C", "Temperature-23.5_C"},
		{"no dash", "hello world", "hello_world"},
		{"dash inside value survives", "gps - 12.3 - 45.6", "gps-12.3_-_45.6"},
		{"surrounding whitespace", "  humidity-55  ", "humidity-55"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Line(tc.in); got != tc.want {
				t.Errorf("Line(%q) = %q; want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestLine_Idempotent(t *testing.T) {
	inputs := []string{
		" Temperature - 23.5 C",
		"no separator here",
		"a - b - c",
		"trailing-",
		"-leading",
		"  spaced  out  ",
		"",
	}
	for _, in := range inputs {
		once := Line(in)
		twice := Line(once)
		if once != twice {
			t.Errorf("Line not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}
