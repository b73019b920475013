package util

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+49 170 1234567", "491701234567"},
		{"0049-170-1234567", "491701234567"},
		{"(555) 000-1234", "5550001234"},
		{"491701234567", "491701234567"},
		{"  +1 555 000 1234 ", "15550001234"},
		{"", ""},
		{"abc", ""},
	}
	for _, c := range cases {
		if got := NormalizePhone(c.in); got != c.want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	inputs := []string{"+49 170 1234567", "0049 170 1234567", "15550001234", "0012345678"}
	for _, in := range inputs {
		once := NormalizePhone(in)
		twice := NormalizePhone(once)
		if once != twice {
			t.Fatalf("NormalizePhone not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestValidPhone(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"12345678", true},
		{"123456789012345", true},
		{"1234567", false},
		{"1234567890123456", false},
		{"", false},
		{"12345abc", false},
	}
	for _, c := range cases {
		if got := ValidPhone(c.in); got != c.want {
			t.Fatalf("ValidPhone(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
