package tgui

import "testing"

func TestDataAndSplit(t *testing.T) {
	t.Parallel()
	cases := []struct {
		scope, action, payload string
		want                   string
	}{
		{"rem", "disable", "12", "rem:disable:12"},
		{"menu", "main", "", "menu:main"},
		{" rem ", "delete", "7", "rem:delete:7"},
	}
	for _, tc := range cases {
		got := Data(tc.scope, tc.action, tc.payload)
		if got != tc.want {
			t.Fatalf("Data(%q,%q,%q) = %q, want %q", tc.scope, tc.action, tc.payload, got, tc.want)
		}
		s, a, p := Split(got)
		if s+":"+a != tc.want[:len(s)+1+len(a)] || (tc.payload != "" && p == "") {
			t.Fatalf("Split(%q) = %q %q %q", got, s, a, p)
		}
	}

	s, a, p := Split("orphan")
	if s != "orphan" || a != "" || p != "" {
		t.Fatalf("Split bare scope = %q %q %q", s, a, p)
	}
	// Payload keeps embedded separators intact.
	_, _, p = Split("rem:view:12:extra")
	if p != "12:extra" {
		t.Fatalf("payload = %q", p)
	}
}

func TestTruncRunes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"короткий", 20, "короткий"},
		{"напоминание", 6, "напоми…"},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc…"},
		{"x", 0, ""},
	}
	for _, tc := range cases {
		if got := TruncRunes(tc.in, tc.n); got != tc.want {
			t.Fatalf("TruncRunes(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}
