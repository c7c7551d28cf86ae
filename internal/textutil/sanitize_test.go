package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Episode 42: The Answer", "Episode 42- The Answer"},
		{"what/why\\how", "what-why-how"},
		{"quoted \"title\"?", "quoted title"},
		{"  padded  ", "padded"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	in := "This  episode\n\tis sponsored   by"
	want := "This episode is sponsored by"
	if got := NormalizeWhitespace(in); got != want {
		t.Fatalf("NormalizeWhitespace = %q, want %q", got, want)
	}
}
