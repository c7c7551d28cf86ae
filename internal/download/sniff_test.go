package download

import "testing"

func TestRecognizedSignature(t *testing.T) {
	cases := []struct {
		name   string
		header []byte
		want   bool
	}{
		{"id3", []byte("ID3\x04\x00\x00\x00\x00\x00\x00"), true},
		{"mpeg sync", []byte{0xFF, 0xFB, 0x90, 0x00}, true},
		{"ftyp", []byte("\x00\x00\x00\x20ftypM4A "), true},
		{"riff wave", []byte("RIFF\x24\x00\x00\x00WAVE"), true},
		{"ogg", []byte("OggS\x00\x02\x00\x00"), true},
		{"riff non-wave", []byte("RIFF\x24\x00\x00\x00AVI "), false},
		{"text", []byte("<!DOCTYPE html>"), false},
		{"short", []byte("ID"), false},
	}
	for _, tc := range cases {
		if got := RecognizedSignature(tc.header); got != tc.want {
			t.Errorf("%s: RecognizedSignature = %v, want %v", tc.name, got, tc.want)
		}
	}
}
