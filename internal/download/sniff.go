package download

import (
	"bytes"
	"os"
)

// sniffLen covers the longest recognized signature: an ftyp box at offset 4.
const sniffLen = 12

// RecognizedSignature reports whether the leading bytes look like a known
// audio container.
func RecognizedSignature(header []byte) bool {
	if len(header) < 4 {
		return false
	}
	if bytes.HasPrefix(header, []byte("ID3")) {
		return true
	}
	// Raw MPEG audio: 11-bit frame sync.
	if header[0] == 0xFF && header[1]&0xE0 == 0xE0 {
		return true
	}
	if len(header) >= 8 && bytes.Equal(header[4:8], []byte("ftyp")) {
		return true
	}
	if bytes.HasPrefix(header, []byte("RIFF")) && len(header) >= 12 && bytes.Equal(header[8:12], []byte("WAVE")) {
		return true
	}
	if bytes.HasPrefix(header, []byte("OggS")) {
		return true
	}
	return false
}

// sniffFile reads the file header and checks it against the signature set.
func sniffFile(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	header := make([]byte, sniffLen)
	n, err := file.Read(header)
	if n == 0 && err != nil {
		return false, err
	}
	return RecognizedSignature(header[:n]), nil
}
