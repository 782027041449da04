package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// Minimal headers recognised by content sniffing.
var (
	jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	pngHeader  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	movHeader  = []byte{0x00, 0x00, 0x00, 0x14, 'f', 't', 'y', 'p', 'q', 't', ' ', ' ', 0x00, 0x00, 0x02, 0x00, 'q', 't', ' ', ' '}
	mp4Header  = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'm', 'p', '4', '1'}
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	writeBytes(t, path, buf)
}

// WriteJPEG writes a small file that sniffs as image/jpeg.
func WriteJPEG(t testing.TB, path string) {
	t.Helper()
	writeBytes(t, path, withPadding(jpegHeader))
}

// WritePNG writes a small file that sniffs as image/png.
func WritePNG(t testing.TB, path string) {
	t.Helper()
	writeBytes(t, path, withPadding(pngHeader))
}

// WriteMOV writes a small file that sniffs as video/quicktime.
func WriteMOV(t testing.TB, path string) {
	t.Helper()
	writeBytes(t, path, withPadding(movHeader))
}

// WriteMP4 writes a small file that sniffs as video/mp4.
func WriteMP4(t testing.TB, path string) {
	t.Helper()
	writeBytes(t, path, withPadding(mp4Header))
}

func withPadding(header []byte) []byte {
	out := make([]byte, 0, len(header)+64)
	out = append(out, header...)
	for len(out) < len(header)+64 {
		out = append(out, 0x00)
	}
	return out
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
