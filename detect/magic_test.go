package detect

import (
	"strings"
	"testing"
)

func TestFindFileWithMagicTooShort(t *testing.T) {
	fileType, err := findFileWithMagic([]byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if fileType != "" {
		t.Fatalf("got %q, want empty string for data shorter than 8 bytes", fileType)
	}
}

func TestFindFileWithMagicPNG(t *testing.T) {
	if err := ensureMagicOpen(); err != nil {
		t.Skipf("libmagic not available: %s", err)
	}

	data := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)
	fileType, err := findFileWithMagic(data)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if fileType == "" {
		t.Fatal("expected a non-empty description for a PNG signature")
	}
}

func TestMagicBlocklistExactMatch(t *testing.T) {
	found := false
	for _, b := range magicBlocklistExact {
		if b == "data" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected \"data\" in the exact-match blocklist")
	}
}

func TestMagicBlocklistDoesNotSuppressDataSuffixedDescriptions(t *testing.T) {
	for _, res := range []string{"gzip compressed data", "Targa image data"} {
		for _, blocked := range magicBlocklistExact {
			if res == blocked {
				t.Fatalf("%q should not exact-match blocklist entry %q", res, blocked)
			}
		}
		for _, blocked := range magicBlocklist {
			if strings.Contains(res, blocked) {
				t.Fatalf("%q should not be suppressed by substring blocklist entry %q", res, blocked)
			}
		}
	}
}

func TestMagicNormalizeOrder(t *testing.T) {
	if magicNormalize[0].substr != "mcrypt" {
		t.Fatalf("got first normalize entry %q, want mcrypt (order matters, first match wins)",
			magicNormalize[0].substr)
	}
}
