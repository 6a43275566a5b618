package detect

import "bytes"

// imghdrSniffers mirrors Python's imghdr module test functions for the seven formats named in
// §4.7. Unlike imghdr.what, bmp and webp are tried before the Netpbm formats; no input matches
// two of these signatures, so the order does not change the result.
var imghdrSniffers = []struct {
	name string
	test func([]byte) bool
}{
	{"jpeg", isJPEG},
	{"png", isPNG},
	{"gif", isGIF},
	{"tiff", isTIFF},
	{"bmp", isBMP},
	{"webp", isWebP},
	{"pbm", isPBM},
	{"pgm", isPGM},
	{"ppm", isPPM},
}

func isJPEG(data []byte) bool {
	if len(data) >= 10 {
		marker := string(data[6:10])
		if marker == "JFIF" || marker == "Exif" {
			return true
		}
	}
	return len(data) >= 4 && data[0] == 0xff && data[1] == 0xd8 && data[2] == 0xff && data[3] == 0xdb
}

func isPNG(data []byte) bool {
	return bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n"))
}

func isGIF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a"))
}

func isTIFF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("MM")) || bytes.HasPrefix(data, []byte("II"))
}

func isBMP(data []byte) bool {
	return bytes.HasPrefix(data, []byte("BM"))
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WEBP"))
}

func isPBM(data []byte) bool {
	return len(data) >= 3 && data[0] == 'P' && (data[1] == '1' || data[1] == '4') &&
		isWhitespace(data[2])
}

func isPGM(data []byte) bool {
	return len(data) >= 2 && data[0] == 'P' && (data[1] == '2' || data[1] == '5')
}

func isPPM(data []byte) bool {
	return len(data) >= 2 && data[0] == 'P' && (data[1] == '3' || data[1] == '6')
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// findFileWithImghdr sniffs data against the seven signature tests, retrying with a one-byte
// lead stripped if the first pass finds nothing (Monero and Bitcoin payloads often carry a
// framing byte, §4.7).
func findFileWithImghdr(data []byte) string {
	if res := imghdrWhat(data); res != "" {
		return res
	}
	if len(data) > 1 {
		return imghdrWhat(data[1:])
	}
	return ""
}

func imghdrWhat(data []byte) string {
	for _, s := range imghdrSniffers {
		if s.test(data) {
			return s.name
		}
	}
	return ""
}
