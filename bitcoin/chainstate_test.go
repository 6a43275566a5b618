package bitcoin

import (
	"bytes"
	"testing"
)

func TestB128Decode(t *testing.T) {
	tests := []struct {
		name     string
		in       []byte
		value    uint64
		consumed int
	}{
		{"zero", []byte{0x00}, 0, 1},
		{"single byte", []byte{0x7f}, 0x7f, 1},
		{"two bytes", []byte{0x80, 0x00}, 0x80, 2},
		{"trailing ignored", []byte{0x00, 0xff}, 0, 1},
	}

	for _, test := range tests {
		value, consumed, err := b128Decode(test.in)
		if err != nil {
			t.Fatalf("%s: unexpected error: %s", test.name, err)
		}
		if value != test.value || consumed != test.consumed {
			t.Fatalf("%s: got (%d, %d), want (%d, %d)", test.name, value, consumed, test.value,
				test.consumed)
		}
	}
}

func TestB128DecodeTruncated(t *testing.T) {
	if _, _, err := b128Decode([]byte{0x80, 0x80}); err == nil {
		t.Fatal("expected error for truncated varint")
	}
}

// TestAmountDecompressLeftInverse checks amountDecompress against fixed points that Bitcoin
// Core's CompressAmount test vectors use (§8 property 5).
func TestAmountDecompressLeftInverse(t *testing.T) {
	tests := []struct {
		compressed uint64
		amount     uint64
	}{
		{0, 0},
		{1, 1},
		{9, 100000000},
		{10, 1000000000},
		{11, 2},
	}

	for _, test := range tests {
		got := amountDecompress(test.compressed)
		if got != test.amount {
			t.Fatalf("amountDecompress(%d) = %d, want %d", test.compressed, got, test.amount)
		}
	}
}

func TestDeobfuscate(t *testing.T) {
	key := []byte{0x01, 0x02}
	value := []byte{0x10, 0x20, 0x30, 0x40}

	result, err := Deobfuscate(value, key)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	want := []byte{0x11, 0x22, 0x31, 0x42}
	if !bytes.Equal(result, want) {
		t.Fatalf("got %x, want %x", result, want)
	}

	// Deobfuscating twice with the same key returns the original bytes.
	roundTrip, err := Deobfuscate(result, key)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !bytes.Equal(roundTrip, value) {
		t.Fatalf("round trip got %x, want %x", roundTrip, value)
	}
}

func TestDeobfuscateEmptyKey(t *testing.T) {
	if _, err := Deobfuscate([]byte{0x01}, nil); err == nil {
		t.Fatal("expected error for empty obfuscation key")
	}
}

func TestDecodeUTXOKey(t *testing.T) {
	var hash [32]byte
	for i := range hash {
		hash[i] = byte(i)
	}

	key := append([]byte{chainstateKeyPrefix}, hash[:]...)
	key = append(key, 0x05) // vout = 5

	decoded, err := DecodeUTXOKey(key)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if decoded.TxHash != hash {
		t.Fatalf("got hash %x, want %x", decoded.TxHash, hash)
	}
	if decoded.Vout != 5 {
		t.Fatalf("got vout %d, want 5", decoded.Vout)
	}
}

func TestDecodeUTXOKeyWrongPrefix(t *testing.T) {
	key := append([]byte{'X'}, make([]byte, 33)...)
	if _, err := DecodeUTXOKey(key); err == nil {
		t.Fatal("expected error for wrong key prefix")
	}
}

func TestDecodeUTXOValuePKHScript(t *testing.T) {
	code := byte(0x03)       // height 1, coinbase
	amount := byte(0x00)     // compressed amount 0
	outType := byte(0x00)    // hash160 script
	hash160 := make([]byte, 20)
	for i := range hash160 {
		hash160[i] = byte(i + 1)
	}

	value := append([]byte{code, amount, outType}, hash160...)

	decoded, err := DecodeUTXOValue(value)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if decoded.Height != 1 {
		t.Fatalf("got height %d, want 1", decoded.Height)
	}
	if !decoded.Coinbase {
		t.Fatal("expected coinbase")
	}
	if !bytes.Equal(decoded.Script, hash160) {
		t.Fatalf("got script %x, want %x", decoded.Script, hash160)
	}
}

func TestDecodeUTXOValueRawScriptTooShort(t *testing.T) {
	value := []byte{0x00, 0x00, 0x0a} // outType 10 -> scriptLen 4, but no bytes follow
	if _, err := DecodeUTXOValue(value); err == nil {
		t.Fatal("expected error for truncated raw script")
	}
}
