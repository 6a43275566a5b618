package monero

import (
	"bytes"
	"testing"
)

func TestDecodeTransactionPrefixExtraMinerTx(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x01) // version
	buf.WriteByte(0x00) // unlock_time
	buf.WriteByte(0x01) // vin count

	buf.WriteByte(txinGenTag)
	buf.WriteByte(0x2a) // height

	buf.WriteByte(0x01) // vout count
	buf.WriteByte(0x00) // amount
	buf.WriteByte(txoutToKeyTag)
	buf.Write(make([]byte, 32)) // key

	extra := []byte{0xde, 0xad, 0xbe, 0xef}
	buf.WriteByte(byte(len(extra)))
	buf.Write(extra)

	got, err := DecodeTransactionPrefixExtra(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !bytes.Equal(got, extra) {
		t.Fatalf("got extra %x, want %x", got, extra)
	}
}

func TestDecodeTransactionPrefixExtraRegularTx(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x01) // version
	buf.WriteByte(0x00) // unlock_time
	buf.WriteByte(0x01) // vin count

	buf.WriteByte(txinToKeyTag)
	buf.WriteByte(0x05) // amount
	buf.WriteByte(0x02) // key offset count
	buf.WriteByte(0x01) // offset 1
	buf.WriteByte(0x02) // offset 2
	buf.Write(make([]byte, 32)) // key image

	buf.WriteByte(0x01) // vout count
	buf.WriteByte(0x00) // amount
	buf.WriteByte(txoutToKeyTag)
	buf.Write(make([]byte, 32)) // key

	extra := []byte{0x01, 0x02, 0x03}
	buf.WriteByte(byte(len(extra)))
	buf.Write(extra)

	got, err := DecodeTransactionPrefixExtra(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !bytes.Equal(got, extra) {
		t.Fatalf("got extra %x, want %x", got, extra)
	}
}

func TestDecodeTransactionPrefixExtraUnsupportedVinTag(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x01) // version
	buf.WriteByte(0x00) // unlock_time
	buf.WriteByte(0x01) // vin count
	buf.WriteByte(0x03) // unsupported tag (txin_to_script)

	if _, err := DecodeTransactionPrefixExtra(buf.Bytes()); err == nil {
		t.Fatal("expected error for unsupported vin tag")
	}
}

func TestDecodeTransactionPrefixExtraUnsupportedVoutTag(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x01) // version
	buf.WriteByte(0x00) // unlock_time
	buf.WriteByte(0x00) // vin count (none)
	buf.WriteByte(0x01) // vout count
	buf.WriteByte(0x00) // amount
	buf.WriteByte(0x03) // unsupported tag (txout_to_script)

	if _, err := DecodeTransactionPrefixExtra(buf.Bytes()); err == nil {
		t.Fatal("expected error for unsupported vout tag")
	}
}

func TestDecodeTransactionPrefixExtraTruncated(t *testing.T) {
	buf := []byte{0x01, 0x00, 0x00, 0x00} // version, unlock_time, vin count 0, vout count 0, missing extra length
	if _, err := DecodeTransactionPrefixExtra(buf); err == nil {
		t.Fatal("expected error for missing extra length")
	}
}

func TestDecodeTransactionPrefixExtraTruncatedExtraBody(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x01) // version
	buf.WriteByte(0x00) // unlock_time
	buf.WriteByte(0x00) // vin count
	buf.WriteByte(0x00) // vout count
	buf.WriteByte(0x04) // extra length 4, but nothing follows

	if _, err := DecodeTransactionPrefixExtra(buf.Bytes()); err == nil {
		t.Fatal("expected error for truncated extra body")
	}
}
