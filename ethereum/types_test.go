package ethereum

import (
	"bytes"
	"testing"
)

// rlpString and rlpList build minimal RLP encodings for test fixtures; DecodeTransaction/
// DecodeHeader/DecodeBody are exercised against their output below.
func rlpString(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	if len(b) <= 55 {
		return append([]byte{0x80 + byte(len(b))}, b...)
	}
	panic("long string fixtures unsupported")
}

func rlpUint(v uint64) []byte {
	if v == 0 {
		return rlpString(nil)
	}
	var b []byte
	for v > 0 {
		b = append([]byte{byte(v)}, b...)
		v >>= 8
	}
	return rlpString(b)
}

func rlpList(items ...[]byte) []byte {
	var payload []byte
	for _, it := range items {
		payload = append(payload, it...)
	}
	if len(payload) <= 55 {
		return append([]byte{0xc0 + byte(len(payload))}, payload...)
	}

	var lenBytes []byte
	n := len(payload)
	for n > 0 {
		lenBytes = append([]byte{byte(n)}, lenBytes...)
		n >>= 8
	}
	header := append([]byte{0xf7 + byte(len(lenBytes))}, lenBytes...)
	return append(header, payload...)
}

func legacyTxFixture() []byte {
	return rlpList(
		rlpUint(7),             // nonce
		rlpUint(1000),          // gas price
		rlpUint(21000),         // start gas
		rlpString(make([]byte, 20)), // to
		rlpUint(5),             // value
		rlpString(nil),         // data
		rlpUint(27),            // v
		rlpUint(1),             // r
		rlpUint(2),             // s
	)
}

func TestDecodeTransactionFields(t *testing.T) {
	tx, err := DecodeTransaction(legacyTxFixture())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if tx.Nonce != 7 || tx.StartGas != 21000 {
		t.Fatalf("got nonce=%d startGas=%d, want 7/21000", tx.Nonce, tx.StartGas)
	}
	if tx.GasPrice.Int64() != 1000 || tx.Value.Int64() != 5 {
		t.Fatalf("got gasPrice=%s value=%s, want 1000/5", tx.GasPrice, tx.Value)
	}
	if tx.V.Int64() != 27 || tx.R.Int64() != 1 || tx.S.Int64() != 2 {
		t.Fatalf("got v=%s r=%s s=%s, want 27/1/2", tx.V, tx.R, tx.S)
	}
}

func TestDecodeTransactionTooFewFields(t *testing.T) {
	short := rlpList(rlpUint(1), rlpUint(2))
	if _, err := DecodeTransaction(short); err == nil {
		t.Fatal("expected error for too few fields")
	}
}

func TestDecodeTransactionNotAList(t *testing.T) {
	if _, err := DecodeTransaction(rlpString([]byte("x"))); err == nil {
		t.Fatal("expected error for non-list transaction")
	}
}

func TestTransactionHash(t *testing.T) {
	tx, err := DecodeTransaction(legacyTxFixture())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	got := tx.Hash()
	want := Keccak256(legacyTxFixture())
	if !bytes.Equal(got, want) {
		t.Fatalf("got hash %x, want %x", got, want)
	}
	if len(got) != 32 {
		t.Fatalf("got hash length %d, want 32", len(got))
	}
}

func headerFixture() []byte {
	hash32 := make([]byte, 32)
	bloom := make([]byte, 4)
	return rlpList(
		rlpString(hash32), // parent hash
		rlpString(hash32), // uncle hash
		rlpString(make([]byte, 20)), // coinbase
		rlpString(hash32), // root
		rlpString(hash32), // tx hash
		rlpString(hash32), // receipt hash
		rlpString(bloom),  // bloom
		rlpUint(17),       // difficulty
		rlpUint(100),      // number
		rlpUint(8000000),  // gas limit
		rlpUint(21000),    // gas used
		rlpUint(1600000000), // time
		rlpString([]byte("extra")), // extra
		rlpUint(0),        // mix digest placeholder
		rlpUint(0),        // nonce placeholder
	)
}

func TestDecodeHeaderFields(t *testing.T) {
	h, err := DecodeHeader(headerFixture())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if h.Number != 100 || h.GasLimit != 8000000 || h.GasUsed != 21000 {
		t.Fatalf("got %+v, want number=100 gasLimit=8000000 gasUsed=21000", h)
	}
	if string(h.Extra) != "extra" {
		t.Fatalf("got extra %q, want \"extra\"", h.Extra)
	}
	if h.Difficulty.Int64() != 17 {
		t.Fatalf("got difficulty %s, want 17", h.Difficulty)
	}
}

func TestDecodeHeaderTooFewFields(t *testing.T) {
	short := rlpList(rlpUint(1))
	if _, err := DecodeHeader(short); err == nil {
		t.Fatal("expected error for too few fields")
	}
}

func TestDecodeBody(t *testing.T) {
	txs := rlpList(legacyTxFixture())
	uncles := rlpList(headerFixture())
	body := rlpList(txs, uncles)

	decoded, err := DecodeBody(body)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(decoded.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(decoded.Transactions))
	}
	if len(decoded.Uncles) != 1 {
		t.Fatalf("got %d uncles, want 1", len(decoded.Uncles))
	}
}

func TestDecodeBodySkipsMalformedTransaction(t *testing.T) {
	badTx := rlpList(rlpUint(1), rlpUint(2)) // too few fields, decodes to an error, should be skipped
	txs := rlpList(badTx, legacyTxFixture())
	uncles := rlpList()
	body := rlpList(txs, uncles)

	decoded, err := DecodeBody(body)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(decoded.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1 (malformed one skipped)", len(decoded.Transactions))
	}
}

func TestDecodeBodyTooFewFields(t *testing.T) {
	if _, err := DecodeBody(rlpList(rlpUint(1))); err == nil {
		t.Fatal("expected error for too few body fields")
	}
}
