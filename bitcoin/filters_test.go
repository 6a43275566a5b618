package bitcoin

import (
	"bytes"
	"testing"
)

func derSig() []byte {
	sig := make([]byte, 0x48)
	sig[0] = 0x30
	sig[len(sig)-1] = SigHashAll
	return sig
}

func compressedKey() []byte {
	key := make([]byte, PublicKeyCompressedLength)
	key[0] = 0x02
	return key
}

func pushScript(pushes ...[]byte) []byte {
	var buf bytes.Buffer
	for _, p := range pushes {
		WritePushDataScript(&buf, p)
	}
	return buf.Bytes()
}

func TestIsP2PKInput(t *testing.T) {
	script := pushScript(derSig())
	if !IsP2PKInput(script) {
		t.Fatal("expected P2PK input match")
	}
	if !IsStandardInput(script) {
		t.Fatal("expected standard input match")
	}
}

func TestIsP2PKHInput(t *testing.T) {
	script := pushScript(derSig(), compressedKey())
	if !IsP2PKHInput(script) {
		t.Fatal("expected P2PKH input match")
	}
	if IsP2PKInput(script) {
		t.Fatal("P2PKH script should not match P2PK")
	}
}

func TestIsP2PKHOutput(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{OP_DUP, OP_HASH160})
	WritePushDataScript(&buf, make([]byte, Hash20Size))
	buf.Write([]byte{OP_EQUALVERIFY, OP_CHECKSIG})

	script := buf.Bytes()
	if !IsP2PKHOutput(script) {
		t.Fatal("expected P2PKH output match")
	}
	if !IsStandardOutput(script) {
		t.Fatal("expected standard output match")
	}
}

func TestIsP2PKOutput(t *testing.T) {
	var buf bytes.Buffer
	WritePushDataScript(&buf, compressedKey())
	buf.Write([]byte{OP_CHECKSIG})

	if !IsP2PKOutput(buf.Bytes()) {
		t.Fatal("expected P2PK output match")
	}
}

func TestIsP2SHOutput(t *testing.T) {
	script := make([]byte, 23)
	script[0] = OP_HASH160
	script[1] = OP_PUSH_DATA_20
	script[22] = OP_EQUAL

	if !IsP2SHOutput(script) {
		t.Fatal("expected P2SH output match")
	}
}

func TestIsP2MSOutput(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{OP_1})
	WritePushDataScript(&buf, compressedKey())
	WritePushDataScript(&buf, compressedKey())
	buf.Write([]byte{OP_2, OP_CHECKMULTISIG})

	if !IsP2MSOutput(buf.Bytes()) {
		t.Fatal("expected P2MS output match")
	}
}

func TestIsP2MSOutputWrongCount(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{OP_1})
	WritePushDataScript(&buf, compressedKey())
	buf.Write([]byte{OP_2, OP_CHECKMULTISIG}) // claims 2 keys but only pushed 1

	if IsP2MSOutput(buf.Bytes()) {
		t.Fatal("expected mismatch for wrong key count")
	}
}

func TestIsP2WPKHOutput(t *testing.T) {
	script := make([]byte, 22)
	script[0] = OP_0
	script[1] = OP_PUSH_DATA_20

	if !IsP2WPKHOutput(script) {
		t.Fatal("expected P2WPKH output match")
	}
}

func TestIsP2WSHOutput(t *testing.T) {
	script := make([]byte, 34)
	script[0] = OP_0
	script[1] = OP_PUSH_DATA_32

	if !IsP2WSHOutput(script) {
		t.Fatal("expected P2WSH output match")
	}
}

func TestIsP2TROutput(t *testing.T) {
	script := make([]byte, 34)
	script[0] = OP_1
	script[1] = OP_PUSH_DATA_32

	if !IsP2TROutput(script) {
		t.Fatal("expected P2TR output match")
	}
}

func TestIsStandardOutputRejectsArbitraryScript(t *testing.T) {
	script := []byte{OP_RETURN, 0x04, 'd', 'a', 't', 'a'}
	if IsStandardOutput(script) {
		t.Fatal("OP_RETURN payload script should not be standard")
	}
}
