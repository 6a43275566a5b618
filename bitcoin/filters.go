package bitcoin

import (
	"bytes"
)

// Standard-form filters are pure predicates on unlocking/locking scripts. A match means the
// script is protocol-standard and the extractor must not store it (§4.4). Grounded on the
// tokenizer in script.go and the template matcher in template.go.

// IsStandardInput reports whether an input's unlocking script matches one of the known standard
// templates: P2PK, P2PKH, P2SH(P2MS), or P2SH(P2WPKH).
func IsStandardInput(script []byte) bool {
	return IsP2PKInput(script) || IsP2PKHInput(script) || IsP2SHMultiSigInput(script) ||
		IsP2SHWitnessPubKeyHashInput(script)
}

// IsP2PKInput matches an unlocking script that is a single DER-ECDSA signature and nothing else.
func IsP2PKInput(script []byte) bool {
	items, err := ParseScriptItems(bytes.NewReader(script), -1)
	if err != nil || len(items) != 1 {
		return false
	}

	return items[0].Type == ScriptItemTypePushData && isSignature(items[0].Data)
}

// IsP2PKHInput matches `<DER sig> <SEC pubkey>`: exactly two pushes, the second a compressed or
// uncompressed public key.
func IsP2PKHInput(script []byte) bool {
	items, err := ParseScriptItems(bytes.NewReader(script), -1)
	if err != nil || len(items) != 2 {
		return false
	}

	if items[0].Type != ScriptItemTypePushData || !isSignature(items[0].Data) {
		return false
	}

	return items[1].Type == ScriptItemTypePushData && isPublicKey(items[1].Data)
}

// IsP2SHMultiSigInput matches OP_0 <sig>... <redeem script>, where the redeem script itself is a
// canonical bare multisig template (OP_m <pubkeys> OP_n OP_CHECKMULTISIG) with N keys between m
// and n.
func IsP2SHMultiSigInput(script []byte) bool {
	items, err := ParseScriptItems(bytes.NewReader(script), -1)
	if err != nil || len(items) < 3 {
		return false
	}

	if items[0].Type != ScriptItemTypeOpCode || items[0].OpCode != OP_0 {
		return false
	}

	redeem := items[len(items)-1]
	if redeem.Type != ScriptItemTypePushData {
		return false
	}

	for _, sigItem := range items[1 : len(items)-1] {
		if sigItem.Type != ScriptItemTypePushData || !isSignature(sigItem.Data) {
			return false
		}
	}

	return IsP2MSOutput(redeem.Data)
}

// IsP2SHWitnessPubKeyHashInput matches the 23-byte P2SH(P2WPKH) redeem-script push:
// OP_0 <20-byte hash>, itself pushed as the sole item of the scriptSig.
func IsP2SHWitnessPubKeyHashInput(script []byte) bool {
	if len(script) != 23 {
		return false
	}

	return script[0] == 0x16 && script[1] == OP_0 && script[2] == OP_PUSH_DATA_20
}

// IsStandardOutput reports whether a locking script matches one of the canonical output
// templates: P2PKH, P2PK, P2SH, P2MS, P2WPKH, P2WSH, or P2TR.
func IsStandardOutput(script []byte) bool {
	return IsP2PKHOutput(script) || IsP2PKOutput(script) || IsP2SHOutput(script) ||
		IsP2MSOutput(script) || IsP2WPKHOutput(script) || IsP2WSHOutput(script) ||
		IsP2TROutput(script)
}

// IsP2PKHOutput matches OP_DUP OP_HASH160 <20> OP_EQUALVERIFY OP_CHECKSIG, 25 bytes total.
func IsP2PKHOutput(script []byte) bool {
	if len(script) != 25 {
		return false
	}

	return Script(script).MatchesTemplate(PKHTemplate)
}

// IsP2PKOutput matches <SEC pubkey> OP_CHECKSIG.
func IsP2PKOutput(script []byte) bool {
	items, err := ParseScriptItems(bytes.NewReader(script), -1)
	if err != nil || len(items) != 2 {
		return false
	}

	if items[0].Type != ScriptItemTypePushData || !isPublicKey(items[0].Data) {
		return false
	}

	return items[1].Type == ScriptItemTypeOpCode && items[1].OpCode == OP_CHECKSIG
}

// IsP2SHOutput matches OP_HASH160 <20> OP_EQUAL, 23 bytes total.
func IsP2SHOutput(script []byte) bool {
	if len(script) != 23 {
		return false
	}

	return script[0] == OP_HASH160 && script[1] == OP_PUSH_DATA_20 && script[22] == OP_EQUAL
}

// IsP2MSOutput matches OP_m <pubkeys> OP_n OP_CHECKMULTISIG, requiring N pushed keys to equal the
// count named by OP_n (the canonical form only; extended/non-canonical encodings are rejected,
// per the open question on competing P2MS variants).
func IsP2MSOutput(script []byte) bool {
	items, err := ParseScriptItems(bytes.NewReader(script), -1)
	if err != nil || len(items) < 3 {
		return false
	}

	first := items[0]
	last := items[len(items)-1]
	penultimate := items[len(items)-2]

	if first.Type != ScriptItemTypeOpCode || !isSmallNumOp(first.OpCode) {
		return false
	}
	if last.Type != ScriptItemTypeOpCode || last.OpCode != OP_CHECKMULTISIG {
		return false
	}
	if penultimate.Type != ScriptItemTypeOpCode || !isSmallNumOp(penultimate.OpCode) {
		return false
	}

	keys := items[1 : len(items)-2]
	n := int(penultimate.OpCode - 0x50)
	if len(keys) != n {
		return false
	}

	for _, key := range keys {
		if key.Type != ScriptItemTypePushData || !isPublicKey(key.Data) {
			return false
		}
	}

	return true
}

func isSmallNumOp(op byte) bool {
	return op >= OP_1 && op <= OP_16
}

// IsP2WPKHOutput matches the native segwit v0 pubkey-hash output: OP_0 <20>, 22 bytes.
func IsP2WPKHOutput(script []byte) bool {
	return len(script) == 22 && script[0] == OP_0 && script[1] == OP_PUSH_DATA_20
}

// IsP2WSHOutput matches the native segwit v0 script-hash output: OP_0 <32>, 34 bytes.
func IsP2WSHOutput(script []byte) bool {
	return len(script) == 34 && script[0] == OP_0 && script[1] == OP_PUSH_DATA_32
}

// IsP2TROutput matches the segwit v1 taproot output: OP_1 <32>, 34 bytes.
func IsP2TROutput(script []byte) bool {
	return len(script) == 34 && script[0] == OP_1 && script[1] == OP_PUSH_DATA_32
}
