package monero

// defaultExtraLength is the size of the extra field every plain Monero transaction carries: a
// one-reward transaction public key (tag 0x01 + 32 bytes) followed by an 8-byte encrypted
// payment ID carried as a nonce (tag 0x02, length 9, sub-tag 0x01 + 8 bytes).
const defaultExtraLength = 1 + 32 + 1 + 1 + 1 + 8

// IsDefaultExtra reports whether extra is the protocol-standard tx_extra shape (§4.4): a bare
// transaction pubkey plus an encrypted payment-ID nonce and nothing else.
func IsDefaultExtra(extra []byte) bool {
	if len(extra) != defaultExtraLength {
		return false
	}
	return extra[0] == tagPubkey &&
		extra[33] == tagNonce &&
		extra[34] == 0x09 &&
		extra[35] == 0x01
}
