package bitcoin

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160"
)

// Ripemd160 returns the RIPEMD (RIPE Message Digest) of the input.
func Ripemd160(b []byte) []byte {
	hasher := ripemd160.New()
	hasher.Write(b)
	return hasher.Sum(nil)
}

// Sha256 returns the SHA256 (Secure Hash Algorithm) of the input.
func Sha256(b []byte) []byte {
	result := sha256.Sum256(b)
	return result[:]
}

// Hash160 returns the Ripemd160(SHA256(input)) of the input.
func Hash160(b []byte) []byte {
	return Ripemd160(Sha256(b))
}

// DoubleSha256 performs a double Sha256 hash on the bytes.
func DoubleSha256(b []byte) []byte {
	return Sha256(Sha256(b))
}

// isSignature returns true if the data is a DER encoded ECDSA signature.
func isSignature(b []byte) bool {
	return len(b) > 8 && b[0] == 0x30
}

// isPublicKey returns true if the data is an encoded compressed or uncompressed public key.
func isPublicKey(b []byte) bool {
	if len(b) == PublicKeyCompressedLength && (b[0] == 0x02 || b[0] == 0x03) {
		return true
	}
	if len(b) == 65 && b[0] == 0x04 {
		return true
	}
	return false
}
