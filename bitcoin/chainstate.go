package bitcoin

import (
	"github.com/pkg/errors"
)

// Bitcoin Core's chainstate LevelDB stores the UTXO set under keys prefixed with "C" and values
// encoded with its own base-128 varint (distinct from the LEB128-style ReadBase128VarInt/
// WriteBase128VarInt pair in encode.go, which serve an unrelated wire format). This file is
// grounded on the chainstate decoder in original_source/utxo_scan.py.

var (
	ErrChainstateKeyTooShort   = errors.New("chainstate key too short")
	ErrChainstateValueTooShort = errors.New("chainstate value too short")
	ErrObfuscateKeyEmpty       = errors.New("obfuscate key empty")
)

const chainstateKeyPrefix = 'C'

// ObfuscateKeyDBKey is the LevelDB key under which Bitcoin Core stores the chainstate
// obfuscation key: "\x0e\x00obfuscate_key".
var ObfuscateKeyDBKey = append([]byte{0x0e, 0x00}, []byte("obfuscate_key")...)

// b128Decode reads Bitcoin Core's base-128 MSB-first variable length integer (util/serialize.h
// ReadVarInt), which is NOT the same scheme as encode.go's ReadBase128VarInt: each continuation
// byte implies an implicit +1, which is what makes the encoding minimal/canonical.
func b128Decode(b []byte) (value uint64, consumed int, err error) {
	for i, by := range b {
		if i > 9 {
			return 0, 0, errors.New("b128 varint too long")
		}
		value = (value << 7) | uint64(by&0x7f)
		if by&0x80 != 0 {
			value++
		} else {
			return value, i + 1, nil
		}
	}
	return 0, 0, errors.New("b128 varint truncated")
}

// amountDecompress is the left-inverse of Bitcoin Core's CompressAmount (§4.1, §8 property 5).
func amountDecompress(x uint64) uint64 {
	if x == 0 {
		return 0
	}
	x--
	e := x % 10
	x /= 10

	var n uint64
	if e < 9 {
		d := x % 9
		x /= 9
		n = x*10 + d + 1
	} else {
		n = x + 1
	}

	for ; e > 0; e-- {
		n *= 10
	}
	return n
}

// UTXOKey is the decoded chainstate key: "C" || tx_hash[32] || b128varint(vout_index).
type UTXOKey struct {
	TxHash [32]byte
	Vout   uint32
}

// DecodeUTXOKey decodes a chainstate key (§4.1).
func DecodeUTXOKey(key []byte) (*UTXOKey, error) {
	if len(key) < 1+32 || key[0] != chainstateKeyPrefix {
		return nil, errors.Wrap(ErrChainstateKeyTooShort, "prefix/length")
	}

	var hash [32]byte
	copy(hash[:], key[1:33])

	vout, _, err := b128Decode(key[33:])
	if err != nil {
		return nil, errors.Wrap(err, "vout varint")
	}

	return &UTXOKey{TxHash: hash, Vout: uint32(vout)}, nil
}

// DecodedUTXO is the decoded chainstate value (§4.1).
type DecodedUTXO struct {
	Height    uint64
	Coinbase  bool
	Amount    uint64
	OutType   uint64
	Script    []byte
}

// Deobfuscate XORs value with key repeated to value's length, as Bitcoin Core's chainstate does
// to avoid triggering antivirus false positives on raw script bytes.
func Deobfuscate(value, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrObfuscateKeyEmpty
	}

	result := make([]byte, len(value))
	for i, b := range value {
		result[i] = b ^ key[i%len(key)]
	}
	return result, nil
}

// DecodeUTXOValue decodes an already-deobfuscated chainstate value (§4.1).
func DecodeUTXOValue(value []byte) (*DecodedUTXO, error) {
	code, n, err := b128Decode(value)
	if err != nil {
		return nil, errors.Wrap(err, "code varint")
	}
	value = value[n:]

	compressedAmount, n, err := b128Decode(value)
	if err != nil {
		return nil, errors.Wrap(err, "amount varint")
	}
	value = value[n:]

	outType, n, err := b128Decode(value)
	if err != nil {
		return nil, errors.Wrap(err, "out type varint")
	}
	value = value[n:]

	var script []byte
	switch outType {
	case 0, 1:
		if len(value) < 20 {
			return nil, errors.Wrap(ErrChainstateValueTooShort, "hash160 script")
		}
		script = value[:20]
	case 2, 3, 4, 5:
		if len(value) < 32 {
			return nil, errors.Wrap(ErrChainstateValueTooShort, "pubkey script")
		}
		script = append([]byte{byte(outType)}, value[:32]...)
	default:
		scriptLen := int(outType) - 6
		if scriptLen < 0 || len(value) < scriptLen {
			return nil, errors.Wrap(ErrChainstateValueTooShort, "raw script")
		}
		script = value[:scriptLen]
	}

	return &DecodedUTXO{
		Height:   code >> 1,
		Coinbase: code&0x01 == 1,
		Amount:   amountDecompress(compressedAmount),
		OutType:  outType,
		Script:   script,
	}, nil
}
