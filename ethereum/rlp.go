// Package ethereum implements the Ethereum chain extractor: RLP decoding, the freezer
// append-only table reader, the LevelDB hot-tail reader, and the ERC-20 template filter (§4.1,
// §4.2, §4.3, §4.4). Grounded on original_source/ethereum_rlp.py, ethereum_freezer_tables.py,
// ethereum_leveldb_tables.py and ethereum_parser.py, reworked from the Python rlp/eth_hash
// libraries into a hand-rolled decoder per the binary-codec component design.
package ethereum

import (
	"math/big"

	"github.com/pkg/errors"
)

var (
	ErrRLPTruncated    = errors.New("rlp: truncated input")
	ErrRLPNotAList     = errors.New("rlp: expected list")
	ErrRLPNotAString   = errors.New("rlp: expected string")
	ErrRLPTooManyItems = errors.New("rlp: too many list items")
)

// ItemKind distinguishes an RLP string from an RLP list.
type ItemKind uint8

const (
	KindString ItemKind = iota
	KindList
)

// Item is a decoded RLP node. Raw retains the exact encoded bytes that produced it, which is what
// lets the extractor compute keccak(rlp(tx)) directly from a decoded transaction without
// re-encoding it (§4.1, §4.3 Ethereum Extractor).
type Item struct {
	Kind ItemKind
	Data []byte // payload for a string item
	List []Item // elements for a list item
	Raw  []byte // the full encoded bytes (header + payload) for this item
}

// maxRLPListItems bounds how many top-level elements Decode will parse out of a list, guarding
// against a corrupt length field turning into an unbounded allocation loop.
const maxRLPListItems = 1 << 20

// Decode parses a single RLP item (string or list) starting at the front of b and returns it
// along with the number of bytes it consumed.
func Decode(b []byte) (Item, int, error) {
	if len(b) == 0 {
		return Item{}, 0, ErrRLPTruncated
	}

	prefix := b[0]

	switch {
	case prefix < 0x80:
		return Item{Kind: KindString, Data: b[0:1], Raw: b[0:1]}, 1, nil

	case prefix < 0xb8:
		length := int(prefix - 0x80)
		return decodeString(b, 1, length)

	case prefix < 0xc0:
		lenOfLen := int(prefix - 0xb7)
		length, headerLen, err := decodeLength(b, 1, lenOfLen)
		if err != nil {
			return Item{}, 0, err
		}
		return decodeString(b, headerLen, length)

	case prefix < 0xf8:
		length := int(prefix - 0xc0)
		return decodeList(b, 1, length)

	default:
		lenOfLen := int(prefix - 0xf7)
		length, headerLen, err := decodeLength(b, 1, lenOfLen)
		if err != nil {
			return Item{}, 0, err
		}
		return decodeList(b, headerLen, length)
	}
}

func decodeLength(b []byte, offset, lenOfLen int) (int, int, error) {
	if offset+lenOfLen > len(b) {
		return 0, 0, ErrRLPTruncated
	}

	length := 0
	for i := 0; i < lenOfLen; i++ {
		length = (length << 8) | int(b[offset+i])
	}

	return length, offset + lenOfLen, nil
}

func decodeString(b []byte, headerLen, length int) (Item, int, error) {
	end := headerLen + length
	if end > len(b) {
		return Item{}, 0, ErrRLPTruncated
	}

	return Item{
		Kind: KindString,
		Data: b[headerLen:end],
		Raw:  b[:end],
	}, end, nil
}

func decodeList(b []byte, headerLen, length int) (Item, int, error) {
	end := headerLen + length
	if end > len(b) {
		return Item{}, 0, ErrRLPTruncated
	}

	var items []Item
	pos := headerLen
	for pos < end {
		item, n, err := Decode(b[pos:end])
		if err != nil {
			return Item{}, 0, errors.Wrapf(err, "list item %d", len(items))
		}
		items = append(items, item)
		pos += n
		if len(items) > maxRLPListItems {
			return Item{}, 0, ErrRLPTooManyItems
		}
	}

	return Item{Kind: KindList, List: items, Raw: b[:end]}, end, nil
}

// Bytes returns a string item's payload bytes.
func (it Item) Bytes() ([]byte, error) {
	if it.Kind != KindString {
		return nil, ErrRLPNotAString
	}
	return it.Data, nil
}

// Uint64 interprets a string item as a big-endian unsigned integer.
func (it Item) Uint64() (uint64, error) {
	b, err := it.Bytes()
	if err != nil {
		return 0, err
	}

	var v uint64
	for _, by := range b {
		v = (v << 8) | uint64(by)
	}
	return v, nil
}

// BigInt interprets a string item as a big-endian unsigned integer of arbitrary size.
func (it Item) BigInt() (*big.Int, error) {
	b, err := it.Bytes()
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

// Elements returns a list item's children.
func (it Item) Elements() ([]Item, error) {
	if it.Kind != KindList {
		return nil, ErrRLPNotAList
	}
	return it.List, nil
}
