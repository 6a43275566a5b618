package ethereum

import (
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/pkg/errors"
)

// Transaction mirrors original_source/ethereum_rlp.py's Transaction fields: a legacy
// (pre-EIP-2718) transaction is an RLP list of exactly nine scalar/binary fields.
type Transaction struct {
	Nonce    uint64
	GasPrice *big.Int
	StartGas uint64
	To       []byte
	Value    *big.Int
	Data     []byte
	V, R, S  *big.Int

	raw []byte // the exact encoded bytes this transaction was decoded from
}

// Header mirrors ethereum_rlp.py's Header: the fifteen-field legacy block header, keeping its
// first thirteen fields (through Extra). MixDigest, Nonce and any fields added by later forks
// (baseFee, withdrawalsRoot, blobGasUsed, ...) are not kept; the extractor reads only Extra and
// TxHash (§4.3).
type Header struct {
	ParentHash  []byte
	UncleHash   []byte
	Coinbase    []byte
	Root        []byte
	TxHash      []byte
	ReceiptHash []byte
	Bloom       []byte
	Difficulty  *big.Int
	Number      uint64
	GasLimit    uint64
	GasUsed     uint64
	Time        uint64
	Extra       []byte
}

// Body mirrors ethereum_rlp.py's Body: a list of transactions and a list of uncle headers.
type Body struct {
	Transactions []Transaction
	Uncles       []Header
}

const legacyTransactionFieldCount = 9

// DecodeTransaction parses a legacy transaction from its RLP encoding.
func DecodeTransaction(raw []byte) (*Transaction, error) {
	item, _, err := Decode(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	fields, err := item.Elements()
	if err != nil {
		return nil, errors.Wrap(err, "transaction is not a list")
	}
	if len(fields) < legacyTransactionFieldCount {
		return nil, errors.Errorf("transaction has %d fields, want at least %d", len(fields),
			legacyTransactionFieldCount)
	}

	tx := &Transaction{raw: item.Raw}

	if tx.Nonce, err = fields[0].Uint64(); err != nil {
		return nil, errors.Wrap(err, "nonce")
	}
	if tx.GasPrice, err = fields[1].BigInt(); err != nil {
		return nil, errors.Wrap(err, "gas price")
	}
	if tx.StartGas, err = fields[2].Uint64(); err != nil {
		return nil, errors.Wrap(err, "start gas")
	}
	if tx.To, err = fields[3].Bytes(); err != nil {
		return nil, errors.Wrap(err, "to")
	}
	if tx.Value, err = fields[4].BigInt(); err != nil {
		return nil, errors.Wrap(err, "value")
	}
	if tx.Data, err = fields[5].Bytes(); err != nil {
		return nil, errors.Wrap(err, "data")
	}
	if tx.V, err = fields[6].BigInt(); err != nil {
		return nil, errors.Wrap(err, "v")
	}
	if tx.R, err = fields[7].BigInt(); err != nil {
		return nil, errors.Wrap(err, "r")
	}
	if tx.S, err = fields[8].BigInt(); err != nil {
		return nil, errors.Wrap(err, "s")
	}

	return tx, nil
}

// Hash returns keccak256(rlp(tx)), hashing the exact bytes the transaction was decoded from
// rather than re-encoding it, per §4.3's `txid = keccak(rlp(tx))`.
func (tx *Transaction) Hash() []byte {
	return Keccak256(tx.raw)
}

// Keccak256 is the legacy (pre-NIST, Ethereum-flavored) Keccak hash used throughout the protocol.
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

const headerFieldCount = 15

// DecodeHeader parses a block header from its RLP encoding, tolerating trailing fields added by
// forks after the legacy fifteen (baseFee, withdrawalsRoot, ...).
func DecodeHeader(raw []byte) (*Header, error) {
	item, _, err := Decode(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	fields, err := item.Elements()
	if err != nil {
		return nil, errors.Wrap(err, "header is not a list")
	}
	if len(fields) < headerFieldCount {
		return nil, errors.Errorf("header has %d fields, want at least %d", len(fields),
			headerFieldCount)
	}

	h := &Header{}

	if h.ParentHash, err = fields[0].Bytes(); err != nil {
		return nil, errors.Wrap(err, "parent hash")
	}
	if h.UncleHash, err = fields[1].Bytes(); err != nil {
		return nil, errors.Wrap(err, "uncle hash")
	}
	if h.Coinbase, err = fields[2].Bytes(); err != nil {
		return nil, errors.Wrap(err, "coinbase")
	}
	if h.Root, err = fields[3].Bytes(); err != nil {
		return nil, errors.Wrap(err, "state root")
	}
	if h.TxHash, err = fields[4].Bytes(); err != nil {
		return nil, errors.Wrap(err, "tx hash")
	}
	if h.ReceiptHash, err = fields[5].Bytes(); err != nil {
		return nil, errors.Wrap(err, "receipt hash")
	}
	if h.Bloom, err = fields[6].Bytes(); err != nil {
		return nil, errors.Wrap(err, "bloom")
	}
	if h.Difficulty, err = fields[7].BigInt(); err != nil {
		return nil, errors.Wrap(err, "difficulty")
	}
	if h.Number, err = fields[8].Uint64(); err != nil {
		return nil, errors.Wrap(err, "number")
	}
	if h.GasLimit, err = fields[9].Uint64(); err != nil {
		return nil, errors.Wrap(err, "gas limit")
	}
	if h.GasUsed, err = fields[10].Uint64(); err != nil {
		return nil, errors.Wrap(err, "gas used")
	}
	if h.Time, err = fields[11].Uint64(); err != nil {
		return nil, errors.Wrap(err, "time")
	}
	if h.Extra, err = fields[12].Bytes(); err != nil {
		return nil, errors.Wrap(err, "extra")
	}

	return h, nil
}

// DecodeBody parses a block body: [Transactions, Uncles]. A transaction that fails to decode
// (MalformedRecord, §7) is skipped rather than aborting the whole body.
func DecodeBody(raw []byte) (*Body, error) {
	item, _, err := Decode(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	fields, err := item.Elements()
	if err != nil {
		return nil, errors.Wrap(err, "body is not a list")
	}
	if len(fields) < 2 {
		return nil, errors.Errorf("body has %d fields, want 2", len(fields))
	}

	txItems, err := fields[0].Elements()
	if err != nil {
		return nil, errors.Wrap(err, "transactions is not a list")
	}

	body := &Body{}
	for _, txItem := range txItems {
		tx, err := DecodeTransaction(txItem.Raw)
		if err != nil {
			continue
		}
		body.Transactions = append(body.Transactions, *tx)
	}

	uncleItems, err := fields[1].Elements()
	if err != nil {
		return nil, errors.Wrap(err, "uncles is not a list")
	}
	for _, uncleItem := range uncleItems {
		uncle, err := DecodeHeader(uncleItem.Raw)
		if err != nil {
			continue
		}
		body.Uncles = append(body.Uncles, *uncle)
	}

	return body, nil
}
