// Package pipeline holds the chain-agnostic record types and the producer/consumer bus that
// carries them from an Extractor to the Store.
package pipeline

import "fmt"

// Chain identifies the blockchain a record was extracted from.
type Chain string

const (
	BitcoinMainnet  Chain = "bitcoin_mainnet"
	BitcoinTestnet3 Chain = "bitcoin_testnet3"
	BitcoinRegtest  Chain = "bitcoin_regtest"
	MoneroMainnet   Chain = "monero_mainnet"
	MoneroStagenet  Chain = "monero_stagenet"
	MoneroTestnet   Chain = "monero_testnet"
	EthereumMainnet Chain = "ethereum_mainnet"
)

// Valid reports whether c is one of the blockchain ids supported by the CLI (§6).
func (c Chain) Valid() bool {
	switch c {
	case BitcoinMainnet, BitcoinTestnet3, BitcoinRegtest, MoneroMainnet, MoneroStagenet,
		MoneroTestnet, EthereumMainnet:
		return true
	}
	return false
}

// IsBitcoin, IsMonero and IsEthereum group the blockchain ids by family, mirroring the
// substring dispatch the original analyzer used ("bitcoin" in blockchain.value, etc).
func (c Chain) IsBitcoin() bool {
	switch c {
	case BitcoinMainnet, BitcoinTestnet3, BitcoinRegtest:
		return true
	}
	return false
}

func (c Chain) IsMonero() bool {
	switch c {
	case MoneroMainnet, MoneroStagenet, MoneroTestnet:
		return true
	}
	return false
}

func (c Chain) IsEthereum() bool {
	return c == EthereumMainnet
}

// Kind is the RawRecord field type (§3).
type Kind string

const (
	KindScriptSig    Kind = "scriptsig"
	KindScriptPubkey Kind = "script pubkey"
	KindTxExtra      Kind = "tx_extra"
	KindTxData       Kind = "tx_data"
)

// RawRecord is the canonical "byte payload observed on a chain" (table cryptoData, §3).
type RawRecord struct {
	Data        []byte
	TxID        string
	Chain       Chain
	Kind        Kind
	BlockHeight int64
	ExtraIndex  int
}

// Key returns the composite primary key (txid, extra_index, kind) that makes inserts
// idempotent (§3 invariants, §8 property 3).
func (r RawRecord) Key() string {
	return fmt.Sprintf("%s:%d:%s", r.TxID, r.ExtraIndex, r.Kind)
}

// ExtractorPayload is the in-flight value that flows over the Record Bus (§3, §4.5). It carries
// the same identity as RawRecord; the two are kept distinct because a RawRecord is a persisted
// fact while an ExtractorPayload is still owned by the extractor until the writer acknowledges it.
type ExtractorPayload struct {
	TxID        string
	Kind        Kind
	ExtraIndex  int
	BlockHeight int64
	Data        []byte
}

func (p ExtractorPayload) ToRawRecord(chain Chain) RawRecord {
	return RawRecord{
		Data:        p.Data,
		TxID:        p.TxID,
		Chain:       chain,
		Kind:        p.Kind,
		BlockHeight: p.BlockHeight,
		ExtraIndex:  p.ExtraIndex,
	}
}

// AsciiFinding is a detected printable-string run (table asciiData, §3).
type AsciiFinding struct {
	TxID         string
	Chain        Chain
	Kind         Kind
	ExtraIndex   int
	StringLength int
}

// MagicFinding is a libmagic file-type detection (table magicFileData, §3).
type MagicFinding struct {
	TxID       string
	Chain      Chain
	Kind       Kind
	ExtraIndex int
	FileType   string
}

// ImghdrFinding is an image-header sniff detection (table imghdrFileData, §3).
type ImghdrFinding struct {
	TxID       string
	Chain      Chain
	Kind       Kind
	ExtraIndex int
	FileType   string
}

// DetectorInput is what a detector function consumes: a RawRecord's identity plus its bytes.
type DetectorInput struct {
	TxID       string
	Chain      Chain
	Kind       Kind
	ExtraIndex int
	Data       []byte
}
