package bitcoin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tokenized/payloadminer/pipeline"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/syndtr/goleveldb/leveldb"
)

func nonStandardScript(payload string) []byte {
	data := []byte(payload)
	return append([]byte{byte(len(data))}, data...)
}

func txWithNonStandardIO() *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{}, Index: 0},
		SignatureScript:  nonStandardScript("not a signature at all"),
	})
	tx.AddTxOut(&wire.TxOut{
		Value:    1000,
		PkScript: nonStandardScript("arbitrary payload bytes"),
	})
	return tx
}

func newRecordingBus(chain pipeline.Chain) (*pipeline.Bus, *[]pipeline.RawRecord) {
	var written []pipeline.RawRecord
	bus := pipeline.NewBus(chain, 16, 16, func(ctx context.Context, records []pipeline.RawRecord) error {
		written = append(written, records...)
		return nil
	})
	return bus, &written
}

func TestExtractBlockSkipsStandardScriptsEmitsNonStandard(t *testing.T) {
	bus, written := newRecordingBus(pipeline.BitcoinMainnet)
	writer := pipeline.WriterThread("writer", bus)
	writer.Start(context.Background())

	block := &Block{Header: &wire.BlockHeader{}, Txs: []*wire.MsgTx{txWithNonStandardIO()}}

	e := &Extractor{Params: &chaincfg.MainNetParams}
	if err := e.extractBlock(context.Background(), bus, 42, block); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	bus.Close()
	<-writer.GetCompleteChannel()

	if len(*written) != 2 {
		t.Fatalf("got %d records, want 2 (scriptsig + script pubkey)", len(*written))
	}
	for _, r := range *written {
		if r.BlockHeight != 42 {
			t.Fatalf("got block height %d, want 42", r.BlockHeight)
		}
	}
}

func TestExtractBlockSkipsShortScriptSig(t *testing.T) {
	bus, written := newRecordingBus(pipeline.BitcoinMainnet)
	writer := pipeline.WriterThread("writer", bus)
	writer.Start(context.Background())

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{}, Index: 0},
		SignatureScript:  []byte{0x01},
	})
	block := &Block{Header: &wire.BlockHeader{}, Txs: []*wire.MsgTx{tx}}

	e := &Extractor{}
	if err := e.extractBlock(context.Background(), bus, 1, block); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	bus.Close()
	<-writer.GetCompleteChannel()

	if len(*written) != 0 {
		t.Fatalf("got %d records, want 0 (script shorter than 2 bytes is skipped)", len(*written))
	}
}

func seedChainstate(t *testing.T, dir string) {
	t.Helper()
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		t.Fatalf("open chainstate: %s", err)
	}
	defer db.Close()

	var hash [32]byte
	hash[0] = 0x07

	key := append([]byte{chainstateKeyPrefix}, hash[:]...)
	key = append(key, 0x00) // vout 0

	// code=0x03 (height 1, coinbase), amount=0x00, outType=0x00 (hash160), 20-byte hash
	script := make([]byte, 20)
	for i := range script {
		script[i] = byte(i)
	}
	value := append([]byte{0x03, 0x00, 0x00}, script...)

	if err := db.Put(key, value, nil); err != nil {
		t.Fatalf("put utxo: %s", err)
	}
}

func TestExtractChainstateEmitsNonStandardUTXO(t *testing.T) {
	dir := t.TempDir()
	seedChainstate(t, filepath.Join(dir, "chainstate"))

	bus, written := newRecordingBus(pipeline.BitcoinMainnet)
	writer := pipeline.WriterThread("writer", bus)
	writer.Start(context.Background())

	e := &Extractor{Root: dir}
	if err := e.extractChainstate(context.Background(), bus); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	bus.Close()
	<-writer.GetCompleteChannel()

	// the seeded UTXO script is a bare 20-byte hash160, which IsStandardOutput does not match
	// on its own (it requires the full OP_DUP OP_HASH160 ... template), so it should be emitted.
	if len(*written) != 1 {
		t.Fatalf("got %d records, want 1", len(*written))
	}
	if (*written)[0].BlockHeight != 1 {
		t.Fatalf("got block height %d, want 1", (*written)[0].BlockHeight)
	}
}

func TestExtractChainstateEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	chainstateDir := filepath.Join(dir, "chainstate")
	if err := os.MkdirAll(chainstateDir, 0o755); err != nil {
		t.Fatalf("mkdir: %s", err)
	}
	db, err := leveldb.OpenFile(chainstateDir, nil)
	if err != nil {
		t.Fatalf("open chainstate: %s", err)
	}
	db.Close()

	bus, written := newRecordingBus(pipeline.BitcoinMainnet)
	writer := pipeline.WriterThread("writer", bus)
	writer.Start(context.Background())

	e := &Extractor{Root: dir}
	if err := e.extractChainstate(context.Background(), bus); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	bus.Close()
	<-writer.GetCompleteChannel()

	if len(*written) != 0 {
		t.Fatalf("got %d records, want 0", len(*written))
	}
}
