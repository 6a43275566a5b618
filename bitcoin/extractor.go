package bitcoin

import (
	"context"
	"encoding/hex"
	"path/filepath"

	"github.com/tokenized/payloadminer/pipeline"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/pkg/errors"
)

// Extractor walks a Bitcoin data directory in block-height order, emitting non-standard
// scriptSig/scriptPubkey payloads over the Record Bus, then walks the chainstate UTXO set
// (§4.3 Bitcoin Extractor).
type Extractor struct {
	Root   string
	Params *chaincfg.Params
}

// Extract implements the single extractor operation named in §4.3: extract(store) -> ().
func (e *Extractor) Extract(ctx context.Context, bus *pipeline.Bus) error {
	if err := e.extractBlocks(ctx, bus); err != nil {
		return errors.Wrap(err, "extract blocks")
	}

	if err := e.extractChainstate(ctx, bus); err != nil {
		return errors.Wrap(err, "extract chainstate")
	}

	return nil
}

func (e *Extractor) extractBlocks(ctx context.Context, bus *pipeline.Bus) error {
	indexDB, err := OpenBlockIndex(filepath.Join(e.Root, "blocks", "index"))
	if err != nil {
		return errors.Wrap(err, "open block index")
	}
	defer indexDB.Close()

	entries, err := ReadBlockIndex(indexDB)
	if err != nil {
		return errors.Wrap(err, "read block index")
	}

	blocksDir := filepath.Join(e.Root, "blocks")

	for _, entry := range entries {
		if !entry.HasData {
			continue
		}

		block, err := ReadBlockAt(blocksDir, entry.FileNum, entry.DataPos)
		if err != nil {
			// IoError/MalformedRecord at block scope: log-equivalent skip, continue scanning
			// (§7) — a single corrupt block must not abort the whole chain's extraction.
			continue
		}

		if err := e.extractBlock(ctx, bus, int64(entry.Height), block); err != nil {
			return err
		}
	}

	return nil
}

func (e *Extractor) extractBlock(ctx context.Context, bus *pipeline.Bus, height int64, block *Block) error {
	for _, tx := range block.Txs {
		txid := tx.TxHash().String()

		for index, in := range tx.TxIn {
			script := in.SignatureScript
			if len(script) < 2 {
				continue
			}
			if IsStandardInput(script) {
				continue
			}

			payload := pipeline.ExtractorPayload{
				TxID:        txid,
				Kind:        pipeline.KindScriptSig,
				ExtraIndex:  index,
				BlockHeight: height,
				Data:        append([]byte(nil), script...),
			}
			if err := bus.Send(ctx, payload); err != nil {
				return err
			}
		}

		for index, out := range tx.TxOut {
			script := out.PkScript
			if IsStandardOutput(script) {
				continue
			}

			payload := pipeline.ExtractorPayload{
				TxID:        txid,
				Kind:        pipeline.KindScriptPubkey,
				ExtraIndex:  index,
				BlockHeight: height,
				Data:        append([]byte(nil), script...),
			}
			if err := bus.Send(ctx, payload); err != nil {
				return err
			}
		}
	}

	return nil
}

// extractChainstate walks the UTXO set after block iteration completes (§4.3 step 4), emitting
// each decoded script that does not match a standard output template as a SCRIPT_PUBKEY record
// carrying the UTXO's recorded block height.
func (e *Extractor) extractChainstate(ctx context.Context, bus *pipeline.Bus) error {
	db, err := leveldb.OpenFile(filepath.Join(e.Root, "chainstate"), &opt.Options{ReadOnly: true})
	if err != nil {
		return errors.Wrap(err, "open chainstate")
	}
	defer db.Close()

	obfuscateKey, err := db.Get(ObfuscateKeyDBKey, nil)
	if err != nil && err != leveldb.ErrNotFound {
		return errors.Wrap(err, "read obfuscate key")
	}
	if len(obfuscateKey) > 0 {
		obfuscateKey = obfuscateKey[1:] // leading byte is the key's own length
	}

	iter := db.NewIterator(nil, nil)
	defer iter.Release()

	for iter.Next() {
		key := iter.Key()
		if len(key) == 0 || key[0] != chainstateKeyPrefix {
			continue
		}

		utxoKey, err := DecodeUTXOKey(key)
		if err != nil {
			continue // MalformedRecord: skip this entry (§7)
		}

		value := iter.Value()
		if len(obfuscateKey) > 0 {
			value, err = Deobfuscate(value, obfuscateKey)
			if err != nil {
				continue
			}
		}

		utxo, err := DecodeUTXOValue(value)
		if err != nil {
			continue
		}

		if IsStandardOutput(utxo.Script) {
			continue
		}

		payload := pipeline.ExtractorPayload{
			TxID:        hex.EncodeToString(utxoKey.TxHash[:]),
			Kind:        pipeline.KindScriptPubkey,
			ExtraIndex:  int(utxoKey.Vout),
			BlockHeight: int64(utxo.Height),
			Data:        utxo.Script,
		}
		if err := bus.Send(ctx, payload); err != nil {
			return err
		}
	}

	return iter.Error()
}
