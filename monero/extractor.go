package monero

import (
	"context"
	"encoding/hex"

	"github.com/tokenized/payloadminer/pipeline"

	"golang.org/x/sync/errgroup"

	"github.com/pkg/errors"
)

// BatchSize is the tx_indices cursor batch width named in §4.3/§5.
const BatchSize = 10000

// Extractor walks a Monero node's LMDB chain data and emits non-default TxExtra payloads.
type Extractor struct {
	LMDBDir string
}

// extracted is one decoded, non-default tx_extra ready to emit.
type extracted struct {
	txKey       [32]byte
	blockHeight int64
	extra       []byte
}

// Extract implements §4.3's Monero Extractor.
func (e *Extractor) Extract(ctx context.Context, bus *pipeline.Bus) error {
	store, err := OpenStore(e.LMDBDir)
	if err != nil {
		return errors.Wrap(err, "open lmdb")
	}
	defer store.Close()

	return store.ScanTxIndices(BatchSize, func(batch []TxIndex) error {
		return e.processBatch(ctx, bus, store, batch)
	})
}

// processBatch translates a batch of tx_indices records to their pruned transactions, decodes
// each prefix's extra field concurrently (§5's scoped-and-awaited task pool), and emits the
// non-standard ones in batch order.
func (e *Extractor) processBatch(ctx context.Context, bus *pipeline.Bus, store *Store, batch []TxIndex) error {
	ids := make([]uint64, len(batch))
	for i, idx := range batch {
		ids[i] = idx.TxID
	}

	pruned, err := store.FetchPrunedTransactions(ids)
	if err != nil {
		return errors.Wrap(err, "fetch pruned transactions")
	}

	results := make([]*extracted, len(batch))

	group, _ := errgroup.WithContext(ctx)
	for i, idx := range batch {
		i, idx := i, idx
		group.Go(func() error {
			raw, ok := pruned[idx.TxID]
			if !ok {
				return nil
			}

			extra, err := DecodeTransactionPrefixExtra(raw)
			if err != nil {
				return nil // MalformedRecord: skip this transaction (§7)
			}
			if IsDefaultExtra(extra) {
				return nil
			}

			results[i] = &extracted{
				txKey:       idx.Key,
				blockHeight: int64(idx.BlockID),
				extra:       extra,
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return errors.Wrap(err, "decode batch")
	}

	for _, r := range results {
		if r == nil {
			continue
		}

		payload := pipeline.ExtractorPayload{
			TxID:        hex.EncodeToString(r.txKey[:]),
			Kind:        pipeline.KindTxExtra,
			ExtraIndex:  0,
			BlockHeight: r.blockHeight,
			Data:        r.extra,
		}
		if err := bus.Send(ctx, payload); err != nil {
			return err
		}
	}

	return nil
}
