package monero

import (
	"encoding/binary"

	"github.com/PowerDNS/lmdb-go/lmdb"

	"github.com/pkg/errors"
)

// Store wraps a Monero node's lmdb/data.mdb environment, opened read-only (§4.2).
type Store struct {
	env *lmdb.Env
}

// OpenStore opens the LMDB environment at path (the directory containing data.mdb) with the
// no-lock, read-only flags and up to 10 named databases the original reader used
// (original_source/lmdb_xmr.py, original_source/monero_parser.py).
func OpenStore(path string) (*Store, error) {
	env, err := lmdb.NewEnv()
	if err != nil {
		return nil, errors.Wrap(err, "new env")
	}
	if err := env.SetMaxDBs(10); err != nil {
		return nil, errors.Wrap(err, "set max dbs")
	}
	if err := env.Open(path, lmdb.NoLock|lmdb.Readonly, 0644); err != nil {
		return nil, errors.Wrap(err, "open env")
	}
	return &Store{env: env}, nil
}

// Close releases the environment.
func (s *Store) Close() error {
	return s.env.Close()
}

const txIndexRecordSize = 32 + 8 + 8 + 8

// TxIndex is the fixed-layout value stored in tx_indices: a transaction key hash followed by its
// tx_data_t (tx_id, unlock_time, block_id), matching Monero's blockchain_db txindex struct.
type TxIndex struct {
	Key        [32]byte
	TxID       uint64
	UnlockTime uint64
	BlockID    uint64
}

func decodeTxIndex(v []byte) (TxIndex, error) {
	if len(v) != txIndexRecordSize {
		return TxIndex{}, errors.Errorf("tx_indices record is %d bytes, want %d", len(v),
			txIndexRecordSize)
	}
	var idx TxIndex
	copy(idx.Key[:], v[0:32])
	idx.TxID = binary.LittleEndian.Uint64(v[32:40])
	idx.UnlockTime = binary.LittleEndian.Uint64(v[40:48])
	idx.BlockID = binary.LittleEndian.Uint64(v[48:56])
	return idx, nil
}

// ScanTxIndices cursors the tx_indices dup-sort table, calling fn once per batch of up to
// batchSize records (§4.3 step 1, §5's batch-of-10000 shape). A malformed record is skipped
// rather than aborting the scan (§7).
func (s *Store) ScanTxIndices(batchSize int, fn func(batch []TxIndex) error) error {
	return s.env.View(func(txn *lmdb.Txn) error {
		dbi, err := txn.OpenDBI("tx_indices", 0)
		if err != nil {
			return errors.Wrap(err, "open tx_indices")
		}

		cur, err := txn.OpenCursor(dbi)
		if err != nil {
			return errors.Wrap(err, "open cursor")
		}
		defer cur.Close()

		batch := make([]TxIndex, 0, batchSize)
		for {
			_, v, err := cur.Get(nil, nil, lmdb.Next)
			if lmdb.IsNotFound(err) {
				break
			}
			if err != nil {
				return errors.Wrap(err, "cursor get")
			}

			idx, err := decodeTxIndex(v)
			if err != nil {
				continue
			}
			batch = append(batch, idx)

			if len(batch) >= batchSize {
				if err := fn(batch); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}

		if len(batch) > 0 {
			return fn(batch)
		}
		return nil
	})
}

// FetchPrunedTransactions batch-fetches txs_pruned rows for the given tx ids within a single
// view transaction (§4.2's "batched get-multi"): txs_pruned keys are the 8-byte little-endian
// tx id. Missing ids are simply absent from the result map.
func (s *Store) FetchPrunedTransactions(txIDs []uint64) (map[uint64][]byte, error) {
	result := make(map[uint64][]byte, len(txIDs))

	err := s.env.View(func(txn *lmdb.Txn) error {
		dbi, err := txn.OpenDBI("txs_pruned", 0)
		if err != nil {
			return errors.Wrap(err, "open txs_pruned")
		}

		key := make([]byte, 8)
		for _, id := range txIDs {
			binary.LittleEndian.PutUint64(key, id)

			v, err := txn.Get(dbi, key)
			if lmdb.IsNotFound(err) {
				continue
			}
			if err != nil {
				return errors.Wrapf(err, "get tx %d", id)
			}

			buf := make([]byte, len(v))
			copy(buf, v)
			result[id] = buf
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
