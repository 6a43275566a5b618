package bitcoin

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/pkg/errors"
)

// Reads Bitcoin Core's blocks/index LevelDB (§4.2, §6): one CDiskBlockIndex record per block,
// keyed "b" || block_hash[32]. Decoded per the layout documented in Bitcoin Core's chain.h
// CDiskBlockIndex::SerializationOp, reusing the b128 varint reader already written for
// chainstate.go since Core's VARINT uses the identical MSB-continuation scheme.

const (
	blockIndexKeyPrefix = 'b'

	blockHaveData = 1 << 3
	blockHaveUndo = 1 << 4
)

// BlockIndexEntry is the subset of CDiskBlockIndex the extractor needs to locate and order block
// records: which height the block is at, and where its body lives in the blk*.dat files.
type BlockIndexEntry struct {
	Hash     [32]byte
	Height   uint64
	FileNum  uint64
	DataPos  uint64
	HasData  bool
}

// OpenBlockIndex opens blocks/index read-only.
func OpenBlockIndex(path string) (*leveldb.DB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{ReadOnly: true})
	if err != nil {
		return nil, errors.Wrap(err, "open block index")
	}
	return db, nil
}

// ReadBlockIndex scans every "b"-prefixed record and returns them ordered by height ascending,
// so the extractor can iterate blocks in height order (§4.3 step 1).
func ReadBlockIndex(db *leveldb.DB) ([]BlockIndexEntry, error) {
	iter := db.NewIterator(util.BytesPrefix([]byte{blockIndexKeyPrefix}), nil)
	defer iter.Release()

	var entries []BlockIndexEntry
	for iter.Next() {
		key := iter.Key()
		if len(key) != 33 {
			continue
		}

		entry, err := decodeBlockIndexValue(iter.Value())
		if err != nil {
			return nil, errors.Wrap(err, "decode block index value")
		}

		copy(entry.Hash[:], key[1:])
		entries = append(entries, entry)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterate block index")
	}

	sortBlockIndexByHeight(entries)
	return entries, nil
}

func sortBlockIndexByHeight(entries []BlockIndexEntry) {
	// LevelDB yields the records in block-hash key order, which is unrelated to height, so the
	// whole slice is sorted here. Insertion sort is stable: entries with equal heights keep their
	// key order.
	for i := 1; i < len(entries); i++ {
		j := i
		for j > 0 && entries[j-1].Height > entries[j].Height {
			entries[j-1], entries[j] = entries[j], entries[j-1]
			j--
		}
	}
}

func decodeBlockIndexValue(value []byte) (BlockIndexEntry, error) {
	var entry BlockIndexEntry

	_, n, err := b128Decode(value) // nVersion, unused
	if err != nil {
		return entry, errors.Wrap(err, "version")
	}
	value = value[n:]

	height, n, err := b128Decode(value)
	if err != nil {
		return entry, errors.Wrap(err, "height")
	}
	value = value[n:]
	entry.Height = height

	status, n, err := b128Decode(value)
	if err != nil {
		return entry, errors.Wrap(err, "status")
	}
	value = value[n:]

	_, n, err = b128Decode(value) // nTx, unused
	if err != nil {
		return entry, errors.Wrap(err, "tx count")
	}
	value = value[n:]

	if status&(blockHaveData|blockHaveUndo) != 0 {
		fileNum, n, err := b128Decode(value)
		if err != nil {
			return entry, errors.Wrap(err, "file number")
		}
		value = value[n:]
		entry.FileNum = fileNum
	}

	if status&blockHaveData != 0 {
		dataPos, n, err := b128Decode(value)
		if err != nil {
			return entry, errors.Wrap(err, "data position")
		}
		value = value[n:]
		entry.DataPos = dataPos
		entry.HasData = true
	}

	return entry, nil
}
