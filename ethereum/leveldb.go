package ethereum

import (
	"encoding/binary"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/pkg/errors"
)

// HotTail reads geth's chaindata LevelDB for the recent blocks the freezer hasn't absorbed yet
// (§4.2, §4.3 step 1). Key layouts corrected against the bug in
// original_source/ethereum_leveldb_tables.py, whose get_body_by_height/get_header_by_height call
// block_body_key/header_key without the hash argument the functions require — this adapter always
// supplies the block hash, matching the three-key layout named in §6.
type HotTail struct {
	db *leveldb.DB
}

// OpenHotTail opens geth's chaindata LevelDB read-only.
func OpenHotTail(path string) (*HotTail, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{ReadOnly: true})
	if err != nil {
		return nil, errors.Wrap(err, "open chaindata")
	}
	return &HotTail{db: db}, nil
}

func (t *HotTail) Close() error {
	return t.db.Close()
}

func headerHashKey(number uint64) []byte {
	key := make([]byte, 0, 10)
	key = append(key, 'h')
	key = appendUint64BE(key, number)
	key = append(key, 'n')
	return key
}

func headerKey(number uint64, hash []byte) []byte {
	key := make([]byte, 0, 9+len(hash))
	key = append(key, 'h')
	key = appendUint64BE(key, number)
	key = append(key, hash...)
	return key
}

func blockBodyKey(number uint64, hash []byte) []byte {
	key := make([]byte, 0, 9+len(hash))
	key = append(key, 'b')
	key = appendUint64BE(key, number)
	key = append(key, hash...)
	return key
}

func appendUint64BE(key []byte, number uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], number)
	return append(key, b[:]...)
}

// HashByHeight returns the canonical block hash stored at height number, or (nil, nil) if the
// hot tail doesn't have that height (the caller should fall back to, or have already tried, the
// freezer).
func (t *HotTail) HashByHeight(number uint64) ([]byte, error) {
	hash, err := t.db.Get(headerHashKey(number), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get hash")
	}
	return hash, nil
}

// HeaderByHeight decodes the RLP header stored at height number.
func (t *HotTail) HeaderByHeight(number uint64) (*Header, error) {
	hash, err := t.HashByHeight(number)
	if err != nil || hash == nil {
		return nil, err
	}

	raw, err := t.db.Get(headerKey(number, hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get header")
	}

	return DecodeHeader(raw)
}

// BodyByHeight decodes the RLP body stored at height number.
func (t *HotTail) BodyByHeight(number uint64) (*Body, error) {
	hash, err := t.HashByHeight(number)
	if err != nil || hash == nil {
		return nil, err
	}

	raw, err := t.db.Get(blockBodyKey(number, hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get body")
	}

	return DecodeBody(raw)
}
