package monero

import "github.com/pkg/errors"

// Monero's binary_archive variant tags (transaction.h's VARIANT_TAG declarations). Only the
// input/output variants that ever appear on mainnet (txin_gen, txin_to_key, txout_to_key) are
// decoded; txin_to_script/txin_to_scripthash/txout_to_script/txout_to_scripthash are dead code
// paths in the live chain and are treated as a malformed record if ever encountered (§7).
const (
	txinGenTag    = 0xff
	txinToKeyTag  = 0x02
	txoutToKeyTag = 0x02
)

type prefixReader struct {
	data []byte
	pos  int
}

func (r *prefixReader) readVarint() (uint64, error) {
	v, n, err := readVarint(r.data[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

func (r *prefixReader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, errors.New("truncated transaction prefix")
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *prefixReader) readByte() (byte, error) {
	b, err := r.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// DecodeTransactionPrefixExtra walks a pruned transaction_prefix far enough to reach its extra
// field, skipping over the version, unlock_time, vin and vout arrays without materializing them
// (§4.2, grounded on original_source/lmdb_xmr.py and original_source/monero_parser.py reading
// xmr.TransactionPrefix.extra).
func DecodeTransactionPrefixExtra(raw []byte) ([]byte, error) {
	r := &prefixReader{data: raw}

	if _, err := r.readVarint(); err != nil {
		return nil, errors.Wrap(err, "version")
	}
	if _, err := r.readVarint(); err != nil {
		return nil, errors.Wrap(err, "unlock_time")
	}

	vinCount, err := r.readVarint()
	if err != nil {
		return nil, errors.Wrap(err, "vin count")
	}
	for i := uint64(0); i < vinCount; i++ {
		if err := r.skipVin(); err != nil {
			return nil, errors.Wrapf(err, "vin %d", i)
		}
	}

	voutCount, err := r.readVarint()
	if err != nil {
		return nil, errors.Wrap(err, "vout count")
	}
	for i := uint64(0); i < voutCount; i++ {
		if err := r.skipVout(); err != nil {
			return nil, errors.Wrapf(err, "vout %d", i)
		}
	}

	extraLen, err := r.readVarint()
	if err != nil {
		return nil, errors.Wrap(err, "extra length")
	}
	extra, err := r.readBytes(int(extraLen))
	if err != nil {
		return nil, errors.Wrap(err, "extra")
	}

	return extra, nil
}

func (r *prefixReader) skipVin() error {
	tag, err := r.readByte()
	if err != nil {
		return errors.Wrap(err, "tag")
	}

	switch tag {
	case txinGenTag:
		if _, err := r.readVarint(); err != nil {
			return errors.Wrap(err, "txin_gen height")
		}

	case txinToKeyTag:
		if _, err := r.readVarint(); err != nil {
			return errors.Wrap(err, "txin_to_key amount")
		}
		keyOffsetCount, err := r.readVarint()
		if err != nil {
			return errors.Wrap(err, "key offset count")
		}
		for j := uint64(0); j < keyOffsetCount; j++ {
			if _, err := r.readVarint(); err != nil {
				return errors.Wrap(err, "key offset")
			}
		}
		if _, err := r.readBytes(32); err != nil {
			return errors.Wrap(err, "key image")
		}

	default:
		return errors.Errorf("unsupported txin tag 0x%02x", tag)
	}

	return nil
}

func (r *prefixReader) skipVout() error {
	if _, err := r.readVarint(); err != nil {
		return errors.Wrap(err, "amount")
	}

	tag, err := r.readByte()
	if err != nil {
		return errors.Wrap(err, "tag")
	}

	switch tag {
	case txoutToKeyTag:
		if _, err := r.readBytes(32); err != nil {
			return errors.Wrap(err, "key")
		}
	default:
		return errors.Errorf("unsupported txout tag 0x%02x", tag)
	}

	return nil
}
