// Package detect implements the detectors that scan RawRecord payloads for embedded strings and
// files (§4.7), and the runner that streams the store through whichever one was selected.
package detect

import (
	"bytes"
	"context"
	"database/sql"

	"github.com/tokenized/payloadminer/bitcoin"
	"github.com/tokenized/payloadminer/logger"
	"github.com/tokenized/payloadminer/monero"
	"github.com/tokenized/payloadminer/pipeline"

	"github.com/pkg/errors"
)

// Name identifies one of the four detectors selectable from the CLI (§6).
type Name string

const (
	NativeStrings Name = "native_strings"
	GnuStrings    Name = "gnu_strings"
	ImghdrFiles   Name = "imghdr_files"
	MagicFiles    Name = "magic_files"
)

func (n Name) Valid() bool {
	switch n {
	case NativeStrings, GnuStrings, ImghdrFiles, MagicFiles:
		return true
	}
	return false
}

// batchSize is how many findings accumulate before a commit (§4.7).
const batchSize = 100

// progressEvery controls how often the runner logs how many records it has scanned.
const progressEvery = 10000

// Store is the subset of store.Store the runner needs, kept narrow so tests can fake it.
type Store interface {
	StreamRaw(ctx context.Context, chain pipeline.Chain) (*sql.Rows, error)
	BeginFindingsTx(ctx context.Context) (*sql.Tx, error)
	InsertFindingsAscii(ctx context.Context, tx *sql.Tx, findings []pipeline.AsciiFinding) error
	InsertFindingsMagic(ctx context.Context, tx *sql.Tx, findings []pipeline.MagicFinding) error
	InsertFindingsImghdr(ctx context.Context, tx *sql.Tx, findings []pipeline.ImghdrFinding) error
}

// findingsBatch accumulates whichever finding type the active detector produces.
type findingsBatch struct {
	ascii  []pipeline.AsciiFinding
	magic  []pipeline.MagicFinding
	imghdr []pipeline.ImghdrFinding
}

func (b *findingsBatch) len() int {
	return len(b.ascii) + len(b.magic) + len(b.imghdr)
}

func (b *findingsBatch) flush(ctx context.Context, st Store) error {
	if b.len() == 0 {
		return nil
	}

	tx, err := st.BeginFindingsTx(ctx)
	if err != nil {
		return errors.Wrap(err, "begin findings tx")
	}

	if len(b.ascii) > 0 {
		if err := st.InsertFindingsAscii(ctx, tx, b.ascii); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "insert ascii findings")
		}
	}
	if len(b.magic) > 0 {
		if err := st.InsertFindingsMagic(ctx, tx, b.magic); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "insert magic findings")
		}
	}
	if len(b.imghdr) > 0 {
		if err := st.InsertFindingsImghdr(ctx, tx, b.imghdr); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "insert imghdr findings")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit findings tx")
	}

	b.ascii = nil
	b.magic = nil
	b.imghdr = nil
	return nil
}

// minStringLength is the minimum run length native_strings/gnu_strings require (§4.7).
const minStringLength = 4

// Run streams every RawRecord of chain (all chains if empty) through detector, committing
// findings in batches of batchSize. A detector failure on one record is logged and treated as
// no finding (§7 DetectorFailed); it never aborts the run.
func Run(ctx context.Context, st Store, chain pipeline.Chain, detector Name) error {
	rows, err := st.StreamRaw(ctx, chain)
	if err != nil {
		return errors.Wrap(err, "stream raw records")
	}
	defer rows.Close()

	batch := &findingsBatch{}
	scanned := 0

	for rows.Next() {
		record, err := scanRawRow(rows)
		if err != nil {
			return errors.Wrap(err, "scan row")
		}

		if err := detectOne(ctx, detector, record, batch); err != nil {
			logger.Warn(ctx, "detector failed for %s: %s", record.TxID, err)
		}

		scanned++
		if scanned%progressEvery == 0 {
			logger.Info(ctx, "detect: scanned %d records", scanned)
		}

		if batch.len() >= batchSize {
			if err := batch.flush(ctx, st); err != nil {
				return err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate rows")
	}

	if err := batch.flush(ctx, st); err != nil {
		return err
	}

	logger.Info(ctx, "detect: finished, scanned %d records", scanned)
	return nil
}

func scanRawRow(rows *sql.Rows) (pipeline.RawRecord, error) {
	var r pipeline.RawRecord
	var chain, kind string
	if err := rows.Scan(&r.Data, &r.TxID, &chain, &kind, &r.BlockHeight, &r.ExtraIndex); err != nil {
		return pipeline.RawRecord{}, err
	}
	r.Chain = pipeline.Chain(chain)
	r.Kind = pipeline.Kind(kind)
	return r, nil
}

// detectOne runs detector against record, following the original's per-detector scan scope
// (§4.7): native_strings/gnu_strings always scan the whole record payload regardless of chain,
// while magic_files/imghdr_files walk the chain-specific candidate split (§4.7 Monero offset-
// salvage, Bitcoin per-push retry) and stop at the first match, mirroring
// bitcoin_find_file_within_script/monero_find_file_within_extra returning on first hit.
func detectOne(ctx context.Context, detector Name, record pipeline.RawRecord, batch *findingsBatch) error {
	switch detector {
	case NativeStrings, GnuStrings:
		_, err := runDetector(ctx, detector, record, record.Data, batch)
		return err

	case MagicFiles, ImghdrFiles:
		for _, candidate := range candidates(record) {
			found, err := runDetector(ctx, detector, record, candidate, batch)
			if err != nil {
				return err
			}
			if found {
				return nil
			}
		}
		return nil

	default:
		return errors.Errorf("unknown detector %q", detector)
	}
}

// candidates returns, in order, the byte slices the runner should try the detector against for
// one record. Each chain gets its own fallback strategy (§4.7):
//
//   - Monero: the tx_extra stream parses as pubkeys/nonces via ParseTxExtra; on failure with a
//     recoverable *OffsetError, retry on the unparsed remainder; finally fall through to the
//     full data.
//   - Bitcoin: the full script, then each non-opcode push individually.
//   - Ethereum and anything else: the raw data only.
func candidates(record pipeline.RawRecord) [][]byte {
	switch {
	case record.Chain.IsMonero() && record.Kind == pipeline.KindTxExtra:
		return moneroCandidates(record.Data)
	case record.Chain.IsBitcoin():
		return bitcoinCandidates(record.Data)
	default:
		return [][]byte{record.Data}
	}
}

func moneroCandidates(data []byte) [][]byte {
	extra, err := monero.ParseTxExtra(data)
	if err == nil {
		return moneroFields(extra)
	}

	offsetErr, ok := err.(*monero.OffsetError)
	if !ok || offsetErr.Offset+1 >= len(data) {
		return [][]byte{data}
	}

	// offsetErr.Offset is the position of the tag byte ParseTxExtra couldn't make sense of;
	// retrying at that same byte would just reproduce the same failure, so the salvage attempt
	// starts one byte past it, treating whatever follows as a fresh tag-length-value stream.
	remainder, rerr := monero.ParseTxExtra(data[offsetErr.Offset+1:])
	if rerr != nil {
		return [][]byte{data}
	}

	fields := moneroFields(remainder)
	fields = append(fields, data)
	return fields
}

func moneroFields(extra *monero.TxExtra) [][]byte {
	var out [][]byte
	for _, n := range extra.Nonces {
		out = append(out, n)
	}
	for _, p := range extra.Pubkeys {
		pk := make([]byte, len(p))
		copy(pk, p[:])
		out = append(out, pk)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func bitcoinCandidates(data []byte) [][]byte {
	out := [][]byte{data}

	items, err := bitcoin.ParseScriptItems(bytes.NewReader(data), -1)
	if err != nil {
		return out
	}

	for _, item := range items {
		if item.Type == bitcoin.ScriptItemTypePushData && len(item.Data) > 0 {
			out = append(out, item.Data)
		}
	}
	return out
}

// runDetector runs detector against data and, on a finding, appends it to batch keyed by
// record's own identity (txid, kind, extra_index) — never a position derived from the candidate
// being scanned — so every finding keeps its foreign key into the RawRecord it came from (§3).
// It reports whether a finding was recorded, so callers walking a candidate list know when to
// stop.
func runDetector(ctx context.Context, detector Name, record pipeline.RawRecord, data []byte,
	batch *findingsBatch) (bool, error) {

	switch detector {
	case NativeStrings:
		length := nativeStrings(data, minStringLength)
		if length == 0 {
			return false, nil
		}
		batch.ascii = append(batch.ascii, pipeline.AsciiFinding{
			TxID: record.TxID, Chain: record.Chain, Kind: record.Kind,
			ExtraIndex: record.ExtraIndex, StringLength: length,
		})
		return true, nil

	case GnuStrings:
		length, err := gnuStrings(ctx, data, minStringLength)
		if err != nil {
			return false, err
		}
		if length == 0 {
			return false, nil
		}
		batch.ascii = append(batch.ascii, pipeline.AsciiFinding{
			TxID: record.TxID, Chain: record.Chain, Kind: record.Kind,
			ExtraIndex: record.ExtraIndex, StringLength: length,
		})
		return true, nil

	case MagicFiles:
		fileType, err := findFileWithMagic(data)
		if err != nil {
			return false, err
		}
		if fileType == "" {
			return false, nil
		}
		batch.magic = append(batch.magic, pipeline.MagicFinding{
			TxID: record.TxID, Chain: record.Chain, Kind: record.Kind,
			ExtraIndex: record.ExtraIndex, FileType: fileType,
		})
		return true, nil

	case ImghdrFiles:
		fileType := findFileWithImghdr(data)
		if fileType == "" {
			return false, nil
		}
		batch.imghdr = append(batch.imghdr, pipeline.ImghdrFinding{
			TxID: record.TxID, Chain: record.Chain, Kind: record.Kind,
			ExtraIndex: record.ExtraIndex, FileType: fileType,
		})
		return true, nil

	default:
		return false, errors.Errorf("unknown detector %q", detector)
	}
}
