package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tokenized/payloadminer/pipeline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %s", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestInsertAndStreamRaw(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	records := []pipeline.RawRecord{
		{Data: []byte("hello"), TxID: "tx1", Chain: pipeline.BitcoinMainnet, Kind: pipeline.KindScriptSig, BlockHeight: 1, ExtraIndex: 0},
		{Data: []byte("world"), TxID: "tx2", Chain: pipeline.EthereumMainnet, Kind: pipeline.KindTxData, BlockHeight: 2, ExtraIndex: 0},
	}
	if err := st.InsertRaw(ctx, records); err != nil {
		t.Fatalf("insert raw: %s", err)
	}

	rows, err := st.StreamRaw(ctx, "")
	if err != nil {
		t.Fatalf("stream raw: %s", err)
	}
	defer rows.Close()

	var got []pipeline.RawRecord
	for rows.Next() {
		r, err := ScanRawRow(rows)
		if err != nil {
			t.Fatalf("scan: %s", err)
		}
		got = append(got, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows err: %s", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
}

func TestStreamRawFilteredByChain(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	records := []pipeline.RawRecord{
		{Data: []byte("a"), TxID: "tx1", Chain: pipeline.BitcoinMainnet, Kind: pipeline.KindScriptSig, BlockHeight: 1},
		{Data: []byte("b"), TxID: "tx2", Chain: pipeline.EthereumMainnet, Kind: pipeline.KindTxData, BlockHeight: 2},
	}
	if err := st.InsertRaw(ctx, records); err != nil {
		t.Fatalf("insert raw: %s", err)
	}

	rows, err := st.StreamRaw(ctx, pipeline.EthereumMainnet)
	if err != nil {
		t.Fatalf("stream raw: %s", err)
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		r, err := ScanRawRow(rows)
		if err != nil {
			t.Fatalf("scan: %s", err)
		}
		if r.Chain != pipeline.EthereumMainnet {
			t.Fatalf("got chain %s, want %s", r.Chain, pipeline.EthereumMainnet)
		}
		count++
	}
	if count != 1 {
		t.Fatalf("got %d records, want 1", count)
	}
}

func TestInsertRawIgnoresDuplicates(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	record := pipeline.RawRecord{Data: []byte("x"), TxID: "dup", Chain: pipeline.BitcoinMainnet,
		Kind: pipeline.KindScriptSig, BlockHeight: 1, ExtraIndex: 0}

	if err := st.InsertRaw(ctx, []pipeline.RawRecord{record}); err != nil {
		t.Fatalf("first insert: %s", err)
	}
	if err := st.InsertRaw(ctx, []pipeline.RawRecord{record}); err != nil {
		t.Fatalf("second insert: %s", err)
	}

	rows, err := st.StreamRaw(ctx, "")
	if err != nil {
		t.Fatalf("stream raw: %s", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		count++
	}
	if count != 1 {
		t.Fatalf("got %d rows after duplicate insert, want 1", count)
	}
}

func TestFindingsTxCommit(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	record := pipeline.RawRecord{Data: []byte("x"), TxID: "tx1", Chain: pipeline.BitcoinMainnet,
		Kind: pipeline.KindScriptSig, BlockHeight: 1, ExtraIndex: 0}
	if err := st.InsertRaw(ctx, []pipeline.RawRecord{record}); err != nil {
		t.Fatalf("insert raw: %s", err)
	}

	tx, err := st.BeginFindingsTx(ctx)
	if err != nil {
		t.Fatalf("begin findings tx: %s", err)
	}

	ascii := []pipeline.AsciiFinding{{TxID: "tx1", Chain: pipeline.BitcoinMainnet, Kind: pipeline.KindScriptSig, ExtraIndex: 0, StringLength: 5}}
	if err := st.InsertFindingsAscii(ctx, tx, ascii); err != nil {
		t.Fatalf("insert ascii findings: %s", err)
	}

	magic := []pipeline.MagicFinding{{TxID: "tx1", Chain: pipeline.BitcoinMainnet, Kind: pipeline.KindScriptSig, ExtraIndex: 0, FileType: "PNG"}}
	if err := st.InsertFindingsMagic(ctx, tx, magic); err != nil {
		t.Fatalf("insert magic findings: %s", err)
	}

	imghdr := []pipeline.ImghdrFinding{{TxID: "tx1", Chain: pipeline.BitcoinMainnet, Kind: pipeline.KindScriptSig, ExtraIndex: 0, FileType: "gif"}}
	if err := st.InsertFindingsImghdr(ctx, tx, imghdr); err != nil {
		t.Fatalf("insert imghdr findings: %s", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %s", err)
	}

	buckets, err := st.AsciiHistogram(ctx, "")
	if err != nil {
		t.Fatalf("ascii histogram: %s", err)
	}
	if len(buckets) != 1 || buckets[0].Count != 1 {
		t.Fatalf("got %+v, want one bucket with count 1", buckets)
	}
}
