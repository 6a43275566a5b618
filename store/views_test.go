package store

import (
	"context"
	"testing"

	"github.com/tokenized/payloadminer/pipeline"
)

func seedFindings(t *testing.T, st *Store) {
	t.Helper()
	ctx := context.Background()

	records := []pipeline.RawRecord{
		{Data: []byte("aaaa"), TxID: "tx1", Chain: pipeline.BitcoinMainnet, Kind: pipeline.KindScriptSig, BlockHeight: 1, ExtraIndex: 0},
		{Data: []byte("bbbbbbbb"), TxID: "tx2", Chain: pipeline.BitcoinMainnet, Kind: pipeline.KindScriptSig, BlockHeight: 2, ExtraIndex: 0},
		{Data: []byte("cc"), TxID: "tx3", Chain: pipeline.EthereumMainnet, Kind: pipeline.KindTxData, BlockHeight: 3, ExtraIndex: 0},
	}
	if err := st.InsertRaw(ctx, records); err != nil {
		t.Fatalf("insert raw: %s", err)
	}

	tx, err := st.BeginFindingsTx(ctx)
	if err != nil {
		t.Fatalf("begin tx: %s", err)
	}

	ascii := []pipeline.AsciiFinding{
		{TxID: "tx1", Chain: pipeline.BitcoinMainnet, Kind: pipeline.KindScriptSig, ExtraIndex: 0, StringLength: 4},
		{TxID: "tx2", Chain: pipeline.BitcoinMainnet, Kind: pipeline.KindScriptSig, ExtraIndex: 0, StringLength: 8},
		{TxID: "tx3", Chain: pipeline.EthereumMainnet, Kind: pipeline.KindTxData, ExtraIndex: 0, StringLength: 4},
	}
	if err := st.InsertFindingsAscii(ctx, tx, ascii); err != nil {
		t.Fatalf("insert ascii: %s", err)
	}

	magic := []pipeline.MagicFinding{
		{TxID: "tx1", Chain: pipeline.BitcoinMainnet, Kind: pipeline.KindScriptSig, ExtraIndex: 0, FileType: "PNG"},
		{TxID: "tx2", Chain: pipeline.BitcoinMainnet, Kind: pipeline.KindScriptSig, ExtraIndex: 0, FileType: "PNG"},
		{TxID: "tx3", Chain: pipeline.EthereumMainnet, Kind: pipeline.KindTxData, ExtraIndex: 0, FileType: "JPEG"},
	}
	if err := st.InsertFindingsMagic(ctx, tx, magic); err != nil {
		t.Fatalf("insert magic: %s", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %s", err)
	}
}

func TestAsciiHistogramBucketsByLength(t *testing.T) {
	st := openTestStore(t)
	seedFindings(t, st)

	buckets, err := st.AsciiHistogram(context.Background(), "")
	if err != nil {
		t.Fatalf("ascii histogram: %s", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}
	if buckets[0].Label != "4" || buckets[0].Count != 2 {
		t.Fatalf("got first bucket %+v, want label 4 count 2", buckets[0])
	}
	if buckets[1].Label != "8" || buckets[1].Count != 1 {
		t.Fatalf("got second bucket %+v, want label 8 count 1", buckets[1])
	}
}

func TestAsciiHistogramFilteredByChain(t *testing.T) {
	st := openTestStore(t)
	seedFindings(t, st)

	buckets, err := st.AsciiHistogram(context.Background(), pipeline.EthereumMainnet)
	if err != nil {
		t.Fatalf("ascii histogram: %s", err)
	}
	if len(buckets) != 1 || buckets[0].Count != 1 {
		t.Fatalf("got %+v, want one bucket with count 1", buckets)
	}
}

func TestMagicFileHistogramOrderedByCountDesc(t *testing.T) {
	st := openTestStore(t)
	seedFindings(t, st)

	buckets, err := st.MagicFileHistogram(context.Background(), "")
	if err != nil {
		t.Fatalf("magic file histogram: %s", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}
	if buckets[0].Label != "PNG" || buckets[0].Count != 2 {
		t.Fatalf("got top bucket %+v, want label PNG count 2", buckets[0])
	}
}

func TestRecordStatistics(t *testing.T) {
	st := openTestStore(t)
	seedFindings(t, st)

	stats, err := st.RecordStatistics(context.Background(), "")
	if err != nil {
		t.Fatalf("record statistics: %s", err)
	}
	if stats.TotalRecords != 3 {
		t.Fatalf("got total %d, want 3", stats.TotalRecords)
	}
	if stats.MaxDataLength != 8 {
		t.Fatalf("got max length %d, want 8", stats.MaxDataLength)
	}
	if stats.ByKind[string(pipeline.KindScriptSig)] != 2 {
		t.Fatalf("got %d scriptsig records, want 2", stats.ByKind[string(pipeline.KindScriptSig)])
	}
}

func TestRecordStatisticsFilteredByChain(t *testing.T) {
	st := openTestStore(t)
	seedFindings(t, st)

	stats, err := st.RecordStatistics(context.Background(), pipeline.EthereumMainnet)
	if err != nil {
		t.Fatalf("record statistics: %s", err)
	}
	if stats.TotalRecords != 1 {
		t.Fatalf("got total %d, want 1", stats.TotalRecords)
	}
}
