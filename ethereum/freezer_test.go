package ethereum

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeIndexEntry(t *testing.T) {
	b := make([]byte, indexEntrySize)
	binary.BigEndian.PutUint16(b[0:2], 3)
	binary.BigEndian.PutUint32(b[2:6], 1024)

	entry := decodeIndexEntry(b)
	if entry.FileNum != 3 || entry.Offset != 1024 {
		t.Fatalf("got %+v, want FileNum=3 Offset=1024", entry)
	}
}

func TestBoundsSameFile(t *testing.T) {
	start := IndexEntry{FileNum: 1, Offset: 10}
	end := IndexEntry{FileNum: 1, Offset: 20}

	s, e, fileNum := bounds(start, end)
	if s != 10 || e != 20 || fileNum != 1 {
		t.Fatalf("got (%d, %d, %d), want (10, 20, 1)", s, e, fileNum)
	}
}

func TestBoundsCrossShard(t *testing.T) {
	start := IndexEntry{FileNum: 1, Offset: 500}
	end := IndexEntry{FileNum: 2, Offset: 30}

	s, e, fileNum := bounds(start, end)
	if s != 0 || e != 30 || fileNum != 2 {
		t.Fatalf("got (%d, %d, %d), want (0, 30, 2)", s, e, fileNum)
	}
}

func writeIndexFile(t *testing.T, dir, name string, entries []IndexEntry) {
	t.Helper()
	buf := make([]byte, 0, len(entries)*indexEntrySize)
	for _, e := range entries {
		b := make([]byte, indexEntrySize)
		binary.BigEndian.PutUint16(b[0:2], e.FileNum)
		binary.BigEndian.PutUint32(b[2:6], e.Offset)
		buf = append(buf, b...)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".ridx"), buf, 0o644); err != nil {
		t.Fatalf("write index: %s", err)
	}
}

func TestOpenFreezerTableRaw(t *testing.T) {
	dir := t.TempDir()

	items := [][]byte{[]byte("alpha"), []byte("bravo"), []byte("charlie")}
	var fileData []byte
	entries := []IndexEntry{{FileNum: 0, Offset: 0}}
	for _, item := range items {
		fileData = append(fileData, item...)
		entries = append(entries, IndexEntry{FileNum: 0, Offset: uint32(len(fileData))})
	}
	writeIndexFile(t, dir, "headers", entries)
	if err := os.WriteFile(filepath.Join(dir, "headers.0000.rdat"), fileData, 0o644); err != nil {
		t.Fatalf("write data: %s", err)
	}

	table, err := OpenFreezerTable(dir, "headers", false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if table.Items() != uint64(len(items)) {
		t.Fatalf("got %d items, want %d", table.Items(), len(items))
	}
	if !table.Has(0) || !table.Has(2) || table.Has(3) {
		t.Fatal("Has bounds incorrect")
	}

	for i, want := range items {
		got, err := table.Retrieve(uint64(i))
		if err != nil {
			t.Fatalf("retrieve %d: %s", i, err)
		}
		if string(got) != string(want) {
			t.Fatalf("item %d: got %q, want %q", i, got, want)
		}
	}
}

func TestOpenFreezerTableEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bodies.ridx"), nil, 0o644); err != nil {
		t.Fatalf("write index: %s", err)
	}

	table, err := OpenFreezerTable(dir, "bodies", false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if table.Items() != 0 {
		t.Fatalf("got %d items, want 0", table.Items())
	}
}

func TestOpenFreezerTableBadIndexSize(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "receipts.ridx"), []byte{0x01, 0x02, 0x03}, 0o644); err != nil {
		t.Fatalf("write index: %s", err)
	}

	if _, err := OpenFreezerTable(dir, "receipts", false); err == nil {
		t.Fatal("expected error for index size not a multiple of entry size")
	}
}

func TestRetrieveItemsOutOfBounds(t *testing.T) {
	dir := t.TempDir()
	writeIndexFile(t, dir, "headers", []IndexEntry{{FileNum: 0, Offset: 0}, {FileNum: 0, Offset: 5}})
	if err := os.WriteFile(filepath.Join(dir, "headers.0000.rdat"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write data: %s", err)
	}

	table, err := OpenFreezerTable(dir, "headers", false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if _, err := table.RetrieveItems(5, 1, 0); err == nil {
		t.Fatal("expected error for out-of-bounds item index")
	}
}
