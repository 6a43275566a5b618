// Package store persists extracted payloads and detector findings in an embedded relational
// database (§4.6), grounded on zcash-lightwalletd/storage's plain database/sql usage of
// github.com/mattn/go-sqlite3.
package store

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tokenized/payloadminer/pipeline"

	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS cryptoData (
	data TEXT NOT NULL,
	txid CHAR(64) NOT NULL,
	chain TEXT NOT NULL,
	kind TEXT NOT NULL,
	block_height INTEGER NOT NULL,
	extra_index INTEGER NOT NULL,
	PRIMARY KEY (txid, extra_index, kind)
);

CREATE TABLE IF NOT EXISTS asciiData (
	txid CHAR(64) NOT NULL,
	kind TEXT NOT NULL,
	extra_index INTEGER NOT NULL,
	string_length INTEGER NOT NULL,
	PRIMARY KEY (txid, extra_index, kind, string_length),
	FOREIGN KEY (txid, extra_index, kind) REFERENCES cryptoData (txid, extra_index, kind)
);

CREATE TABLE IF NOT EXISTS magicFileData (
	txid CHAR(64) NOT NULL,
	kind TEXT NOT NULL,
	extra_index INTEGER NOT NULL,
	file_type TEXT NOT NULL,
	PRIMARY KEY (txid, extra_index, kind),
	FOREIGN KEY (txid, extra_index, kind) REFERENCES cryptoData (txid, extra_index, kind)
);

CREATE TABLE IF NOT EXISTS imghdrFileData (
	txid CHAR(64) NOT NULL,
	kind TEXT NOT NULL,
	extra_index INTEGER NOT NULL,
	file_type TEXT NOT NULL,
	PRIMARY KEY (txid, extra_index, kind),
	FOREIGN KEY (txid, extra_index, kind) REFERENCES cryptoData (txid, extra_index, kind)
);
`

// Store is the embedded SQL database backing both the extract/persist pipeline and the detector
// runner (§4.6).
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite3 database at path and ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=10000&cache=shared")
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertRaw transactionally bulk-inserts records, silently ignoring duplicates on the composite
// primary key (§4.6).
func (s *Store) InsertRaw(ctx context.Context, records []pipeline.RawRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO cryptoData(data, txid, chain, kind, block_height, extra_index)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Data, r.TxID, string(r.Chain), string(r.Kind),
			r.BlockHeight, r.ExtraIndex); err != nil {
			return errors.Wrap(err, "insert")
		}
	}

	return tx.Commit()
}

// InsertFindingsAscii bulk-inserts ASCII findings using the caller-provided transaction, so a
// long detection pass can commit in batches (§4.6, §4.7).
func (s *Store) InsertFindingsAscii(ctx context.Context, tx *sql.Tx, findings []pipeline.AsciiFinding) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO asciiData(txid, kind, extra_index, string_length)
		 VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	for _, f := range findings {
		if _, err := stmt.ExecContext(ctx, f.TxID, string(f.Kind), f.ExtraIndex,
			f.StringLength); err != nil {
			return errors.Wrap(err, "insert")
		}
	}

	return nil
}

// InsertFindingsMagic bulk-inserts libmagic findings.
func (s *Store) InsertFindingsMagic(ctx context.Context, tx *sql.Tx, findings []pipeline.MagicFinding) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO magicFileData(txid, kind, extra_index, file_type)
		 VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	for _, f := range findings {
		if _, err := stmt.ExecContext(ctx, f.TxID, string(f.Kind), f.ExtraIndex,
			f.FileType); err != nil {
			return errors.Wrap(err, "insert")
		}
	}

	return nil
}

// InsertFindingsImghdr bulk-inserts image-header sniff findings.
func (s *Store) InsertFindingsImghdr(ctx context.Context, tx *sql.Tx, findings []pipeline.ImghdrFinding) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO imghdrFileData(txid, kind, extra_index, file_type)
		 VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	for _, f := range findings {
		if _, err := stmt.ExecContext(ctx, f.TxID, string(f.Kind), f.ExtraIndex,
			f.FileType); err != nil {
			return errors.Wrap(err, "insert")
		}
	}

	return nil
}

// BeginFindingsTx starts the transaction a detector pass holds open across its batched commits.
func (s *Store) BeginFindingsTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// StreamRaw streams every RawRecord, optionally filtered to one chain (empty string for all).
func (s *Store) StreamRaw(ctx context.Context, chain pipeline.Chain) (*sql.Rows, error) {
	if chain == "" {
		return s.db.QueryContext(ctx,
			`SELECT data, txid, chain, kind, block_height, extra_index FROM cryptoData`)
	}
	return s.db.QueryContext(ctx,
		`SELECT data, txid, chain, kind, block_height, extra_index FROM cryptoData WHERE chain = ?`,
		string(chain))
}

// ScanRawRow reads one row from a StreamRaw cursor into a RawRecord.
func ScanRawRow(rows *sql.Rows) (pipeline.RawRecord, error) {
	var r pipeline.RawRecord
	var chain, kind string
	if err := rows.Scan(&r.Data, &r.TxID, &chain, &kind, &r.BlockHeight, &r.ExtraIndex); err != nil {
		return pipeline.RawRecord{}, errors.Wrap(err, "scan")
	}
	r.Chain = pipeline.Chain(chain)
	r.Kind = pipeline.Kind(kind)
	return r, nil
}
