package store

import (
	"context"
	"strconv"

	"github.com/tokenized/payloadminer/pipeline"

	"github.com/pkg/errors"
)

// HistogramBucket is one (value, count) pair, the shape of every read view in §4.6. The viewer
// that renders these as plots/CSV is external to this package (§1/§6); these queries are the
// data source it would call, supplemented from original_source/view.py's aggregation shapes.
type HistogramBucket struct {
	Label string
	Count int64
}

// AsciiHistogram returns counts of ASCII findings bucketed by string length, optionally filtered
// to one chain.
func (s *Store) AsciiHistogram(ctx context.Context, chain pipeline.Chain) ([]HistogramBucket, error) {
	query := `
		SELECT a.string_length, COUNT(*)
		FROM asciiData a
		JOIN cryptoData c ON c.txid = a.txid AND c.extra_index = a.extra_index AND c.kind = a.kind
		WHERE (? = '' OR c.chain = ?)
		GROUP BY a.string_length
		ORDER BY a.string_length`
	rows, err := s.db.QueryContext(ctx, query, string(chain), string(chain))
	if err != nil {
		return nil, errors.Wrap(err, "query ascii histogram")
	}
	defer rows.Close()

	var buckets []HistogramBucket
	for rows.Next() {
		var length int
		var count int64
		if err := rows.Scan(&length, &count); err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		buckets = append(buckets, HistogramBucket{Label: itoa(length), Count: count})
	}
	return buckets, rows.Err()
}

// MagicFileHistogram returns counts of libmagic findings bucketed by file_type.
func (s *Store) MagicFileHistogram(ctx context.Context, chain pipeline.Chain) ([]HistogramBucket, error) {
	return s.fileTypeHistogram(ctx, "magicFileData", chain)
}

// ImghdrFileHistogram returns counts of image-header sniff findings bucketed by file_type.
func (s *Store) ImghdrFileHistogram(ctx context.Context, chain pipeline.Chain) ([]HistogramBucket, error) {
	return s.fileTypeHistogram(ctx, "imghdrFileData", chain)
}

func (s *Store) fileTypeHistogram(ctx context.Context, table string, chain pipeline.Chain) ([]HistogramBucket, error) {
	query := `
		SELECT f.file_type, COUNT(*)
		FROM ` + table + ` f
		JOIN cryptoData c ON c.txid = f.txid AND c.extra_index = f.extra_index AND c.kind = f.kind
		WHERE (? = '' OR c.chain = ?)
		GROUP BY f.file_type
		ORDER BY COUNT(*) DESC`
	rows, err := s.db.QueryContext(ctx, query, string(chain), string(chain))
	if err != nil {
		return nil, errors.Wrapf(err, "query %s histogram", table)
	}
	defer rows.Close()

	var buckets []HistogramBucket
	for rows.Next() {
		var fileType string
		var count int64
		if err := rows.Scan(&fileType, &count); err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		buckets = append(buckets, HistogramBucket{Label: fileType, Count: count})
	}
	return buckets, rows.Err()
}

// RecordStats is the aggregate record-count summary (§4.6's "aggregate counts and max length").
type RecordStats struct {
	TotalRecords  int64
	ByKind        map[string]int64
	MaxDataLength int64
}

// RecordStatistics computes the aggregate counts and maximum payload length, optionally filtered
// to one chain.
func (s *Store) RecordStatistics(ctx context.Context, chain pipeline.Chain) (*RecordStats, error) {
	stats := &RecordStats{ByKind: map[string]int64{}}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MAX(LENGTH(data)), 0) FROM cryptoData WHERE (? = '' OR chain = ?)`,
		string(chain), string(chain))
	if err := row.Scan(&stats.TotalRecords, &stats.MaxDataLength); err != nil {
		return nil, errors.Wrap(err, "scan totals")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM cryptoData WHERE (? = '' OR chain = ?) GROUP BY kind`,
		string(chain), string(chain))
	if err != nil {
		return nil, errors.Wrap(err, "query by-kind counts")
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		stats.ByKind[kind] = count
	}

	return stats, rows.Err()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
