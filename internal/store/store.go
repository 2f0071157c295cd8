// Package store keeps a snapshot of a launch table in a pebble database so
// the dashboard can start without reaching the network.
package store

/*
Database schema:

Key prefixes:
- "r:<seq>" -> LaunchRecord (gzip-compressed JSON), seq is an 8-byte
  big-endian row number so iteration returns the rows in load order
- "m:sites" -> []string (launch sites in first-seen order)
- "m:meta"  -> Meta (JSON)
*/

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"launchdash/internal/dataset"
)

var (
	recordPrefix = []byte("r:")
	recordEnd    = []byte("r;")
	sitesKey     = []byte("m:sites")
	metaKey      = []byte("m:meta")
)

// ErrEmpty is returned by Load and Meta on a database without a snapshot.
var ErrEmpty = errors.New("no snapshot in database")

// Meta describes the stored snapshot.
type Meta struct {
	Source     string    `json:"source"`
	Records    int       `json:"records"`
	Sites      int       `json:"sites"`
	ImportedAt time.Time `json:"imported_at"`
}

// Options control how the database is opened.
type Options struct {
	ReadOnly bool
	// FS overrides the filesystem; tests use vfs.NewMem().
	FS     vfs.FS
	Logger *zap.Logger
}

// Store is a pebble database holding one launch table snapshot.
type Store struct {
	db  *pebble.DB
	log *zap.Logger
}

// Open opens (or, unless read-only, creates) the database at path.
func Open(path string, o Options) (*Store, error) {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("store")

	opts := &pebble.Options{
		ReadOnly: o.ReadOnly,
		FS:       o.FS,
		Logger:   pebbleLogger{log.Sugar()},
		Levels: []pebble.LevelOptions{
			{Compression: pebble.ZstdCompression},
		},
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open database %s", path)
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot with t. Records, sites and meta are
// written in one batch.
func (s *Store) Save(t *dataset.Table, source string) error {
	b := s.db.NewBatch()
	defer b.Close()

	if err := b.DeleteRange(recordPrefix, recordEnd, nil); err != nil {
		return errors.Wrap(err, "clear records")
	}

	seq := int64(0)
	for r := range t.All() {
		val, err := compressJSON(r)
		if err != nil {
			return errors.Wrapf(err, "encode record %d", seq)
		}
		if err := b.Set(recordKey(seq), val, nil); err != nil {
			return errors.Wrapf(err, "write record %d", seq)
		}
		seq++
	}

	sites := t.Sites()
	sitesJSON, err := json.Marshal(sites)
	if err != nil {
		return errors.Wrap(err, "encode sites")
	}
	if err := b.Set(sitesKey, sitesJSON, nil); err != nil {
		return errors.Wrap(err, "write sites")
	}

	meta := Meta{Source: source, Records: t.Len(), Sites: len(sites), ImportedAt: time.Now().UTC()}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, "encode meta")
	}
	if err := b.Set(metaKey, metaJSON, nil); err != nil {
		return errors.Wrap(err, "write meta")
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return errors.Wrap(err, "commit snapshot")
	}
	s.log.Info("snapshot saved", zap.String("source", source), zap.Int("records", meta.Records), zap.Int("sites", meta.Sites))
	return nil
}

// Load rebuilds the stored table, rows in their original order.
func (s *Store) Load() (*dataset.Table, error) {
	meta, err := s.Meta()
	if err != nil {
		return nil, err
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: recordPrefix,
		UpperBound: recordEnd,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open iterator")
	}
	defer iter.Close()

	records := make([]dataset.LaunchRecord, 0, meta.Records)
	for iter.First(); iter.Valid(); iter.Next() {
		var r dataset.LaunchRecord
		if err := decompressJSON(iter.Value(), &r); err != nil {
			return nil, errors.Wrapf(err, "decode record %d", bytesToInt64(iter.Key()[len(recordPrefix):]))
		}
		records = append(records, r)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterate records")
	}
	if len(records) != meta.Records {
		return nil, errors.Newf("snapshot holds %d records, meta says %d", len(records), meta.Records)
	}
	return dataset.New(records), nil
}

// Meta reads the snapshot description.
func (s *Store) Meta() (Meta, error) {
	var m Meta
	if err := s.getJSON(metaKey, &m); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// Sites reads the stored site list without loading the records.
func (s *Store) Sites() ([]string, error) {
	var sites []string
	if err := s.getJSON(sitesKey, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

func (s *Store) getJSON(key []byte, v any) error {
	val, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return ErrEmpty
	}
	if err != nil {
		return errors.Wrapf(err, "get %s", key)
	}
	defer closer.Close()
	return errors.Wrapf(json.Unmarshal(val, v), "decode %s", key)
}

// ========== Utility ==========

func recordKey(seq int64) []byte {
	return append(append([]byte(nil), recordPrefix...), int64ToBytes(seq)...)
}

func compressJSON(v interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(jsonData); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressJSON(data []byte, v interface{}) error {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer gr.Close()

	jsonData, err := io.ReadAll(gr)
	if err != nil {
		return err
	}

	return json.Unmarshal(jsonData, v)
}

func int64ToBytes(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func bytesToInt64(b []byte) int64 {
	if len(b) < 8 {
		return -1
	}
	return int64(binary.BigEndian.Uint64(b))
}

// pebbleLogger routes pebble's own messages to zap. Its chatter about
// compactions and WAL recycling goes to debug.
type pebbleLogger struct {
	*zap.SugaredLogger
}

func (l pebbleLogger) Infof(format string, args ...interface{}) { l.Debugf(format, args...) }
