// Package storage persists computed results so an analysis can be reloaded
// later. It uses BoltDB as the underlying storage engine with one bucket per
// result kind and JSON-encoded values.
//
// Keys have the form "name/unixnano/sequence", zero-padded so that a cursor
// walks the records of one name in time order. The bucket sequence keeps two
// records saved within the same nanosecond apart.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"quantkit/internal/common"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
)

const dbFile = "quantkit.db"

// Kinds lists the buckets created when a store is opened.
var Kinds = []string{
	common.KindProbabilities,
	common.KindScaled,
	common.KindSelection,
	common.KindSample,
	common.KindConfusion,
}

// ErrNotFound is returned by Latest when no record exists for a name.
var ErrNotFound = errors.New("record not found")

// Record is one stored result.
type Record struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Name      string          `json:"name"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (r Record) Decode(v any) error {
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("decode %s record %s: %w", r.Kind, r.ID, err)
	}
	return nil
}

// Store provides persistent storage for results using BoltDB.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// New opens (or creates) the database under dataPath and makes sure every
// bucket exists.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, kind := range Kinds {
			if _, err := tx.CreateBucketIfNotExists([]byte(kind)); err != nil {
				return fmt.Errorf("create %s bucket: %w", kind, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database. Calling it more than once is safe.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Save stores payload under kind and name, stamped with the current time.
func (s *Store) Save(kind, name string, payload any) (Record, error) {
	if err := checkName(name); err != nil {
		return Record{}, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Record{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	rec := Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Name:      name,
		Timestamp: s.now().UTC(),
		Payload:   data,
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return fmt.Errorf("unknown record kind %q", kind)
		}

		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next %s sequence: %w", kind, err)
		}
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		return b.Put(recordKey(name, rec.Timestamp, seq), value)
	})
	if err != nil {
		return Record{}, err
	}

	log.Debug().Str("kind", kind).Str("name", name).Str("id", rec.ID).Msg("result stored")
	return rec, nil
}

// Latest returns the most recent record for name.
func (s *Store) Latest(kind, name string) (Record, error) {
	if err := checkName(name); err != nil {
		return Record{}, err
	}

	var rec Record
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return fmt.Errorf("unknown record kind %q", kind)
		}

		c := b.Cursor()
		prefix := []byte(name + "/")
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				log.Debug().Err(err).Bytes("key", k).Msg("skipping malformed record")
				continue
			}
			rec, found = r, true
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
	}
	return rec, nil
}

// Records returns the records for name stored between start and end,
// inclusive, oldest first.
func (s *Store) Records(kind, name string, start, end time.Time) ([]Record, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	records := []Record{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return fmt.Errorf("unknown record kind %q", kind)
		}

		c := b.Cursor()
		prefix := []byte(name + "/")
		// first key past every record stamped at end
		endKey := recordKey(name, end.Add(time.Nanosecond), 0)

		for k, v := c.Seek(recordKey(name, start, 0)); k != nil && bytes.Compare(k, endKey) < 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				break
			}

			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				log.Debug().Err(err).Bytes("key", k).Msg("skipping malformed record")
				continue
			}
			records = append(records, r)
		}
		return nil
	})

	return records, err
}

// Names lists the distinct record names stored under kind.
func (s *Store) Names(kind string) ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return fmt.Errorf("unknown record kind %q", kind)
		}

		last := ""
		return b.ForEach(func(k, _ []byte) error {
			name, _, ok := strings.Cut(string(k), "/")
			if ok && name != last {
				names = append(names, name)
				last = name
			}
			return nil
		})
	})
	return names, err
}

func recordKey(name string, ts time.Time, seq uint64) []byte {
	nanos := int64(0)
	if ts.After(time.Unix(0, 0)) {
		nanos = ts.UnixNano()
	}
	return []byte(fmt.Sprintf("%s/%020d/%020d", name, nanos, seq))
}

func checkName(name string) error {
	if name == "" {
		return common.Validationf("record name is empty")
	}
	if strings.Contains(name, "/") {
		return common.Validationf("record name %q must not contain '/'", name)
	}
	return nil
}
