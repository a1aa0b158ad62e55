package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/l101ta/ludo/internal/audit"
)

var auditBucket = []byte("audit")

// BoltStore is a local audit sink. Rows are keyed by an increasing sequence
// so iteration follows append order.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(auditBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) AppendRow(ctx context.Context, row audit.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(auditBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

// Rows returns up to limit of the most recent rows, oldest first. A
// non-positive limit returns everything.
func (s *BoltStore) Rows(limit int) ([]audit.Row, error) {
	var rows []audit.Row
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(auditBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(rows) == limit {
				break
			}
			var r audit.Row
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decoding row %x: %w", k, err)
			}
			rows = append(rows, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
