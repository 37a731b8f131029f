package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// bucketName is the single flat bucket every prefixed key lives in. The
// teacher's node/store/db.go splits records across five buckets
// (headers_by_hash, blocks_by_hash, ...); here that split is collapsed
// into one bucket because the key codec (keys.go) already unifies every
// record type under a single-byte prefix inside one keyspace, and a
// second bucket split would just duplicate that scheme.
var bucketName = []byte("chain_kv")

// Engine is the KV engine contract the chain store is built on: raw
// byte get/put, existence checks, deletion, a prefix-bounded iterator,
// and batch construction. It exists so ChainStore never talks to bbolt
// directly, matching the teacher's DB-as-facade layering.
type Engine interface {
	GetRaw(key []byte) ([]byte, bool, error)
	PutRaw(key, value []byte) error
	Exists(key []byte) (bool, error)
	DeleteRaw(key []byte) error
	Iter(lower, upperExclusive []byte, fn func(key, value []byte) (bool, error)) error
	OpenBatch() (*Batch, error)
	Close() error
}

// bboltEngine is the concrete Engine backed by a single bbolt file under
// <root>/chain/kv.db, grounded on the teacher's bolt.Open/bucket-creation
// sequence in node/store/db.go.
type bboltEngine struct {
	db *bolt.DB
}

// OpenBbolt opens (creating if absent) the chain kv store rooted at
// <dataRoot>/chain/kv.db.
func OpenBbolt(dataRoot string) (Engine, error) {
	chainDir := filepath.Join(dataRoot, "chain")
	if err := os.MkdirAll(chainDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create chain dir: %w", err)
	}
	path := filepath.Join(chainDir, "kv.db")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create bucket: %w", err)
	}
	return &bboltEngine{db: db}, nil
}

func (e *bboltEngine) GetRaw(key []byte) ([]byte, bool, error) {
	var out []byte
	err := e.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (e *bboltEngine) PutRaw(key, value []byte) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
}

func (e *bboltEngine) Exists(key []byte) (bool, error) {
	_, ok, err := e.GetRaw(key)
	return ok, err
}

func (e *bboltEngine) DeleteRaw(key []byte) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key)
	})
}

// Iter walks every key in [lower, upperExclusive), calling fn until it
// returns false or an error. Grounded on bbolt's native Cursor.Seek range
// scan, the same mechanism store.rs's blocks_iter uses over its RocksDB
// prefix-iterator equivalent.
func (e *bboltEngine) Iter(lower, upperExclusive []byte, fn func(key, value []byte) (bool, error)) error {
	return e.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.Seek(lower); k != nil && beforeUpper(k, upperExclusive); k, v = c.Next() {
			cont, err := fn(k, v)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}

func beforeUpper(key, upperExclusive []byte) bool {
	if upperExclusive == nil {
		return true
	}
	return compareBytes(key, upperExclusive) < 0
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func (e *bboltEngine) OpenBatch() (*Batch, error) {
	tx, err := e.db.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	return newRootBatch(tx), nil
}

func (e *bboltEngine) Close() error {
	return e.db.Close()
}
