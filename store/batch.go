package store

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// overlayOp records a pending write or delete against a key, so a child
// batch's reads see its own uncommitted writes before falling through to
// its parent and finally the root transaction.
type overlayOp struct {
	value   []byte
	deleted bool
}

// Batch is a scoped, possibly-nested set of pending mutations over the
// chain kv store. The root batch owns a live *bolt.Tx; every child batch
// is a pure in-memory overlay chained to its parent. Reads check the
// local overlay, then each parent in turn, then the root transaction.
// Commit on a child merges its overlay into its parent; commit on the
// root flushes the fully merged overlay into bbolt and commits the
// transaction. Grounded on the Batch/child contract in store.rs (lines
// 134-388); Go has no RAII drop, so an uncommitted batch going out of
// scope simply leaks no mutation — callers that want the original's
// "abandon" semantics call Abandon explicitly.
type Batch struct {
	parent    *Batch
	tx        *bolt.Tx // non-nil only on the root batch
	overlay   map[string]overlayOp
	committed bool
	abandoned bool
}

func newRootBatch(tx *bolt.Tx) *Batch {
	return &Batch{tx: tx, overlay: make(map[string]overlayOp)}
}

// Child opens a nested batch whose writes are invisible to anyone but
// itself and its own descendants until Commit is called.
func (b *Batch) Child() *Batch {
	return &Batch{parent: b, overlay: make(map[string]overlayOp)}
}

// GetRaw resolves key by checking this batch's overlay, then its parent
// chain, then (at the root) the live bbolt transaction.
func (b *Batch) GetRaw(key []byte) ([]byte, bool, error) {
	for cur := b; cur != nil; cur = cur.parent {
		if op, ok := cur.overlay[string(key)]; ok {
			if op.deleted {
				return nil, false, nil
			}
			return op.value, true, nil
		}
		if cur.tx != nil {
			v := cur.tx.Bucket(bucketName).Get(key)
			if v == nil {
				return nil, false, nil
			}
			return append([]byte(nil), v...), true, nil
		}
	}
	return nil, false, nil
}

// PutRaw stages a write in this batch's overlay.
func (b *Batch) PutRaw(key, value []byte) error {
	if b.committed || b.abandoned {
		return fmt.Errorf("store: batch already closed")
	}
	b.overlay[string(key)] = overlayOp{value: append([]byte(nil), value...)}
	return nil
}

// DeleteRaw stages a deletion in this batch's overlay.
func (b *Batch) DeleteRaw(key []byte) error {
	if b.committed || b.abandoned {
		return fmt.Errorf("store: batch already closed")
	}
	b.overlay[string(key)] = overlayOp{deleted: true}
	return nil
}

// Exists resolves existence the same way GetRaw does.
func (b *Batch) Exists(key []byte) (bool, error) {
	_, ok, err := b.GetRaw(key)
	return ok, err
}

// Iter walks the merged view of this batch over [lower, upperExclusive):
// overlay entries from this batch and every ancestor take precedence over
// the root transaction's stored entries, with deletions suppressing keys
// the root still holds.
func (b *Batch) Iter(lower, upperExclusive []byte, fn func(key, value []byte) (bool, error)) error {
	merged := map[string][]byte{}
	deleted := map[string]bool{}

	var chain []*Batch
	for cur := b; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	// Walk root-to-leaf so leaf overlays take precedence.
	for i := len(chain) - 1; i >= 0; i-- {
		cur := chain[i]
		if cur.tx != nil {
			c := cur.tx.Bucket(bucketName).Cursor()
			for k, v := c.Seek(lower); k != nil && beforeUpper(k, upperExclusive); k, v = c.Next() {
				merged[string(k)] = append([]byte(nil), v...)
			}
		}
		for k, op := range cur.overlay {
			if !keyInRange([]byte(k), lower, upperExclusive) {
				continue
			}
			if op.deleted {
				deleted[k] = true
				delete(merged, k)
				continue
			}
			delete(deleted, k)
			merged[k] = op.value
		}
	}

	for k, v := range merged {
		cont, err := fn([]byte(k), v)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func keyInRange(key, lower, upperExclusive []byte) bool {
	if compareBytes(key, lower) < 0 {
		return false
	}
	return beforeUpper(key, upperExclusive)
}

// Commit flushes this batch's overlay into its parent (if any) or, at the
// root, into the live bbolt transaction followed by tx.Commit(). Per the
// store's single-active-mutating-batch rule, only one outstanding batch
// chain may be committed at a time; callers enforce that externally via
// ChainStore's mutex.
func (b *Batch) Commit() error {
	if b.committed || b.abandoned {
		return fmt.Errorf("store: batch already closed")
	}
	b.committed = true

	if b.parent != nil {
		for k, op := range b.overlay {
			b.parent.overlay[k] = op
		}
		return nil
	}

	for k, op := range b.overlay {
		if op.deleted {
			if err := b.tx.Bucket(bucketName).Delete([]byte(k)); err != nil {
				return fmt.Errorf("store: commit delete: %w", err)
			}
			continue
		}
		if err := b.tx.Bucket(bucketName).Put([]byte(k), op.value); err != nil {
			return fmt.Errorf("store: commit put: %w", err)
		}
	}
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}

// Abandon discards this batch's overlay without applying it. At the
// root, this rolls back the underlying bbolt transaction.
func (b *Batch) Abandon() error {
	if b.committed || b.abandoned {
		return nil
	}
	b.abandoned = true
	if b.tx != nil {
		return b.tx.Rollback()
	}
	return nil
}
