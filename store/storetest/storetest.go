// Package storetest provides shared bbolt temp-dir fixtures for store
// package tests, mirroring the teacher's repeated t.TempDir()+Open
// preamble in node/store/db_test.go.
package storetest

import (
	"testing"

	"epic.dev/node/store"
)

// OpenTemp opens a ChainStore rooted at a fresh t.TempDir(), registering
// t.Cleanup to close it.
func OpenTemp(t *testing.T) *store.ChainStore {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
