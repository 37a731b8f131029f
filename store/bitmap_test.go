package store_test

import (
	"testing"

	"epic.dev/node/store"
)

func TestInputBitmapMarshalRoundTrip(t *testing.T) {
	bm := store.NewInputBitmap()
	bm.Add(3)
	bm.Add(17)
	bm.Add(1000)

	data, err := bm.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := store.UnmarshalInputBitmap(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, pos := range []uint64{3, 17, 1000} {
		if !got.Contains(pos) {
			t.Fatalf("expected bit %d set after round trip", pos)
		}
	}
	if got.Contains(4) {
		t.Fatalf("unexpected bit 4 set")
	}
}

func TestInputBitmapOrMerges(t *testing.T) {
	a := store.NewInputBitmap()
	a.Add(1)
	b := store.NewInputBitmap()
	b.Add(2)

	a.Or(b)
	if !a.Contains(1) || !a.Contains(2) {
		t.Fatalf("expected both bits set after Or")
	}
}
