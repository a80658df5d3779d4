package storage

import (
	"errors"
	"testing"
)

func TestMemDBRoundTrip(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	if err := db.Put([]byte("alpha"), []byte("one")); err != nil {
		t.Fatalf("put: %v", err)
	}
	value, err := db.Get([]byte("alpha"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(value) != "one" {
		t.Fatalf("unexpected value %q", value)
	}
	ok, err := db.Has([]byte("alpha"))
	if err != nil || !ok {
		t.Fatalf("has: ok=%v err=%v", ok, err)
	}
	if err := db.Delete([]byte("alpha")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get([]byte("alpha")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	key := []byte("key")
	value := []byte("value")
	if err := db.Put(key, value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'x'

	stored, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(stored) != "value" {
		t.Fatalf("stored value mutated: %q", stored)
	}
	stored[0] = 'y'
	again, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(again) != "value" {
		t.Fatalf("returned slice aliased storage: %q", again)
	}
}
