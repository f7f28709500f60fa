package attachment

import (
	"bytes"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/mosaicnetworks/accord/src/common"
)

func storeImplementations() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"inmem": func(t *testing.T) Store { return NewInmemStore() },
		"badger": func(t *testing.T) Store {
			s, err := NewBadgerStore(filepath.Join(t.TempDir(), "attachments"), 2, common.NewTestEntry(t, common.TestLogLevel))
			if err != nil {
				t.Fatal(err)
			}
			return s
		},
	}
}

func TestImportIsIdempotent(t *testing.T) {
	for name, newStore := range storeImplementations() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			blob := []byte("blacklist jar")

			id1, err := store.Import(blob)
			if err != nil {
				t.Fatal(err)
			}
			id2, err := store.ImportReader(bytes.NewReader(blob))
			if err != nil {
				t.Fatal(err)
			}

			if id1 != id2 || id1 != ID(blob) {
				t.Fatalf("ids differ: %s %s", id1, id2)
			}
			if store.Count() != 1 {
				t.Fatalf("re-importing should not duplicate storage, count %d", store.Count())
			}

			data, err := store.Open(id1)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(data, blob) {
				t.Fatalf("got %q, want %q", data, blob)
			}

			// the returned slice is a copy
			data[0] = 'X'
			again, _ := store.Open(id1)
			if !bytes.Equal(again, blob) {
				t.Fatalf("store content was modified through Open")
			}
		})
	}
}

func TestOpenMissing(t *testing.T) {
	for name, newStore := range storeImplementations() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			id := ID([]byte("never imported"))

			if store.Has(id) {
				t.Fatalf("store should not have %s", id)
			}
			if _, err := store.Open(id); !IsNotFound(err) {
				t.Fatalf("expected NotFound, got %v", err)
			}
		})
	}
}

func TestIDs(t *testing.T) {
	for name, newStore := range storeImplementations() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			want := []string{}
			for _, b := range []string{"one", "two", "three"} {
				id, err := store.Import([]byte(b))
				if err != nil {
					t.Fatal(err)
				}
				want = append(want, id)
				if !store.Has(id) {
					t.Fatalf("store should have %s", id)
				}
			}
			sort.Strings(want)

			if got := store.IDs(); !reflect.DeepEqual(got, want) {
				t.Fatalf("got %v, want %v", got, want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	data := []byte("payload")
	if err := Check(ID(data), data); err != nil {
		t.Fatal(err)
	}
	if err := Check(ID(data), []byte("tampered")); err == nil {
		t.Fatalf("tampered bytes should fail the check")
	}
}

func TestBadgerStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attachments")
	logger := common.NewTestEntry(t, common.TestLogLevel)

	store, err := NewBadgerStore(path, 2, logger)
	if err != nil {
		t.Fatal(err)
	}
	id, err := store.Import([]byte("persisted"))
	if err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = NewBadgerStore(path, 2, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	data, err := store.Open(id)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "persisted" {
		t.Fatalf("got %q", data)
	}
}

func TestBadgerStoreNestedPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node0", "data", "attachments")

	store, err := NewBadgerStore(path, 2, common.NewTestEntry(t, common.TestLogLevel))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	id, err := store.Import([]byte("nested"))
	if err != nil {
		t.Fatal(err)
	}
	if !store.Has(id) {
		t.Fatalf("imported attachment %s not found", id)
	}
}
