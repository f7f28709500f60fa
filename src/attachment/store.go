package attachment

import (
	"fmt"
	"io"

	cm "github.com/mosaicnetworks/accord/src/common"
	"github.com/mosaicnetworks/accord/src/crypto"
)

// Store is a content-addressed attachment store.
type Store interface {
	// Import stores data and returns its id. It is idempotent.
	Import(data []byte) (string, error)
	// ImportReader reads r to the end and imports the result.
	ImportReader(r io.Reader) (string, error)
	// Open returns the bytes of an attachment, or a KeyNotFound StoreErr.
	Open(id string) ([]byte, error)
	Has(id string) bool
	Count() int
	IDs() []string
	Close() error
}

// ID computes the content address of data.
func ID(data []byte) string {
	return crypto.SHA256Hex(data)
}

// Check returns an error if data does not hash to id.
func Check(id string, data []byte) error {
	if got := ID(data); got != id {
		return fmt.Errorf("attachment %s: content hashes to %s", id, got)
	}
	return nil
}

// IsNotFound reports whether err means an attachment is absent.
func IsNotFound(err error) bool {
	return cm.IsStore(err, cm.KeyNotFound)
}

func importReader(s Store, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return s.Import(data)
}

func notFound(id string) error {
	return cm.NewStoreErr("Attachment", cm.KeyNotFound, id)
}
