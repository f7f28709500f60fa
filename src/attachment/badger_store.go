package attachment

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgraph-io/badger"
	lru "github.com/hashicorp/golang-lru"
	cm "github.com/mosaicnetworks/accord/src/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	attachmentPrefix = "attachment"

	defaultCacheSize = 100
)

// BadgerStore persists attachments in a badger database. Recently opened
// attachments are cached.
type BadgerStore struct {
	db     *badger.DB
	path   string
	cache  *lru.Cache
	logger *logrus.Entry
}

// NewBadgerStore opens an existing database or creates a new one if nothing is
// found in path.
func NewBadgerStore(path string, cacheSize int, logger *logrus.Entry) (*BadgerStore, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, errors.Wrapf(err, "creating attachment db directory %s", path)
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithLogger(logger.WithField("ns", "badger"))

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening attachment db in %s", path)
	}

	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:     handle,
		path:   path,
		cache:  cache,
		logger: logger,
	}, nil
}

func attachmentKey(id string) []byte {
	return []byte(fmt.Sprintf("%s_%s", attachmentPrefix, id))
}

// Import implements the Store interface.
func (s *BadgerStore) Import(data []byte) (string, error) {
	id := ID(data)

	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(attachmentKey(id))
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(attachmentKey(id), data)
	})
	if err != nil {
		return "", errors.Wrapf(err, "importing attachment %s", id)
	}

	s.logger.WithFields(logrus.Fields{
		"id":   id,
		"size": len(data),
	}).Debug("Imported attachment")

	return id, nil
}

// ImportReader implements the Store interface.
func (s *BadgerStore) ImportReader(r io.Reader) (string, error) {
	return importReader(s, r)
}

// Open implements the Store interface.
func (s *BadgerStore) Open(id string) ([]byte, error) {
	if data, ok := s.cache.Get(id); ok {
		return append([]byte(nil), data.([]byte)...), nil
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(attachmentKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, notFound(id)
		}
		return nil, errors.Wrapf(err, "opening attachment %s", id)
	}

	if err := Check(id, data); err != nil {
		return nil, errors.Wrap(cm.NewStoreErr("Attachment", cm.Corrupted, id), err.Error())
	}

	s.cache.Add(id, data)

	return append([]byte(nil), data...), nil
}

// Has implements the Store interface.
func (s *BadgerStore) Has(id string) bool {
	if s.cache.Contains(id) {
		return true
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(attachmentKey(id))
		return err
	})
	return err == nil
}

// Count implements the Store interface.
func (s *BadgerStore) Count() int {
	return len(s.IDs())
}

// IDs implements the Store interface. Ids are sorted.
func (s *BadgerStore) IDs() []string {
	ids := []string{}
	prefix := []byte(attachmentPrefix + "_")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().KeyCopy(nil))
			ids = append(ids, strings.TrimPrefix(key, string(prefix)))
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Error("Listing attachments")
	}

	return ids
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
