package ledger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dgraph-io/badger"
	lru "github.com/hashicorp/golang-lru"
	cm "github.com/mosaicnetworks/accord/src/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	txPrefix       = "tx"
	seqPrefix      = "seq"
	consumedPrefix = "consumed"

	defaultCacheSize = 1000
)

// BadgerStore is a Store backed by a badger database. Decoded transactions are
// kept in an LRU cache.
type BadgerStore struct {
	sync.Mutex
	db     *badger.DB
	path   string
	cache  *lru.Cache
	count  int
	logger *logrus.Entry
}

// NewBadgerStore opens an existing database or creates a new one if nothing is
// found in path.
func NewBadgerStore(path string, cacheSize int, logger *logrus.Entry) (*BadgerStore, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, errors.Wrapf(err, "creating ledger db directory %s", path)
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithLogger(logger.WithField("ns", "badger"))

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening ledger db in %s", path)
	}

	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		db:     handle,
		path:   path,
		cache:  cache,
		logger: logger,
	}

	store.count, err = store.dbCountSeq()
	if err != nil {
		handle.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"path":         path,
		"transactions": store.count,
	}).Debug("Opened ledger")

	return store, nil
}

//==============================================================================
//Keys

func txKey(id string) []byte {
	return []byte(fmt.Sprintf("%s_%s", txPrefix, id))
}

func seqKey(seq int) []byte {
	return []byte(fmt.Sprintf("%s_%09d", seqPrefix, seq))
}

func consumedKey(ref StateRef) []byte {
	return []byte(fmt.Sprintf("%s_%s_%d", consumedPrefix, ref.TxID, ref.Index))
}

//==============================================================================
//Implement the Store interface

// Record implements the Store interface. The whole record is a single badger
// transaction.
func (s *BadgerStore) Record(stx *SignedTransaction) error {
	id, err := stx.ID()
	if err != nil {
		return err
	}

	val, err := stx.Marshal()
	if err != nil {
		return err
	}

	own := new(SignedTransaction)
	if err := own.Unmarshal(val); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	recorded := false

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(txKey(id)); err == nil {
			return nil
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		seen := make(map[StateRef]bool)
		for _, in := range stx.Tx.Inputs {
			if err := s.checkSpendable(txn, id, in, seen); err != nil {
				return err
			}
		}

		for _, in := range stx.Tx.Inputs {
			if err := txn.Set(consumedKey(in), []byte(id)); err != nil {
				return err
			}
		}

		if err := txn.Set(txKey(id), val); err != nil {
			return err
		}
		if err := txn.Set(seqKey(s.count), []byte(id)); err != nil {
			return err
		}

		recorded = true
		return nil
	})
	if err != nil {
		if IsDoubleSpend(err) {
			return err
		}
		return errors.Wrapf(err, "recording transaction %s", id)
	}

	if recorded {
		s.count++
		s.cache.Add(id, own)
	}

	return nil
}

func (s *BadgerStore) checkSpendable(txn *badger.Txn, id string, in StateRef, seen map[StateRef]bool) error {
	if seen[in] {
		return &DoubleSpendError{TxID: id, Ref: in, ConsumedBy: id}
	}
	seen[in] = true

	prev, err := s.txnGetTransaction(txn, in.TxID)
	if err != nil {
		if IsNotFound(err) {
			return &DoubleSpendError{TxID: id, Ref: in}
		}
		return err
	}
	if in.Index < 0 || in.Index >= len(prev.Tx.Outputs) {
		return &DoubleSpendError{TxID: id, Ref: in}
	}

	item, err := txn.Get(consumedKey(in))
	if err == nil {
		by, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return &DoubleSpendError{TxID: id, Ref: in, ConsumedBy: string(by)}
	}
	if err != badger.ErrKeyNotFound {
		return err
	}

	return nil
}

// GetTransaction implements the Store interface. Cached transactions are
// never handed out, only copies of them.
func (s *BadgerStore) GetTransaction(id string) (*SignedTransaction, error) {
	if stx, ok := s.cache.Get(id); ok {
		return stx.(*SignedTransaction).Copy()
	}

	var stx *SignedTransaction
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		stx, err = s.txnGetTransaction(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.Add(id, stx)
	return stx.Copy()
}

// Transactions implements the Store interface.
func (s *BadgerStore) Transactions() ([]*SignedTransaction, error) {
	ids, err := s.dbSeqIDs()
	if err != nil {
		return nil, err
	}

	res := make([]*SignedTransaction, 0, len(ids))
	for _, id := range ids {
		stx, err := s.GetTransaction(id)
		if err != nil {
			return nil, err
		}
		res = append(res, stx)
	}
	return res, nil
}

// Query implements the Store interface.
func (s *BadgerStore) Query(t StateType) ([]StateAndRef, error) {
	ids, err := s.dbSeqIDs()
	if err != nil {
		return nil, err
	}

	consumed, err := s.dbConsumed()
	if err != nil {
		return nil, err
	}

	isConsumed := func(ref StateRef) bool {
		return consumed[ref]
	}

	res := []StateAndRef{}
	for _, id := range ids {
		stx, err := s.GetTransaction(id)
		if err != nil {
			return nil, err
		}
		res = append(res, unconsumedOf(id, stx, t, isConsumed)...)
	}
	return res, nil
}

// Count implements the Store interface.
func (s *BadgerStore) Count() int {
	s.Lock()
	defer s.Unlock()
	return s.count
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

//==============================================================================
//DB Methods

func (s *BadgerStore) txnGetTransaction(txn *badger.Txn, id string) (*SignedTransaction, error) {
	item, err := txn.Get(txKey(id))
	if err != nil {
		return nil, mapError(err, "Transaction", id)
	}

	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}

	stx := new(SignedTransaction)
	if err := stx.Unmarshal(val); err != nil {
		return nil, errors.Wrap(cm.NewStoreErr("Transaction", cm.Corrupted, id), err.Error())
	}
	return stx, nil
}

func (s *BadgerStore) dbSeqIDs() ([]string, error) {
	ids := []string{}
	prefix := []byte(seqPrefix + "_")

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			ids = append(ids, string(v))
		}
		return nil
	})

	return ids, err
}

func (s *BadgerStore) dbCountSeq() (int, error) {
	count := 0
	prefix := []byte(seqPrefix + "_")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}

func (s *BadgerStore) dbConsumed() (map[StateRef]bool, error) {
	res := make(map[StateRef]bool)
	prefix := []byte(consumedPrefix + "_")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ref, err := parseConsumedKey(string(it.Item().KeyCopy(nil)))
			if err != nil {
				return err
			}
			res[ref] = true
		}
		return nil
	})

	return res, err
}

func parseConsumedKey(key string) (StateRef, error) {
	rest := strings.TrimPrefix(key, consumedPrefix+"_")
	sep := strings.LastIndex(rest, "_")
	if sep < 0 {
		return StateRef{}, fmt.Errorf("malformed key %q", key)
	}

	var index int
	if _, err := fmt.Sscanf(rest[sep+1:], "%d", &index); err != nil {
		return StateRef{}, fmt.Errorf("malformed key %q: %v", key, err)
	}

	return StateRef{TxID: rest[:sep], Index: index}, nil
}

func mapError(err error, name, key string) error {
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return cm.NewStoreErr(name, cm.KeyNotFound, key)
		}
	}
	return err
}
