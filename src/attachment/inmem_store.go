package attachment

import (
	"io"
	"sort"
	"sync"
)

// InmemStore keeps attachments in a map.
type InmemStore struct {
	sync.RWMutex
	blobs map[string][]byte
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		blobs: make(map[string][]byte),
	}
}

// Import implements the Store interface.
func (s *InmemStore) Import(data []byte) (string, error) {
	id := ID(data)

	s.Lock()
	defer s.Unlock()

	if _, ok := s.blobs[id]; !ok {
		s.blobs[id] = append([]byte(nil), data...)
	}

	return id, nil
}

// ImportReader implements the Store interface.
func (s *InmemStore) ImportReader(r io.Reader) (string, error) {
	return importReader(s, r)
}

// Open implements the Store interface.
func (s *InmemStore) Open(id string) ([]byte, error) {
	s.RLock()
	defer s.RUnlock()

	data, ok := s.blobs[id]
	if !ok {
		return nil, notFound(id)
	}
	return append([]byte(nil), data...), nil
}

// Has implements the Store interface.
func (s *InmemStore) Has(id string) bool {
	s.RLock()
	defer s.RUnlock()
	_, ok := s.blobs[id]
	return ok
}

// Count implements the Store interface.
func (s *InmemStore) Count() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.blobs)
}

// IDs implements the Store interface. Ids are sorted.
func (s *InmemStore) IDs() []string {
	s.RLock()
	defer s.RUnlock()

	res := make([]string, 0, len(s.blobs))
	for id := range s.blobs {
		res = append(res, id)
	}
	sort.Strings(res)
	return res
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}
