package index

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("taskslabel.index")

// Loader returns the documents an index is built from, in scan order.
// Documents that cannot be read are left out rather than reported.
type Loader func(ctx context.Context) ([]Document, error)

// Service owns the published index of one scope. Rebuild replaces the
// published snapshot in a single step, so readers see either the old or the
// new index, never a partial one.
type Service struct {
	name string
	load Loader

	current   atomic.Pointer[Index]
	tickets   atomic.Uint64
	published uint64
	publishMu sync.Mutex

	subMu  sync.Mutex
	subs   map[int]func(*Index)
	nextID int
}

// NewService returns a service that publishes an empty index until the
// first Rebuild.
func NewService(name string, load Loader) *Service {
	s := &Service{
		name: name,
		load: load,
		subs: make(map[int]func(*Index)),
	}
	s.current.Store(Empty())
	return s
}

// Current returns the last published index.
func (s *Service) Current() *Index {
	return s.current.Load()
}

// Rebuild loads the documents, builds a fresh index and publishes it, then
// notifies subscribers. When rebuilds overlap, a rebuild that started
// earlier never replaces the result of one that started later.
func (s *Service) Rebuild(ctx context.Context) (*Index, error) {
	ticket := s.tickets.Add(1)

	docs, err := s.load(ctx)
	if err != nil {
		return s.Current(), fmt.Errorf("loading %s documents: %w", s.name, err)
	}
	ix := Build(docs)

	s.publishMu.Lock()
	if ticket < s.published {
		s.publishMu.Unlock()
		log.Debugf("%s: discarding stale rebuild %d", s.name, ticket)
		return s.Current(), nil
	}
	s.published = ticket
	s.current.Store(ix)
	s.publishMu.Unlock()

	log.Debugf("%s: indexed %d labels from %d documents", s.name, ix.Len(), len(docs))
	s.notify(ix)
	return ix, nil
}

// Subscribe registers fn to run after every published rebuild. The returned
// function removes the subscription.
func (s *Service) Subscribe(fn func(*Index)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Service) notify(ix *Index) {
	s.subMu.Lock()
	fns := make([]func(*Index), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ix)
	}
}
