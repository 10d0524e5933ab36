// Package stats holds the per-analysis aggregate table for one run.
//
// A Store is created empty, mutated while events arrive, snapshotted at end of
// run and then sealed. Counts never decrease and keys are never deleted.
package stats

import (
	"errors"
	"hash/maphash"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"hookstat/src/contracts"
)

// ErrStoreSealed is the panic value raised when a sealed store is mutated.
var ErrStoreSealed = errors.New("stat store is sealed")

const shardCount = 32

type shard struct {
	mu      sync.Mutex
	records map[contracts.Key]*contracts.Record
}

// Store is a concurrent map from Key to Record, striped over a fixed set of locks.
type Store struct {
	seed   maphash.Seed
	shards [shardCount]shard
	sealed atomic.Bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{seed: maphash.MakeSeed()}
	for i := range s.shards {
		s.shards[i].records = make(map[contracts.Key]*contracts.Record)
	}
	return s
}

func (s *Store) shardFor(key contracts.Key) *shard {
	return &s.shards[maphash.Comparable(s.seed, key)%shardCount]
}

func (s *Store) checkWritable() {
	if s.sealed.Load() {
		panic(ErrStoreSealed)
	}
}

// Increment adds one to the count of key, creating it with count 1 if absent.
// It returns the new count.
func (s *Store) Increment(key contracts.Key) int64 {
	return s.IncrementBy(key, 1)
}

// IncrementBy adds n to the count of key. Counts saturate at math.MaxInt64.
// A negative n panics.
func (s *Store) IncrementBy(key contracts.Key, n int64) int64 {
	if n < 0 {
		panic("stats: negative increment")
	}
	s.checkWritable()

	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if !ok {
		rec = &contracts.Record{Key: key}
		sh.records[key] = rec
	}
	if rec.Count > math.MaxInt64-n {
		rec.Count = math.MaxInt64
	} else {
		rec.Count += n
	}
	return rec.Count
}

// SetAux stores an auxiliary payload for key, creating the record with count 0 if absent.
func (s *Store) SetAux(key contracts.Key, payload []byte) {
	s.checkWritable()

	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if !ok {
		rec = &contracts.Record{Key: key}
		sh.records[key] = rec
	}
	rec.Aux = slices.Clone(payload)
}

// Get returns the record for key. The bool is false when the key was never touched,
// which is different from a record with count 0.
func (s *Store) Get(key contracts.Key) (contracts.Record, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if !ok {
		return contracts.Record{}, false
	}
	return copyRecord(rec), true
}

// Len returns the number of keys.
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.records)
		sh.mu.Unlock()
	}
	return n
}

// Snapshot returns a copy of every record ordered by key. The store is unchanged.
func (s *Store) Snapshot() []contracts.Record {
	out := make([]contracts.Record, 0, s.Len())
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for _, rec := range sh.records {
			out = append(out, copyRecord(rec))
		}
		sh.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b contracts.Record) int {
		return a.Key.Compare(b.Key)
	})
	return out
}

// Seal makes the store read-only. Later mutations panic with ErrStoreSealed.
func (s *Store) Seal() {
	s.sealed.Store(true)
}

// Sealed reports whether Seal was called.
func (s *Store) Sealed() bool {
	return s.sealed.Load()
}

func copyRecord(rec *contracts.Record) contracts.Record {
	return contracts.Record{Key: rec.Key, Count: rec.Count, Aux: slices.Clone(rec.Aux)}
}
