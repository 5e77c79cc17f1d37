package cache

import (
	"sync"

	"github.com/okian/affinity/internal/domain/model"
)

// node is a single entry of the insertion list, head is the newest.
type node struct {
	key  string
	next *node
}

func (n *node) reset() {
	n.key = ""
	n.next = nil
}

type entry struct {
	pair model.ScorePair
	node *node // nil in unbounded mode
}

// localStore is the in-process tier. In bounded mode (maxSize > 0) it keeps
// an insertion list and evicts the oldest entry; otherwise it is a plain map.
// Callers hold mu.
type localStore struct {
	entries  map[string]entry
	head     *node
	maxSize  int
	nodePool sync.Pool
}

func newLocalStore() *localStore {
	return &localStore{
		entries: make(map[string]entry),
		nodePool: sync.Pool{
			New: func() interface{} {
				return &node{}
			},
		},
	}
}

func (s *localStore) get(key string) (model.ScorePair, bool) {
	e, ok := s.entries[key]
	return e.pair, ok
}

func (s *localStore) put(key string, pair model.ScorePair) {
	if e, exists := s.entries[key]; exists {
		e.pair = pair
		s.entries[key] = e
		return
	}

	if s.maxSize <= 0 {
		s.entries[key] = entry{pair: pair}
		return
	}

	if len(s.entries) >= s.maxSize {
		s.evictOldest()
	}
	n := s.nodePool.Get().(*node)
	n.key = key
	n.next = s.head
	s.head = n
	s.entries[key] = entry{pair: pair, node: n}
}

func (s *localStore) remove(key string) {
	e, exists := s.entries[key]
	if !exists {
		return
	}
	delete(s.entries, key)
	if e.node == nil {
		return
	}

	if s.head == e.node {
		s.head = e.node.next
	} else {
		current := s.head
		for current != nil && current.next != e.node {
			current = current.next
		}
		if current != nil {
			current.next = e.node.next
		}
	}
	e.node.reset()
	s.nodePool.Put(e.node)
}

// evictOldest drops the tail of the insertion list.
func (s *localStore) evictOldest() {
	if s.head == nil {
		return
	}
	var prev *node
	current := s.head
	for current.next != nil {
		prev = current
		current = current.next
	}
	if prev == nil {
		s.head = nil
	} else {
		prev.next = nil
	}
	delete(s.entries, current.key)
	current.reset()
	s.nodePool.Put(current)
}

func (s *localStore) clear() {
	s.entries = make(map[string]entry)
	s.head = nil
}

func (s *localStore) size() int {
	return len(s.entries)
}
