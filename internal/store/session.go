package store

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/2lenet/sulu/internal/model"
	"github.com/2lenet/sulu/internal/paths"
)

// Session is a read view over the store with its own node cache.
//
// Nodes handed out by a session are shared with its cache and must be
// treated as read-only. Sessions are safe for concurrent use; concurrent
// preloads of overlapping paths only race to fill the same cache entries.
type Session struct {
	store *Store
	cache *lru.Cache[string, *model.Node]

	mu       sync.Mutex
	stats    SessionStats
	capacity int
}

// SessionStats counts cache behaviour and store round trips of a session.
type SessionStats struct {
	Hits       int `json:"hits"`
	Misses     int `json:"misses"`
	RoundTrips int `json:"round_trips"`
}

// NewSession creates a session with an empty node cache.
func (s *Store) NewSession() (*Session, error) {
	cache, err := lru.New[string, *model.Node](s.opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create node cache: %w", err)
	}
	return &Session{store: s, cache: cache, capacity: s.opts.CacheSize}, nil
}

// ContentPath returns the content root path of a webspace.
func (s *Session) ContentPath(webspaceKey string) string {
	return s.store.ContentPath(webspaceKey)
}

// QueryManager returns the query manager of the session's workspace.
func (s *Session) QueryManager() QueryManager {
	return &sqlQueryManager{session: s}
}

// GetNodes fetches the nodes at the given paths, serving cached nodes from
// the cache and loading all others with a single store round trip.
// Paths without a node are absent from the returned map.
func (s *Session) GetNodes(nodePaths []string) (map[string]*model.Node, error) {
	found := make(map[string]*model.Node, len(nodePaths))
	seen := make(map[string]bool, len(nodePaths))
	var missing []string

	hits := 0
	for _, p := range nodePaths {
		p = paths.Normalize(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		if node, ok := s.cache.Get(p); ok {
			found[p] = node
			hits++
			continue
		}
		missing = append(missing, p)
	}

	s.record(hits, len(missing), 0)
	if len(missing) == 0 {
		return found, nil
	}

	nodes, err := s.store.fetchByPaths(missing)
	s.record(0, 0, 1)
	if err != nil {
		return nil, err
	}
	s.reserve(len(nodes))
	for _, node := range nodes {
		s.cache.Add(node.Path, node)
		found[node.Path] = node
	}
	return found, nil
}

// reserve grows the cache so that n more nodes fit without evicting any.
// A preloaded batch has to survive until the nodes are read back.
func (s *Session) reserve(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if need := s.cache.Len() + n; need > s.capacity {
		s.cache.Resize(need)
		s.capacity = need
	}
}

// GetNode returns the node at p, from the cache when possible.
func (s *Session) GetNode(p string) (*model.Node, error) {
	p = paths.Normalize(p)
	if node, ok := s.cache.Get(p); ok {
		s.record(1, 0, 0)
		return node, nil
	}

	s.record(0, 1, 1)
	nodes, err := s.store.fetchByPaths([]string{p})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, p)
	}
	s.cache.Add(p, nodes[0])
	return nodes[0], nil
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Session) record(hits, misses, roundTrips int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Hits += hits
	s.stats.Misses += misses
	s.stats.RoundTrips += roundTrips
}
