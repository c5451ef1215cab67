package institution

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrUnknownCorpus is returned when a corpus id is not loaded.
var ErrUnknownCorpus = errors.New("unknown corpus")

// Registry holds all loaded corpora and serves resolution queries.
type Registry struct {
	mu      sync.RWMutex
	corpora map[string]*Corpus
	dir     string
}

// NewRegistry creates a new empty registry for the given directory.
func NewRegistry(dir string) *Registry {
	return &Registry{
		corpora: make(map[string]*Corpus),
		dir:     dir,
	}
}

// Load scans the corpora directory and loads every corpus. The loaded set
// replaces the previous one only when every corpus loads.
func (r *Registry) Load() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read corpora dir %s: %w", r.dir, err)
	}

	next := make(map[string]*Corpus)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(r.dir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "manifest.yaml")); err != nil {
			continue
		}
		c, err := LoadCorpus(dir)
		if err != nil {
			return fmt.Errorf("load corpus %s: %w", entry.Name(), err)
		}
		next[c.ID()] = c
	}

	r.mu.Lock()
	r.corpora = next
	r.mu.Unlock()
	return nil
}

// Reload reloads all corpora from disk (hot reload).
func (r *Registry) Reload() error {
	return r.Load()
}

// Put registers c under its manifest id, replacing any corpus with that id.
func (r *Registry) Put(c *Corpus) {
	r.mu.Lock()
	r.corpora[c.ID()] = c
	r.mu.Unlock()
}

// Corpus returns the corpus with the given id.
func (r *Registry) Corpus(id string) (*Corpus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.corpora[id]
	return c, ok
}

// Resolve runs the cascade against the named corpus. A nil match with a nil
// error means nothing matched.
func (r *Registry) Resolve(corpusID, query string) (*Match, error) {
	c, ok := r.Corpus(corpusID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCorpus, corpusID)
	}
	return c.Resolve(query), nil
}

// CorpusInfo is the public metadata for a loaded corpus.
type CorpusInfo struct {
	ID        string `json:"id"`
	Version   string `json:"version"`
	Source    string `json:"source"`
	SourceURL string `json:"source_url,omitempty"`
	License   string `json:"license"`
	Entities  int    `json:"entities"`
}

// ListCorpora returns metadata for all loaded corpora, sorted by ID.
func (r *Registry) ListCorpora() []CorpusInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]CorpusInfo, 0, len(r.corpora))
	for id, c := range r.corpora {
		info := CorpusInfo{ID: id, Entities: c.Len()}
		if m := c.Manifest; m != nil {
			info.Version = m.Version
			info.Source = m.Source
			info.SourceURL = m.SourceURL
			info.License = m.License
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// CorpusCount returns the number of loaded corpora.
func (r *Registry) CorpusCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.corpora)
}

// TotalEntities returns the total number of entities across all corpora.
func (r *Registry) TotalEntities() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, c := range r.corpora {
		total += c.Len()
	}
	return total
}
