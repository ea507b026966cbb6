// Package contenthash keeps a small JSON file of hashes of recently published
// articles so exact re-publications can be caught cheaply.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// DefaultMaxEntries bounds the number of hashes kept on disk.
const DefaultMaxEntries = 100

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Entry is one stored content hash.
type Entry struct {
	Hash      string `json:"hash"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// Store is a JSON-file backed map of content hashes. Reads and writes are not
// locked; concurrent writers may lose an update.
type Store struct {
	path       string
	maxEntries int
	now        func() time.Time
}

// NewStore creates a store backed by the JSON file at path.
func NewStore(path string) *Store {
	return &Store{
		path:       path,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
}

// WithClock overrides the clock used to timestamp entries.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// WithMaxEntries overrides the retention bound.
func (s *Store) WithMaxEntries(n int) *Store {
	if n > 0 {
		s.maxEntries = n
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Normalize lowercases text and collapses whitespace.
func Normalize(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(strings.ToLower(text), " "))
}

// Hash returns the hex SHA-256 of the normalized title and content.
func Hash(title, content string) string {
	sum := sha256.Sum256([]byte(Normalize(title + " " + content)))
	return hex.EncodeToString(sum[:])
}

// Check reports whether an article with the same normalized title and content
// has already been stored.
func (s *Store) Check(title, content string) (Entry, bool, error) {
	entries, err := s.load()
	if err != nil {
		return Entry{}, false, err
	}
	entry, ok := entries[Hash(title, content)]
	return entry, ok, nil
}

// Put records the hash of a saved article and prunes the file to the most
// recent entries.
func (s *Store) Put(title, content string) error {
	entries, err := s.load()
	if err != nil {
		return err
	}

	h := Hash(title, content)
	entries[h] = Entry{
		Hash:      h,
		Title:     title,
		Timestamp: s.now().UnixMilli(),
	}

	return s.save(prune(entries, s.maxEntries))
}

// Len returns the number of stored hashes.
func (s *Store) Len() (int, error) {
	entries, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *Store) load() (map[string]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]Entry), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read content hash file %s: %w", s.path, err)
	}

	entries := make(map[string]Entry)
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse content hash file %s: %w", s.path, err)
	}
	return entries, nil
}

func (s *Store) save(entries map[string]Entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create content hash directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal content hashes: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write content hash file %s: %w", s.path, err)
	}
	return nil
}

// prune keeps the max most recent entries by timestamp.
func prune(entries map[string]Entry, max int) map[string]Entry {
	if len(entries) <= max {
		return entries
	}

	list := make([]Entry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Timestamp == list[j].Timestamp {
			return list[i].Hash < list[j].Hash
		}
		return list[i].Timestamp > list[j].Timestamp
	})

	kept := make(map[string]Entry, max)
	for _, e := range list[:max] {
		kept[e.Hash] = e
	}
	return kept
}
