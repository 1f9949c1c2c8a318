// Package seenset maintains the append-only set of registrable domains that
// have already produced a lead. The on-disk format is one lower-cased domain
// per line; the file is only ever appended to, never rewritten.
package seenset

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
)

// Set is the dedup authority for the filter gate. Membership is monotonic:
// once a domain is added it stays.
type Set struct {
	mu      sync.Mutex
	path    string
	domains map[string]struct{}
	file    *os.File
}

// Open loads the set from path, creating the file (and parent directory)
// when absent. The file handle stays open in append mode for the life of
// the set.
func Open(path string) (*Set, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "seenset: mkdir")
		}
	}

	s := &Set{path: path, domains: make(map[string]struct{})}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, eris.Wrap(err, "seenset: open")
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		d := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if d != "" {
			s.domains[d] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		f.Close()
		return nil, eris.Wrap(err, "seenset: scan")
	}
	f.Close()

	s.file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, eris.Wrap(err, "seenset: open append")
	}
	return s, nil
}

// Contains reports membership of a registrable domain.
func (s *Set) Contains(domain string) bool {
	d := strings.ToLower(strings.TrimSpace(domain))
	if d == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.domains[d]
	return ok
}

// Add inserts a domain into the set and appends it to the durable store.
// Adding an already-present or empty domain is a no-op. The check-then-insert
// is atomic under the set's lock, so concurrent callers cannot both observe
// a domain as new.
func (s *Set) Add(domain string) (added bool, err error) {
	d := strings.ToLower(strings.TrimSpace(domain))
	if d == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.domains[d]; ok {
		return false, nil
	}
	if _, err := s.file.WriteString(d + "\n"); err != nil {
		return false, eris.Wrap(err, "seenset: append")
	}
	s.domains[d] = struct{}{}
	return true, nil
}

// Len returns the number of domains in the set.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.domains)
}

// Domains returns a snapshot of the set's members, unordered.
func (s *Set) Domains() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.domains))
	for d := range s.domains {
		out = append(out, d)
	}
	return out
}

// Close flushes the append file to durable storage and releases it.
func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		s.file.Close()
		s.file = nil
		return eris.Wrap(err, "seenset: sync")
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return eris.Wrap(err, "seenset: close")
	}
	return nil
}
