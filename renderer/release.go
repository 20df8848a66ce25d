package renderer

import (
	"golang.org/x/exp/slog"
)

type releaseEntry struct {
	name    string
	release func()
}

// releaseStack destroys owned objects in the reverse of the order they were
// created.
type releaseStack struct {
	entries []releaseEntry
}

func (s *releaseStack) push(name string, release func()) {
	s.entries = append(s.entries, releaseEntry{name: name, release: release})
}

func (s *releaseStack) len() int {
	return len(s.entries)
}

// releaseAll pops and runs every entry. The stack is empty afterwards.
func (s *releaseStack) releaseAll(logger *slog.Logger) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		logger.Debug("releasing", slog.String("object", entry.name))
		entry.release()
	}
	s.entries = nil
}
