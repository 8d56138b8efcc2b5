package storage

import (
	"sync"

	"github.com/eikewelk/econdata/internal/junction"
	"github.com/eikewelk/econdata/internal/models"
)

// EditorStore keeps one junction editor per listing.
type EditorStore struct {
	editors map[models.ID]*junction.Editor
	mu      sync.RWMutex
}

func New() *EditorStore {
	return &EditorStore{
		editors: make(map[models.ID]*junction.Editor),
	}
}

func (s *EditorStore) Get(listingID models.ID) (*junction.Editor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	editor, exists := s.editors[listingID]
	return editor, exists
}

// GetOrCreate returns the editor for listingID, creating it with create if
// there is none. created reports whether create was called.
func (s *EditorStore) GetOrCreate(listingID models.ID, create func() *junction.Editor) (editor *junction.Editor, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if editor, exists := s.editors[listingID]; exists {
		return editor, false
	}
	editor = create()
	s.editors[listingID] = editor
	return editor, true
}

func (s *EditorStore) Delete(listingID models.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.editors, listingID)
}

// Clear drops all editors, e.g. after the product catalog changed.
func (s *EditorStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editors = make(map[models.ID]*junction.Editor)
}

func (s *EditorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.editors)
}
