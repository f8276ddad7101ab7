package store

import (
	"context"
	"sync"

	"github.com/akolanti/DocWatch/internal/domain/jobModel"
)

type boardEntry struct {
	update   jobModel.ProgressUpdate
	terminal *jobModel.TerminalNotification
}

type InMemoryProgressBoard struct {
	entries map[string]*boardEntry
	mu      sync.RWMutex
}

func NewInMemoryProgressBoard() *InMemoryProgressBoard {
	return &InMemoryProgressBoard{
		entries: make(map[string]*boardEntry),
	}
}

func (m *InMemoryProgressBoard) SaveUpdate(_ context.Context, update jobModel.ProgressUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[update.DocumentId]
	if !ok {
		entry = &boardEntry{}
		m.entries[update.DocumentId] = entry
	}
	entry.update = update
	return nil
}

func (m *InMemoryProgressBoard) SaveTerminal(_ context.Context, note jobModel.TerminalNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[note.DocumentId]
	if !ok {
		entry = &boardEntry{}
		m.entries[note.DocumentId] = entry
	}
	n := note
	entry.terminal = &n
	return nil
}

func (m *InMemoryProgressBoard) GetProgress(_ context.Context, documentId string) (jobModel.ProgressUpdate, *jobModel.TerminalNotification, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[documentId]
	if !ok {
		return jobModel.ProgressUpdate{}, nil, false
	}
	return entry.update, entry.terminal, true
}

func (m *InMemoryProgressBoard) DeleteProgress(_ context.Context, documentId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, documentId)
}
