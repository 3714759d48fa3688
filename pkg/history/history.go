// Package history persists the client's conversation between chat sessions.
//
// The store is a narrow load/save capability injected into the chat client
// so the client's transformation logic has no dependency on storage
// mechanics. The file implementation keeps a single history.json in the
// .parley/ directory.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/pkg/dotdir"
	"github.com/parleyhq/parley/pkg/llm"
)

const historyFile = "history.json"

// Conversation is the persisted client-side chat state.
type Conversation struct {
	// ID identifies the conversation across sessions.
	ID string `json:"id"`

	// Model last used for this conversation, if any.
	Model string `json:"model,omitempty"`

	// Messages in chronological order (oldest first).
	Messages []llm.Message `json:"messages"`
}

// NewConversation creates an empty conversation with a fresh ID.
func NewConversation() *Conversation {
	return &Conversation{ID: uuid.NewString()}
}

// Store is the persistence capability injected into the chat client.
type Store interface {
	// Load returns the saved conversation, or nil when none exists.
	Load() (*Conversation, error)

	// Save persists the conversation, replacing any previous state.
	Save(conv *Conversation) error

	// Clear removes the saved conversation.
	Clear() error
}

// FileStore persists the conversation as JSON in the .parley/ directory.
type FileStore struct {
	ddm         *dotdir.Manager
	overrideDir string
}

// NewFileStore creates a FileStore. If overrideDir is non-empty it is used
// instead of the default .parley/ location.
func NewFileStore(overrideDir string) *FileStore {
	return &FileStore{
		ddm:         dotdir.NewManager(),
		overrideDir: overrideDir,
	}
}

func (s *FileStore) path() (string, error) {
	dir, err := s.ddm.Target(s.overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, historyFile), nil
}

// Load reads the saved conversation. Returns nil, nil when no history
// exists yet.
func (s *FileStore) Load() (*Conversation, error) {
	path, err := s.path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history: %w", err)
	}

	conv := &Conversation{}
	if err := json.Unmarshal(data, conv); err != nil {
		return nil, fmt.Errorf("parsing history: %w", err)
	}

	return conv, nil
}

// Save persists the conversation to history.json.
func (s *FileStore) Save(conv *Conversation) error {
	if conv == nil {
		return errors.New("cannot save nil conversation")
	}

	path, err := s.path()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}

	return nil
}

// Clear removes the history file. Returns nil if it doesn't exist.
func (s *FileStore) Clear() error {
	path, err := s.path()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing history: %w", err)
	}

	return nil
}
