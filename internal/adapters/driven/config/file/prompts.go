package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
	"github.com/custodia-labs/chatbot/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

const promptExt = ".txt"

// builtinPrompts seeds missing prompt files and answers when the
// directory is unusable.
var builtinPrompts = map[string]string{
	driven.PromptChatSystem: `You are a helpful assistant running inside a developer's terminal.
Answer clearly and concisely. Use Markdown for code and lists.`,
}

// PromptStore serves prompt templates from <dir>/<name>.txt. Files are
// read once and cached until Reload or a change seen by Watch. Nothing
// touches the disk until the first Load.
type PromptStore struct {
	dir     string
	prepare func() error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore returns a store rooted at dir, or ~/.chatbot/prompts
// when dir is empty.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".chatbot", "prompts")
	}
	s := &PromptStore{dir: dir, cache: map[string]string{}}
	s.prepare = sync.OnceValue(s.seed)
	return s, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string { return s.dir }

// Load returns the named template, falling back to the built-in one when
// the file cannot be read.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, hasBuiltin := builtinPrompts[name]
	if err := s.prepare(); err != nil {
		if hasBuiltin {
			return builtin, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", err)
	}

	s.mu.RLock()
	text, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return text, nil
	}

	data, err := os.ReadFile(s.path(name))
	switch {
	case err == nil:
		text = strings.TrimSpace(string(data))
	case hasBuiltin:
		logger.Debug("prompts: %s unreadable, using built-in: %v", name, err)
		return builtin, nil
	default:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = text
	return text, nil
}

// Reload drops every cached template.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

// Watch calls Reload whenever a prompt file changes and blocks until ctx
// is done. ready, if non-nil, is closed once the watch is in place.
func (s *PromptStore) Watch(ctx context.Context, ready chan<- struct{}) error {
	if err := s.prepare(); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}
	logger.Debug("prompts: watching %s", s.dir)
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) || filepath.Ext(ev.Name) != promptExt {
				continue
			}
			logger.Debug("prompts: %s %s, reloading", ev.Op, filepath.Base(ev.Name))
			s.Reload()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("prompts: watcher error: %v", err)
		}
	}
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+promptExt)
}

// seed creates the directory and writes any built-in prompt that has no
// file yet. User edits are never overwritten.
func (s *PromptStore) seed() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	for name, text := range builtinPrompts {
		f, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create default prompt %q: %w", name, err)
		}
		_, werr := f.WriteString(text + "\n")
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return fmt.Errorf("write default prompt %q: %w", name, werr)
		}
	}
	return nil
}
