package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/golang-jwt/jwt/v5"

	"github.com/byteowlz/oqto-mux/internal/logger"
)

// StaticSource is a fixed bearer token.
type StaticSource string

func (s StaticSource) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("no token configured")
	}
	return string(s), nil
}

// FileSource reads the bearer token from a file and re-reads it when the
// file changes, so rotated tokens pick up without restarting. Rotation
// tools usually replace the file, so the watch covers the parent
// directory.
type FileSource struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}

	mu    sync.RWMutex
	token string
}

func NewFileSource(path string) (*FileSource, error) {
	s := &FileSource{path: path, done: make(chan struct{})}
	if err := s.reload(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("token watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	s.watcher = w
	go s.watch()
	return s, nil
}

func (s *FileSource) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", fmt.Errorf("token file %s yielded no token", s.path)
	}
	return s.token, nil
}

// Close stops watching. The last loaded token stays readable.
func (s *FileSource) Close() error {
	close(s.done)
	return s.watcher.Close()
}

func (s *FileSource) watch() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.reload(); err != nil {
				logger.Warn("token reload failed", "path", s.path, "err", err)
				continue
			}
			logger.Info("token reloaded", "path", s.path)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("token watcher error", "err", err)
		case <-s.done:
			return
		}
	}
}

func (s *FileSource) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return fmt.Errorf("token file %s is empty", s.path)
	}
	warnIfExpiring(tok)

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
	return nil
}

// TokenExpiry extracts the expiry from a JWT without verifying the
// signature. ok is false for opaque tokens and JWTs without an exp claim.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func warnIfExpiring(token string) {
	exp, ok := TokenExpiry(token)
	if !ok {
		return
	}
	switch until := time.Until(exp); {
	case until <= 0:
		logger.Warn("bearer token is expired", "expired_at", exp)
	case until < time.Hour:
		logger.Warn("bearer token expires soon", "expires_in", until.Round(time.Second))
	}
}
