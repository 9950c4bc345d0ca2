package credstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Mirror is a remote copy of the credential file.
type Mirror interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
}

// FileStore keeps the credential record in a local INI file. Reads and
// writes never fail the caller: problems are logged and treated as a
// missing record.
type FileStore struct {
	path   string
	mirror Mirror
	logger *slog.Logger
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// WithMirror copies every save to m and reads from m when the local file
// is missing.
func (s *FileStore) WithMirror(m Mirror) *FileStore {
	s.mirror = m
	return s
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (Record, bool) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) && s.mirror != nil {
		data, err = s.mirror.Load(ctx, s.name())
		if err == nil {
			s.logger.Info("credential cache restored from mirror", "path", s.path)
		}
	}
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("credential cache unreadable", "path", s.path, "error", err)
		}
		return Record{}, false
	}

	record, err := Decode(data)
	if err != nil {
		s.logger.Warn("credential cache ignored", "path", s.path, "error", err)
		return Record{}, false
	}

	return record, true
}

func (s *FileStore) Save(ctx context.Context, record Record) {
	if err := s.save(ctx, record); err != nil {
		s.logger.Error("failed to save credential cache", "path", s.path, "error", err)
	}
}

func (s *FileStore) save(ctx context.Context, record Record) error {
	data, err := Encode(record)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.Save(ctx, s.name(), data); err != nil {
			return fmt.Errorf("mirroring credentials: %w", err)
		}
	}

	s.logger.Debug("credential cache saved", "path", s.path)
	return nil
}

func (s *FileStore) name() string {
	return filepath.Base(s.path)
}
