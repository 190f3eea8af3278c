package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/yurifrl/loanbook/pkg/book"
	"github.com/yurifrl/loanbook/pkg/codec"
)

const fileVersion = 1

type document struct {
	Version  int       `yaml:"version"`
	SavedAt  time.Time `yaml:"saved_at"`
	Contacts []record  `yaml:"contacts"`
}

// FileStore keeps the whole book in one YAML file.
type FileStore struct {
	path   string
	codec  *codec.Codec
	logger *log.Logger
}

func NewFileStore(path string, c *codec.Codec, logger *log.Logger) *FileStore {
	return &FileStore{path: path, codec: c, logger: logger}
}

func (s *FileStore) Path() string { return s.path }

// Load reads the book. A missing file yields an empty book.
func (s *FileStore) Load(_ context.Context) (*book.Book, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Debug("book file not found, starting empty", "path", s.path)
		return book.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read book file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse book file %s: %w", s.path, err)
	}
	if doc.Version > fileVersion {
		return nil, fmt.Errorf("book file %s has version %d, newest supported is %d", s.path, doc.Version, fileVersion)
	}

	b := fromRecords(doc.Contacts, s.codec, s.logger)
	s.logger.Debug("loaded book", "path", s.path, "contacts", b.Len())
	return b, nil
}

// LoadRaw returns each contact's ledger string as stored, keyed by contact ID.
func (s *FileStore) LoadRaw(_ context.Context) (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read book file: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse book file %s: %w", s.path, err)
	}
	return rawLedgers(doc.Contacts), nil
}

// Save replaces the file atomically.
func (s *FileStore) Save(_ context.Context, b *book.Book) error {
	doc := document{
		Version:  fileVersion,
		SavedAt:  time.Now().UTC().Truncate(time.Second),
		Contacts: toRecords(b, s.codec),
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to encode book: %w", err)
	}
	if err := atomicWrite(s.path, data); err != nil {
		return fmt.Errorf("failed to write book file: %w", err)
	}
	s.logger.Debug("saved book", "path", s.path, "contacts", len(doc.Contacts))
	return nil
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".loanbook-*.yaml")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
