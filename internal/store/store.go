// Package store persists the reservation collection as a single JSON document.
//
// Every Save rewrites the whole document. There is no locking between a Load
// and the following Save, so concurrent writers race and the last Save wins.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"reservas/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrStoreIO    = errors.New("store io failure")
	ErrStoreParse = errors.New("store parse failure")
)

// document is the on-disk shape: { "reservations": [ ... ] }.
type document struct {
	Reservations []models.Reservation `json:"reservations"`
}

type FileStore struct {
	path   string
	logger zerolog.Logger
}

func NewFileStore(path string, logger *zerolog.Logger) *FileStore {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "store").Logger()
	}
	return &FileStore{path: path, logger: l}
}

func (s *FileStore) Path() string {
	return s.path
}

// EnsureExists writes an empty collection when the file is missing. An
// existing file is left untouched even if it does not parse.
func (s *FileStore) EnsureExists(ctx context.Context) error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %v", ErrStoreIO, s.path, err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create dir %s: %v", ErrStoreIO, dir, err)
		}
	}

	s.logger.Info().Str("path", s.path).Msg("store file missing, creating empty collection")
	return s.Save(ctx, nil)
}

func (s *FileStore) Load(ctx context.Context) ([]models.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStoreIO, s.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrStoreParse, s.path, err)
	}
	if doc.Reservations == nil {
		doc.Reservations = []models.Reservation{}
	}
	return doc.Reservations, nil
}

// Save replaces the file contents with list. The document is written to a
// temporary file in the same directory and renamed over the original.
func (s *FileStore) Save(ctx context.Context, list []models.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if list == nil {
		list = []models.Reservation{}
	}

	data, err := json.MarshalIndent(document{Reservations: list}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStoreParse, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrStoreIO, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ErrStoreIO, tmpName, err)
	}
	// CreateTemp uses 0600; the store file is world-readable like the backups.
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: chmod %s: %v", ErrStoreIO, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrStoreIO, tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrStoreIO, s.path, err)
	}

	s.logger.Debug().Int("count", len(list)).Msg("store saved")
	return nil
}
