// Package snapshot reads and writes metadata and order book files.
//
// A snapshot file is either a bare JSON array of rows, or an object that
// wraps the rows with an id, the region and a creation time. Read accepts
// both; Write always produces the wrapped form.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/eve-market-scrape/pkg/market"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrEmptyFile is returned when a file holds no JSON value.
var ErrEmptyFile = errors.New("snapshot file is empty")

// File is the on-disk form of a region snapshot.
type File struct {
	ID        uuid.UUID         `json:"id"`
	Region    market.RegionMeta `json:"region"`
	CreatedAt time.Time         `json:"createdAt"`
	Rows      []market.Row      `json:"rows"`
}

// NewFile wraps snap with a fresh id and the current time.
func NewFile(snap *market.Snapshot) *File {
	return &File{
		ID:        uuid.New(),
		Region:    snap.Region,
		CreatedAt: time.Now().UTC(),
		Rows:      snap.Rows,
	}
}

// Snapshot returns the market snapshot held by f.
func (f *File) Snapshot() *market.Snapshot {
	return &market.Snapshot{Region: f.Region, Rows: f.Rows}
}

// Write stores snap at path and returns the written file header.
func Write(path string, snap *market.Snapshot) (*File, error) {
	f := NewFile(snap)
	if err := writeJSON(path, f); err != nil {
		return nil, err
	}

	log.Info().
		Str("path", path).
		Str("snapshot_id", f.ID.String()).
		Str("region", f.Region.Name).
		Int("rows", len(f.Rows)).
		Msg("Snapshot written")
	return f, nil
}

// Read loads a snapshot file. Bare row arrays get a zero ID and region.
func Read(path string) (*File, error) {
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}

	var f File
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &f.Rows); err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
		}
	} else if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Int("rows", len(f.Rows)).
		Dur("duration", time.Since(start)).
		Msg("Snapshot parsed")
	return &f, nil
}

// WriteMeta stores meta at path.
func WriteMeta(path string, meta *market.Meta) error {
	if err := writeJSON(path, meta); err != nil {
		return err
	}
	log.Info().
		Str("path", path).
		Int("regions", len(meta.Regions)).
		Int("types", len(meta.Types)).
		Msg("Metadata written")
	return nil
}

// ReadMeta loads a metadata file. Type indexes are rewritten to match
// their position.
func ReadMeta(path string) (*market.Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}

	var meta market.Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", path, err)
	}
	meta.Reindex()
	return &meta, nil
}

// writeJSON replaces path atomically.
func writeJSON(path string, value any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(value); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
