package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Sternrassler/eve-market-scrape/pkg/market"
	"github.com/google/uuid"
)

func testSnapshot() *market.Snapshot {
	jita := market.Location{ID: 60003760, Name: "Jita IV - Moon 4 - Caldari Navy Assembly Plant"}
	return &market.Snapshot{
		Region: market.RegionMeta{ID: 10000002, Name: "The Forge"},
		Rows: []market.Row{
			{
				Type: market.RowType{ID: 34, Index: 0},
				Buy:  []market.Order{{Price: 5.1, Volume: 1000, MinVolume: 1, Location: jita}},
				Sell: []market.Order{{Price: 5.3, Volume: 2000, MinVolume: 1, Location: jita}},
			},
		},
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forge.json")
	snap := testSnapshot()

	written, err := Write(path, snap)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if written.ID == uuid.Nil {
		t.Error("Write() produced a nil id")
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.ID != written.ID {
		t.Errorf("ID = %s, want %s", got.ID, written.ID)
	}
	if !got.CreatedAt.Equal(written.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, written.CreatedAt)
	}
	if !reflect.DeepEqual(got.Snapshot(), snap) {
		t.Errorf("Snapshot() = %+v, want %+v", got.Snapshot(), snap)
	}
}

func TestRead_BareRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.json")
	body := `[{"type":{"id":34,"index":0},"buy":[{"price":5,"volume":10,"minVolume":1,"location":{"id":1,"name":"A"}}],"sell":[]}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.ID != uuid.Nil {
		t.Errorf("ID = %s, want nil", got.ID)
	}
	if len(got.Rows) != 1 || got.Rows[0].Type.ID != 34 || got.Rows[0].Buy[0].Volume != 10 {
		t.Errorf("Rows = %+v", got.Rows)
	}
}

func TestRead_Errors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(empty); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("empty file: expected ErrEmptyFile, got %v", err)
	}

	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte(`[{"type":`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(broken); err == nil {
		t.Error("broken file: expected error")
	}

	if _, err := Read(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: expected os.ErrNotExist, got %v", err)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	meta := &market.Meta{
		Regions: []market.RegionMeta{{ID: 10000002, Name: "The Forge"}},
		Types: []market.TypeMeta{
			{ID: 34, Name: "Tritanium", Volume: 0.01, Href: "https://api.test/inventory/types/34/"},
			{ID: 35, Name: "Pyerite", Volume: 0.01, Href: "https://api.test/inventory/types/35/"},
		},
	}

	if err := WriteMeta(path, meta); err != nil {
		t.Fatalf("WriteMeta() error = %v", err)
	}

	got, err := ReadMeta(path)
	if err != nil {
		t.Fatalf("ReadMeta() error = %v", err)
	}
	if got.Types[1].Index != 1 {
		t.Errorf("Index = %d, want 1", got.Types[1].Index)
	}

	meta.Reindex()
	if !reflect.DeepEqual(got, meta) {
		t.Errorf("ReadMeta() = %+v, want %+v", got, meta)
	}
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := Write(filepath.Join(dir, "forge.json"), testSnapshot()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}
