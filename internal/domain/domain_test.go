package domain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestLoadDirectory(t *testing.T) {
	id := uuid.New()
	catalog := `[
		{"id": "` + id.String() + `", "vin": "1HGCM82633A004352", "make": "Honda", "model": "Accord", "year": 2019, "mileage": 48000}
	]`
	path := filepath.Join(t.TempDir(), "vehicles.json")
	if err := os.WriteFile(path, []byte(catalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	dir, err := LoadDirectory(path)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	v, err := dir.Vehicle(context.Background(), id)
	if err != nil || v.Make != "Honda" || v.Year != 2019 {
		t.Fatalf("lookup failed: %+v err=%v", v, err)
	}
	if _, err := dir.Vehicle(context.Background(), uuid.New()); !errors.Is(err, ErrVehicleNotFound) {
		t.Fatalf("want ErrVehicleNotFound, got %v", err)
	}
}

func TestLoadDirectoryRejectsBadInput(t *testing.T) {
	if _, err := LoadDirectory(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("want error for missing file")
	}

	path := filepath.Join(t.TempDir(), "vehicles.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, err := LoadDirectory(path); err == nil {
		t.Fatalf("want error for malformed catalog")
	}
}
