package location

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"hookstat/src/contracts"
)

func TestTableResolve(t *testing.T) {
	table, err := NewTable([]Entry{
		{ID: 1, File: "app.js", StartLine: 3, StartCol: 5, EndLine: 3, EndCol: 20},
		{ID: 9, File: "lib.js", StartLine: 1, StartCol: 1, EndLine: 2, EndCol: 4},
	})
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	loc, err := table.Resolve(1)
	if err != nil {
		t.Fatalf("Resolve(1) error = %v", err)
	}
	if got, want := loc.String(), "(app.js:3:5:3:20)"; got != want {
		t.Errorf("Resolve(1) = %s, want %s", got, want)
	}

	// Idempotent: repeated lookups give the same answer.
	again, _ := table.Resolve(1)
	if again != loc {
		t.Errorf("second Resolve(1) = %v, want %v", again, loc)
	}

	if got := table.File(9); got != "lib.js" {
		t.Errorf("File(9) = %q, want %q", got, "lib.js")
	}
	if got := table.File(404); got != "" {
		t.Errorf("File(404) = %q, want empty", got)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
}

func TestTableUnknownLocation(t *testing.T) {
	table := Empty()

	loc, err := table.Resolve(404)
	if !errors.Is(err, ErrUnknownLocation) {
		t.Fatalf("Resolve(404) error = %v, want ErrUnknownLocation", err)
	}
	var ule *UnknownLocationError
	if !errors.As(err, &ule) || ule.ID != 404 {
		t.Errorf("Resolve(404) error = %#v, want *UnknownLocationError{ID: 404}", err)
	}
	if !loc.IsZero() {
		t.Errorf("Resolve(404) location = %v, want zero", loc)
	}
}

func TestNewTableRejectsDuplicates(t *testing.T) {
	_, err := NewTable([]Entry{{ID: 1, File: "a.js"}, {ID: 1, File: "b.js"}})
	if err == nil {
		t.Error("NewTable() with duplicate ids expected error, got nil")
	}
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "iids.json")
	jsonData := `[{"id": 7, "file": "x.js", "start_line": 2, "start_col": 1, "end_line": 2, "end_col": 9}]`
	if err := os.WriteFile(jsonPath, []byte(jsonData), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	mpkPath := filepath.Join(dir, "iids.msgpack")
	mpkData, err := msgpack.Marshal([]Entry{{ID: 7, File: "x.js", StartLine: 2, StartCol: 1, EndLine: 2, EndCol: 9}})
	if err != nil {
		t.Fatalf("msgpack.Marshal() error = %v", err)
	}
	if err := os.WriteFile(mpkPath, mpkData, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	for _, path := range []string{jsonPath, mpkPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			table, err := LoadTable(path)
			if err != nil {
				t.Fatalf("LoadTable() error = %v", err)
			}
			loc, err := table.Resolve(7)
			if err != nil {
				t.Fatalf("Resolve(7) error = %v", err)
			}
			if got, want := loc.String(), "(x.js:2:1:2:9)"; got != want {
				t.Errorf("Resolve(7) = %s, want %s", got, want)
			}
		})
	}

	if _, err := LoadTable(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadTable(missing) expected error, got nil")
	}
}

func TestTableConcurrentResolve(t *testing.T) {
	entries := make([]Entry, 100)
	for i := range entries {
		entries[i] = Entry{ID: contracts.EventID(i), File: "f.js", StartLine: i}
	}
	table, err := NewTable(entries)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				loc, err := table.Resolve(contracts.EventID(i))
				if err != nil || loc.StartLine != i {
					t.Errorf("Resolve(%d) = %v, %v", i, loc, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
