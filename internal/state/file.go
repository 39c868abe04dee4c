package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	json "github.com/json-iterator/go"
)

type sequenceDoc struct {
	ID int64 `json:"id"`
}

// FileSequence keeps the counter in a JSON file shaped {"id": N}.
type FileSequence struct {
	path string
}

func NewFileSequence(path string) *FileSequence {
	return &FileSequence{path: path}
}

// Current returns the stored id, creating the file with id 1 if it is missing.
func (s *FileSequence) Current(ctx context.Context) (int64, error) {
	if err := ensureFile(s.path, sequenceDoc{ID: 1}, ""); err != nil {
		return 0, fmt.Errorf("initializing transaction sequence: %w", err)
	}
	var doc sequenceDoc
	if err := readJSON(s.path, &doc); err != nil {
		return 0, fmt.Errorf("reading transaction sequence: %w", err)
	}
	return doc.ID, nil
}

func (s *FileSequence) Advance(ctx context.Context) error {
	id, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if err := writeJSON(s.path, sequenceDoc{ID: id + 1}, ""); err != nil {
		return fmt.Errorf("writing transaction sequence: %w", err)
	}
	return nil
}

func (s *FileSequence) Ping(ctx context.Context) error {
	return checkDir(s.path)
}

// FileOrders keeps used order numbers as a JSON array of strings.
type FileOrders struct {
	path string
}

func NewFileOrders(path string) *FileOrders {
	return &FileOrders{path: path}
}

func (o *FileOrders) IsUnique(ctx context.Context, orderNumber string) (bool, error) {
	orders, err := o.load()
	if err != nil {
		return false, err
	}
	return !contains(orders, orderNumber), nil
}

func (o *FileOrders) Record(ctx context.Context, orderNumber string) error {
	orders, err := o.load()
	if err != nil {
		return err
	}
	if contains(orders, orderNumber) {
		return fmt.Errorf("order number %s: %w", orderNumber, ErrConflict)
	}
	orders = append(orders, orderNumber)
	if err := writeJSON(o.path, orders, "  "); err != nil {
		return fmt.Errorf("writing order numbers: %w", err)
	}
	return nil
}

// Count returns how many order numbers have been recorded.
func (o *FileOrders) Count(ctx context.Context) (int, error) {
	orders, err := o.load()
	return len(orders), err
}

func (o *FileOrders) Ping(ctx context.Context) error {
	return checkDir(o.path)
}

func (o *FileOrders) load() ([]string, error) {
	if err := ensureFile(o.path, []string{}, "  "); err != nil {
		return nil, fmt.Errorf("initializing order numbers: %w", err)
	}
	var orders []string
	if err := readJSON(o.path, &orders); err != nil {
		return nil, fmt.Errorf("reading order numbers: %w", err)
	}
	return orders, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func ensureFile(path string, initial any, indent string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return writeJSON(path, initial, indent)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// writeJSON replaces path in one rename so readers never see a partial file.
func writeJSON(path string, v any, indent string) error {
	var (
		data []byte
		err  error
	)
	if indent != "" {
		data, err = json.MarshalIndent(v, "", indent)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func checkDir(path string) error {
	info, err := os.Stat(filepath.Dir(path))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Dir(path))
	}
	return nil
}
