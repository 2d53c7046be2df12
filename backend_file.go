package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// FileBackend persists session values as a JSON document on disk. It is
// the local-storage fallback: slower than the cookie jar but survives jar
// loss.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

var _ Backend = &FileBackend{}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (f *FileBackend) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

func (f *FileBackend) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		// a corrupted file should not make the store unwritable
		values = map[string]string{}
	}
	values[key] = value
	return f.save(values)
}

func (f *FileBackend) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		values = map[string]string{}
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

func (f *FileBackend) load() (map[string]string, error) {
	values := map[string]string{}

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "unable to read session file")
	}

	if len(data) == 0 {
		return values, nil
	}

	if err := json.Unmarshal(data, &values); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "session file is corrupted")
	}
	return values, nil
}

func (f *FileBackend) save(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to encode session file")
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "unable to create session directory")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "unable to write session file")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "unable to commit session file")
	}
	return nil
}
