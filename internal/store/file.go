package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rileyhilliard/sentinel/internal/monitor"
	"gopkg.in/yaml.v3"
)

// FileStore keeps the whole host list in one JSON or YAML document. Every
// write rewrites the document through a temp file and rename, so a crash
// leaves either the old or the new list on disk.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore opens the document at path, creating it with an empty list
// if it doesn't exist. Paths ending in .yaml or .yml are stored as YAML.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.write(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, storeError(err, "open", path)
	}
	return s, nil
}

func (s *FileStore) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(s.path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadHosts returns every stored host in stored order.
func (s *FileStore) LoadHosts(ctx context.Context) ([]monitor.Host, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// SaveHost appends a new host.
func (s *FileStore) SaveHost(ctx context.Context, host monitor.Host) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hosts, err := s.read()
	if err != nil {
		return err
	}
	if indexOf(hosts, host.ID) >= 0 {
		return duplicate("save", host.ID)
	}
	return s.write(append(hosts, host))
}

// UpdateHost replaces the stored record with the same ID.
func (s *FileStore) UpdateHost(ctx context.Context, host monitor.Host) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hosts, err := s.read()
	if err != nil {
		return err
	}
	i := indexOf(hosts, host.ID)
	if i < 0 {
		return notFound("update", host.ID)
	}
	hosts[i] = host
	return s.write(hosts)
}

// DeleteHost removes the host with id.
func (s *FileStore) DeleteHost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hosts, err := s.read()
	if err != nil {
		return err
	}
	i := indexOf(hosts, id)
	if i < 0 {
		return notFound("delete", id)
	}
	return s.write(append(hosts[:i], hosts[i+1:]...))
}

// Close is a no-op; the document is closed after every write.
func (s *FileStore) Close() error {
	return nil
}

func indexOf(hosts []monitor.Host, id string) int {
	for i, h := range hosts {
		if h.ID == id {
			return i
		}
	}
	return -1
}

func (s *FileStore) read() ([]monitor.Host, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []monitor.Host{}, nil
		}
		return nil, storeError(err, "read", s.path)
	}

	hosts := []monitor.Host{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return hosts, nil
	}
	if s.isYAML() {
		err = yaml.Unmarshal(data, &hosts)
	} else {
		err = json.Unmarshal(data, &hosts)
	}
	if err != nil {
		return nil, storeError(err, "decode", s.path)
	}
	if hosts == nil {
		hosts = []monitor.Host{}
	}
	return hosts, nil
}

func (s *FileStore) write(hosts []monitor.Host) error {
	if hosts == nil {
		hosts = []monitor.Host{}
	}

	var data []byte
	var err error
	if s.isYAML() {
		data, err = yaml.Marshal(hosts)
	} else {
		data, err = json.MarshalIndent(hosts, "", "  ")
	}
	if err != nil {
		return storeError(err, "encode", s.path)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storeError(err, "create directory", s.path)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return storeError(err, "write", s.path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return storeError(err, "write", s.path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return storeError(err, "sync", s.path)
	}
	if err := tmp.Close(); err != nil {
		return storeError(err, "write", s.path)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return storeError(err, "rename", s.path)
	}
	return nil
}
