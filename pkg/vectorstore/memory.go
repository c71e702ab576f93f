package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jaffee/respcli/pkg/upload"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("not found")

var _ Service = &Memory{}
var _ upload.Remote = &Memory{}

// Memory is an in-process Service and upload.Remote. It is useful for dry
// runs and tests.
type Memory struct {
	mu     sync.Mutex
	seq    int
	stores map[string]*memStore
	files  map[string]memFile
	now    func() time.Time
}

type memStore struct {
	Store
	files []File
}

type memFile struct {
	name    string
	purpose string
	size    int
}

func NewMemory() *Memory {
	return &Memory{
		stores: make(map[string]*memStore),
		files:  make(map[string]memFile),
		now:    time.Now,
	}
}

func (m *Memory) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%06d", prefix, m.seq)
}

func (m *Memory) CreateStore(ctx context.Context, name string) (Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &memStore{Store: Store{
		ID:        m.nextID(IDPrefix),
		Name:      name,
		CreatedAt: m.now(),
		Status:    "completed",
	}}
	m.stores[s.ID] = s
	return s.Store, nil
}

func (m *Memory) ListStores(ctx context.Context) ([]Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]Store, 0, len(m.stores))
	for _, s := range m.stores {
		ret = append(ret, s.Store)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret, nil
}

func (m *Memory) DeleteStore(ctx context.Context, storeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stores[storeID]; !ok {
		return errors.Wrapf(ErrNotFound, "vector store '%s'", storeID)
	}
	delete(m.stores, storeID)
	return nil
}

func (m *Memory) ListFiles(ctx context.Context, storeID string) ([]File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[storeID]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "vector store '%s'", storeID)
	}
	return append([]File(nil), s.files...), nil
}

func (m *Memory) DeleteFile(ctx context.Context, storeID, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[storeID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "vector store '%s'", storeID)
	}
	for i, f := range s.files {
		if f.ID == fileID {
			s.files = append(s.files[:i], s.files[i+1:]...)
			s.FileCounts.Completed--
			s.FileCounts.Total--
			s.UsageBytes -= f.UsageBytes
			return nil
		}
	}
	return errors.Wrapf(ErrNotFound, "file '%s' in vector store '%s'", fileID, storeID)
}

func (m *Memory) Register(ctx context.Context, name string, content []byte, purpose string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID("file-")
	m.files[id] = memFile{name: name, purpose: purpose, size: len(content)}
	return id, nil
}

func (m *Memory) Attach(ctx context.Context, destinationID, contentID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[destinationID]
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "vector store '%s'", destinationID)
	}
	f, ok := m.files[contentID]
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "file '%s'", contentID)
	}
	s.files = append(s.files, File{
		ID:         contentID,
		Status:     "completed",
		CreatedAt:  m.now(),
		UsageBytes: int64(f.size),
	})
	s.FileCounts.Completed++
	s.FileCounts.Total++
	s.UsageBytes += int64(f.size)
	return "completed", nil
}
