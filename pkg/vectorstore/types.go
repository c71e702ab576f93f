package vectorstore

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// IDPrefix starts every vector store ID.
const IDPrefix = "vs_"

type FileCounts struct {
	InProgress int
	Completed  int
	Failed     int
	Cancelled  int
	Total      int
}

// Store is a remote collection of indexed files.
type Store struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	Status     string
	UsageBytes int64
	FileCounts FileCounts
}

// File is a file attached to a Store.
type File struct {
	ID         string
	Status     string
	CreatedAt  time.Time
	UsageBytes int64
}

// Service manages vector stores and their files.
type Service interface {
	CreateStore(ctx context.Context, name string) (Store, error)
	// ListStores returns every store, following pagination.
	ListStores(ctx context.Context) ([]Store, error)
	DeleteStore(ctx context.Context, storeID string) error
	// ListFiles returns every file in the store, following pagination.
	ListFiles(ctx context.Context, storeID string) ([]File, error)
	DeleteFile(ctx context.Context, storeID, fileID string) error
}

// FindStores returns the stores whose ID or name contains term, ignoring
// case.
func FindStores(stores []Store, term string) []Store {
	term = strings.ToLower(term)
	var ret []Store
	for _, s := range stores {
		if strings.Contains(strings.ToLower(s.ID), term) || (s.Name != "" && strings.Contains(strings.ToLower(s.Name), term)) {
			ret = append(ret, s)
		}
	}
	return ret
}

// ValidateStoreID checks that id looks like a vector store ID.
func ValidateStoreID(id string) error {
	if !strings.HasPrefix(id, IDPrefix) || len(id) == len(IDPrefix) {
		return errors.Errorf("vector store ID must start with '%s'", IDPrefix)
	}
	return nil
}
