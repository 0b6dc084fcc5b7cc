package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/jfrchan18/rag-chatbot/internal/config"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
)

// Store keeps the raw bytes of ingested source files.
type Store interface {
	Type() string
	Save(ctx context.Context, key string, r io.ReadSeeker, size int64) error
}

type Factory func(args interface{}) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := normalizeType(name)
	if key == "" || factory == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	factories[key] = factory
}

// New builds the archive store named by cfg.Type. Unknown types list the
// registered ones in the error.
func New(cfg config.FileStoreConfig) (Store, error) {
	key := normalizeType(cfg.Type)
	mu.RLock()
	factory, ok := factories[key]
	known := make([]string, 0, len(factories))
	for name := range factories {
		known = append(known, name)
	}
	mu.RUnlock()
	if !ok {
		sort.Strings(known)
		return nil, fmt.Errorf("%w: file_store.type %q, want one of %s", appErr.ErrInvalid, cfg.Type, strings.Join(known, ", "))
	}
	store, err := factory(cfg.Data)
	if err != nil {
		return nil, fmt.Errorf("init %s file store: %w", key, err)
	}
	return store, nil
}

func normalizeType(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ArchiveKey names the stored copy of an uploaded file.
func ArchiveKey(docID int64, filename string) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(filename))
	if name == "" {
		name = "upload"
	}
	return fmt.Sprintf("%d_%s", docID, name)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("%w: file_store.data is required", appErr.ErrInvalid)
	}
	raw, err := json.Marshal(args)
	if err == nil {
		err = json.Unmarshal(raw, dst)
	}
	if err != nil {
		return fmt.Errorf("%w: file_store.data: %v", appErr.ErrInvalid, err)
	}
	return nil
}
