package objectstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
	"go.uber.org/zap"
)

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
}

// BadgerStore keeps objects in an embedded Badger database.
type BadgerStore struct {
	store  *badgerhold.Store
	logger *zap.Logger
}

// record is the persisted form of an Object.
type record struct {
	Hash        string
	Name        string
	ContentType string
	Size        int64
	Data        []byte
	StoredAt    time.Time
}

// OpenBadger opens (creating if needed) the store described by cfg.
func OpenBadger(cfg BadgerConfig, logger *zap.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("storage path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	// Badger's own logger is noisy at info level.
	opts = opts.WithLogger(nil)

	options := badgerhold.DefaultOptions
	options.Options = opts

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}

	logger.Debug("object store opened",
		zap.String("path", cfg.Path),
		zap.Bool("in_memory", cfg.InMemory),
	)
	return &BadgerStore{store: store, logger: logger}, nil
}

// Exists implements Store.
func (s *BadgerStore) Exists(ctx context.Context, hash string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var r record
	err := s.store.Get(hash, &r)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up object: %w", err)
	}
	return true, nil
}

// Put implements Store.
func (s *BadgerStore) Put(ctx context.Context, obj Object) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r := record{
		Hash:        ContentHash(obj.Data),
		Name:        obj.Name,
		ContentType: obj.ContentType,
		Size:        int64(len(obj.Data)),
		Data:        obj.Data,
		StoredAt:    time.Now().UTC(),
	}

	err := s.store.Insert(r.Hash, r)
	if errors.Is(err, badgerhold.ErrKeyExists) {
		s.logger.Debug("object already stored", zap.String("hash", r.Hash), zap.String("name", r.Name))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to store object: %w", err)
	}
	s.logger.Debug("object stored",
		zap.String("hash", r.Hash),
		zap.String("name", r.Name),
		zap.Int64("size", r.Size),
	)
	return true, nil
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, hash string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	var r record
	if err := s.store.Get(hash, &r); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return Object{}, fmt.Errorf("%w: %s", ErrNotFound, hash)
		}
		return Object{}, fmt.Errorf("failed to get object: %w", err)
	}
	return r.object(), nil
}

// List implements Store.
func (s *BadgerStore) List(ctx context.Context) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var records []record
	if err := s.store.Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	objects := make([]Object, len(records))
	for i, r := range records {
		objects[i] = r.object()
		objects[i].Data = nil
	}
	sort.Slice(objects, func(i, j int) bool {
		if !objects[i].StoredAt.Equal(objects[j].StoredAt) {
			return objects[i].StoredAt.Before(objects[j].StoredAt)
		}
		return objects[i].Hash < objects[j].Hash
	})
	return objects, nil
}

// Delete implements Store.
func (s *BadgerStore) Delete(ctx context.Context, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.Delete(hash, &record{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (r record) object() Object {
	return Object{
		Hash:        r.Hash,
		Name:        r.Name,
		ContentType: r.ContentType,
		Size:        r.Size,
		Data:        r.Data,
		StoredAt:    r.StoredAt,
	}
}

var _ Store = (*BadgerStore)(nil)
