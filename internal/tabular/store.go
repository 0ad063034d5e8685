// Package tabular реализует коллаборатора табличного хранилища:
// load/save/getInfo поверх объектного стора с кодеками CSV и JSON.
package tabular

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/malipravin2580/Data-Manager/internal/storage/s3"
)

var (
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// StorageError оборачивает сбой нижележащего хранилища с путем и причиной.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Info — метаданные файла.
type Info struct {
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	RowCount   *int      `json:"row_count,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ObjectStore — байтовое хранилище под таблицами.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	HeadObject(ctx context.Context, key string) (*s3.ObjectInfo, error)
	DeleteObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, prefix string) ([]s3.ObjectInfo, error)
}

// Store — контракт табличного хранилища для остального бэкенда.
type Store interface {
	Load(ctx context.Context, path string) (*Table, error)
	Save(ctx context.Context, t *Table, path string) error
	GetInfo(ctx context.Context, path string) (*Info, error)
}

var supportedFormats = map[string]bool{
	".csv":  true,
	".json": true,
}

// ObjectBackedStore парсит и сериализует таблицы, храня байты в ObjectStore.
type ObjectBackedStore struct {
	objects ObjectStore
}

func NewObjectBackedStore(objects ObjectStore) *ObjectBackedStore {
	return &ObjectBackedStore{objects: objects}
}

func (s *ObjectBackedStore) Load(ctx context.Context, path string) (*Table, error) {
	ext, err := checkFormat(path)
	if err != nil {
		return nil, err
	}

	data, err := s.objects.GetObject(ctx, path)
	if err != nil {
		if errors.Is(err, s3.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, &StorageError{Op: "load", Path: path, Err: err}
	}

	var table *Table
	switch ext {
	case ".csv":
		table, err = readCSV(data)
	case ".json":
		table, err = readJSON(data)
	}
	if err != nil {
		return nil, &StorageError{Op: "load", Path: path, Err: err}
	}
	return table, nil
}

func (s *ObjectBackedStore) Save(ctx context.Context, t *Table, path string) error {
	ext, err := checkFormat(path)
	if err != nil {
		return err
	}

	var data []byte
	switch ext {
	case ".csv":
		data, err = writeCSV(t)
	case ".json":
		data, err = writeJSON(t)
	}
	if err != nil {
		return &StorageError{Op: "save", Path: path, Err: err}
	}

	if err := s.objects.PutObject(ctx, path, data); err != nil {
		return &StorageError{Op: "save", Path: path, Err: err}
	}
	return nil
}

func (s *ObjectBackedStore) GetInfo(ctx context.Context, path string) (*Info, error) {
	obj, err := s.objects.HeadObject(ctx, path)
	if err != nil {
		if errors.Is(err, s3.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, &StorageError{Op: "stat", Path: path, Err: err}
	}

	return &Info{
		Path:       path,
		SizeBytes:  obj.SizeBytes,
		ModifiedAt: obj.LastModified,
	}, nil
}

func checkFormat(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedFormats[ext] {
		return "", fmt.Errorf("%w: %q (supported: .csv, .json)", ErrUnsupportedFormat, ext)
	}
	return ext, nil
}
