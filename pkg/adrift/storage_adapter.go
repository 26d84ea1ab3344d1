package adrift

import (
	"errors"
	"fmt"

	"github.com/himanishpuri/adrift/pkg/adrift/storage"
	"github.com/himanishpuri/adrift/pkg/models"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage opens the SQLite fingerprint store at dbPath.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return &storageAdapter{db: db}, nil
}

func wrapStorage(err error) error {
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func (s *storageAdapter) FindSimilar(fp models.Fingerprint, threshold float64) (*int64, error) {
	id, err := s.db.FindSimilar(fp, threshold)
	return id, wrapStorage(err)
}

func (s *storageAdapter) Store(fp models.Fingerprint, segmentType models.SegmentType) (int64, error) {
	id, err := s.db.Store(fp, segmentType)
	return id, wrapStorage(err)
}

func (s *storageAdapter) UpdateOccurrence(id int64) error {
	return wrapStorage(s.db.UpdateOccurrence(id))
}

func (s *storageAdapter) GetType(id int64) (models.SegmentType, error) {
	t, err := s.db.GetType(id)
	return t, wrapStorage(err)
}

func (s *storageAdapter) Get(id int64) (*models.FingerprintRecord, error) {
	rec, err := s.db.Get(id)
	return rec, wrapStorage(err)
}

func (s *storageAdapter) List(filter models.RecordFilter) ([]models.FingerprintRecord, error) {
	recs, err := s.db.List(filter)
	return recs, wrapStorage(err)
}

func (s *storageAdapter) Stats() (models.StoreStats, error) {
	st, err := s.db.Stats()
	return st, wrapStorage(err)
}

func (s *storageAdapter) Close() error {
	return wrapStorage(s.db.Close())
}
