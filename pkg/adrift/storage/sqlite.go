package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofrs/flock"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/adrift/pkg/adrift/fingerprint"
	"github.com/himanishpuri/adrift/pkg/models"
)

const DefaultDBFile = "adrift.sqlite3"
const errDBClientNil = "db client is nil"

// DurationWindow is the pre-filter applied before similarity scoring:
// only records whose duration is within this many seconds are compared.
const DurationWindow = 0.5

var (
	ErrNotFound = errors.New("fingerprint record not found")
	ErrLocked   = errors.New("fingerprint store is in use by another process")
)

type DBClient struct {
	DB   *gorm.DB
	db   *sql.DB
	lock *flock.Flock
	path string
}

// Fingerprint is the persisted row of the fingerprints table.
type Fingerprint struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	SegmentType     string    `gorm:"type:text;not null"`
	Duration        float64   `gorm:"not null;index:idx_duration"`
	AudioHash       int64     `gorm:"not null"`
	VideoHash       int64     `gorm:"not null"`
	FirstSeen       time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	LastSeen        time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	OccurrenceCount int       `gorm:"not null;default:1"`
}

func (Fingerprint) TableName() string { return "fingerprints" }

func (f Fingerprint) toRecord() models.FingerprintRecord {
	return models.FingerprintRecord{
		ID:              f.ID,
		SegmentType:     models.SegmentType(f.SegmentType),
		Duration:        f.Duration,
		AudioHash:       uint64(f.AudioHash),
		VideoHash:       uint64(f.VideoHash),
		FirstSeen:       f.FirstSeen,
		LastSeen:        f.LastSeen,
		OccurrenceCount: f.OccurrenceCount,
	}
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("ADRIFT_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

// NewDBClientWithPath opens (creating if needed) the store at dbPath and
// holds an exclusive lock on it until Close.
func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", dbPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", dbPath, ErrLocked)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"), gormConfig)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// single writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Fingerprint{}); err != nil {
		sqlDB.Close()
		lock.Unlock()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB, lock: lock, path: dbPath}, nil
}

// Path returns the database file path.
func (c *DBClient) Path() string {
	return c.path
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	err := c.db.Close()
	if c.lock != nil {
		if uerr := c.lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}

// FindSimilar returns the ID of the stored fingerprint most similar to fp,
// provided its similarity is at least threshold. Ties keep the lowest ID.
func (c *DBClient) FindSimilar(fp models.Fingerprint, threshold float64) (*int64, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rows []Fingerprint
	err := c.DB.
		Select("id", "audio_hash", "video_hash", "duration").
		Where("ABS(duration - ?) < ?", fp.Duration, DurationWindow).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}

	var (
		bestID  int64
		bestSim float64
		found   bool
	)
	for _, r := range rows {
		sim := fingerprint.Similarity(
			fp.AudioHash, fp.VideoHash, fp.Duration,
			uint64(r.AudioHash), uint64(r.VideoHash), r.Duration,
		)
		if sim < threshold {
			continue
		}
		if !found || sim > bestSim {
			bestID, bestSim, found = r.ID, sim, true
		}
	}

	if !found {
		return nil, nil
	}
	return &bestID, nil
}

// Store inserts a new record with an occurrence count of one.
func (c *DBClient) Store(fp models.Fingerprint, segmentType models.SegmentType) (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}

	now := time.Now().UTC()
	row := Fingerprint{
		SegmentType:     string(segmentType),
		Duration:        fp.Duration,
		AudioHash:       int64(fp.AudioHash),
		VideoHash:       int64(fp.VideoHash),
		FirstSeen:       now,
		LastSeen:        now,
		OccurrenceCount: 1,
	}
	if err := c.DB.Create(&row).Error; err != nil {
		return 0, fmt.Errorf("inserting fingerprint: %w", err)
	}
	return row.ID, nil
}

// UpdateOccurrence bumps the occurrence count and refreshes last_seen.
func (c *DBClient) UpdateOccurrence(id int64) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}

	res := c.DB.Model(&Fingerprint{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"occurrence_count": gorm.Expr("occurrence_count + 1"),
			"last_seen":        time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("updating occurrence for %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetType returns the persisted classification of a record.
func (c *DBClient) GetType(id int64) (models.SegmentType, error) {
	rec, err := c.Get(id)
	if err != nil {
		return "", err
	}
	return rec.SegmentType, nil
}

func (c *DBClient) Get(id int64) (*models.FingerprintRecord, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var row Fingerprint
	if err := c.DB.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("record %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("querying record %d: %w", id, err)
	}
	rec := row.toRecord()
	return &rec, nil
}

// List returns records ordered by occurrence count, most frequent first.
func (c *DBClient) List(filter models.RecordFilter) ([]models.FingerprintRecord, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	q := c.DB.Model(&Fingerprint{}).Order("occurrence_count DESC").Order("id")
	if filter.Type != "" {
		q = q.Where("segment_type = ?", string(filter.Type))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var rows []Fingerprint
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing fingerprints: %w", err)
	}

	out := make([]models.FingerprintRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toRecord()
	}
	return out, nil
}

// Stats counts records and occurrences per segment type.
func (c *DBClient) Stats() (models.StoreStats, error) {
	if c == nil || c.DB == nil {
		return models.StoreStats{}, errors.New(errDBClientNil)
	}

	var groups []struct {
		SegmentType string
		Records     int64
		Occurrences int64
	}
	err := c.DB.Model(&Fingerprint{}).
		Select("segment_type, COUNT(*) AS records, COALESCE(SUM(occurrence_count), 0) AS occurrences").
		Group("segment_type").
		Scan(&groups).Error
	if err != nil {
		return models.StoreStats{}, fmt.Errorf("aggregating fingerprints: %w", err)
	}

	stats := models.StoreStats{ByType: make(map[models.SegmentType]int64, len(groups))}
	for _, g := range groups {
		stats.Records += g.Records
		stats.Occurrences += g.Occurrences
		stats.ByType[models.SegmentType(g.SegmentType)] = g.Records
	}
	return stats, nil
}
