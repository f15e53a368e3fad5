package idempotency

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// DefaultTTL is the retention window for cached responses.
const DefaultTTL = 24 * time.Hour

// Record caches the full response of a side-effecting operation, scoped to
// a target resource. Repeated requests with the same key replay the stored
// response byte-identical, including rejections.
type Record struct {
	gorm.Model     `json:"-"`
	ResourceID     string    `gorm:"uniqueIndex:idx_resource_key" json:"resource_id"`
	IdempotencyKey string    `gorm:"uniqueIndex:idx_resource_key" json:"idempotency_key"`
	ResponseStatus int       `json:"response_status"`
	ResponseBody   []byte    `json:"-"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// CachedResponse is the stored outcome handed back on a replay.
type CachedResponse struct {
	Status int
	Body   []byte
}

// Store is a gorm-backed idempotency cache.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the cached response for (resourceID, key), if present and
// not expired. Expired records are treated as absent.
func (s *Store) Get(resourceID, key string) (*CachedResponse, bool, error) {
	var record Record
	err := s.db.Where("resource_id = ? AND idempotency_key = ?", resourceID, key).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if record.ExpiresAt.Before(time.Now()) {
		return nil, false, nil
	}

	return &CachedResponse{
		Status: record.ResponseStatus,
		Body:   record.ResponseBody,
	}, true, nil
}

// Put stores a response under (resourceID, key) for the given TTL.
func (s *Store) Put(resourceID, key string, status int, body []byte, ttl time.Duration) error {
	record := Record{
		ResourceID:     resourceID,
		IdempotencyKey: key,
		ResponseStatus: status,
		ResponseBody:   body,
		ExpiresAt:      time.Now().Add(ttl),
	}
	return s.db.Create(&record).Error
}

// PurgeExpired removes records past their retention window. Called
// periodically by the cleanup processor.
func (s *Store) PurgeExpired() (int64, error) {
	result := s.db.Unscoped().Where("expires_at < ?", time.Now()).Delete(&Record{})
	return result.RowsAffected, result.Error
}
