package credential

import (
	"sync"
	"time"
)

// MemoryStore keeps credentials in process memory. Writes are full-record
// swaps under one lock, so callers never observe a read-modify-write race.
type MemoryStore struct {
	records map[int64]*UserCredential
	lock    sync.RWMutex
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[int64]*UserCredential),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(userID int64) (*UserCredential, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	record, ok := s.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *MemoryStore) Upsert(record *UserCredential) (*UserCredential, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	stored := &UserCredential{
		UserID:       record.UserID,
		Domain:       record.Domain,
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		ExpiresAt:    record.ExpiresAt,
		Profile:      record.Profile,
		LastModified: s.now(),
	}

	if existing, ok := s.records[record.UserID]; ok {
		if record.Profile == (Profile{}) {
			stored.Profile = existing.Profile
		}
		if record.RefreshToken == "" {
			stored.RefreshToken = existing.RefreshToken
		}
	}

	s.records[record.UserID] = stored
	clone := *stored
	return &clone, nil
}

func (s *MemoryStore) UpdateTokens(userID int64, accessToken string, expiresAt time.Time) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	record, ok := s.records[userID]
	if !ok {
		return ErrNotFound
	}

	record.AccessToken = accessToken
	record.ExpiresAt = expiresAt
	record.LastModified = s.now()
	return nil
}
