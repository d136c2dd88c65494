package repository

import (
	"context"
	"sync"
	"time"

	"goeventcity/internal/models"
)

type MemoryStateRepository struct {
	sessions   sync.Map
	rateLimits sync.Map
	ttl        time.Duration
	now        func() time.Time
}

type sessionEntry struct {
	session   models.WizardSession
	expiresAt time.Time
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl: ttl,
		now: time.Now,
	}
}

func (r *MemoryStateRepository) GetSession(ctx context.Context, id string) (*models.WizardSession, error) {
	val, ok := r.sessions.Load(id)
	if !ok {
		return nil, nil
	}
	entry := val.(*sessionEntry)
	if r.ttl > 0 && r.now().After(entry.expiresAt) {
		r.sessions.Delete(id)
		return nil, nil
	}
	// Копия, чтобы вызывающий код не менял сохраненное состояние
	session := entry.session
	return &session, nil
}

func (r *MemoryStateRepository) SetSession(ctx context.Context, session *models.WizardSession) error {
	r.sessions.Store(session.ID, &sessionEntry{
		session:   *session,
		expiresAt: r.now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryStateRepository) ClearSession(ctx context.Context, id string) error {
	r.sessions.Delete(id)
	return nil
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()
	val, _ := r.rateLimits.LoadOrStore(key, &rateLimitEntry{expiresAt: now.Add(window)})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if now.After(entry.expiresAt) {
		entry.count = 0
		entry.expiresAt = now.Add(window)
	}
	entry.count++

	return entry.count <= limit, nil
}
