package keys

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Throttle — разовая блокировка ключа на время ttl (SET NX EX в Redis).
type Throttle interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// LocalThrottle хранит блокировки в памяти процесса. Используется, когда Redis не
// настроен: ограничение действует только в пределах одной реплики.
type LocalThrottle struct {
	mu    sync.Mutex
	locks *expirable.LRU[string, struct{}]
}

// NewLocalThrottle создаёт LocalThrottle на size записей со временем жизни window.
func NewLocalThrottle(size int, window time.Duration) *LocalThrottle {
	return &LocalThrottle{locks: expirable.NewLRU[string, struct{}](size, nil, window)}
}

// Acquire захватывает key. ttl игнорируется: срок задаётся окном LRU.
func (t *LocalThrottle) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.locks.Peek(key); ok {
		return false, nil
	}
	t.locks.Add(key, struct{}{})
	return true, nil
}

// Release снимает блокировку.
func (t *LocalThrottle) Release(_ context.Context, key string) error {
	t.locks.Remove(key)
	return nil
}
