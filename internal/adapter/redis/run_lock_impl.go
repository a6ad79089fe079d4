package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/user/goldwatch/internal/repository"
)

var _ repository.RunLock = (*RunLockImpl)(nil)

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLockImpl is a single-key Redis lock. The token makes Release a no-op
// once the key has expired and been taken by another holder.
type RunLockImpl struct {
	client *redis.Client
	key    string
	token  string
}

// NewRunLock creates a lock stored at "<prefix>:lock:run".
func NewRunLock(client *redis.Client, prefix string) *RunLockImpl {
	return &RunLockImpl{
		client: client,
		key:    prefix + ":lock:run",
		token:  uuid.NewString(),
	}
}

func (l *RunLockImpl) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	// SET NX with expiry is atomic.
	return l.client.SetNX(ctx, l.key, l.token, ttl).Result()
}

func (l *RunLockImpl) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
