package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PollLeaseKeyPrefix 成片轮询租约 key 前缀
const PollLeaseKeyPrefix = "reel:poll:"

// PollLeaseKey 生成轮询租约 key
func PollLeaseKey(generationID string) string {
	return PollLeaseKeyPrefix + generationID
}

var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease 基于 SET NX PX 的租约，保证多实例下同一 generation 只有一个轮询任务
type Lease struct {
	client *redis.Client
	owner  string
	ttl    time.Duration
}

// NewLease 创建租约，owner 为当前实例标识
func NewLease(c *RedisCache, owner string, ttl time.Duration) *Lease {
	return &Lease{client: c.Client(), owner: owner, ttl: ttl}
}

// Acquire 获取租约；已由本实例持有时视为成功并续期
func (l *Lease) Acquire(ctx context.Context, generationID string) (bool, error) {
	key := PollLeaseKey(generationID)
	ok, err := l.client.SetNX(ctx, key, l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if ok {
		return true, nil
	}
	return l.Refresh(ctx, generationID)
}

// Refresh 续期；租约已不属于本实例时返回 false
func (l *Lease) Refresh(ctx context.Context, generationID string) (bool, error) {
	key := PollLeaseKey(generationID)
	n, err := refreshScript.Run(ctx, l.client, []string{key}, l.owner, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("refresh lease %s: %w", key, err)
	}
	return n == 1, nil
}

// Release 释放本实例持有的租约
func (l *Lease) Release(ctx context.Context, generationID string) error {
	key := PollLeaseKey(generationID)
	if err := releaseScript.Run(ctx, l.client, []string{key}, l.owner).Err(); err != nil {
		return fmt.Errorf("release lease %s: %w", key, err)
	}
	return nil
}
