// Package cache 为生成结果提供按 key 的缓存，内存实现有容量与 TTL 上限，
// 多实例部署可切换为 Redis 实现。
package cache

import "context"

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Reset(ctx context.Context) error
}
