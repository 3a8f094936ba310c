package repository

import (
	"context"
	"errors"
)

// ErrKeyNotFound 键不存在时由各后端统一返回
var ErrKeyNotFound = errors.New("key not found")

// KVStore 持久化键值存储抽象，三份目标集合与提醒簿记都以 JSON 值存放。
// 后端由配置 storage.type 选择：redis、mysql、badger 或 memory。
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}
