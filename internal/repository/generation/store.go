// Package generation 创作记录的持久化
package generation

import (
	"context"
	"errors"

	"reel/internal/model/generation"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("generation not found")

// Store 按 id 读写流水线状态
type Store interface {
	// Create 写入新记录，CreatedAt/UpdatedAt 由实现填充
	Create(ctx context.Context, g *generation.Generation) error
	// Update 部分更新，只写非 nil 字段
	Update(ctx context.Context, id string, upd *generation.Update) error
	// Get 不存在时返回 ErrNotFound
	Get(ctx context.Context, id string) (*generation.Generation, error)
	// List 按 updated_at 倒序
	List(ctx context.Context, filter *generation.ListFilter) ([]*generation.Summary, error)
	Delete(ctx context.Context, id string) error
}
