package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"reel/internal/model/generation"
)

// EnsureIndexes 应用启动时为所有模型创建索引
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	return EnsureAllIndexes(ctx, db,
		&generation.Generation{},
	)
}
