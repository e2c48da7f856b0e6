package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"reel/internal/model/generation"
)

// MongoRepo MongoDB 实现
type MongoRepo struct {
	collection *mongo.Collection
}

// NewMongoRepo 创建 MongoDB 仓库
func NewMongoRepo(db *mongo.Database) *MongoRepo {
	var g generation.Generation
	return &MongoRepo{
		collection: db.Collection(g.Collection()),
	}
}

// Create 创建记录
func (r *MongoRepo) Create(ctx context.Context, g *generation.Generation) error {
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now
	if g.State.Assets == nil {
		g.State.Assets = []string{}
	}

	if _, err := r.collection.InsertOne(ctx, g); err != nil {
		return fmt.Errorf("insert generation %s: %w", g.ID, err)
	}
	return nil
}

// Update 部分更新
func (r *MongoRepo) Update(ctx context.Context, id string, upd *generation.Update) error {
	set := bson.M{"updated_at": time.Now()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.State != nil {
		set["state"] = upd.State
	}
	if upd.StoryID != nil {
		set["story_id"] = *upd.StoryID
	}
	if upd.FilmID != nil {
		set["film_id"] = *upd.FilmID
	}
	if upd.Thumbnail != nil {
		set["thumbnail"] = *upd.Thumbnail
	}
	if upd.CostTotal != nil {
		set["cost_total"] = *upd.CostTotal
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update generation %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Get 根据ID查询
func (r *MongoRepo) Get(ctx context.Context, id string) (*generation.Generation, error) {
	var g generation.Generation
	err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get generation %s: %w", id, err)
	}
	return &g, nil
}

// List 查询摘要列表，不加载 state
func (r *MongoRepo) List(ctx context.Context, filter *generation.ListFilter) ([]*generation.Summary, error) {
	query := bson.M{}
	if filter != nil && len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}

	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "updated_at", Value: -1}}).
		SetLimit(int64(filter.NormalizedLimit())).
		SetProjection(bson.M{"state": 0})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer cursor.Close(ctx)

	summaries := make([]*generation.Summary, 0)
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("decode generations: %w", err)
	}
	return summaries, nil
}

// Delete 物理删除
func (r *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("delete generation %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
