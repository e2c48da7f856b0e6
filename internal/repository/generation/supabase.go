package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"reel/internal/model/generation"
)

// DefaultSupabaseTable 默认表名
const DefaultSupabaseTable = "generations"

const summaryColumns = "id,title,style,status,thumbnail,cost_total,created_at,updated_at"

// SupabaseRepo 通过 PostgREST 读写 generations 表
//
// 表结构：id text primary key, title text, style text, status text,
// state jsonb, story_id text, film_id text, thumbnail text,
// cost_total numeric, created_at timestamptz, updated_at timestamptz。
// postgrest 客户端不接受 context，ctx 仅用于提前取消。
type SupabaseRepo struct {
	client *supabase.Client
	table  string
}

// NewSupabaseRepo 创建 Supabase 仓库
func NewSupabaseRepo(url, key, table string) (*SupabaseRepo, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	if table == "" {
		table = DefaultSupabaseTable
	}
	return &SupabaseRepo{client: client, table: table}, nil
}

// Create 创建记录
func (r *SupabaseRepo) Create(ctx context.Context, g *generation.Generation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	if g.State.Assets == nil {
		g.State.Assets = []string{}
	}

	_, _, err := r.client.From(r.table).
		Insert(g, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert generation %s: %w", g.ID, err)
	}
	return nil
}

// Update 部分更新
func (r *SupabaseRepo) Update(ctx context.Context, id string, upd *generation.Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	patch := map[string]interface{}{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		patch["title"] = *upd.Title
	}
	if upd.Status != nil {
		patch["status"] = *upd.Status
	}
	if upd.State != nil {
		patch["state"] = upd.State
	}
	if upd.StoryID != nil {
		patch["story_id"] = *upd.StoryID
	}
	if upd.FilmID != nil {
		patch["film_id"] = *upd.FilmID
	}
	if upd.Thumbnail != nil {
		patch["thumbnail"] = *upd.Thumbnail
	}
	if upd.CostTotal != nil {
		patch["cost_total"] = *upd.CostTotal
	}

	data, _, err := r.client.From(r.table).
		Update(patch, "representation", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("update generation %s: %w", id, err)
	}
	return expectRow(data)
}

// Get 根据ID查询
func (r *SupabaseRepo) Get(ctx context.Context, id string) (*generation.Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := r.client.From(r.table).
		Select("*", "", false).
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("get generation %s: %w", id, err)
	}

	var rows []generation.Generation
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode generation %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// List 查询摘要列表
func (r *SupabaseRepo) List(ctx context.Context, filter *generation.ListFilter) ([]*generation.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := r.client.From(r.table).Select(summaryColumns, "", false)
	if filter != nil && len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query = query.In("status", statuses)
	}

	data, _, err := query.
		Order("updated_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(filter.NormalizedLimit(), "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}

	summaries := make([]*generation.Summary, 0)
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, fmt.Errorf("decode generations: %w", err)
	}
	return summaries, nil
}

// Delete 物理删除
func (r *SupabaseRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, _, err := r.client.From(r.table).
		Delete("representation", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("delete generation %s: %w", id, err)
	}
	return expectRow(data)
}

// expectRow 返回 representation 为空数组时视为记录不存在
func expectRow(data []byte) error {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}
