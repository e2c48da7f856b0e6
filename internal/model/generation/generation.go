package generation

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Generation 一次从创意到成片的创作
type Generation struct {
	ID        string        `bson:"id" json:"id"`
	Title     string        `bson:"title" json:"title"`
	Style     Style         `bson:"style" json:"style"`
	Status    Status        `bson:"status" json:"status"`
	State     PipelineState `bson:"state" json:"state"`
	StoryID   string        `bson:"story_id,omitempty" json:"story_id,omitempty"`
	FilmID    string        `bson:"film_id,omitempty" json:"film_id,omitempty"`
	Thumbnail string        `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	CostTotal float64       `bson:"cost_total" json:"cost_total"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updated_at"`
}

// PipelineState 持久化的流水线状态
// 恢复时阶段只由 Status 与这里的内容推导。
type PipelineState struct {
	Idea     string   `bson:"idea" json:"idea"`
	Duration Duration `bson:"duration,omitempty" json:"duration,omitempty"`

	Story           *Story `bson:"story,omitempty" json:"story,omitempty"`
	StoryGenerating bool   `bson:"story_generating" json:"story_generating"`
	RefiningBeat    int    `bson:"refining_beat" json:"refining_beat"` // 0 表示没有
	SelectedBeat    int    `bson:"selected_beat" json:"selected_beat"` // 0 表示没有
	StoryError      string `bson:"story_error,omitempty" json:"story_error,omitempty"`

	VisualDirection *VisualDirection `bson:"visual_direction,omitempty" json:"visual_direction,omitempty"`
	Film            *FilmState       `bson:"film,omitempty" json:"film,omitempty"`

	Cost        CostLedger `bson:"cost" json:"cost"`
	FailedPhase Phase      `bson:"failed_phase,omitempty" json:"failed_phase,omitempty"`
	Interrupted bool       `bson:"interrupted" json:"interrupted"` // 成片任务下落不明（轮询超时或远端丢失）
	Epoch       int        `bson:"epoch" json:"epoch"`
	Assets      []string   `bson:"assets" json:"assets"` // 对象存储 key，删除时一并清理
}

// Clone 深拷贝
func (s *PipelineState) Clone() PipelineState {
	out := *s
	out.Story = s.Story.Clone()
	out.VisualDirection = s.VisualDirection.Clone()
	out.Film = s.Film.Clone()
	out.Assets = append([]string(nil), s.Assets...)
	return out
}

// Clone 深拷贝
func (g *Generation) Clone() *Generation {
	out := *g
	out.State = g.State.Clone()
	return &out
}

// Collection 返回集合名称
func (g *Generation) Collection() string { return "generations" }

// EnsureIndexes 创建和维护索引
func (g *Generation) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(g.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_updated"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_status_updated"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}

// Update 部分更新，nil 字段不修改
type Update struct {
	Title     *string
	Status    *Status
	State     *PipelineState
	StoryID   *string
	FilmID    *string
	Thumbnail *string
	CostTotal *float64
}

// Apply 把部分更新应用到记录上
func (u *Update) Apply(g *Generation) {
	if u.Title != nil {
		g.Title = *u.Title
	}
	if u.Status != nil {
		g.Status = *u.Status
	}
	if u.State != nil {
		g.State = u.State.Clone()
	}
	if u.StoryID != nil {
		g.StoryID = *u.StoryID
	}
	if u.FilmID != nil {
		g.FilmID = *u.FilmID
	}
	if u.Thumbnail != nil {
		g.Thumbnail = *u.Thumbnail
	}
	if u.CostTotal != nil {
		g.CostTotal = *u.CostTotal
	}
}

// DefaultTitle 故事生成前的标题
const DefaultTitle = "Untitled"

// DefaultListLimit 列表默认条数
const DefaultListLimit = 50

// ListFilter 列表筛选
type ListFilter struct {
	Statuses []Status
	Limit    int
}

// NormalizedLimit 返回有效的条数上限
func (f *ListFilter) NormalizedLimit() int {
	if f == nil || f.Limit <= 0 || f.Limit > 200 {
		return DefaultListLimit
	}
	return f.Limit
}

// Matches 判断记录是否满足筛选
func (f *ListFilter) Matches(status Status) bool {
	if f == nil || len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Summary 列表摘要
type Summary struct {
	ID        string    `bson:"id" json:"id"`
	Title     string    `bson:"title" json:"title"`
	Style     Style     `bson:"style" json:"style"`
	Status    Status    `bson:"status" json:"status"`
	Thumbnail string    `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	CostTotal float64   `bson:"cost_total" json:"cost_total"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Summarize 从完整记录生成摘要
func (g *Generation) Summarize() *Summary {
	return &Summary{
		ID:        g.ID,
		Title:     g.Title,
		Style:     g.Style,
		Status:    g.Status,
		Thumbnail: g.Thumbnail,
		CostTotal: g.CostTotal,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}
