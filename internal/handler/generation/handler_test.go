package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reel/internal/generator"
	model "reel/internal/model/generation"
	"reel/internal/pkg/storage/local"
	repo "reel/internal/repository/generation"
	"reel/internal/service/pipeline"
)

// stubGenerator 只实现故事生成，其余调用不应出现
type stubGenerator struct {
	generator.Generator
}

func (stubGenerator) GenerateStory(ctx context.Context, req *generator.StoryRequest) (*generator.StoryResult, error) {
	return &generator.StoryResult{
		Story: &model.Story{
			ID:    "story-1",
			Title: "Night Shift",
			Characters: []model.Character{
				{ID: "hero", Name: "Ada", Appearance: "grey coat", Role: model.RoleProtagonist},
			},
			Setting: model.Setting{Location: "museum", Time: "midnight", Atmosphere: "hushed"},
			Beats: []model.Beat{
				{SceneNumber: 1, Description: "Ada slips in."},
				{SceneNumber: 2, Description: "A light sweeps."},
			},
			Style:    req.Style,
			Duration: req.Duration,
		},
		CostUSD: 0.01,
	}, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

type snapshotView struct {
	Generation struct {
		ID     string       `json:"id"`
		Status model.Status `json:"status"`
		State  struct {
			Story *model.Story `json:"story"`
		} `json:"state"`
	} `json:"generation"`
	Phase   model.Phase       `json:"phase"`
	Actions []pipeline.Action `json:"actions"`
}

func setup(t *testing.T) (*gin.Engine, *pipeline.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := local.NewLocalStorage(t.TempDir(), "http://assets.test")
	require.NoError(t, err)
	svc := pipeline.NewService(pipeline.Config{
		Generator:      stubGenerator{},
		Store:          repo.NewMemoryRepo(),
		Storage:        store,
		RequestTimeout: 2 * time.Second,
	})
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	engine := gin.New()
	NewHandler(svc).Register(engine.Group("/api/v1"))
	return engine, svc
}

func call(t *testing.T, engine *gin.Engine, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decodeSnapshot(t *testing.T, env envelope) snapshotView {
	t.Helper()
	var snap snapshotView
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	return snap
}

func TestCreateAndList(t *testing.T) {
	engine, _ := setup(t)

	code, env := call(t, engine, http.MethodPost, "/api/v1/generations", `{"title":"Heist","style":"2d_animated"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, 0, env.Code)
	snap := decodeSnapshot(t, env)
	assert.NotEmpty(t, snap.Generation.ID)
	assert.Equal(t, model.StatusDrafting, snap.Generation.Status)
	assert.Contains(t, snap.Actions, pipeline.ActionSubmitIdea)

	code, env = call(t, engine, http.MethodPost, "/api/v1/generations", "")
	require.Equal(t, http.StatusCreated, code)

	code, env = call(t, engine, http.MethodGet, "/api/v1/generations?status=drafting&limit=10", "")
	require.Equal(t, http.StatusOK, code)
	var list ListResponseData
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Drafts, 2)
	assert.Equal(t, "Script", list.Drafts[0].StepLabel)

	code, env = call(t, engine, http.MethodGet, "/api/v1/generations?status=ready", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Empty(t, list.Drafts)
}

func TestValidationErrors(t *testing.T) {
	engine, _ := setup(t)

	code, env := call(t, engine, http.MethodPost, "/api/v1/generations", `{"style":"anime"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 40001, env.Code)

	code, env = call(t, engine, http.MethodGet, "/api/v1/generations?status=lost", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 40001, env.Code)

	code, env = call(t, engine, http.MethodGet, "/api/v1/generations/missing", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 40401, env.Code)

	code, env = call(t, engine, http.MethodPost, "/api/v1/generations", "")
	require.Equal(t, http.StatusCreated, code)
	id := decodeSnapshot(t, env).Generation.ID

	code, env = call(t, engine, http.MethodPost, "/api/v1/generations/"+id+"/idea", `{"idea":""}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 40001, env.Code)

	code, env = call(t, engine, http.MethodPost, "/api/v1/generations/"+id+"/idea", `{"idea":"a heist","duration":"9"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 40001, env.Code)

	code, env = call(t, engine, http.MethodPost, "/api/v1/generations/"+id+"/story/beats/0/refine", `{"feedback":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 40001, env.Code)
}

func TestStoryFlow(t *testing.T) {
	engine, svc := setup(t)

	_, env := call(t, engine, http.MethodPost, "/api/v1/generations", "")
	id := decodeSnapshot(t, env).Generation.ID

	code, env := call(t, engine, http.MethodPost, "/api/v1/generations/"+id+"/idea",
		`{"idea":"a heist in a museum","style":"cinematic","duration":"1"}`)
	require.Equal(t, http.StatusOK, code, env.Detail)
	assert.Equal(t, model.PhaseStoryDrafting, decodeSnapshot(t, env).Phase)

	ctl, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	ctl.Wait()

	code, env = call(t, engine, http.MethodGet, "/api/v1/generations/"+id, "")
	require.Equal(t, http.StatusOK, code)
	snap := decodeSnapshot(t, env)
	require.NotNil(t, snap.Generation.State.Story)
	assert.Equal(t, "Night Shift", snap.Generation.State.Story.Title)
	assert.Contains(t, snap.Actions, pipeline.ActionApproveStory)

	code, _ = call(t, engine, http.MethodPut, "/api/v1/generations/"+id+"/story/selected-beat", `{"beat_number":2}`)
	assert.Equal(t, http.StatusOK, code)

	code, env = call(t, engine, http.MethodPut, "/api/v1/generations/"+id+"/story/selected-beat", `{"beat_number":7}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 40001, env.Code)

	code, env = call(t, engine, http.MethodPost, "/api/v1/generations/"+id+"/slots/setting/generate", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, 40901, env.Code)

	code, env = call(t, engine, http.MethodPost, "/api/v1/generations/"+id+"/story/approve", "")
	require.Equal(t, http.StatusOK, code, env.Detail)
	snap = decodeSnapshot(t, env)
	assert.Equal(t, model.PhaseVisualDirection, snap.Phase)
	assert.Equal(t, model.StatusVisuals, snap.Generation.Status)

	code, env = call(t, engine, http.MethodPost, "/api/v1/generations/"+id+"/story/approve", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, 40901, env.Code)

	code, _ = call(t, engine, http.MethodPost, "/api/v1/generations/"+id+"/close", "")
	assert.Equal(t, http.StatusOK, code)

	// 关闭后从存储恢复
	code, env = call(t, engine, http.MethodGet, "/api/v1/generations/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.PhaseVisualDirection, decodeSnapshot(t, env).Phase)

	code, _ = call(t, engine, http.MethodDelete, "/api/v1/generations/"+id, "")
	assert.Equal(t, http.StatusOK, code)
	code, env = call(t, engine, http.MethodGet, "/api/v1/generations/"+id, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 40401, env.Code)
}

func TestRegenerateShotRoute(t *testing.T) {
	engine, _ := setup(t)

	_, env := call(t, engine, http.MethodPost, "/api/v1/generations", "")
	id := decodeSnapshot(t, env).Generation.ID

	code, env := call(t, engine, http.MethodPost, "/api/v1/generations/"+id+"/film/shots/0/regenerate", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 40001, env.Code)

	code, env = call(t, engine, http.MethodPost, "/api/v1/generations/"+id+"/film/shots/2/regenerate", `{"feedback":"slower pan"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, 40901, env.Code)

	code, env = call(t, engine, http.MethodPost, "/api/v1/generations/missing/film/shots/2/regenerate", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 40401, env.Code)
}
