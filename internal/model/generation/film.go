package generation

// CompletedShot 已完成的镜头
type CompletedShot struct {
	Number     int    `bson:"number" json:"number"`
	PreviewURL string `bson:"preview_url" json:"preview_url"`
}

// FilmCost 成片任务汇报的花费明细
type FilmCost struct {
	KeyframesUSD float64 `bson:"keyframes_usd" json:"keyframes_usd"`
	VideosUSD    float64 `bson:"videos_usd" json:"videos_usd"`
	TotalUSD     float64 `bson:"total_usd" json:"total_usd"`
}

// FilmJob 成片任务在本地的镜像，字段只由轮询结果覆盖
type FilmJob struct {
	ID             string          `bson:"id,omitempty" json:"id,omitempty"`
	Status         FilmStatus      `bson:"status" json:"status"`
	CurrentShot    int             `bson:"current_shot" json:"current_shot"`
	TotalShots     int             `bson:"total_shots" json:"total_shots"`
	Phase          FilmPhase       `bson:"phase,omitempty" json:"phase,omitempty"`
	CompletedShots []CompletedShot `bson:"completed_shots" json:"completed_shots"`
	FinalVideoURL  string          `bson:"final_video_url,omitempty" json:"final_video_url,omitempty"`
	ErrorMessage   string          `bson:"error_message,omitempty" json:"error_message,omitempty"`
	Cost           FilmCost        `bson:"cost" json:"cost"`
	Starting       bool            `bson:"starting" json:"starting"` // 提交或重拍请求进行中
}

// NewFilmJob 零值任务
func NewFilmJob() FilmJob {
	return FilmJob{Status: FilmStatusIdle, CompletedShots: []CompletedShot{}}
}

// FilmRequestRef 提交成片时使用的素材引用，重试时原样复用
type FilmRequestRef struct {
	Bundle    VisualsBundle `bson:"bundle" json:"bundle"`
	KeyMoment ImageRef      `bson:"key_moment" json:"key_moment"`
}

// FilmState 成片阶段状态
type FilmState struct {
	Job     FilmJob         `bson:"job" json:"job"`
	Request *FilmRequestRef `bson:"request,omitempty" json:"request,omitempty"`
}

// Clone 深拷贝
func (f *FilmState) Clone() *FilmState {
	if f == nil {
		return nil
	}
	out := *f
	out.Job.CompletedShots = append([]CompletedShot{}, f.Job.CompletedShots...)
	if f.Request != nil {
		r := *f.Request
		r.Bundle = *f.Request.Bundle.Clone()
		out.Request = &r
	}
	return &out
}
