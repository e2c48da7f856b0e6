package generation

import "fmt"

// CostPhase 计费阶段
type CostPhase string

const (
	CostPhaseStory      CostPhase = "story"
	CostPhaseCharacters CostPhase = "characters"
	CostPhaseSetting    CostPhase = "setting"
	CostPhaseKeyMoments CostPhase = "key_moments"
	CostPhaseFilm       CostPhase = "film"
)

// CostLedger 各阶段花费（美元）
// 除成片外均为累加；成片由远端任务汇报的累计值替换。
// 只有 Reset 会让总额变小。
type CostLedger struct {
	Story      float64 `bson:"story" json:"story"`
	Characters float64 `bson:"characters" json:"characters"`
	Setting    float64 `bson:"setting" json:"setting"`
	KeyMoments float64 `bson:"key_moments" json:"key_moments"`

	// FilmSettled 已放弃的成片任务（失败后重试前）已花费的金额
	FilmSettled float64 `bson:"film_settled" json:"film_settled"`
	// FilmCurrent 当前成片任务汇报的累计金额
	FilmCurrent float64 `bson:"film_current" json:"film_current"`
}

// Add 累加某阶段花费，成片阶段不允许累加
func (l *CostLedger) Add(phase CostPhase, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("negative cost %.4f for %s", amount, phase)
	}
	switch phase {
	case CostPhaseStory:
		l.Story += amount
	case CostPhaseCharacters:
		l.Characters += amount
	case CostPhaseSetting:
		l.Setting += amount
	case CostPhaseKeyMoments:
		l.KeyMoments += amount
	case CostPhaseFilm:
		return fmt.Errorf("film cost is replaced, not added")
	default:
		return fmt.Errorf("unknown cost phase: %s", phase)
	}
	return nil
}

// ReplaceFilm 用当前任务汇报的累计金额替换成片花费
// 同一任务的汇报值只会增长，较小的值被忽略。
func (l *CostLedger) ReplaceFilm(total float64) {
	if total > l.FilmCurrent {
		l.FilmCurrent = total
	}
}

// SettleFilm 在重试成片前把当前任务的花费结转
func (l *CostLedger) SettleFilm() {
	l.FilmSettled += l.FilmCurrent
	l.FilmCurrent = 0
}

// Film 成片总花费
func (l CostLedger) Film() float64 {
	return l.FilmSettled + l.FilmCurrent
}

// Total 总花费
func (l CostLedger) Total() float64 {
	return l.Story + l.Characters + l.Setting + l.KeyMoments + l.Film()
}

// Reset 清零（仅用于“重新开始”）
func (l *CostLedger) Reset() {
	*l = CostLedger{}
}

// CostBreakdown 对外展示的花费明细
type CostBreakdown struct {
	Story      float64 `json:"story"`
	Characters float64 `json:"characters"`
	Setting    float64 `json:"setting"`
	KeyMoments float64 `json:"key_moments"`
	Film       float64 `json:"film"`
	Total      float64 `json:"total"`
}

// Breakdown 生成展示用明细
func (l CostLedger) Breakdown() CostBreakdown {
	return CostBreakdown{
		Story:      l.Story,
		Characters: l.Characters,
		Setting:    l.Setting,
		KeyMoments: l.KeyMoments,
		Film:       l.Film(),
		Total:      l.Total(),
	}
}
