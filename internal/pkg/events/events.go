// Package events 发布创作状态变化事件
package events

import (
	"context"
	"time"
)

// EventType 事件类型
type EventType string

const (
	EventStatusChanged EventType = "generation.status_changed"
	EventDeleted       EventType = "generation.deleted"
)

// Event 状态变化事件
type Event struct {
	Type         EventType `json:"type"`
	GenerationID string    `json:"generation_id"`
	Status       string    `json:"status,omitempty"`
	Phase        string    `json:"phase,omitempty"`
	FilmID       string    `json:"film_id,omitempty"`
	CostTotal    float64   `json:"cost_total"`
	At           time.Time `json:"at"`
}

// Publisher 事件发布者
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher 未配置消息队列时使用
type NopPublisher struct{}

// Publish 丢弃事件
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close 无操作
func (NopPublisher) Close() error { return nil }
