package domain

import (
	"context"
	"time"
)

type PlayStatus string

const (
	PlayStatusPlaying PlayStatus = "playing"
	PlayStatusEnded   PlayStatus = "ended"
	PlayStatusFailed  PlayStatus = "failed"
)

type PlayRecord struct {
	ID          string
	Command     string
	Kind        MediaKind
	URL         string
	RequestedBy string
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      PlayStatus
	Error       string
}

type PlayRecorder interface {
	RecordStart(ctx context.Context, rec PlayRecord) error
	RecordFinish(ctx context.Context, id string, finishedAt time.Time, playErr error) error
}

type PlayHistory interface {
	RecentPlays(ctx context.Context, limit int) ([]PlayRecord, error)
}
