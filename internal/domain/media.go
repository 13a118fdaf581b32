package domain

import (
	"context"
	"time"
)

type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

type PlaybackRequest struct {
	ID          string
	Kind        MediaKind
	Command     string
	URL         string
	Volume      float64
	RequestedBy string

	// OnStarted is called at most once, when the media actually starts.
	OnStarted func()
}

// MediaPlayer plays a single media item. Play blocks until the item ended or
// failed; a failure is reported as a *PlaybackError.
type MediaPlayer interface {
	Play(ctx context.Context, req PlaybackRequest) error
}

// TransitionService runs an enter/exit effect on an overlay element and
// returns once the effect is over.
type TransitionService interface {
	RunTransition(ctx context.Context, element, effect string, duration time.Duration) error
}
