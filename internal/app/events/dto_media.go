package events

import (
	"time"

	"vocBot/internal/domain"
)

type PlaybackDTO struct {
	ID          string  `json:"id"`
	Command     string  `json:"command"`
	Kind        string  `json:"kind"`
	URL         string  `json:"url"`
	Volume      float64 `json:"volume"`
	RequestedBy string  `json:"requested_by,omitempty"`
	Error       string  `json:"error,omitempty"`
	At          string  `json:"at"`
}

func NewPlaybackDTO(req domain.PlaybackRequest, err error) PlaybackDTO {
	payload := PlaybackDTO{
		ID:          req.ID,
		Command:     req.Command,
		Kind:        string(req.Kind),
		URL:         req.URL,
		Volume:      req.Volume,
		RequestedBy: req.RequestedBy,
		At:          time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err != nil {
		payload.Error = err.Error()
	}
	return payload
}
