package domain

import (
	"errors"
	"fmt"
)

// ConfigError reports a command slot that could not be built.
type ConfigError struct {
	Slot string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: slot %s: %v", e.Slot, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// PlaybackError reports media that failed to load or play.
type PlaybackError struct {
	URL string
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback %s: %v", e.URL, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// NewPlaybackError wraps err unless it already is a *PlaybackError.
func NewPlaybackError(url string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PlaybackError
	if errors.As(err, &pe) {
		return err
	}
	return &PlaybackError{URL: url, Err: err}
}
