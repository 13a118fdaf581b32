// Package audio plays audio commands on the local output device.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"github.com/hajimehoshi/oto/v2"

	"vocBot/internal/domain"
)

const (
	DefaultMaxBytes = 32 << 20
	pollInterval    = 15 * time.Millisecond
)

var ErrSampleRate = errors.New("sample rate differs from output device")

type Config struct {
	Client   *http.Client
	MaxBytes int64
	Logger   *slog.Logger
}

// Player decodes MP3 and plays it through a single oto context shared by
// the process. oto allows only one context, so the first file played fixes
// the output sample rate.
type Player struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger

	audioMu sync.Mutex

	otoMu      sync.Mutex
	otoCtx     *oto.Context
	sampleRate int
	otoErr     error
}

func NewPlayer(cfg Config) *Player {
	p := &Player{
		client:   cfg.Client,
		maxBytes: cfg.MaxBytes,
		logger:   cfg.Logger,
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 30 * time.Second}
	}
	if p.maxBytes <= 0 {
		p.maxBytes = DefaultMaxBytes
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

var _ domain.MediaPlayer = (*Player)(nil)

func (p *Player) Play(ctx context.Context, req domain.PlaybackRequest) error {
	data, err := p.load(ctx, req.URL)
	if err != nil {
		return err
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("mp3 decoder: %w", err)
	}

	p.audioMu.Lock()
	defer p.audioMu.Unlock()

	otoCtx, err := p.context(decoder.SampleRate())
	if err != nil {
		return err
	}

	player := otoCtx.NewPlayer(decoder)
	defer player.Close()
	player.SetVolume(req.Volume)
	player.Play()

	if req.OnStarted != nil {
		req.OnStarted()
	}
	p.logger.Debug("audio started",
		slog.String("id", req.ID),
		slog.Int("sample_rate", decoder.SampleRate()),
		slog.Float64("volume", req.Volume),
	)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	if err := player.Err(); err != nil {
		return fmt.Errorf("audio output: %w", err)
	}
	return nil
}

func (p *Player) context(sampleRate int) (*oto.Context, error) {
	p.otoMu.Lock()
	defer p.otoMu.Unlock()

	if p.otoCtx == nil && p.otoErr == nil {
		// go-mp3 always decodes to 16-bit stereo
		otoCtx, ready, err := oto.NewContext(sampleRate, 2, 2)
		if err != nil {
			p.otoErr = fmt.Errorf("oto context: %w", err)
		} else {
			<-ready
			p.otoCtx = otoCtx
			p.sampleRate = sampleRate
		}
	}
	if p.otoErr != nil {
		return nil, p.otoErr
	}
	if sampleRate != p.sampleRate {
		return nil, fmt.Errorf("%w: got %d Hz, device runs at %d Hz", ErrSampleRate, sampleRate, p.sampleRate)
	}
	return p.otoCtx, nil
}
