package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

var ErrTooLarge = errors.New("media exceeds size limit")

// load reads the whole media file behind ref into memory. ref is an http(s)
// URL, a file:// URL or a plain path.
func (p *Player) load(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("empty media reference")
	}

	u, err := url.Parse(ref)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return p.fetch(ctx, ref)
		case "file":
			path := u.Path
			if u.Host != "" && u.Host != "localhost" {
				path = "//" + u.Host + u.Path
			}
			return p.readFile(path)
		}
	}
	return p.readFile(ref)
}

func (p *Player) fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch media: unexpected status %s", resp.Status)
	}
	if resp.ContentLength > p.maxBytes {
		return nil, ErrTooLarge
	}
	return readLimited(resp.Body, p.maxBytes)
}

func (p *Player) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open media: %w", err)
	}
	defer f.Close()
	return readLimited(f, p.maxBytes)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
