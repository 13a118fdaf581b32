package ws

import (
	"strings"

	"vocBot/internal/domain"
)

const (
	typeMessage       = "message"
	typeStarted       = "started"
	typeEnded         = "ended"
	typeError         = "error"
	typeTransitionEnd = "transitionend"

	typePlay       = "play"
	typeTransition = "transition"
	typeEvent      = "event"
)

// inbound is every frame an overlay may send; which fields are set depends
// on Type.
type inbound struct {
	Type string `json:"type"`

	// playback lifecycle and transitionend
	ID    string `json:"id"`
	Error string `json:"error"`

	// chat message
	Text        string `json:"text"`
	Platform    string `json:"platform"`
	ChannelID   string `json:"channel_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Moderator   bool   `json:"moderator"`
	Subscriber  bool   `json:"subscriber"`
	VIP         bool   `json:"vip"`
	Broadcaster bool   `json:"broadcaster"`
}

type playFrame struct {
	Type   string           `json:"type"`
	ID     string           `json:"id"`
	Kind   domain.MediaKind `json:"kind"`
	URL    string           `json:"url"`
	Volume float64          `json:"volume"`
}

type transitionFrame struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Element  string `json:"element"`
	Effect   string `json:"effect"`
	Duration int64  `json:"duration"`
}

type eventFrame struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

func (in inbound) message() domain.Message {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = "web-user"
	}
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		userID = "web"
	}
	return domain.Message{
		Platform:        normalizePlatform(in.Platform),
		ChannelID:       strings.TrimSpace(in.ChannelID),
		UserID:          userID,
		Username:        username,
		Text:            in.Text,
		IsPlatformOwner: in.Broadcaster,
		IsPlatformMod:   in.Moderator,
		IsPlatformVip:   in.VIP,
		IsSubscriber:    in.Subscriber,
	}
}

func normalizePlatform(p string) domain.Platform {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case string(domain.PlatformTwitch):
		return domain.PlatformTwitch
	case string(domain.PlatformKick):
		return domain.PlatformKick
	default:
		return domain.PlatformWeb
	}
}
