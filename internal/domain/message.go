package domain

type Platform string

const (
	PlatformTwitch Platform = "twitch"
	PlatformKick   Platform = "kick"
	PlatformWeb    Platform = "web"
)

// Message is one chat event as delivered by the host runtime.
type Message struct {
	Platform  Platform
	ChannelID string
	UserID    string
	Username  string
	Text      string

	// role flags as reported by the platform
	IsPlatformOwner bool
	IsPlatformMod   bool
	IsPlatformVip   bool
	IsSubscriber    bool
}
