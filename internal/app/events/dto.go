package events

import (
	"time"

	"vocBot/internal/domain"
)

// ChatMessageDTO is the bus payload of one chat message.
type ChatMessageDTO struct {
	Platform        string `json:"platform"`
	ChannelID       string `json:"channel_id"`
	UserID          string `json:"user_id"`
	Username        string `json:"username"`
	Text            string `json:"text"`
	IsPlatformOwner bool   `json:"is_platform_owner"`
	IsPlatformMod   bool   `json:"is_platform_mod"`
	IsPlatformVip   bool   `json:"is_platform_vip"`
	IsSubscriber    bool   `json:"is_subscriber"`
	Timestamp       string `json:"timestamp"`
}

func NewChatMessageDTO(msg domain.Message) ChatMessageDTO {
	return ChatMessageDTO{
		Platform:        string(msg.Platform),
		ChannelID:       msg.ChannelID,
		UserID:          msg.UserID,
		Username:        msg.Username,
		Text:            msg.Text,
		IsPlatformOwner: msg.IsPlatformOwner,
		IsPlatformMod:   msg.IsPlatformMod,
		IsPlatformVip:   msg.IsPlatformVip,
		IsSubscriber:    msg.IsSubscriber,
		Timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// DispatchDTO is published for every dispatch decision.
type DispatchDTO struct {
	Outcome  string `json:"outcome"`
	Command  string `json:"command,omitempty"`
	Username string `json:"username"`
	Text     string `json:"text"`
	At       string `json:"at"`
}

func NewDispatchDTO(outcome, command string, msg domain.Message) DispatchDTO {
	return DispatchDTO{
		Outcome:  outcome,
		Command:  command,
		Username: msg.Username,
		Text:     msg.Text,
		At:       time.Now().UTC().Format(time.RFC3339Nano),
	}
}
