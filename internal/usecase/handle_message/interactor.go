// Package handle_message is the single entry point for chat messages from
// any source.
package handle_message

import (
	"context"
	"strings"

	"vocBot/internal/app/events"
	"vocBot/internal/domain"
)

type Dispatcher interface {
	Handle(ctx context.Context, msg domain.Message) error
}

type Publisher interface {
	Publish(topic string, payload any)
}

type Interactor struct {
	dispatcher Dispatcher
	bus        Publisher
	channel    string
}

// NewInteractor wires the dispatcher. channel fills in messages that arrive
// without a channel id; bus may be nil.
func NewInteractor(dispatcher Dispatcher, bus Publisher, channel string) *Interactor {
	return &Interactor{
		dispatcher: dispatcher,
		bus:        bus,
		channel:    strings.TrimSpace(channel),
	}
}

// Handle fills in missing identity fields and dispatches the message. Text is
// passed through untouched so strict triggers see exactly what was typed;
// blank messages are dropped.
func (uc *Interactor) Handle(ctx context.Context, msg domain.Message) error {
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	msg.Username = strings.TrimSpace(msg.Username)
	if msg.Username == "" {
		msg.Username = "web-user"
	}
	if msg.ChannelID == "" {
		msg.ChannelID = uc.channel
	}
	if msg.Platform == "" {
		msg.Platform = domain.PlatformWeb
	}

	if uc.bus != nil {
		uc.bus.Publish(events.TopicChatMessage, events.NewChatMessageDTO(msg))
	}
	return uc.dispatcher.Handle(ctx, msg)
}
