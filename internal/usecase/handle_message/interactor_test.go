package handle_message

import (
	"context"
	"testing"

	"vocBot/internal/app/events"
	"vocBot/internal/domain"
)

type captureDispatcher struct{ msgs []domain.Message }

func (c *captureDispatcher) Handle(_ context.Context, msg domain.Message) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

type capturePublisher struct{ topics []string }

func (c *capturePublisher) Publish(topic string, _ any) {
	c.topics = append(c.topics, topic)
}

func TestHandleNormalizesAndPublishes(t *testing.T) {
	d := &captureDispatcher{}
	bus := &capturePublisher{}
	uc := NewInteractor(d, bus, " streamer ")

	if err := uc.Handle(context.Background(), domain.Message{Text: "  !horn ", IsPlatformMod: true}); err != nil {
		t.Fatal(err)
	}

	if len(d.msgs) != 1 {
		t.Fatalf("dispatched %d messages", len(d.msgs))
	}
	got := d.msgs[0]
	if got.Text != "  !horn " || got.Username != "web-user" || got.ChannelID != "streamer" || got.Platform != domain.PlatformWeb {
		t.Fatalf("normalized = %+v", got)
	}
	if !got.IsPlatformMod {
		t.Fatal("roles dropped")
	}
	if len(bus.topics) != 1 || bus.topics[0] != events.TopicChatMessage {
		t.Fatalf("topics = %v", bus.topics)
	}
}

func TestHandleKeepsExplicitFields(t *testing.T) {
	d := &captureDispatcher{}
	uc := NewInteractor(d, nil, "streamer")

	msg := domain.Message{Platform: domain.PlatformKick, ChannelID: "42", Username: "alice", Text: "!clip"}
	if err := uc.Handle(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if d.msgs[0] != msg {
		t.Fatalf("got %+v, want %+v", d.msgs[0], msg)
	}
}

func TestHandleDropsBlankMessages(t *testing.T) {
	d := &captureDispatcher{}
	bus := &capturePublisher{}
	uc := NewInteractor(d, bus, "streamer")

	for _, text := range []string{"", "   ", "\t\n"} {
		if err := uc.Handle(context.Background(), domain.Message{Username: "alice", Text: text}); err != nil {
			t.Fatalf("Handle(%q): %v", text, err)
		}
	}
	if len(d.msgs) != 0 || len(bus.topics) != 0 {
		t.Fatalf("blank messages reached dispatcher=%d bus=%d", len(d.msgs), len(bus.topics))
	}
}
