package commands

import "vocBot/internal/domain"

// Slot priority: videos before audios, each in ascending index. The first
// matching command in this order wins.
var (
	VideoSlots = []string{"video1", "video2", "video3", "video4", "video5"}
	AudioSlots = []string{"audio1", "audio2", "audio3", "audio4", "audio5"}
)

// CommandDescriptor exposes a built command for the API.
type CommandDescriptor struct {
	Name            string           `json:"name"`
	Kind            domain.MediaKind `json:"kind"`
	Trigger         string           `json:"trigger"`
	ComparisonMode  string           `json:"comparison_mode"`
	URLs            []string         `json:"urls"`
	Volume          float64          `json:"volume"`
	CooldownSeconds float64          `json:"cooldown_seconds"`
	RemainingMillis int64            `json:"cooldown_remaining_ms"`
}
