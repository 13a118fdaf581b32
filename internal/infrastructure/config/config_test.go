package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"

	"vocBot/internal/domain"
	"vocBot/internal/usecase/commands"
)

func loadEnv(t *testing.T, vars map[string]string) *Config {
	t.Helper()
	cfg, err := load(env.Options{Environment: vars})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := loadEnv(t, map[string]string{})

	if cfg.PermissionMode != "everyone" || cfg.Addr != ":8080" || cfg.Overlay.Element != "video" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Overlay.PlaybackTimeout != 5*time.Minute {
		t.Fatalf("playback timeout = %v", cfg.Overlay.PlaybackTimeout)
	}
	if cfg.Overlay.TimeInDuration() != time.Second || cfg.GlobalCooldownDuration() != 0 {
		t.Fatalf("durations: in=%v global=%v", cfg.Overlay.TimeInDuration(), cfg.GlobalCooldownDuration())
	}
	for _, s := range cfg.Slots() {
		if s.VolumePercent != 100 || s.ComparisonMode != "strict" || len(s.URLs) != 0 {
			t.Fatalf("slot %s defaults = %+v", s.Name, s)
		}
	}
}

func TestSlotsFromEnv(t *testing.T) {
	cfg := loadEnv(t, map[string]string{
		"VIDEO2_COMMAND":         "!clip",
		"VIDEO2_URL":             "https://cdn.example/a.webm,https://cdn.example/b.webm",
		"VIDEO2_VOLUME":          "40",
		"VIDEO2_COOLDOWN":        "12.5",
		"VIDEO2_COMPARISON_MODE": "includes",
		"AUDIO1_COMMAND":         "!horn",
		"AUDIO1_URL":             "sounds/horn.mp3",
		"GLOBAL_COOLDOWN":        "3",
		"CASE_SENSITIVE":         "true",
	})

	slots := cfg.Slots()
	if len(slots) != 10 {
		t.Fatalf("got %d slots, want 10", len(slots))
	}
	if slots[0].Name != "video1" || slots[5].Name != "audio1" || slots[9].Name != "audio5" {
		t.Fatalf("order = %s %s %s", slots[0].Name, slots[5].Name, slots[9].Name)
	}

	v2 := slots[1]
	if v2.Kind != domain.MediaVideo || v2.Trigger != "!clip" || len(v2.URLs) != 2 {
		t.Fatalf("video2 = %+v", v2)
	}
	if v2.VolumePercent != 40 || v2.CooldownSeconds != 12.5 || v2.ComparisonMode != "includes" {
		t.Fatalf("video2 numbers = %+v", v2)
	}
	if a1 := slots[5]; a1.Kind != domain.MediaAudio || a1.URLs[0] != "sounds/horn.mp3" {
		t.Fatalf("audio1 = %+v", a1)
	}
	if cfg.GlobalCooldownDuration() != 3*time.Second || !cfg.CaseSensitive {
		t.Fatalf("globals = %+v", cfg)
	}
}

func TestFieldDataOverridesEnv(t *testing.T) {
	doc := `{
		"video1_command": "!wow",
		"video1_url": ["https://cdn.example/1.webm", "https://cdn.example/2.webm"],
		"video1_volume": "75",
		"video1_cooldown": 30,
		"video1_comparisonMode": "firstWord",
		"audio3_command": "!ding",
		"audio3_url": "https://cdn.example/ding.mp3",
		"globalCooldown": "5",
		"managePermissions": "vips",
		"caseSensitivity": "enabled",
		"otherUsers": "Friend, pal",
		"blockedUsers": "troll",
		"debugMode": "disabled",
		"animationIn": "zoomIn",
		"timeOut": 2.5,
		"channelName": "Streamer"
	}`
	path := filepath.Join(t.TempDir(), "fields.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := loadEnv(t, map[string]string{
		"FIELD_DATA_PATH": path,
		"VIDEO1_COMMAND":  "!env",
		"AUDIO1_COMMAND":  "!keep",
		"AUDIO1_URL":      "keep.mp3",
		"DEBUG_MODE":      "true",
		"PERMISSION_MODE": "mods",
	})

	if cfg.Video1.Command != "!wow" || len(cfg.Video1.URLs) != 2 {
		t.Fatalf("video1 = %+v", cfg.Video1)
	}
	if cfg.Video1.Volume != 75 || cfg.Video1.Cooldown != 30 || cfg.Video1.ComparisonMode != "firstWord" {
		t.Fatalf("video1 numbers = %+v", cfg.Video1)
	}
	if cfg.Audio3.Command != "!ding" || len(cfg.Audio3.URLs) != 1 {
		t.Fatalf("audio3 = %+v", cfg.Audio3)
	}
	if cfg.Audio1.Command != "!keep" {
		t.Fatalf("untouched env slot changed: %+v", cfg.Audio1)
	}
	if cfg.GlobalCooldown != 5 || cfg.PermissionMode != "vips" || !cfg.CaseSensitive || cfg.DebugMode {
		t.Fatalf("globals = %+v", cfg)
	}
	if cfg.AllowList != "Friend, pal" || cfg.BlockList != "troll" || cfg.ChannelName != "Streamer" {
		t.Fatalf("lists = %q %q %q", cfg.AllowList, cfg.BlockList, cfg.ChannelName)
	}
	if cfg.Overlay.AnimationIn != "zoomIn" || cfg.Overlay.AnimationOut != "fadeOut" || cfg.Overlay.TimeOutDuration() != 2500*time.Millisecond {
		t.Fatalf("overlay = %+v", cfg.Overlay)
	}
}

func TestFieldDataErrors(t *testing.T) {
	if _, err := load(env.Options{Environment: map[string]string{"FIELD_DATA_PATH": filepath.Join(t.TempDir(), "missing.json")}}); err == nil {
		t.Fatal("expected error for missing field data")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFieldData(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFieldDataEmptyURLClearsSlot(t *testing.T) {
	cfg := &Config{Audio2: Slot{Command: "!x", URLs: []string{"x.mp3"}}}
	FieldData{"audio2_url": []byte(`""`)}.Apply(cfg)
	if len(cfg.Audio2.URLs) != 0 {
		t.Fatalf("urls = %v", cfg.Audio2.URLs)
	}
}

func TestInvalidEnvValue(t *testing.T) {
	if _, err := load(env.Options{Environment: map[string]string{"GLOBAL_COOLDOWN": "soon"}}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFieldDataCoversEverySlot(t *testing.T) {
	names := append(append([]string{}, commands.VideoSlots...), commands.AudioSlots...)
	fd := FieldData{}
	for _, name := range names {
		fd[name+"_command"] = []byte(`"!` + name + `"`)
	}
	cfg := &Config{}
	fd.Apply(cfg)

	slots := cfg.Slots()
	if len(slots) != len(names) {
		t.Fatalf("got %d slots, want %d", len(slots), len(names))
	}
	for i, name := range names {
		if slots[i].Name != name || slots[i].Trigger != "!"+name {
			t.Fatalf("slot %d = %s %q, want %s %q", i, slots[i].Name, slots[i].Trigger, name, "!"+name)
		}
	}
}
