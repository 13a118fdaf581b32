package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"vocBot/internal/usecase/commands"
)

// FieldData is a widget fieldData document: flat keys such as
// video1_command or globalCooldown. Numbers may be JSON numbers or numeric
// strings, and *_url may be a string or a list.
type FieldData map[string]json.RawMessage

func LoadFieldData(path string) (FieldData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read field data: %w", err)
	}
	var fd FieldData
	if err := json.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("config: decode field data %s: %w", path, err)
	}
	return fd, nil
}

// Apply overrides cfg with every key present in the document.
func (fd FieldData) Apply(cfg *Config) {
	for _, name := range slotNames() {
		s := cfg.slot(name)
		if s == nil {
			continue
		}
		fd.str(name+"_command", &s.Command)
		fd.urls(name+"_url", &s.URLs)
		fd.num(name+"_volume", &s.Volume)
		fd.num(name+"_cooldown", &s.Cooldown)
		fd.str(name+"_comparisonMode", &s.ComparisonMode)
	}

	fd.num("globalCooldown", &cfg.GlobalCooldown)
	fd.str("managePermissions", &cfg.PermissionMode)
	fd.enabled("caseSensitivity", &cfg.CaseSensitive)
	fd.str("otherUsers", &cfg.AllowList)
	fd.str("blockedUsers", &cfg.BlockList)
	fd.str("channelName", &cfg.ChannelName)
	fd.enabled("debugMode", &cfg.DebugMode)

	fd.str("animationIn", &cfg.Overlay.AnimationIn)
	fd.str("animationOut", &cfg.Overlay.AnimationOut)
	fd.num("timeIn", &cfg.Overlay.TimeIn)
	fd.num("timeOut", &cfg.Overlay.TimeOut)
}

func slotNames() []string {
	names := make([]string, 0, len(commands.VideoSlots)+len(commands.AudioSlots))
	names = append(names, commands.VideoSlots...)
	return append(names, commands.AudioSlots...)
}

func (fd FieldData) str(key string, dst *string) {
	raw, ok := fd[key]
	if !ok {
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		*dst = s
		return
	}
	// numbers and booleans are kept in their JSON spelling
	*dst = strings.TrimSpace(string(raw))
}

func (fd FieldData) num(key string, dst *float64) {
	raw, ok := fd[key]
	if !ok {
		return
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		*dst = f
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		*dst = f
	}
}

// enabled reads the widget's "enabled"/"disabled" switches; plain booleans
// are accepted too.
func (fd FieldData) enabled(key string, dst *bool) {
	raw, ok := fd[key]
	if !ok {
		return
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		*dst = b
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "enabled", "true", "yes", "on":
		*dst = true
	default:
		*dst = false
	}
}

func (fd FieldData) urls(key string, dst *[]string) {
	raw, ok := fd[key]
	if !ok {
		return
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		*dst = list
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return
	}
	if strings.TrimSpace(s) == "" {
		*dst = nil
		return
	}
	*dst = []string{s}
}
