package permission

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrUnknownMode = errors.New("unknown permission mode")

type Tier string

const (
	TierModerator  Tier = "moderator"
	TierSubscriber Tier = "subscriber"
	TierVIP        Tier = "vip"
)

// Mode is the set of role tiers allowed to invoke commands. Everyone admits
// all senders regardless of tiers.
type Mode struct {
	Everyone bool
	Tiers    map[Tier]bool
}

var presets = map[string]Mode{
	"everyone":    {Everyone: true},
	"mods":        {Tiers: map[Tier]bool{TierModerator: true}},
	"vips":        {Tiers: map[Tier]bool{TierModerator: true, TierVIP: true}},
	"subs":        {Tiers: map[Tier]bool{TierModerator: true, TierVIP: true, TierSubscriber: true}},
	"broadcaster": {Tiers: map[Tier]bool{}},
}

var tierAliases = map[string]Tier{
	"mod":         TierModerator,
	"mods":        TierModerator,
	"moderator":   TierModerator,
	"moderators":  TierModerator,
	"sub":         TierSubscriber,
	"subs":        TierSubscriber,
	"subscriber":  TierSubscriber,
	"subscribers": TierSubscriber,
	"vip":         TierVIP,
	"vips":        TierVIP,
}

// ParseMode accepts a preset (everyone, mods, vips, subs, broadcaster) or an
// explicit list of tiers joined by '+' or ',', e.g. "moderator+subscriber".
// An empty value means everyone.
func ParseMode(raw string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return presets["everyone"], nil
	}
	if mode, ok := presets[key]; ok {
		return mode, nil
	}

	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '+' || r == ',' || unicode.IsSpace(r)
	})
	mode := Mode{Tiers: make(map[Tier]bool)}
	for _, part := range parts {
		tier, ok := tierAliases[part]
		if !ok {
			return Mode{}, fmt.Errorf("%w: %q", ErrUnknownMode, raw)
		}
		mode.Tiers[tier] = true
	}
	if len(mode.Tiers) == 0 {
		return Mode{}, fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
	return mode, nil
}

func (m Mode) admits(roles Roles) bool {
	if m.Everyone {
		return true
	}
	return (roles.Moderator && m.Tiers[TierModerator]) ||
		(roles.VIP && m.Tiers[TierVIP]) ||
		(roles.Subscriber && m.Tiers[TierSubscriber])
}

func (m Mode) String() string {
	if m.Everyone {
		return "everyone"
	}
	var names []string
	for _, tier := range []Tier{TierModerator, TierVIP, TierSubscriber} {
		if m.Tiers[tier] {
			names = append(names, string(tier))
		}
	}
	if len(names) == 0 {
		return "broadcaster"
	}
	return strings.Join(names, "+")
}

// Roles are the platform-supplied flags of a sender.
type Roles struct {
	Moderator   bool
	Subscriber  bool
	VIP         bool
	Broadcaster bool
}

type Config struct {
	Mode      Mode
	AllowList []string
	BlockList []string
	// Channel is the broadcaster's username; a sender with that name counts
	// as the broadcaster even without the flag.
	Channel string
}

type Evaluator struct {
	mode    Mode
	allow   map[string]struct{}
	block   map[string]struct{}
	channel string
}

func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{
		mode:    cfg.Mode,
		allow:   userSet(cfg.AllowList),
		block:   userSet(cfg.BlockList),
		channel: NormalizeUser(cfg.Channel),
	}
}

// IsBlocked is an absolute veto, checked before any role.
func (e *Evaluator) IsBlocked(user string) bool {
	_, ok := e.block[NormalizeUser(user)]
	return ok
}

func (e *Evaluator) IsAuthorized(user string, roles Roles) bool {
	user = NormalizeUser(user)
	if e.mode.admits(roles) {
		return true
	}
	if roles.Broadcaster || (e.channel != "" && user == e.channel) {
		return true
	}
	_, ok := e.allow[user]
	return ok
}

func (e *Evaluator) Mode() Mode {
	return e.mode
}

// ParseUserList turns "Foo, bar ,BAZ" into [foo bar baz].
func ParseUserList(raw string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, raw)

	var out []string
	for _, name := range strings.Split(cleaned, ",") {
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func NormalizeUser(user string) string {
	return strings.ToLower(strings.TrimSpace(user))
}

func userSet(users []string) map[string]struct{} {
	set := make(map[string]struct{}, len(users))
	for _, u := range users {
		u = NormalizeUser(u)
		if u == "" {
			continue
		}
		set[u] = struct{}{}
	}
	return set
}
