package commands

import (
	"context"
	"time"
)

type CooldownReader interface {
	Remaining(name string) time.Duration
}

// Service describes the loaded commands for the HTTP API.
type Service struct {
	registry  *Registry
	cooldowns CooldownReader
}

func NewService(registry *Registry, cooldowns CooldownReader) *Service {
	return &Service{registry: registry, cooldowns: cooldowns}
}

func (s *Service) List(_ context.Context) ([]CommandDescriptor, error) {
	if s == nil || s.registry == nil {
		return nil, nil
	}
	cmds := s.registry.Commands()
	out := make([]CommandDescriptor, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, s.describe(cmd))
	}
	return out, nil
}

func (s *Service) describe(cmd Command) CommandDescriptor {
	desc := CommandDescriptor{
		Name:            cmd.Name(),
		Kind:            cmd.Kind(),
		Trigger:         cmd.Trigger(),
		ComparisonMode:  string(cmd.Mode()),
		URLs:            cmd.URLs(),
		Volume:          cmd.Volume(),
		CooldownSeconds: cmd.Cooldown().Seconds(),
	}
	if s.cooldowns != nil {
		desc.RemainingMillis = s.cooldowns.Remaining(cmd.Name()).Milliseconds()
	}
	return desc
}
