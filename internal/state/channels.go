package state

import (
	"strings"

	"github.com/slackemu/emulator/internal/apierr"
	"github.com/slackemu/emulator/internal/model"
)

// CreateChannel creates a dynamic channel with id "C_" + upper(name).
func (s *State) CreateChannel(name string) (*model.Channel, error) {
	id := "C_" + strings.ToUpper(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.channels[id]; exists {
		return nil, apierr.New(apierr.ChannelExists, "channel already exists")
	}
	c := &model.Channel{ID: id, Name: name, IsChannel: true, IsMember: true}
	s.channels[id] = c
	cp := *c
	return &cp, nil
}

// DeleteChannel removes a dynamic channel; preset channels are rejected.
func (s *State) DeleteChannel(id string) error {
	s.mu.Lock()
	c, ok := s.channels[id]
	if !ok {
		s.mu.Unlock()
		return apierr.New(apierr.ChannelNotFound, "channel not found")
	}
	if c.IsPreset {
		s.mu.Unlock()
		return apierr.New(apierr.CannotDeletePreset, "cannot delete preset channel")
	}
	delete(s.channels, id)
	s.mu.Unlock()

	s.ClearChannel(id)
	return nil
}

// EnsureDMChannel returns (creating if needed) the per-bot DM channel.
func (s *State) EnsureDMChannel(botID string) *model.Channel {
	id := model.DMChannelPrefix + botID
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.channels[id]; ok {
		return c
	}
	c := &model.Channel{ID: id, Name: id, IsIM: true, IsMember: true, IsPreset: true}
	s.channels[id] = c
	return c
}
