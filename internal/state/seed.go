package state

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/slackemu/emulator/internal/model"
)

// seedFile is the on-disk shape of the fixture loaded at startup: extra
// users and channels beyond the two hard-coded presets.
type seedFile struct {
	Users []struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		RealName    string `yaml:"real_name"`
		DisplayName string `yaml:"display_name"`
		IsBot       bool   `yaml:"is_bot"`
	} `yaml:"users"`
	Channels []struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"channels"`
}

// SeedFromFile loads additional preset users/channels from a YAML fixture.
// A missing file is not an error: the two hard-coded presets from
// seedPresets still apply.
func (s *State) SeedFromFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range f.Users {
		user := &model.User{ID: u.ID, Name: u.Name, RealName: u.RealName, IsBot: u.IsBot}
		user.Profile.DisplayName = u.DisplayName
		s.users[u.ID] = user
	}
	for _, c := range f.Channels {
		if _, exists := s.channels[c.ID]; exists {
			continue
		}
		s.channels[c.ID] = &model.Channel{ID: c.ID, Name: c.Name, IsChannel: true, IsMember: true, IsPreset: true}
	}
	return nil
}
