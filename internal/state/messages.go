package state

import (
	"sort"
	"strings"

	"github.com/slackemu/emulator/internal/apierr"
	"github.com/slackemu/emulator/internal/model"
)

func (s *State) scopeFor(channel string) string {
	if strings.HasPrefix(channel, model.DMChannelPrefix) {
		return s.scopeBotID
	}
	return ""
}

func (s *State) persistMessage(m *model.Message) {
	if s.store == nil {
		return
	}
	cp := *m
	if err := s.store.SaveMessage(cp, s.scopeFor(m.Channel)); err != nil {
		s.logger.Warn().Err(err).Str("ts", m.Ts).Msg("persist message failed")
	}
}

// AddMessage stores m, persists it, and emits a "message" event.
func (s *State) AddMessage(m model.Message) model.Message {
	s.mu.Lock()
	stored := s.storeLocked(m)
	s.persistMessage(stored)
	s.mu.Unlock()

	s.emit(EventMessage, map[string]interface{}{"message": stored})
	return *stored
}

// StoreMessageSilently stores and persists m without emitting "message";
// used when the caller emits "file_shared" instead, to avoid double
// rendering a file-carrying message.
func (s *State) StoreMessageSilently(m model.Message) model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.storeLocked(m)
	s.persistMessage(stored)
	return *stored
}

func (s *State) storeLocked(m model.Message) *model.Message {
	cp := m
	s.messagesByTs[cp.Ts] = &cp
	list := s.messagesByChannel[cp.Channel]
	idx := sort.SearchStrings(list, cp.Ts)
	list = append(list, "")
	copy(list[idx+1:], list[idx:])
	list[idx] = cp.Ts
	s.messagesByChannel[cp.Channel] = list
	return &cp
}

// GetMessage returns the message at channel/ts.
func (s *State) GetMessage(channel, ts string) (*model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messagesByTs[ts]
	if !ok || m.Channel != channel {
		return nil, false
	}
	cp := *m
	return &cp, true
}

// DeleteMessage removes a message across all channels; returns whether it
// was found. Emission of message_delete is the caller's responsibility.
func (s *State) DeleteMessage(ts string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messagesByTs[ts]
	if !ok {
		return false
	}
	delete(s.messagesByTs, ts)
	list := s.messagesByChannel[m.Channel]
	for i, t := range list {
		if t == ts {
			s.messagesByChannel[m.Channel] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if s.store != nil {
		if err := s.store.DeleteMessage(ts); err != nil {
			s.logger.Warn().Err(err).Str("ts", ts).Msg("delete message failed")
		}
	}
	return true
}

// UpdateMessage applies fn to the message at ts under the state lock,
// persists the result, and returns the updated copy. The caller emits
// message_update.
func (s *State) UpdateMessage(ts string, fn func(*model.Message)) (*model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messagesByTs[ts]
	if !ok {
		return nil, false
	}
	fn(m)
	s.persistMessage(m)
	cp := *m
	return &cp, true
}

// History returns the trailing `limit` messages of a channel, oldest first.
func (s *State) History(channel string, limit int) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.messagesByChannel[channel]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	start := len(list) - limit
	out := make([]model.Message, 0, limit)
	for _, ts := range list[start:] {
		out = append(out, *s.messagesByTs[ts])
	}
	return out
}

// Replies returns every message whose ts or thread_ts equals threadTs, in
// timestamp order.
func (s *State) Replies(channel, threadTs string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.messagesByChannel[channel]
	var out []model.Message
	for _, ts := range list {
		m := s.messagesByTs[ts]
		if m.Ts == threadTs || m.ThreadTs == threadTs {
			out = append(out, *m)
		}
	}
	return out
}

// AddReaction adds user to the named reaction on a message, creating the
// reaction entry if needed. Returns the updated message.
func (s *State) AddReaction(channel, ts, name, user string) (*model.Message, error) {
	s.mu.Lock()
	m, ok := s.messagesByTs[ts]
	if !ok || m.Channel != channel {
		s.mu.Unlock()
		return nil, apierr.New(apierr.MessageNotFound, "message not found")
	}
	found := false
	for i := range m.Reactions {
		if m.Reactions[i].Name == name {
			found = true
			for _, u := range m.Reactions[i].Users {
				if u == user {
					s.mu.Unlock()
					cp := *m
					return &cp, nil
				}
			}
			m.Reactions[i].Users = append(m.Reactions[i].Users, user)
			m.Reactions[i].Count = len(m.Reactions[i].Users)
		}
	}
	if !found {
		m.Reactions = append(m.Reactions, model.Reaction{Name: name, Users: []string{user}, Count: 1})
	}
	s.persistMessage(m)
	cp := *m
	s.mu.Unlock()

	s.emit(EventReactionAdded, map[string]interface{}{"channel": channel, "ts": ts, "reaction": name, "user": user})
	return &cp, nil
}

// RemoveReaction removes user from the named reaction, dropping the entry
// entirely once empty.
func (s *State) RemoveReaction(channel, ts, name, user string) (*model.Message, error) {
	s.mu.Lock()
	m, ok := s.messagesByTs[ts]
	if !ok || m.Channel != channel {
		s.mu.Unlock()
		return nil, apierr.New(apierr.MessageNotFound, "message not found")
	}
	idx := -1
	for i := range m.Reactions {
		if m.Reactions[i].Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return nil, apierr.New(apierr.NoReaction, "no such reaction")
	}
	users := m.Reactions[idx].Users
	userIdx := -1
	for i, u := range users {
		if u == user {
			userIdx = i
			break
		}
	}
	if userIdx == -1 {
		s.mu.Unlock()
		return nil, apierr.New(apierr.NoReaction, "no such reaction")
	}
	users = append(users[:userIdx], users[userIdx+1:]...)
	if len(users) == 0 {
		m.Reactions = append(m.Reactions[:idx], m.Reactions[idx+1:]...)
	} else {
		m.Reactions[idx].Users = users
		m.Reactions[idx].Count = len(users)
	}
	s.persistMessage(m)
	cp := *m
	s.mu.Unlock()

	s.emit(EventReactionRemoved, map[string]interface{}{"channel": channel, "ts": ts, "reaction": name, "user": user})
	return &cp, nil
}

// ClearChannel removes every message in a channel (in-memory and persisted).
func (s *State) ClearChannel(channel string) {
	s.mu.Lock()
	list := s.messagesByChannel[channel]
	for _, ts := range list {
		delete(s.messagesByTs, ts)
	}
	delete(s.messagesByChannel, channel)
	st := s.store
	s.mu.Unlock()

	if st != nil {
		if err := st.ClearChannel(channel); err != nil {
			s.logger.Warn().Err(err).Str("channel", channel).Msg("clear channel failed")
		}
	}
}

// ClearAllMessages removes every message across all channels.
func (s *State) ClearAllMessages() {
	s.mu.Lock()
	s.messagesByTs = make(map[string]*model.Message)
	s.messagesByChannel = make(map[string][]string)
	st := s.store
	s.mu.Unlock()

	if st != nil {
		if err := st.ClearAllMessages(); err != nil {
			s.logger.Warn().Err(err).Msg("clear all messages failed")
		}
	}
}
