package state

import (
	"strings"

	"github.com/google/uuid"

	"github.com/slackemu/emulator/internal/model"
)

// RegisterBot implements spec's bot registration algorithm: reuse a
// matching disconnected/connecting record when one exists, otherwise
// create a fresh one; switch the persistence DM scope if the bot id
// changed; merge the bot's declared commands; emit bot_connected.
func (s *State) RegisterBot(connectionID string, cfg model.AppConfig) *model.ConnectedBot {
	s.mu.Lock()

	newID := cfg.App.ID
	if newID == "" {
		newID = uuid.NewString()
	}

	var bot *model.ConnectedBot
	if existing, ok := s.bots[newID]; ok && existing.Status != model.BotConnected {
		bot = existing
	} else {
		for _, b := range s.bots {
			if b.Status != model.BotConnected && b.AppConfig.App.Name == cfg.App.Name {
				bot = b
				break
			}
		}
	}
	if bot == nil {
		bot = &model.ConnectedBot{ID: newID}
		s.bots[newID] = bot
	}

	oldConnID := bot.ConnectionID
	if oldConnID != "" {
		delete(s.connBot, oldConnID)
	}

	bot.ConnectionID = connectionID
	bot.AppConfig = cfg
	bot.ConnectedAt = nowMillis()
	bot.Status = model.BotConnected
	s.connBot[connectionID] = bot.ID

	for _, c := range cfg.Commands {
		s.commandOwners[c.Name] = bot.ID
	}

	scopeChanged := s.store != nil && bot.ID != s.scopeBotID
	botID := bot.ID
	botCopy := *bot
	s.mu.Unlock()

	if scopeChanged {
		s.switchScope(botID)
	}

	s.emit(EventBotConnected, map[string]interface{}{"bot": botCopy})
	return &botCopy
}

// switchScope drops in-memory DM messages/files and reloads them from
// persistence for the new bot scope. Channel (non-DM) data is untouched.
func (s *State) switchScope(botID string) {
	s.mu.Lock()
	for ch, tsList := range s.messagesByChannel {
		if !strings.HasPrefix(ch, model.DMChannelPrefix) {
			continue
		}
		for _, ts := range tsList {
			delete(s.messagesByTs, ts)
		}
		delete(s.messagesByChannel, ch)
	}
	for id, f := range s.files {
		if len(f.Channels) > 0 && strings.HasPrefix(f.Channels[0], model.DMChannelPrefix) {
			delete(s.files, id)
		}
	}
	s.scopeBotID = botID
	st := s.store
	s.mu.Unlock()

	if st == nil {
		return
	}
	msgs, err := st.LoadMessages(botID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("reload messages on scope switch failed")
		return
	}
	files, err := st.LoadFiles(botID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("reload files on scope switch failed")
		return
	}

	s.mu.Lock()
	for i := range msgs {
		m := msgs[i]
		if !strings.HasPrefix(m.Channel, model.DMChannelPrefix) {
			continue
		}
		if _, exists := s.messagesByTs[m.Ts]; exists {
			continue
		}
		s.storeLocked(m)
	}
	for i := range files {
		f := files[i]
		s.files[f.ID] = &f
	}
	s.mu.Unlock()
}

// EmitBotConnecting notifies subscribers that a fresh connection opened
// without resuming an existing disconnected bot. SocketBus calls this right
// after TryReconnectBot returns false.
func (s *State) EmitBotConnecting(connectionID string) {
	s.emit(EventBotConnecting, map[string]interface{}{"connection_id": connectionID})
}

// TryReconnectBot transitions the sole disconnected bot to connecting when
// a new transport connection opens, ahead of its registration call.
// Returns true if a bot was resumed.
func (s *State) TryReconnectBot(connectionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidate *model.ConnectedBot
	count := 0
	for _, b := range s.bots {
		if b.Status == model.BotDisconnected {
			candidate = b
			count++
		}
	}
	if count != 1 {
		return false
	}
	candidate.Status = model.BotConnecting
	return true
}

// UnregisterBot marks the bot owning connectionID as disconnected, retains
// its record and history, and emits bot_disconnected.
func (s *State) UnregisterBot(connectionID string) {
	s.mu.Lock()
	botID, ok := s.connBot[connectionID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.connBot, connectionID)
	bot, ok := s.bots[botID]
	if !ok {
		s.mu.Unlock()
		return
	}
	bot.Status = model.BotDisconnected
	botCopy := *bot
	s.mu.Unlock()

	s.emit(EventBotDisconnected, map[string]interface{}{"bot": botCopy})
}

// GetOrphanedBots returns bots marked connected whose connection id isn't
// in the active set, for SocketBus to demote after a heartbeat sweep.
func (s *State) GetOrphanedBots(activeConnectionIDs map[string]bool) []*model.ConnectedBot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.ConnectedBot
	for _, b := range s.bots {
		if b.Status == model.BotConnected && !activeConnectionIDs[b.ConnectionID] {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out
}

// GetBot returns a bot by id.
func (s *State) GetBot(id string) (*model.ConnectedBot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[id]
	if !ok {
		return nil, false
	}
	cp := *b
	return &cp, true
}

// GetBotByConnection returns the bot currently associated with a connection.
func (s *State) GetBotByConnection(connectionID string) (*model.ConnectedBot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.connBot[connectionID]
	if !ok {
		return nil, false
	}
	b := s.bots[id]
	cp := *b
	return &cp, true
}

// ConnectedBotIDs returns the ids of every currently connected bot.
func (s *State) ConnectedBotIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id, b := range s.bots {
		if b.Status == model.BotConnected {
			out = append(out, id)
		}
	}
	return out
}

// BotOwningCommand returns the bot id registered for a slash command name.
func (s *State) BotOwningCommand(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.commandOwners[name]
	return id, ok
}
