// Package state owns the emulator's authoritative in-memory model: users,
// channels, messages, views, triggers, pending uploads, and the connected
// bot registry. Every externally visible mutation emits a typed Event on
// the internal bus so the UI event stream and the socket bus can react.
package state

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/slackemu/emulator/internal/model"
	"github.com/slackemu/emulator/internal/store"
)

// State holds the full mutable model. All exported methods are
// goroutine-safe; a single Mutex serializes every mutation, matching
// spec's "single-owner task" scheduling model. Reads take the same lock, so
// they do not run concurrently with each other or with writes.
type State struct {
	mu     sync.Mutex
	logger zerolog.Logger
	store  *store.Store // nil when persistence is disabled
	bus    *bus
	clock  *clock

	users    map[string]*model.User
	channels map[string]*model.Channel

	messagesByTs      map[string]*model.Message
	messagesByChannel map[string][]string // channel -> ordered ts list

	files map[string]*model.File

	views    map[string]*model.View
	triggers map[string]*model.TriggerContext
	uploads  map[string]*model.PendingUpload

	bots           map[string]*model.ConnectedBot // keyed by bot id
	connBot        map[string]string              // connectionId -> bot id
	commandOwners  map[string]string              // command name -> bot id

	settings       map[string]string
	appSettings    map[string]map[string]string
	settingsPushed bool

	scopeBotID string
}

// New creates a State seeded with the preset channels (C_GENERAL,
// C_SHOWCASE) and the simulated user. st may be nil to run fully in-memory.
func New(logger zerolog.Logger, st *store.Store) *State {
	s := &State{
		logger:            logger.With().Str("component", "state").Logger(),
		store:             st,
		bus:               newBus(),
		clock:             newClock(),
		users:             make(map[string]*model.User),
		channels:          make(map[string]*model.Channel),
		messagesByTs:      make(map[string]*model.Message),
		messagesByChannel: make(map[string][]string),
		files:             make(map[string]*model.File),
		views:             make(map[string]*model.View),
		triggers:          make(map[string]*model.TriggerContext),
		uploads:           make(map[string]*model.PendingUpload),
		bots:              make(map[string]*model.ConnectedBot),
		connBot:           make(map[string]string),
		commandOwners:     make(map[string]string),
		settings:          make(map[string]string),
		appSettings:       make(map[string]map[string]string),
	}
	s.seedPresets()
	return s
}

func (s *State) seedPresets() {
	s.channels[model.GeneralChannelID] = &model.Channel{ID: model.GeneralChannelID, Name: "general", IsChannel: true, IsMember: true, IsPreset: true}
	s.channels[model.ShowcaseChannelID] = &model.Channel{ID: model.ShowcaseChannelID, Name: "showcase", IsChannel: true, IsMember: true, IsPreset: true}

	simUser := &model.User{ID: model.SimulatedUserID, Name: "you", RealName: "Simulated User"}
	simUser.Profile.DisplayName = "you"
	s.users[model.SimulatedUserID] = simUser
}

// Subscribe registers a listener for state-change events.
func (s *State) Subscribe() (<-chan Event, func()) {
	return s.bus.Subscribe()
}

func (s *State) emit(kind EventKind, payload map[string]interface{}) {
	s.bus.Publish(Event{ID: newEventID(), Type: kind, Payload: payload})
}

// EmitExternal publishes an event on behalf of a caller outside State that
// owns the emission decision (message_update/message_delete are the
// WebAPI's responsibility per spec, since not every deletion is
// user-visible).
func (s *State) EmitExternal(kind string, payload map[string]interface{}) {
	s.emit(EventKind(kind), payload)
}

// NewTimestamp returns a fresh monotonic message timestamp.
func (s *State) NewTimestamp() string { return s.clock.Timestamp() }

// LoadFromStore hydrates in-memory state from persistence at startup: files
// first, then messages, so that message.File backrefs resolve.
func (s *State) LoadFromStore() error {
	if s.store == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.store.LoadFiles(s.scopeBotID)
	if err != nil {
		return err
	}
	msgs, err := s.store.LoadMessages(s.scopeBotID)
	if err != nil {
		return err
	}
	for i := range files {
		f := files[i]
		s.files[f.ID] = &f
	}
	for i := range msgs {
		m := msgs[i]
		s.messagesByTs[m.Ts] = &m
		s.messagesByChannel[m.Channel] = append(s.messagesByChannel[m.Channel], m.Ts)
	}
	for _, chTs := range s.messagesByChannel {
		sort.Strings(chTs)
	}
	return nil
}

// GetUser returns a user by id.
func (s *State) GetUser(id string) (*model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

// ListChannels returns channels sorted presets-first, then alphabetically.
func (s *State) ListChannels() []*model.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Channel, 0, len(s.channels))
	for _, c := range s.channels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPreset != out[j].IsPreset {
			return out[i].IsPreset
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// GetChannel returns a channel by id.
func (s *State) GetChannel(id string) (*model.Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.channels[id]
	return c, ok
}
