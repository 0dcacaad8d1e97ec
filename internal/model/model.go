// Package model defines the emulator's core entities: the platform-style
// wire shapes shared by persistence, state, and the HTTP handlers.
package model

import "github.com/slack-go/slack"

// Preset channel and DM/user id prefixes, fixed by the platform convention
// this emulator reproduces.
const (
	GeneralChannelID  = "C_GENERAL"
	ShowcaseChannelID = "C_SHOWCASE"
	SimulatedUserID   = "__SIMULATED_USER__"

	DMChannelPrefix = "D_"
	UserIDBotPrefix = "U_"
)

// User mirrors the platform's user object.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name"`
	IsBot    bool   `json:"is_bot"`
	Profile  struct {
		DisplayName string `json:"display_name"`
	} `json:"profile"`
}

// Channel mirrors the platform's channel/conversation object.
type Channel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsChannel bool   `json:"is_channel"`
	IsIM      bool   `json:"is_im"`
	IsMember  bool   `json:"is_member"`

	// IsPreset marks channels seeded at startup (C_GENERAL, C_SHOWCASE,
	// per-bot DMs) that cannot be deleted through the simulator API.
	IsPreset bool `json:"-"`
}

// Reaction mirrors one named emoji reaction on a message.
type Reaction struct {
	Name  string   `json:"name"`
	Users []string `json:"users"`
	Count int      `json:"count"`
}

// File mirrors the platform's file object. The binary payload lives on
// disk under the content directory; File itself carries only metadata.
type File struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Title      string   `json:"title"`
	Mimetype   string   `json:"mimetype"`
	Size       int      `json:"size"`
	URLPrivate string   `json:"url_private"`
	Channels   []string `json:"channels"`
	User       string   `json:"user"`
	IsExpanded bool     `json:"isExpanded"`
}

// Message mirrors the platform's message object.
type Message struct {
	Ts       string          `json:"ts"`
	Channel  string          `json:"channel"`
	User     string          `json:"user"`
	Text     string          `json:"text"`
	ThreadTs string          `json:"thread_ts,omitempty"`
	Subtype  string          `json:"subtype,omitempty"`
	Blocks   []slack.Block   `json:"blocks,omitempty"`
	Reactions []Reaction     `json:"reactions,omitempty"`
	File      *File          `json:"file,omitempty"`
}

// IsThreadRoot reports whether m is the root message of its own thread.
func (m *Message) IsThreadRoot() bool {
	return m.ThreadTs == "" || m.ThreadTs == m.Ts
}

// View is the server-side record of an open modal.
type View struct {
	ID        string                 `json:"id"`
	View      map[string]interface{} `json:"view"`
	TriggerID string                 `json:"trigger_id"`
	UserID    string                 `json:"user_id"`
	ChannelID string                 `json:"channel_id,omitempty"`
	BotID     string                 `json:"bot_id"`
}

// TriggerContext binds a freshly generated trigger_id to the user/channel
// that produced it, for the lifetime spec.md §3 gives it (<=30s).
type TriggerContext struct {
	UserID      string
	ChannelID   string
	UserName    string
	ChannelName string
	CreatedAt   int64 // unix millis
}

// PendingUpload tracks a files.getUploadURLExternal reservation awaiting
// its bytes (<=5min, per spec.md §3).
type PendingUpload struct {
	FileID    string
	Filename  string
	Length    int
	Data      []byte
	CreatedAt int64 // unix millis
}

// BotStatus is the lifecycle state of a ConnectedBot.
type BotStatus string

const (
	BotConnecting   BotStatus = "connecting"
	BotConnected    BotStatus = "connected"
	BotDisconnected BotStatus = "disconnected"
)

// AppConfig is the bot-declared configuration posted on registration.
type AppConfig struct {
	App struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"app"`
	Commands []CommandSpec `json:"commands,omitempty"`
}

// CommandSpec is one slash-command a bot registers on connect.
type CommandSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ConnectedBot is the registry record for a bot process.
type ConnectedBot struct {
	ID           string
	ConnectionID string
	AppConfig    AppConfig
	ConnectedAt  int64 // unix millis
	Status       BotStatus
}
