package state

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slackemu/emulator/internal/model"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	return New(zerolog.Nop(), nil)
}

func TestState_SeedsPresetChannels(t *testing.T) {
	s := newTestState(t)
	chans := s.ListChannels()
	require.Len(t, chans, 2)
	assert.Equal(t, model.GeneralChannelID, chans[0].ID)
	assert.Equal(t, model.ShowcaseChannelID, chans[1].ID)
}

func TestState_AddMessage_EmitsEventAndIsRetrievable(t *testing.T) {
	s := newTestState(t)
	sub, unsub := s.Subscribe()
	defer unsub()

	ts := s.NewTimestamp()
	m := model.Message{Ts: ts, Channel: model.GeneralChannelID, User: model.SimulatedUserID, Text: "hello"}
	s.AddMessage(m)

	got, ok := s.GetMessage(model.GeneralChannelID, ts)
	require.True(t, ok)
	assert.Equal(t, "hello", got.Text)

	ev := <-sub
	assert.Equal(t, EventMessage, ev.Type)
}

func TestState_ThreadReplies(t *testing.T) {
	s := newTestState(t)
	root := s.NewTimestamp()
	s.AddMessage(model.Message{Ts: root, Channel: model.GeneralChannelID, User: model.SimulatedUserID, Text: "root", ThreadTs: root})

	reply := s.NewTimestamp()
	s.AddMessage(model.Message{Ts: reply, Channel: model.GeneralChannelID, User: model.SimulatedUserID, Text: "reply", ThreadTs: root})

	replies := s.Replies(model.GeneralChannelID, root)
	require.Len(t, replies, 2)
	assert.Equal(t, "root", replies[0].Text)
	assert.Equal(t, "reply", replies[1].Text)
}

func TestState_ReactionInvariants(t *testing.T) {
	s := newTestState(t)
	ts := s.NewTimestamp()
	s.AddMessage(model.Message{Ts: ts, Channel: model.GeneralChannelID, User: model.SimulatedUserID, Text: "hi"})

	m, err := s.AddReaction(model.GeneralChannelID, ts, "thumbsup", "U_a")
	require.NoError(t, err)
	require.Len(t, m.Reactions, 1)
	assert.Equal(t, 1, m.Reactions[0].Count)

	m, err = s.AddReaction(model.GeneralChannelID, ts, "thumbsup", "U_b")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Reactions[0].Count)
	assert.Len(t, m.Reactions[0].Users, 2)

	m, err = s.RemoveReaction(model.GeneralChannelID, ts, "thumbsup", "U_a")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Reactions[0].Count)

	_, err = s.RemoveReaction(model.GeneralChannelID, ts, "missing", "U_a")
	require.Error(t, err)
}

func TestState_RegisterBot_NewThenReconnect(t *testing.T) {
	s := newTestState(t)

	bot := s.RegisterBot("conn1", model.AppConfig{App: struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}{ID: "simple", Name: "simple"}})
	require.Equal(t, "simple", bot.ID)
	assert.Equal(t, model.BotConnected, bot.Status)

	s.UnregisterBot("conn1")
	got, ok := s.GetBot("simple")
	require.True(t, ok)
	assert.Equal(t, model.BotDisconnected, got.Status)

	resumed := s.TryReconnectBot("conn2")
	assert.True(t, resumed)
	got, _ = s.GetBot("simple")
	assert.Equal(t, model.BotConnecting, got.Status)

	bot2 := s.RegisterBot("conn2", model.AppConfig{App: struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}{ID: "simple", Name: "simple"}})
	assert.Equal(t, model.BotConnected, bot2.Status)
	assert.Equal(t, "conn2", bot2.ConnectionID)
}

func TestState_OrphanDetection(t *testing.T) {
	s := newTestState(t)
	s.RegisterBot("conn1", model.AppConfig{App: struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}{ID: "simple", Name: "simple"}})

	orphans := s.GetOrphanedBots(map[string]bool{})
	require.Len(t, orphans, 1)
	assert.Equal(t, "simple", orphans[0].ID)

	orphans = s.GetOrphanedBots(map[string]bool{"conn1": true})
	assert.Len(t, orphans, 0)
}

func TestState_TriggerConsumedAtMostOnce(t *testing.T) {
	s := newTestState(t)
	id := s.NewTrigger(model.TriggerContext{UserID: "U_x", ChannelID: model.GeneralChannelID})

	ctx, err := s.ConsumeTrigger(id)
	require.NoError(t, err)
	assert.Equal(t, "U_x", ctx.UserID)

	_, err = s.ConsumeTrigger(id)
	require.Error(t, err)
}

func TestState_ChannelLifecycle(t *testing.T) {
	s := newTestState(t)
	c, err := s.CreateChannel("random")
	require.NoError(t, err)
	assert.Equal(t, "C_RANDOM", c.ID)

	_, err = s.CreateChannel("random")
	require.Error(t, err)

	err = s.DeleteChannel(model.GeneralChannelID)
	require.Error(t, err)

	err = s.DeleteChannel(c.ID)
	require.NoError(t, err)
}
