package webapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/slackemu/emulator/internal/apierr"
	"github.com/slackemu/emulator/internal/model"
)

// RegisterPlatform mounts the Slack-compatible platform surface at both
// "/api/<method>" and the dotted-path compatibility root "/<method>".
func (s *Server) RegisterPlatform(app *fiber.App) {
	methods := map[string]fiber.Handler{
		"auth.test":                     s.authTest,
		"chat.postMessage":              s.chatPostMessage,
		"chat.update":                   s.chatUpdate,
		"chat.delete":                   s.chatDelete,
		"chat.postEphemeral":            s.chatPostEphemeral,
		"reactions.add":                 s.reactionsAdd,
		"reactions.remove":              s.reactionsRemove,
		"conversations.history":         s.conversationsHistory,
		"conversations.replies":         s.conversationsReplies,
		"users.info":                    s.usersInfo,
		"apps.connections.open":         s.appsConnectionsOpen,
		"apps.connections.register":     s.appsConnectionsRegister,
		"views.open":                    s.viewsOpen,
		"views.update":                  s.viewsUpdate,
		"views.push":                    s.viewsUpdate,
		"files.uploadV2":                s.filesUploadV2,
		"files.getUploadURLExternal":    s.filesGetUploadURLExternal,
		"files.completeUploadExternal":  s.filesCompleteUploadExternal,
		"files.info":                    s.filesInfo,
	}

	for name, handler := range methods {
		mw := requireToken(name)
		app.All("/api/"+name, mw, handler)
		app.All("/"+name, mw, handler)
	}

	// Any platform path that isn't one of the names above falls through to
	// here rather than Fiber's default 404, keeping the {ok:false,error}
	// envelope uniform for this documented case (spec's unknown_method).
	app.All("/api/:method", s.unknownMethod)
	app.All("/:method", s.unknownMethod)
}

func (s *Server) unknownMethod(c *fiber.Ctx) error {
	return writeError(c, apierr.New(apierr.UnknownMethod, "platform path not implemented: "+c.Params("method")))
}

func (s *Server) authTest(c *fiber.Ctx) error {
	botID := botIDFromLocals(c)
	if botID == "" {
		botID = "simple"
	}
	return ok(c, fiber.Map{
		"team":    "T_EMULATOR",
		"user":    "U_" + botID,
		"user_id": "U_" + botID,
		"bot_id":  "B_" + botID,
		"team_id": "T_EMULATOR",
	})
}

func (s *Server) chatPostMessage(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	channel, _ := body["channel"].(string)
	text, _ := body["text"].(string)
	if channel == "" {
		return writeError(c, apierr.New(apierr.MissingRequiredField, "channel is required"))
	}
	if text == "" && body["blocks"] == nil {
		return writeError(c, apierr.New(apierr.MissingRequiredField, "text or blocks is required"))
	}

	blocks, err := normalizeBlocks(body["blocks"])
	if err != nil {
		return writeError(c, apierr.New(apierr.InvalidJSON, err.Error()))
	}

	botID := botIDFromLocals(c)
	m := model.Message{
		Ts:       s.state.NewTimestamp(),
		Channel:  channel,
		User:     "U_" + botID,
		Text:     text,
		Blocks:   blocks,
		ThreadTs: stringField(body, "thread_ts"),
	}
	stored := s.state.AddMessage(m)
	return ok(c, fiber.Map{"channel": channel, "ts": stored.Ts, "message": messageJSON(stored)})
}

func (s *Server) chatPostEphemeral(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	channel, _ := body["channel"].(string)
	text, _ := body["text"].(string)
	if channel == "" {
		return writeError(c, apierr.New(apierr.MissingRequiredField, "channel is required"))
	}
	blocks, err := normalizeBlocks(body["blocks"])
	if err != nil {
		return writeError(c, apierr.New(apierr.InvalidJSON, err.Error()))
	}
	botID := botIDFromLocals(c)
	m := model.Message{
		Ts:      s.state.NewTimestamp(),
		Channel: channel,
		User:    "U_" + botID,
		Text:    text,
		Blocks:  blocks,
		Subtype: "ephemeral",
	}
	stored := s.state.AddMessage(m)
	return ok(c, fiber.Map{"channel": channel, "ts": stored.Ts, "message": messageJSON(stored)})
}

func (s *Server) chatUpdate(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	channel, _ := body["channel"].(string)
	ts, _ := body["ts"].(string)
	if channel == "" || ts == "" {
		return writeError(c, apierr.New(apierr.MissingRequiredField, "channel and ts are required"))
	}
	blocks, err := normalizeBlocks(body["blocks"])
	if err != nil {
		return writeError(c, apierr.New(apierr.InvalidJSON, err.Error()))
	}
	text, _ := body["text"].(string)

	updated, found := s.state.UpdateMessage(ts, func(m *model.Message) {
		if text != "" {
			m.Text = text
		}
		if blocks != nil {
			m.Blocks = blocks
		}
	})
	if !found || updated.Channel != channel {
		return writeError(c, apierr.New(apierr.MessageNotFound, "message not found"))
	}
	s.emitMessageUpdate(*updated)
	return ok(c, fiber.Map{"channel": channel, "ts": ts, "message": messageJSON(*updated)})
}

func (s *Server) chatDelete(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	channel, _ := body["channel"].(string)
	ts, _ := body["ts"].(string)
	if !s.state.DeleteMessage(ts) {
		return writeError(c, apierr.New(apierr.MessageNotFound, "message not found"))
	}
	s.emitMessageDelete(channel, ts)
	return ok(c, fiber.Map{"channel": channel, "ts": ts})
}

func (s *Server) reactionsAdd(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	channel, _ := body["channel"].(string)
	ts, _ := body["timestamp"].(string)
	name, _ := body["name"].(string)
	user := "U_" + botIDFromLocals(c)
	if _, err := s.state.AddReaction(channel, ts, name, user); err != nil {
		return writeError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) reactionsRemove(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	channel, _ := body["channel"].(string)
	ts, _ := body["timestamp"].(string)
	name, _ := body["name"].(string)
	user := "U_" + botIDFromLocals(c)
	if _, err := s.state.RemoveReaction(channel, ts, name, user); err != nil {
		return writeError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) conversationsHistory(c *fiber.Ctx) error {
	channel := c.Query("channel")
	limit := c.QueryInt("limit", 100)
	msgs := s.state.History(channel, limit)
	return ok(c, fiber.Map{"messages": messagesJSON(msgs)})
}

func (s *Server) conversationsReplies(c *fiber.Ctx) error {
	channel := c.Query("channel")
	ts := c.Query("ts")
	msgs := s.state.Replies(channel, ts)
	return ok(c, fiber.Map{"messages": messagesJSON(msgs)})
}

func (s *Server) usersInfo(c *fiber.Ctx) error {
	id := c.Query("user")
	u, found := s.state.GetUser(id)
	if !found {
		return writeError(c, apierr.New(apierr.UserNotFound, "user not found"))
	}
	return ok(c, fiber.Map{"user": u})
}

func (s *Server) appsConnectionsOpen(c *fiber.Ctx) error {
	connID, err := s.bus.GetUnassociatedConnectionID()
	if err != nil {
		return writeError(c, err)
	}
	ticket, mintErr := s.mintTicket()
	if mintErr != nil {
		s.bus.ReleaseConnectionClaim(connID)
		return writeError(c, apierr.Wrap(apierr.InternalError, mintErr))
	}
	return ok(c, fiber.Map{
		"url":    "ws://" + c.Hostname() + "/ws/socket-mode",
		"ticket": ticket,
	})
}

// appsConnectionsRegister finalizes the registration a bot starts once its
// websocket is up: claim the oldest unassociated connection, register the
// declared config against it, and confirm (or release) the claim.
func (s *Server) appsConnectionsRegister(c *fiber.Ctx) error {
	var cfg model.AppConfig
	if err := c.BodyParser(&cfg); err != nil {
		return writeError(c, errInvalidJSON(err))
	}
	if cfg.App.ID == "" && cfg.App.Name == "" {
		return writeError(c, apierr.New(apierr.InvalidConfig, "app config missing app id/name"))
	}

	connID, err := s.bus.GetUnassociatedConnectionID()
	if err != nil {
		return writeError(c, err)
	}

	bot := s.state.RegisterBot(connID, cfg)
	if bot == nil {
		s.bus.ReleaseConnectionClaim(connID)
		return writeError(c, apierr.New(apierr.RegistrationFailed, "registration failed"))
	}
	s.bus.ConfirmConnectionClaim(connID)

	settings := s.state.GetSettingsForBot(bot.ID)
	return ok(c, fiber.Map{
		"bot_id":       bot.ID,
		"connection_id": connID,
		"settings":     settings,
	})
}

func (s *Server) viewsOpen(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	triggerID, _ := body["trigger_id"].(string)
	viewRaw, _ := body["view"].(map[string]interface{})
	botID := botIDFromLocals(c)

	v, err := s.state.OpenView(triggerID, viewRaw, botID)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, fiber.Map{"view": viewResponse(v)})
}

func (s *Server) viewsUpdate(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	viewID, _ := body["view_id"].(string)
	viewRaw, _ := body["view"].(map[string]interface{})

	v, err := s.state.UpdateView(viewID, viewRaw)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, fiber.Map{"view": viewResponse(v)})
}

func (s *Server) filesInfo(c *fiber.Ctx) error {
	id := c.Query("file")
	f, found := s.state.GetFile(id)
	if !found {
		return writeError(c, apierr.New(apierr.FileNotFound, "file not found"))
	}
	return ok(c, fiber.Map{"file": f})
}

func stringField(body map[string]interface{}, key string) string {
	v, _ := body[key].(string)
	return v
}

func messageJSON(m model.Message) fiber.Map {
	return fiber.Map{
		"type":      "message",
		"ts":        m.Ts,
		"channel":   m.Channel,
		"user":      m.User,
		"text":      m.Text,
		"thread_ts": m.ThreadTs,
		"subtype":   m.Subtype,
		"blocks":    m.Blocks,
		"reactions": m.Reactions,
	}
}

func messagesJSON(msgs []model.Message) []fiber.Map {
	out := make([]fiber.Map, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageJSON(m))
	}
	return out
}

func viewResponse(v *model.View) fiber.Map {
	return fiber.Map{
		"id":         v.ID,
		"trigger_id": v.TriggerID,
		"bot_id":     v.BotID,
		"state":      v.View,
	}
}

func (s *Server) emitMessageUpdate(m model.Message) {
	s.publishEvent("message_update", fiber.Map{"message": messageJSON(m)})
}

func (s *Server) emitMessageDelete(channel, ts string) {
	s.publishEvent("message_delete", fiber.Map{"channel": channel, "ts": ts})
}

// publishEvent is a convenience wrapper for handler-driven emissions that
// spec.md assigns to the caller rather than to State itself (message_update,
// message_delete: "the caller emits"). It goes through the same bus State
// already exposes to SSE subscribers.
func (s *Server) publishEvent(kind string, payload fiber.Map) {
	s.state.EmitExternal(kind, map[string]interface{}(payload))
}
