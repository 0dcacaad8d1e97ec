package webapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/slackemu/emulator/internal/apierr"
	"github.com/slackemu/emulator/internal/model"
	"github.com/slackemu/emulator/internal/socketbus"
)

// RegisterSimulator mounts the UI-facing control surface under
// /api/simulator.
func (s *Server) RegisterSimulator(app *fiber.App) {
	g := app.Group("/api/simulator")

	g.Get("/events", s.simulatorEvents)
	g.Get("/logs", s.simulatorLogsGet)
	g.Post("/logs", s.simulatorLogsPost)

	g.Get("/settings", s.settingsGet)
	g.Post("/settings", s.settingsPost)

	g.Post("/user-message", s.userMessage)

	g.Get("/messages", s.messagesGet)
	g.Post("/messages", s.messagesPost)
	g.Delete("/messages", s.messagesClearAll)
	g.Delete("/messages/:ts", s.messagesDeleteOne)

	g.Delete("/channels/:id/messages", s.channelMessagesClear)

	g.Get("/channels", s.channelsList)
	g.Post("/channels", s.channelsCreate)
	g.Delete("/channels/:id", s.channelsDelete)

	g.Post("/slash-command", s.slashCommand)
	g.Post("/view-submit", s.viewSubmit)
	g.Post("/view-close", s.viewClose)
	g.Post("/block-action", s.blockAction)
	g.Post("/shortcut", s.shortcut)

	g.Post("/file-upload/:fileId", s.fileUploadByID)
	g.Get("/files/:fileId", s.fileDownload)
	g.Patch("/files/:fileId", s.filePatch)
}

func (s *Server) settingsGet(c *fiber.Ctx) error {
	return ok(c, fiber.Map{"settings": s.state.GetSettings()})
}

func (s *Server) settingsPost(c *fiber.Ctx) error {
	var raw map[string]interface{}
	if err := c.BodyParser(&raw); err != nil {
		return writeError(c, errInvalidJSON(err))
	}

	appSettingsRaw, _ := raw["_app_settings"].(map[string]interface{})
	delete(raw, "_app_settings")

	flat := make(map[string]string, len(raw))
	for k, v := range raw {
		if sv, ok := v.(string); ok {
			flat[k] = sv
		}
	}
	first := s.state.PushSettings(flat)

	for botID, overridesRaw := range appSettingsRaw {
		overridesMap, ok := overridesRaw.(map[string]interface{})
		if !ok {
			continue
		}
		overrides := make(map[string]string, len(overridesMap))
		for k, v := range overridesMap {
			if sv, ok := v.(string); ok {
				overrides[k] = sv
			}
		}
		s.state.SetAppSettings(botID, overrides)
	}

	if !first {
		for _, botID := range s.state.ConnectedBotIDs() {
			s.bus.Dispatch(socketbus.DispatchOpts{
				Type:        socketbus.EnvelopeEventsAPI,
				Payload:     fiber.Map{"type": "restart_requested", "reason": "please restart"},
				TargetBotID: botID,
			})
		}
	}
	return ok(c, nil)
}

func (s *Server) userMessage(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	channel, _ := body["channel"].(string)
	text, _ := body["text"].(string)
	user, _ := body["user"].(string)
	if user == "" {
		user = model.SimulatedUserID
	}

	m := model.Message{Ts: s.state.NewTimestamp(), Channel: channel, User: user, Text: text}
	stored := s.state.AddMessage(m)

	s.bus.Dispatch(socketbus.DispatchOpts{
		Type:    socketbus.EnvelopeEventsAPI,
		Payload: eventsAPIPayload("message", messageJSON(stored)),
	})

	if !strings.HasPrefix(channel, model.DMChannelPrefix) {
		if botID, mentioned := mentionedBot(s, text); mentioned {
			s.bus.Dispatch(socketbus.DispatchOpts{
				Type:        socketbus.EnvelopeEventsAPI,
				Payload:     eventsAPIPayload("app_mention", messageJSON(stored)),
				TargetBotID: botID,
			})
		}
	}
	return ok(c, fiber.Map{"message": messageJSON(stored)})
}

func mentionedBot(s *Server, text string) (string, bool) {
	for _, id := range s.state.ConnectedBotIDs() {
		bot, ok := s.state.GetBot(id)
		if !ok {
			continue
		}
		if strings.Contains(text, "@"+id) || strings.Contains(text, "@"+bot.AppConfig.App.Name) {
			return id, true
		}
	}
	return "", false
}

func eventsAPIPayload(eventType string, event fiber.Map) fiber.Map {
	event["type"] = eventType
	return fiber.Map{
		"type":  "event_callback",
		"event": event,
	}
}

func (s *Server) messagesGet(c *fiber.Ctx) error {
	channel := c.Query("channel")
	return ok(c, fiber.Map{"messages": messagesJSON(s.state.History(channel, 0))})
}

func (s *Server) messagesPost(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	channel, _ := body["channel"].(string)
	text, _ := body["text"].(string)
	user, _ := body["user"].(string)
	if user == "" {
		user = model.SimulatedUserID
	}
	m := model.Message{Ts: s.state.NewTimestamp(), Channel: channel, User: user, Text: text}
	stored := s.state.AddMessage(m)
	return ok(c, fiber.Map{"message": messageJSON(stored)})
}

func (s *Server) messagesClearAll(c *fiber.Ctx) error {
	s.state.ClearAllMessages()
	return ok(c, nil)
}

func (s *Server) messagesDeleteOne(c *fiber.Ctx) error {
	ts := c.Params("ts")
	if !s.state.DeleteMessage(ts) {
		return writeError(c, apierr.New(apierr.MessageNotFound, "message not found"))
	}
	return ok(c, nil)
}

func (s *Server) channelMessagesClear(c *fiber.Ctx) error {
	s.state.ClearChannel(c.Params("id"))
	return ok(c, nil)
}

func (s *Server) channelsList(c *fiber.Ctx) error {
	return ok(c, fiber.Map{"channels": s.state.ListChannels()})
}

func (s *Server) channelsCreate(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	name, _ := body["name"].(string)
	ch, err := s.state.CreateChannel(name)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, fiber.Map{"channel": ch})
}

func (s *Server) channelsDelete(c *fiber.Ctx) error {
	if err := s.state.DeleteChannel(c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) slashCommand(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	command, _ := body["command"].(string)
	text, _ := body["text"].(string)
	channel, _ := body["channel_id"].(string)
	user, _ := body["user_id"].(string)

	triggerID := s.state.NewTrigger(model.TriggerContext{UserID: user, ChannelID: channel})
	payload := fiber.Map{
		"command":      command,
		"text":         text,
		"channel_id":   channel,
		"user_id":      user,
		"trigger_id":   triggerID,
		"response_url": "/api/simulator/response_url/" + uuid.NewString(),
	}

	targetBotID, _ := s.state.BotOwningCommand(command)
	s.bus.Dispatch(socketbus.DispatchOpts{
		Type:        socketbus.EnvelopeSlashCommands,
		Payload:     payload,
		TargetBotID: targetBotID,
	})
	return ok(c, fiber.Map{"trigger_id": triggerID})
}

func (s *Server) viewClose(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	viewID, _ := body["view_id"].(string)
	v, found := s.state.GetView(viewID)
	if !found {
		return writeError(c, apierr.New(apierr.ViewNotFound, "view not found"))
	}
	s.bus.Dispatch(socketbus.DispatchOpts{
		Type:        socketbus.EnvelopeInteractive,
		Payload:     fiber.Map{"type": "view_closed", "view": viewResponse(v)},
		TargetBotID: v.BotID,
	})
	if err := s.state.CloseView(viewID); err != nil {
		return writeError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) shortcut(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	callbackID, _ := body["callback_id"].(string)
	user, _ := body["user_id"].(string)
	channel, _ := body["channel_id"].(string)
	botID, _ := body["bot_id"].(string)

	triggerID := s.state.NewTrigger(model.TriggerContext{UserID: user, ChannelID: channel})
	payload := fiber.Map{
		"type":        "shortcut",
		"callback_id": callbackID,
		"trigger_id":  triggerID,
		"user":        fiber.Map{"id": user},
	}
	s.bus.Dispatch(socketbus.DispatchOpts{
		Type:        socketbus.EnvelopeInteractive,
		Payload:     payload,
		TargetBotID: botID,
	})
	return ok(c, fiber.Map{"trigger_id": triggerID})
}

func (s *Server) fileUploadByID(c *fiber.Ctx) error {
	fileID := c.Params("fileId")
	data := c.Body()
	if fh, err := c.FormFile("file"); err == nil {
		fd, openErr := fh.Open()
		if openErr == nil {
			defer fd.Close()
			buf := make([]byte, fh.Size)
			_, _ = fd.Read(buf)
			data = buf
		}
	}
	if err := s.state.FillPendingUpload(fileID, data); err != nil {
		return writeError(c, err)
	}
	return ok(c, fiber.Map{"file_id": fileID})
}

func (s *Server) fileDownload(c *fiber.Ctx) error {
	fileID := c.Params("fileId")
	f, found := s.state.GetFile(fileID)
	if !found {
		return writeError(c, apierr.New(apierr.FileNotFound, "file not found"))
	}
	data, err := s.state.ReadFileBytes(fileID)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, f.Mimetype)
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.Send(data)
}

func (s *Server) filePatch(c *fiber.Ctx) error {
	fileID := c.Params("fileId")
	var body struct {
		IsExpanded bool `json:"isExpanded"`
	}
	if err := c.BodyParser(&body); err != nil {
		return writeError(c, errInvalidJSON(err))
	}
	if err := s.state.SetFileExpanded(fileID, body.IsExpanded); err != nil {
		return writeError(c, err)
	}
	return ok(c, nil)
}
