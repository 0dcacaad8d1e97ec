package webapi

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/slackemu/emulator/internal/apierr"
	"github.com/slackemu/emulator/internal/model"
)

// filesUploadV2 is the multipart path: stores the binary, creates the file
// record, posts a message carrying the file (silently, so the caller's own
// file_shared emission is the only render), and emits file_shared.
func (s *Server) filesUploadV2(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, apierr.New(apierr.MissingRequiredField, "file is required"))
	}
	fd, err := fh.Open()
	if err != nil {
		return writeError(c, apierr.Wrap(apierr.InternalError, err))
	}
	defer fd.Close()
	data, err := io.ReadAll(fd)
	if err != nil {
		return writeError(c, apierr.Wrap(apierr.InternalError, err))
	}

	channel := c.FormValue("channel_id")
	comment := c.FormValue("initial_comment")
	botID := botIDFromLocals(c)

	f := model.File{
		ID:       "F" + uuid.NewString(),
		Name:     fh.Filename,
		Title:    fh.Filename,
		Mimetype: fh.Header.Get("Content-Type"),
		Size:     len(data),
		User:     "U_" + botID,
		Channels: channelsOf(channel),
	}
	stored := s.state.AddFileDirect(f, data)

	msg := model.Message{
		Ts:      s.state.NewTimestamp(),
		Channel: channel,
		User:    "U_" + botID,
		Text:    comment,
		File:    stored,
	}
	s.state.StoreMessageSilently(msg)
	s.publishEvent("file_shared", fiber.Map{"file": stored, "channel": channel})

	return ok(c, fiber.Map{"file": stored})
}

func (s *Server) filesGetUploadURLExternal(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	filename, _ := body["filename"].(string)
	length := 0
	switch v := body["length"].(type) {
	case float64:
		length = int(v)
	case string:
		length = len(v)
	}
	pu := s.state.NewPendingUpload(filename, length)
	return ok(c, fiber.Map{
		"upload_url": "/api/simulator/file-upload/" + pu.FileID,
		"file_id":    pu.FileID,
	})
}

func (s *Server) filesCompleteUploadExternal(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	filesRaw, _ := body["files"].([]interface{})
	channel, _ := body["channel_id"].(string)
	comment, _ := body["initial_comment"].(string)
	botID := botIDFromLocals(c)

	var completed []*model.File
	for _, item := range filesRaw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		f, data, err := s.state.CompleteUpload(id, "U_"+botID, channelsOf(channel))
		if err != nil {
			return writeError(c, err)
		}
		_ = data
		completed = append(completed, f)
	}

	if channel != "" && len(completed) > 0 {
		msg := model.Message{
			Ts:      s.state.NewTimestamp(),
			Channel: channel,
			User:    "U_" + botID,
			Text:    comment,
			File:    completed[0],
		}
		s.state.StoreMessageSilently(msg)
	}
	for _, f := range completed {
		s.publishEvent("file_shared", fiber.Map{"file": f, "channel": channel})
	}

	return ok(c, fiber.Map{"files": completed})
}

func channelsOf(channel string) []string {
	if channel == "" {
		return nil
	}
	return []string{channel}
}

