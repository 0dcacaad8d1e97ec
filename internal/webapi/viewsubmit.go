package webapi

import (
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/slackemu/emulator/internal/apierr"
	"github.com/slackemu/emulator/internal/model"
	"github.com/slackemu/emulator/internal/socketbus"
)

// elementInfo is what the value-transform pass needs to know about one
// block's interactive element: its type, and its options (for the
// selection-family elements, where the raw UI value is just the option's
// value string and the canonical payload wants the whole option object).
type elementInfo struct {
	elementType string
	options     []interface{}
}

// indexElements walks a stored view's blocks and returns, for every
// (block_id, action_id) pair, the interactive element's declared type and
// options. Both the "element" (input blocks) and "elements" (actions
// blocks) shapes are handled.
func indexElements(view map[string]interface{}) map[string]map[string]elementInfo {
	out := map[string]map[string]elementInfo{}
	blocksRaw, _ := view["blocks"].([]interface{})
	for _, b := range blocksRaw {
		block, ok := b.(map[string]interface{})
		if !ok {
			continue
		}
		blockID, _ := block["block_id"].(string)
		if blockID == "" {
			continue
		}
		var elements []interface{}
		if el, ok := block["element"]; ok {
			elements = append(elements, el)
		}
		if els, ok := block["elements"].([]interface{}); ok {
			elements = append(elements, els...)
		}
		for _, e := range elements {
			el, ok := e.(map[string]interface{})
			if !ok {
				continue
			}
			actionID, _ := el["action_id"].(string)
			if actionID == "" {
				continue
			}
			etype, _ := el["type"].(string)
			options, _ := el["options"].([]interface{})
			if out[blockID] == nil {
				out[blockID] = map[string]elementInfo{}
			}
			out[blockID][actionID] = elementInfo{elementType: etype, options: options}
		}
	}
	return out
}

// transformValues rewrites the simulator's raw submitted values (plain
// strings/arrays, one per block_id/action_id) into the canonical
// Block Kit state.values shape, keyed by each element's declared type.
func (s *Server) transformValues(index map[string]map[string]elementInfo, raw map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for blockID, actionsRaw := range raw {
		actions, ok := actionsRaw.(map[string]interface{})
		if !ok {
			continue
		}
		outActions := map[string]interface{}{}
		for actionID, v := range actions {
			info := index[blockID][actionID]
			outActions[actionID] = s.transformOneValue(info, v)
		}
		out[blockID] = outActions
	}
	return out
}

func (s *Server) transformOneValue(info elementInfo, raw interface{}) map[string]interface{} {
	switch info.elementType {
	case "static_select", "external_select", "radio_buttons", "overflow":
		value, _ := raw.(string)
		return map[string]interface{}{
			"type":            info.elementType,
			"selected_option": findOption(info.options, value),
		}
	case "checkboxes":
		values, _ := raw.([]interface{})
		selected := make([]interface{}, 0, len(values))
		for _, v := range values {
			str, _ := v.(string)
			selected = append(selected, findOption(info.options, str))
		}
		return map[string]interface{}{
			"type":             "checkboxes",
			"selected_options": selected,
		}
	case "datepicker":
		str, _ := raw.(string)
		return map[string]interface{}{"type": "datepicker", "selected_date": str}
	case "timepicker":
		str, _ := raw.(string)
		return map[string]interface{}{"type": "timepicker", "selected_time": str}
	case "datetimepicker":
		return map[string]interface{}{"type": "datetimepicker", "selected_date_time": raw}
	case "file_input":
		files, _ := raw.([]interface{})
		stored := make([]interface{}, 0, len(files))
		for _, item := range files {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			f := s.storeEmbeddedFile(m)
			if f != nil {
				stored = append(stored, f)
			}
		}
		return map[string]interface{}{"type": "file_input", "files": stored}
	default:
		// plain_text_input, email_text_input, number_input, url_text_input,
		// and anything unrecognized all take the raw string as value.
		str, _ := raw.(string)
		etype := info.elementType
		if etype == "" {
			etype = "plain_text_input"
		}
		return map[string]interface{}{"type": etype, "value": str}
	}
}

func findOption(options []interface{}, value string) map[string]interface{} {
	for _, o := range options {
		opt, ok := o.(map[string]interface{})
		if !ok {
			continue
		}
		if v, _ := opt["value"].(string); v == value {
			return opt
		}
	}
	return map[string]interface{}{"value": value}
}

// storeEmbeddedFile decodes a file_input element's base64 dataUrl and
// registers it as a file record, so later files.info calls referencing it
// resolve.
func (s *Server) storeEmbeddedFile(m map[string]interface{}) map[string]interface{} {
	name, _ := m["filename"].(string)
	dataURL, _ := m["dataUrl"].(string)
	idx := strings.Index(dataURL, ",")
	if idx < 0 {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(dataURL[idx+1:])
	if err != nil {
		return nil
	}
	f := model.File{
		ID:       "F" + uuid.NewString(),
		Name:     name,
		Title:    name,
		Mimetype: mimeFromDataURL(dataURL),
		Size:     len(data),
	}
	stored := s.state.AddFileDirect(f, data)
	return map[string]interface{}{"id": stored.ID, "name": stored.Name, "mimetype": stored.Mimetype}
}

func mimeFromDataURL(dataURL string) string {
	if !strings.HasPrefix(dataURL, "data:") {
		return "application/octet-stream"
	}
	rest := dataURL[len("data:"):]
	if i := strings.IndexAny(rest, ";,"); i >= 0 {
		return rest[:i]
	}
	return "application/octet-stream"
}

func (s *Server) viewSubmit(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	viewID, _ := body["view_id"].(string)
	rawValues, _ := body["values"].(map[string]interface{})

	v, found := s.state.GetView(viewID)
	if !found {
		return writeError(c, apierr.New(apierr.ViewNotFound, "view not found"))
	}

	index := indexElements(v.View)
	values := s.transformValues(index, rawValues)

	submittedView := map[string]interface{}{}
	for k, val := range v.View {
		submittedView[k] = val
	}
	submittedView["id"] = v.ID
	state := map[string]interface{}{"values": values}
	submittedView["state"] = state

	triggerID := s.state.NewTrigger(model.TriggerContext{UserID: v.UserID, ChannelID: v.ChannelID})
	payload := fiber.Map{
		"type":       "view_submission",
		"view":       submittedView,
		"user":       fiber.Map{"id": v.UserID},
		"trigger_id": triggerID,
	}

	s.bus.Dispatch(socketbus.DispatchOpts{
		Type:                    socketbus.EnvelopeInteractive,
		Payload:                 payload,
		TargetBotID:             v.BotID,
		InterpretViewSubmission: true,
		ViewID:                  v.ID,
	})
	return ok(c, nil)
}

func (s *Server) blockAction(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		return writeError(c, err)
	}
	blockID, _ := body["block_id"].(string)
	actionID, _ := body["action_id"].(string)
	elementType, _ := body["element_type"].(string)
	userID, _ := body["user_id"].(string)
	botID, _ := body["bot_id"].(string)
	viewID, _ := body["view_id"].(string)
	channel, _ := body["channel"].(string)
	messageTs, _ := body["message_ts"].(string)

	action := fiber.Map{
		"action_id": actionID,
		"block_id":  blockID,
		"type":      elementType,
	}
	switch elementType {
	case "static_select", "external_select", "overflow", "radio_buttons":
		value, _ := body["value"].(string)
		action["selected_option"] = fiber.Map{"value": value}
	case "checkboxes":
		action["selected_options"] = body["value"]
	case "datepicker":
		action["selected_date"] = body["value"]
	case "timepicker":
		action["selected_time"] = body["value"]
	case "datetimepicker":
		action["selected_date_time"] = body["value"]
	default:
		action["value"] = body["value"]
	}

	payload := fiber.Map{
		"type":    "block_actions",
		"actions": []fiber.Map{action},
		"user":    fiber.Map{"id": userID},
	}

	var targetBotID string
	if viewID != "" {
		v, found := s.state.GetView(viewID)
		if found {
			payload["view"] = viewResponse(v)
			targetBotID = v.BotID
		}
	} else {
		payload["channel"] = fiber.Map{"id": channel}
		payload["message"] = fiber.Map{"ts": messageTs}
		triggerID := s.state.NewTrigger(model.TriggerContext{UserID: userID, ChannelID: channel})
		payload["trigger_id"] = triggerID
		targetBotID = botID
	}

	s.bus.Dispatch(socketbus.DispatchOpts{
		Type:        socketbus.EnvelopeInteractive,
		Payload:     payload,
		TargetBotID: targetBotID,
	})
	return ok(c, nil)
}
