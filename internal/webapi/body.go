package webapi

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/slackemu/emulator/internal/apierr"
)

// parseBody accepts application/json or application/x-www-form-urlencoded
// bodies and returns a flat string-keyed map. For form-encoded requests,
// values that look like a JSON array/object are parsed into their native
// shape; everything else stays a string.
func parseBody(c *fiber.Ctx) (map[string]interface{}, error) {
	ct := c.Get("Content-Type")

	if strings.HasPrefix(ct, fiber.MIMEApplicationJSON) {
		var out map[string]interface{}
		if len(c.Body()) == 0 {
			return map[string]interface{}{}, nil
		}
		if err := json.Unmarshal(c.Body(), &out); err != nil {
			return nil, apierr.New(apierr.InvalidJSON, "malformed JSON body")
		}
		return out, nil
	}

	out := map[string]interface{}{}
	args := c.Context().PostArgs()
	args.VisitAll(func(key, value []byte) {
		k := string(key)
		v := string(value)
		out[k] = coerceFormValue(v)
	})
	return out, nil
}

func coerceFormValue(v string) interface{} {
	trimmed := strings.TrimSpace(v)
	if len(trimmed) == 0 {
		return v
	}
	looksJSON := (trimmed[0] == '[' && trimmed[len(trimmed)-1] == ']') ||
		(trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}')
	if !looksJSON {
		return v
	}
	var parsed interface{}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return v
	}
	return parsed
}
