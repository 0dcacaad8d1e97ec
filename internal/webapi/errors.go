package webapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/slackemu/emulator/internal/apierr"
)

// writeError renders err as the platform's {ok:false, error:<kind>} body
// with the status code conventional for that kind.
func writeError(c *fiber.Ctx, err error) error {
	if apiErr, ok := apierr.As(err); ok {
		return c.Status(apierr.HTTPStatus(apiErr.Kind)).JSON(fiber.Map{
			"ok":    false,
			"error": string(apiErr.Kind),
		})
	}
	return c.Status(apierr.HTTPStatus(apierr.InternalError)).JSON(fiber.Map{
		"ok":    false,
		"error": string(apierr.InternalError),
	})
}

func errInvalidJSON(err error) error {
	return apierr.Wrap(apierr.InvalidJSON, err)
}

func ok(c *fiber.Ctx, body fiber.Map) error {
	if body == nil {
		body = fiber.Map{}
	}
	body["ok"] = true
	return c.JSON(body)
}
