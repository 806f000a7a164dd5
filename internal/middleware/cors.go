package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const corsAllowHeaders = "authorization, x-client-info, apikey, content-type"

// OriginPolicy decides which origin is echoed back to browsers.
type OriginPolicy struct {
	Origins  []string
	Suffixes []string
}

func (p OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range p.Origins {
		if origin == allowed {
			return true
		}
	}
	for _, suffix := range p.Suffixes {
		if suffix != "" && strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}

// Resolve echoes an allowed origin and falls back to the first configured
// origin otherwise.
func (p OriginPolicy) Resolve(origin string) string {
	if p.Allowed(origin) {
		return origin
	}
	if len(p.Origins) > 0 {
		return p.Origins[0]
	}
	return ""
}

// StrictCORS sets the CORS headers for the assistant endpoint and answers
// preflight requests with an empty 200.
func StrictCORS(policy OriginPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, policy.Resolve(c.Get(fiber.HeaderOrigin)))
		c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
		c.Set(fiber.HeaderAccessControlAllowMethods, "POST, OPTIONS")
		c.Vary(fiber.HeaderOrigin)

		if c.Method() == fiber.MethodOptions {
			c.Status(fiber.StatusOK)
			return nil
		}
		return c.Next()
	}
}
