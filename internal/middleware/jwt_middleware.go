package middleware

import (
	"log"
	"strings"

	"marketplace/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token.
// The token is read from the Authorization header, or from the "token"
// query parameter when the header is absent.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Query("token")
		if authHeader := c.Get("Authorization"); authHeader != "" {
			// Expected format: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if !(len(parts) == 2 && parts[0] == "Bearer") {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"message": "Authorization header format must be 'Bearer <token>'",
				})
			}
			tokenString = parts[1]
		}
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		viewer := services.ViewerFromClaims(claims)
		if viewer.Anonymous() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Token carries no user",
			})
		}

		// Store claims in Fiber context for subsequent handlers
		c.Locals("user_id", viewer.UserID)
		c.Locals("username", viewer.Username)
		c.Locals("is_vendor", viewer.IsVendor)

		return c.Next()
	}
}

// CurrentViewer returns the identity AuthRequired stored on the context.
func CurrentViewer(c *fiber.Ctx) services.Viewer {
	userID, _ := c.Locals("user_id").(string)
	username, _ := c.Locals("username").(string)
	isVendor, _ := c.Locals("is_vendor").(bool)
	return services.Viewer{UserID: userID, Username: username, IsVendor: isVendor}
}
