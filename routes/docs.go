package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	swaggerFiles "github.com/swaggo/files"

	"todo-backend/config"
	"todo-backend/docs"
)

// RegisterDocsRoutes serves the generated OpenAPI document and the two
// documentation UIs that load it.
func RegisterDocsRoutes(app fiber.Router, document *docs.Document) {
	registerSchemas(document)

	swaggerUI := docs.SwaggerUI(config.Title, config.OpenAPIURL, config.DocsAssetsURL)
	redoc := docs.Redoc(config.Title, config.OpenAPIURL)

	app.Get(config.OpenAPIURL, func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(document.ReadDoc())
	})

	app.Get(config.DocsAssetsURL+"/*", adaptor.HTTPHandler(
		http.StripPrefix(config.DocsAssetsURL, http.FileServer(swaggerFiles.HTTP)),
	))

	app.Get(config.DocsURL, func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(swaggerUI)
	})

	app.Get(config.RedocURL, func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(redoc)
	})
}

func registerSchemas(document *docs.Document) {
	str := map[string]any{"type": "string"}
	dateTime := map[string]any{"type": "string", "format": "date-time"}
	boolean := map[string]any{"type": "boolean"}

	document.AddSchema("SignupRequest", map[string]any{
		"type":     "object",
		"required": []string{"email", "password", "name"},
		"properties": map[string]any{
			"email":    map[string]any{"type": "string", "format": "email", "maxLength": 255},
			"password": map[string]any{"type": "string", "minLength": 8, "maxLength": 128},
			"name":     map[string]any{"type": "string", "minLength": 1, "maxLength": 100},
		},
	})
	document.AddSchema("SigninRequest", map[string]any{
		"type":     "object",
		"required": []string{"email", "password"},
		"properties": map[string]any{
			"email":    map[string]any{"type": "string", "format": "email"},
			"password": str,
		},
	})
	document.AddSchema("User", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":         str,
			"email":      str,
			"name":       str,
			"created_at": dateTime,
		},
	})
	document.AddSchema("TokenResponse", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"access_token": str,
			"token_type":   str,
			"expires_at":   dateTime,
			"user":         map[string]any{"$ref": "#/components/schemas/User"},
		},
	})
	document.AddSchema("TaskCreate", map[string]any{
		"type":     "object",
		"required": []string{"title"},
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "minLength": 1, "maxLength": 200},
			"description": map[string]any{"type": "string", "maxLength": 1000},
		},
	})
	document.AddSchema("TaskUpdate", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "minLength": 1, "maxLength": 200},
			"description": map[string]any{"type": "string", "maxLength": 1000},
			"completed":   boolean,
		},
	})
	document.AddSchema("Task", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":          str,
			"user_id":     str,
			"title":       str,
			"description": str,
			"completed":   boolean,
			"created_at":  dateTime,
			"updated_at":  dateTime,
		},
	})
}

func docsStatusParameter() []docs.Parameter {
	return []docs.Parameter{{
		Name: "status",
		In:   "query",
		Enum: []string{"all", "pending", "completed"},
	}}
}
