package docs

import (
	"fmt"
)

const swaggerUIHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>%[1]s - Swagger UI</title>
  <link rel="stylesheet" href="%[3]s/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="%[3]s/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: "%[2]s",
      dom_id: "#swagger-ui",
      deepLinking: true,
      persistAuthorization: true,
      presets: [SwaggerUIBundle.presets.apis],
      layout: "BaseLayout"
    });
  </script>
</body>
</html>`

const redocHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>%[1]s - ReDoc</title>
  <style>body { margin: 0; padding: 0; }</style>
</head>
<body>
  <redoc spec-url="%[2]s"></redoc>
  <script src="https://cdn.jsdelivr.net/npm/redoc@2/bundles/redoc.standalone.js"></script>
</body>
</html>`

// SwaggerUI loads the Swagger UI bundle from assetsURL, where the embedded
// swaggo/files assets are served.
func SwaggerUI(title, specURL, assetsURL string) string {
	return fmt.Sprintf(swaggerUIHTML, title, specURL, assetsURL)
}

func Redoc(title, specURL string) string {
	return fmt.Sprintf(redocHTML, title, specURL)
}
