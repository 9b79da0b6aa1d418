package handler

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SetupSwagger serves the OpenAPI document at /swagger/doc.json and a
// Swagger UI page for every other path under /swagger.
func SetupSwagger(router *gin.Engine, specPath string) {
	if _, err := os.Stat(specPath); errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", specPath).Msg("swagger spec not found, /swagger/doc.json will return 404")
	}

	serveSpec := func(c *gin.Context) {
		if _, err := os.Stat(specPath); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "API documentation is not available"})
			return
		}
		c.Header("Cache-Control", "no-cache")
		c.File(specPath)
	}

	router.GET("/swagger/*any", func(c *gin.Context) {
		switch c.Param("any") {
		case "/doc.json", "doc.json":
			serveSpec(c)
		case "/", "", "/index.html":
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerUIHTML))
		default:
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		}
	})
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Commission Ledger - API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/swagger/doc.json',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      requestInterceptor: (req) => {
        const token = localStorage.getItem('ledger_admin_token');
        if (token) req.headers['Authorization'] = 'Bearer ' + token;
        return req;
      }
    });
  </script>
</body>
</html>`
