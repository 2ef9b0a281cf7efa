package templates

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
)

//go:embed files
var files embed.FS

// CSS returns the embedded stylesheets, served under /css/.
func CSS() http.FileSystem {
	sub, err := fs.Sub(files, "files/css")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// RenderTempl renders a templ component to a Gin context
func RenderTempl(c *gin.Context, status int, component templ.Component) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")

	if err := component.Render(c.Request.Context(), c.Writer); err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
	}
}

// RenderLogin renders the login form.
func RenderLogin(c *gin.Context, status int, props LoginPageProps) {
	RenderTempl(c, status, LoginPage(props))
}
