// Package web renders the marketing pages from embedded templates.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/claw-quants/internal/content"
	"github.com/irfndi/claw-quants/internal/models"
	"github.com/irfndi/claw-quants/internal/services"
	"github.com/irfndi/claw-quants/internal/simulator"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const htmlContentType = "text/html; charset=utf-8"

// LoadTemplates parses the embedded page templates.
func LoadTemplates() (*template.Template, error) {
	tmpl, err := template.New("site").Funcs(template.FuncMap{
		"sparkline": func(s simulator.Series) string {
			return Sparkline(s.Values(), SparkWidth, SparkHeight)
		},
		"sparkWidth":  func() int { return SparkWidth },
		"sparkHeight": func() int { return SparkHeight },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// StaticFS serves the embedded stylesheet and images.
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Pages serves the HTML pages of the site.
type Pages struct {
	site        *content.Site
	leaderboard *services.Leaderboard
	templates   *template.Template
	development bool
	logger      *logrus.Logger
}

// NewPages creates the page handlers. Error details are rendered only in
// the development environment.
func NewPages(site *content.Site, leaderboard *services.Leaderboard, templates *template.Template, environment string, logger *logrus.Logger) *Pages {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pages{
		site:        site,
		leaderboard: leaderboard,
		templates:   templates,
		development: strings.EqualFold(environment, "development"),
		logger:      logger,
	}
}

// Register mounts the pages, static assets and the not-found handler.
func (p *Pages) Register(router *gin.Engine) {
	router.StaticFS("/static", StaticFS())
	router.GET("/", p.Landing)
	router.GET("/docs", p.Docs)
	router.NoRoute(p.NotFound)
}

type landingPage struct {
	Title        string
	Site         *content.Site
	Cards        []models.TraderCard
	ActiveAgents int
}

type docsPage struct {
	Title   string
	Site    *content.Site
	Section content.DocSection
}

type errorPage struct {
	Title       string
	Site        *content.Site
	Copy        content.ErrorCopy
	ShowDetails bool
	Details     string
	Digest      string
}

// Landing renders the home page with the live leaderboard.
func (p *Pages) Landing(c *gin.Context) {
	cards := p.leaderboard.Cards(c.Request.Context())
	p.render(c, http.StatusOK, "landing.html", landingPage{
		Title:        p.site.Brand.Name + " | " + p.site.Brand.Tagline,
		Site:         p.site,
		Cards:        cards,
		ActiveAgents: len(cards) + p.site.Leaderboard.ActiveAgents.Offset,
	})
}

// Docs renders the documentation page. Unknown sections fall back to the first.
func (p *Pages) Docs(c *gin.Context) {
	section := p.site.Docs.Section(c.Query("section"))
	p.render(c, http.StatusOK, "docs.html", docsPage{
		Title:   section.Title + " | " + p.site.Brand.Name + " Docs",
		Site:    p.site,
		Section: section,
	})
}

// NotFound answers unknown routes with JSON under /api and HTML elsewhere.
func (p *Pages) NotFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "path": c.Request.URL.Path})
		return
	}
	p.render(c, http.StatusNotFound, "not_found.html", errorPage{
		Title: p.site.Errors.NotFound.Title + " | " + p.site.Brand.Name,
		Site:  p.site,
		Copy:  p.site.Errors.NotFound,
	})
}

// Recovery converts panics into the error page.
func (p *Pages) Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		p.logger.WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"panic": fmt.Sprint(recovered),
			"stack": string(debug.Stack()),
		}).Error("Recovered from panic")
		p.ServerError(c, fmt.Errorf("panic: %v", recovered))
	})
}

// ServerError renders the error page with status 500.
func (p *Pages) ServerError(c *gin.Context, err error) {
	digest := strings.SplitN(uuid.NewString(), "-", 2)[0]
	p.logger.WithError(err).WithField("digest", digest).Error("Request failed")

	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "digest": digest})
		return
	}

	page := errorPage{
		Title:       p.site.Errors.ServerError.Title + " | " + p.site.Brand.Name,
		Site:        p.site,
		Copy:        p.site.Errors.ServerError,
		ShowDetails: p.development,
		Digest:      digest,
	}
	if p.development {
		page.Details = err.Error()
	}

	var buf bytes.Buffer
	if renderErr := p.templates.ExecuteTemplate(&buf, "error.html", page); renderErr != nil {
		p.logger.WithError(renderErr).Error("Failed to render error page")
		c.Data(http.StatusInternalServerError, htmlContentType, CriticalErrorPage(p.site.Errors.Critical))
		c.Abort()
		return
	}
	c.Data(http.StatusInternalServerError, htmlContentType, buf.Bytes())
	c.Abort()
}

func (p *Pages) render(c *gin.Context, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.templates.ExecuteTemplate(&buf, name, data); err != nil {
		p.ServerError(c, fmt.Errorf("render %s: %w", name, err))
		return
	}
	c.Data(status, htmlContentType, buf.Bytes())
}

// CriticalErrorPage is a self-contained page used when the templated error
// page cannot be rendered.
func CriticalErrorPage(ec content.ErrorCopy) []byte {
	title := ec.Title
	if title == "" {
		title = "Critical Error"
	}
	return []byte(fmt.Sprintf(criticalTemplate,
		html.EscapeString(title),
		html.EscapeString(title),
		html.EscapeString(ec.Message),
		html.EscapeString(ec.Note),
		html.EscapeString(orDefault(ec.Primary, "Try Again")),
		html.EscapeString(orDefault(ec.Secondary, "Return Home")),
	))
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

const criticalTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body style="margin:0;padding:0;background-color:#000000;color:#ffffff;font-family:system-ui,-apple-system,sans-serif">
<div style="min-height:100vh;display:flex;align-items:center;justify-content:center">
<div style="text-align:center;padding:20px">
<h1 style="font-size:36px;font-weight:bold;margin-bottom:16px">%s</h1>
<p style="color:#a3a3a3;margin-bottom:8px;font-size:18px">%s</p>
<p style="color:#737373;margin-bottom:32px;font-size:14px">%s</p>
<div style="display:flex;gap:16px;justify-content:center;flex-wrap:wrap">
<a href="" style="padding:12px 32px;background:linear-gradient(to right,#ef4444,#dc2626);border-radius:8px;color:white;text-decoration:none;font-weight:500">%s</a>
<a href="/" style="padding:12px 32px;border:1px solid #404040;border-radius:8px;color:#d4d4d4;text-decoration:none;font-weight:500">%s</a>
</div>
</div>
</div>
</body>
</html>
`
