package handlers_og

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	handlers_api "biostore/internal/handlers/api"
	"biostore/internal/models/clconfig"
	"biostore/internal/models/clerrors"
	"biostore/internal/models/cllegacy"
	"biostore/internal/models/clpages"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/tdewolff/minify/v2"
	htmlmin "github.com/tdewolff/minify/v2/html"
	stripmd "github.com/writeas/go-strip-markdown"
)

//go:embed templates/og.html
var templatesFS embed.FS

const maxDescription = 200

type ogData struct {
	Title       string
	Description string
	Image       string
	URL         string
	SiteName    string
	Refresh     string
}

type OGHandler struct {
	pages  *clpages.Service
	legacy *cllegacy.Adapter
	site   clconfig.SiteConfig
	tmpl   *template.Template
	m      *minify.M
}

func NewOGHandler(pages *clpages.Service, legacy *cllegacy.Adapter, site clconfig.SiteConfig) (*OGHandler, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/og.html")
	if err != nil {
		return nil, err
	}
	m := minify.New()
	m.AddFunc("text/html", htmlmin.Minify)

	site.BaseURL = strings.TrimRight(site.BaseURL, "/")
	return &OGHandler{
		pages:  pages,
		legacy: legacy,
		site:   site,
		tmpl:   tmpl,
		m:      m,
	}, nil
}

// Render sert la page Open Graph pour les robots des réseaux sociaux,
// les navigateurs sont redirigés vers la page publique
func (h *OGHandler) Render(c *gin.Context) {
	ctx := c.Request.Context()
	username := strings.ToLower(c.Param("username"))

	page, err := h.pages.GetByUsername(ctx, username)
	if clerrors.Is(err, clerrors.KindNotFound) {
		page, _, err = h.legacy.PageByUsername(ctx, username)
	}
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	data := h.data(username, page)
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "og.html", data); err != nil {
		handlers_api.RespondError(c, clerrors.Unexpected("failed to render og page", err))
		return
	}

	out, err := h.m.Bytes("text/html", buf.Bytes())
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("og minification failed")
		out = buf.Bytes()
	}

	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "text/html; charset=utf-8", out)
}

func (h *OGHandler) data(username string, page *clpages.Page) ogData {
	pageURL := h.site.BaseURL + "/" + username

	description := ""
	if page.ProfileBio != nil {
		description = strings.Join(strings.Fields(stripmd.Strip(*page.ProfileBio)), " ")
	}
	if description == "" {
		description = h.site.OGDefault
	}
	if r := []rune(description); len(r) > maxDescription {
		description = strings.TrimSpace(string(r[:maxDescription-3])) + "..."
	}

	image := h.site.OGImage
	if page.ProfileImage != nil && *page.ProfileImage != "" {
		image = *page.ProfileImage
	}

	return ogData{
		Title:       page.ProfileName + " - Bio",
		Description: description,
		Image:       image,
		URL:         pageURL,
		SiteName:    h.site.SiteName,
		Refresh:     "0;url=" + pageURL,
	}
}
