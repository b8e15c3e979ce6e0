package handlers_pages

import (
	"net/http"

	"biostore/internal/clmiddleware"
	handlers_api "biostore/internal/handlers/api"
	"biostore/internal/models/clanalytics"
	"biostore/internal/models/clcomponents"
	"biostore/internal/models/clerrors"
	"biostore/internal/models/cllegacy"
	"biostore/internal/models/clpages"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type PagesHandler struct {
	pages      *clpages.Service
	components *clcomponents.Store
	legacy     *cllegacy.Adapter
	analytics  *clanalytics.Service
}

func NewPagesHandler(pages *clpages.Service, components *clcomponents.Store, legacy *cllegacy.Adapter, analytics *clanalytics.Service) *PagesHandler {
	return &PagesHandler{
		pages:      pages,
		components: components,
		legacy:     legacy,
		analytics:  analytics,
	}
}

type transferRequest struct {
	Email string `json:"email"`
}

// pageWithComponents aplatit la page et ajoute ses composants
type pageWithComponents struct {
	*clpages.Page
	Components []clcomponents.Item `json:"components"`
}

// List retourne les pages de l'appelant
func (h *PagesHandler) List(c *gin.Context) {
	pages, err := h.pages.ListForUser(c.Request.Context(), clmiddleware.AuthID(c))
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pages)
}

func (h *PagesHandler) Create(c *gin.Context) {
	authID := clmiddleware.AuthID(c)
	if authID == "" {
		handlers_api.RespondError(c, clerrors.ErrUnauthorized)
		return
	}

	var in clpages.CreateInput
	if err := handlers_api.BindJSON(c, &in); err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	page, err := h.pages.Create(c.Request.Context(), authID, in)
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, page)
}

// Get retourne la page avec tous ses composants, visibles ou non
func (h *PagesHandler) Get(c *gin.Context) {
	id, err := handlers_api.ParamID(c, "id")
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	ctx := c.Request.Context()
	page, err := h.pages.Viewer(ctx, clmiddleware.AuthID(c), id)
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	components, err := h.components.List(ctx, page.ID)
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	items := make([]clcomponents.Item, 0, len(components))
	for _, comp := range components {
		items = append(items, comp)
	}
	c.JSON(http.StatusOK, pageWithComponents{Page: page, Components: items})
}

func (h *PagesHandler) Update(c *gin.Context) {
	id, err := handlers_api.ParamID(c, "id")
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	var upd clpages.PageUpdate
	if err := handlers_api.BindJSON(c, &upd); err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	page, err := h.pages.Update(c.Request.Context(), clmiddleware.AuthID(c), id, upd)
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *PagesHandler) Delete(c *gin.Context) {
	id, err := handlers_api.ParamID(c, "id")
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	if err := h.pages.Delete(c.Request.Context(), clmiddleware.AuthID(c), id); err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetByUsername sert la page publique: page active et composants visibles,
// sinon la boutique legacy du même username. Seule une vraie page compte une vue.
func (h *PagesHandler) GetByUsername(c *gin.Context) {
	ctx := c.Request.Context()
	username := c.Param("username")

	page, err := h.pages.GetByUsername(ctx, username)
	switch {
	case err == nil:
		components, err := h.components.ListVisible(ctx, page.ID)
		if err != nil {
			handlers_api.RespondError(c, err)
			return
		}
		items := make([]clcomponents.Item, 0, len(components))
		for _, comp := range components {
			items = append(items, comp)
		}
		h.countView(c, page.ID)
		c.JSON(http.StatusOK, pageWithComponents{Page: page, Components: items})
		return
	case !clerrors.Is(err, clerrors.KindNotFound):
		handlers_api.RespondError(c, err)
		return
	}

	legacyPage, synthetic, err := h.legacy.PageByUsername(ctx, username)
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	items := make([]clcomponents.Item, 0, len(synthetic))
	for _, comp := range synthetic {
		items = append(items, comp)
	}
	c.JSON(http.StatusOK, pageWithComponents{Page: legacyPage, Components: items})
}

// countView passe par le recorder, une erreur est seulement loguée
func (h *PagesHandler) countView(c *gin.Context, pageID uint) {
	in := clanalytics.ViewInput{PageID: pageID}
	if ua := c.Request.UserAgent(); ua != "" {
		in.UserAgent = &ua
	}
	if ref := c.Request.Referer(); ref != "" {
		in.Referrer = &ref
	}
	if err := h.analytics.RecordView(c.Request.Context(), in, c.ClientIP()); err != nil {
		zerolog.Ctx(c.Request.Context()).Warn().Err(err).Uint("page_id", pageID).Msg("public view not recorded")
	}
}

// Transfer rattache une page orpheline au compte de l'appelant
func (h *PagesHandler) Transfer(c *gin.Context) {
	id, err := handlers_api.ParamID(c, "id")
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	var req transferRequest
	if c.Request.ContentLength != 0 {
		if err := handlers_api.BindJSON(c, &req); err != nil {
			handlers_api.RespondError(c, err)
			return
		}
	}

	page, err := h.pages.Transfer(c.Request.Context(), clmiddleware.AuthID(c), req.Email, id)
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "page": page})
}

// GetStore retourne la boutique legacy active telle quelle
func (h *PagesHandler) GetStore(c *gin.Context) {
	store, err := h.legacy.ByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, store)
}

func (h *PagesHandler) CheckUsername(c *gin.Context) {
	available, err := h.pages.UsernameAvailable(c.Request.Context(), c.Param("username"))
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}
