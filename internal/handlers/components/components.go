package handlers_components

import (
	"bytes"
	"encoding/json"
	"net/http"

	"biostore/internal/clmiddleware"
	handlers_api "biostore/internal/handlers/api"
	"biostore/internal/models/clcomponents"
	"biostore/internal/models/clerrors"
	"biostore/internal/models/cllegacy"
	"biostore/internal/models/clpages"

	"github.com/gin-gonic/gin"
)

type ComponentsHandler struct {
	pages      *clpages.Service
	components *clcomponents.Store
	legacy     *cllegacy.Adapter
}

func NewComponentsHandler(pages *clpages.Service, components *clcomponents.Store, legacy *cllegacy.Adapter) *ComponentsHandler {
	return &ComponentsHandler{
		pages:      pages,
		components: components,
		legacy:     legacy,
	}
}

type addRequest struct {
	Type   clcomponents.ComponentType `json:"type"`
	Config json.RawMessage            `json:"config"`
}

type reorderRequest struct {
	ComponentIDs json.RawMessage `json:"componentIds"`
}

// List retourne les composants de la page, complétés par la boutique
// legacy quand la page n'a aucun produit
func (h *ComponentsHandler) List(c *gin.Context) {
	pageID, err := handlers_api.ParamID(c, "id")
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	ctx := c.Request.Context()
	page, err := h.pages.Viewer(ctx, clmiddleware.AuthID(c), pageID)
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	components, err := h.components.List(ctx, page.ID)
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	items, err := h.legacy.Merge(ctx, page, components)
	if err != nil {
		handlers_api.RespondError(c, clerrors.Unexpected("failed to load legacy store", err))
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *ComponentsHandler) Add(c *gin.Context) {
	pageID, err := handlers_api.ParamID(c, "id")
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	var req addRequest
	if err := handlers_api.BindJSON(c, &req); err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	component, err := h.components.Add(c.Request.Context(), clmiddleware.AuthID(c), pageID, req.Type, req.Config)
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, component)
}

func (h *ComponentsHandler) Reorder(c *gin.Context) {
	pageID, err := handlers_api.ParamID(c, "id")
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	var req reorderRequest
	if err := handlers_api.BindJSON(c, &req); err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	raw := bytes.TrimSpace(req.ComponentIDs)
	if len(raw) == 0 || raw[0] != '[' {
		handlers_api.RespondError(c, clerrors.Validation("componentIds must be an array"))
		return
	}
	var ids []clcomponents.ComponentID
	if err := json.Unmarshal(raw, &ids); err != nil {
		handlers_api.RespondError(c, clerrors.Validation("componentIds must contain component ids"))
		return
	}

	if err := h.components.Reorder(c.Request.Context(), clmiddleware.AuthID(c), pageID, ids); err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ComponentsHandler) Update(c *gin.Context) {
	id, err := handlers_api.ParamID(c, "id")
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	var patch clcomponents.Patch
	if err := handlers_api.BindJSON(c, &patch); err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	component, err := h.components.Update(c.Request.Context(), clmiddleware.AuthID(c), clcomponents.ComponentID(id), patch)
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, component)
}

func (h *ComponentsHandler) Delete(c *gin.Context) {
	id, err := handlers_api.ParamID(c, "id")
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	if err := h.components.Delete(c.Request.Context(), clmiddleware.AuthID(c), clcomponents.ComponentID(id)); err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
