package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const errListCategories = "failed to load categories"

// @Summary      Category tree
// @Tags         categories
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "categories"
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/categories [get]
// @Security     BearerAuth
func (h *Handler) getCategories(c *gin.Context) {
	tree, err := h.services.Categories.Tree(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusBadGateway, errListCategories, "categories_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": tree})
}

// @Summary      Leaf categories
// @Description  Leaves of the category tree, each with its "Root > Child > Leaf" path.
// @Tags         categories
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, categories"
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/categories/leaves [get]
// @Security     BearerAuth
func (h *Handler) getLeaves(c *gin.Context) {
	leaves, err := h.services.Categories.Leaves(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusBadGateway, errListCategories, "categories_leaves_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":      len(leaves),
		"categories": leaves,
	})
}
