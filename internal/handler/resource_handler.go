package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mockprep/coach-gateway/internal/model"
	"github.com/mockprep/coach-gateway/internal/response"
	"github.com/mockprep/coach-gateway/internal/service"
	"github.com/mockprep/coach-gateway/internal/validator"
)

// ResourceHandler serves the practice and concept catalogs.
type ResourceHandler struct {
	resourceService *service.ResourceService
}

func NewResourceHandler(resourceService *service.ResourceService) *ResourceHandler {
	return &ResourceHandler{resourceService: resourceService}
}

// GET /api/v1/resources/practice
func (h *ResourceHandler) Practice(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"groups": h.resourceService.Practice()})
}

// GET /api/v1/resources/concepts?q=
func (h *ResourceHandler) Concepts(c *gin.Context) {
	var q model.ConceptQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"concepts": h.resourceService.Concepts(q.Q)})
}
