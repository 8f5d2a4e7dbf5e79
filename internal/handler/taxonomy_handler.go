package handler

import (
	"fincra-wisdom/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TaxonomyHandler serves circles and departments.
type TaxonomyHandler struct {
	taxonomy service.TaxonomyService
}

func NewTaxonomyHandler(taxonomy service.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{taxonomy: taxonomy}
}

func (h *TaxonomyHandler) ListCircles(c *gin.Context) {
	circles, err := h.taxonomy.ListCircles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, circles)
}

func (h *TaxonomyHandler) GetCircle(c *gin.Context) {
	circle, err := h.taxonomy.GetCircle(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, circle)
}

func (h *TaxonomyHandler) CreateCircle(c *gin.Context) {
	var in service.CircleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	circle, err := h.taxonomy.CreateCircle(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, circle)
}

func (h *TaxonomyHandler) UpdateCircle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.CircleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	circle, err := h.taxonomy.UpdateCircle(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, circle)
}

func (h *TaxonomyHandler) DeleteCircle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.taxonomy.DeleteCircle(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id})
}

// ListCircleDepartments handles GET /circles/:slug/departments.
func (h *TaxonomyHandler) ListCircleDepartments(c *gin.Context) {
	depts, err := h.taxonomy.ListDepartments(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, depts)
}

func (h *TaxonomyHandler) GetDepartment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dept, err := h.taxonomy.GetDepartment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dept)
}

func (h *TaxonomyHandler) CreateDepartment(c *gin.Context) {
	var in service.DepartmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	dept, err := h.taxonomy.CreateDepartment(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, dept)
}

func (h *TaxonomyHandler) UpdateDepartment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.DepartmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	dept, err := h.taxonomy.UpdateDepartment(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dept)
}

func (h *TaxonomyHandler) DeleteDepartment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.taxonomy.DeleteDepartment(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id})
}
