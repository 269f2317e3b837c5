package handlers

import (
	"errors"
	"net/http"
	"register-service/internal/models"
	"register-service/internal/repository"
)

type CategoryHandler struct {
	repo repository.CategoryRepository
}

func NewCategoryHandler(repo repository.CategoryRepository) *CategoryHandler {
	return &CategoryHandler{repo: repo}
}

type CategoryCreateRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (h *CategoryHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.GetAll(r.Context())
	if err != nil {
		writeDomainError(w, err, "failed to get categories")
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CategoryCreateRequest
	if ok := decodeAndValidate(w, r, &req); !ok {
		return
	}

	c := models.Category{Name: req.Name}
	if err := h.repo.Create(r.Context(), &c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, http.StatusConflict, "duplicate", "category already exists", nil)
			return
		}
		writeDomainError(w, err, "failed to create category")
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// Delete removes the category; its products become uncategorized.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "category")
	if !ok {
		return
	}

	if _, err := h.repo.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, "failed to delete category")
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
