package handler

import (
	"net/http"

	"github.com/pmstore/pmstore-api/internal/apperr"
	"github.com/pmstore/pmstore-api/internal/http/middleware"
	"github.com/pmstore/pmstore-api/internal/http/response"
	"github.com/pmstore/pmstore-api/internal/service"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.users.List(r.Context(), pageRequest(r))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, "Users retrieved successfully", map[string]any{
		"users":       page.Items,
		"page":        page.Page,
		"page_size":   page.PageSize,
		"total":       page.Total,
		"total_pages": page.TotalPages,
	})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, apperr.Unauthorized("Please log in to continue"))
		return
	}
	response.OK(w, r, "Success", map[string]any{"user": user.View()})
}
