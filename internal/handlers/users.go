package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vaughan-dsouza/BeSocial/internal/middleware"
	"github.com/vaughan-dsouza/BeSocial/internal/services"
	"github.com/vaughan-dsouza/BeSocial/internal/utils"
)

type UserHandler struct {
	service services.UserServiceProvider
}

func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

// GetUser handles GET /users/{id}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	viewer, _ := utils.UserIDFromContext(r.Context())

	user, err := h.service.GetUser(r.Context(), viewer, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

// GetUserFriends handles GET /users/{id}/friends.
func (h *UserHandler) GetUserFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.service.GetFriends(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, friends)
}

// AddRemoveFriend handles PATCH /users/{id}/{friendId}.
func (h *UserHandler) AddRemoveFriend(w http.ResponseWriter, r *http.Request) {
	caller, _ := utils.UserIDFromContext(r.Context())

	friends, err := h.service.ToggleFriend(r.Context(), caller, chi.URLParam(r, "id"), chi.URLParam(r, "friendId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, friends)
}

// UpdatePicture handles PUT /users/{id}/picture (multipart, field "picture").
func (h *UserHandler) UpdatePicture(w http.ResponseWriter, r *http.Request) {
	caller, _ := utils.UserIDFromContext(r.Context())
	img, _ := middleware.UploadedImage(r.Context())

	user, err := h.service.UpdatePicture(r.Context(), caller, chi.URLParam(r, "id"), img)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}
