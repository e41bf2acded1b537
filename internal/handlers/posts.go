package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vaughan-dsouza/BeSocial/internal/middleware"
	"github.com/vaughan-dsouza/BeSocial/internal/services"
	"github.com/vaughan-dsouza/BeSocial/internal/utils"
)

type PostHandler struct {
	service services.PostServiceProvider
}

func NewPostHandler(service services.PostServiceProvider) *PostHandler {
	return &PostHandler{service: service}
}

type updatePostReq struct {
	Description string `json:"description" validate:"max=2000"`
}

type commentReq struct {
	Comment string `json:"comment" validate:"required,min=1,max=500"`
}

// ---------------------- CREATE ----------------------

// CreatePost handles POST /posts. The upload middleware has already stored
// the "picture" file; the author is the authenticated user.
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	img, ok := middleware.UploadedImage(r.Context())
	if !ok {
		utils.JSONMessage(w, http.StatusBadRequest, middleware.UploadFailed)
		return
	}

	req := updatePostReq{Description: r.FormValue("description")}
	if err := validate.Struct(req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	userID, _ := utils.UserIDFromContext(r.Context())
	feed, err := h.service.Create(r.Context(), userID, req.Description, img)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusCreated, feed)
}

// ---------------------- READ ----------------------

func (h *PostHandler) GetFeedPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.Feed(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, posts)
}

func (h *PostHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.UserPosts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, posts)
}

func (h *PostHandler) GetPostByID(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, post)
}

// ---------------------- UPDATE ----------------------

func (h *PostHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.UserIDFromContext(r.Context())

	post, err := h.service.ToggleLike(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, post)
}

func (h *PostHandler) CommentPost(w http.ResponseWriter, r *http.Request) {
	var req commentReq
	if utils.IsForm(r) {
		req.Comment = r.FormValue("comment")
	} else if err := utils.DecodeJSON(w, r, &req); err != nil {
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	userID, _ := utils.UserIDFromContext(r.Context())
	post, err := h.service.Comment(r.Context(), chi.URLParam(r, "id"), userID, req.Comment)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, post)
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var req updatePostReq
	if utils.IsForm(r) {
		req.Description = r.FormValue("description")
	} else if err := utils.DecodeJSON(w, r, &req); err != nil {
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	userID, _ := utils.UserIDFromContext(r.Context())
	post, err := h.service.UpdateDescription(r.Context(), chi.URLParam(r, "id"), userID, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, post)
}

// ---------------------- DELETE ----------------------

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.UserIDFromContext(r.Context())

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
