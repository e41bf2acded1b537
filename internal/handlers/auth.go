package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/vaughan-dsouza/BeSocial/internal/middleware"
	"github.com/vaughan-dsouza/BeSocial/internal/services"
	"github.com/vaughan-dsouza/BeSocial/internal/utils"
)

type AuthHandler struct {
	service services.AuthServiceProvider
}

func NewAuthHandler(service services.AuthServiceProvider) *AuthHandler {
	return &AuthHandler{service: service}
}

// ----------- Request DTOs -------------

type registerReq struct {
	FirstName  string `json:"firstName" validate:"required,min=2,max=50"`
	LastName   string `json:"lastName" validate:"required,min=2,max=50"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	Location   string `json:"location" validate:"max=100"`
	Occupation string `json:"occupation" validate:"max=100"`
	// PicturePath is accepted from JSON clients that host the picture elsewhere.
	PicturePath string `json:"picturePath" validate:"omitempty,url|startswith=/assets/"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// -------------- REGISTER ----------------------

// Register accepts a multipart form (with optional "picture" file), a
// urlencoded form or a JSON body.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if utils.IsForm(r) {
		req = registerReq{
			FirstName:   r.FormValue("firstName"),
			LastName:    r.FormValue("lastName"),
			Email:       r.FormValue("email"),
			Password:    r.FormValue("password"),
			Location:    r.FormValue("location"),
			Occupation:  r.FormValue("occupation"),
			PicturePath: r.FormValue("picturePath"),
		}
	} else if err := utils.DecodeJSON(w, r, &req); err != nil {
		return
	}

	var publicID string
	if img, ok := middleware.UploadedImage(r.Context()); ok {
		req.PicturePath, publicID = img.URL, img.PublicID
	}

	if err := validate.Struct(req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	user, err := h.service.Register(r.Context(), services.RegisterInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Password:        req.Password,
		PicturePath:     req.PicturePath,
		PicturePublicID: publicID,
		Location:        req.Location,
		Occupation:      req.Occupation,
	})
	if err != nil {
		if !errors.Is(err, services.ErrEmailTaken) {
			log.Error().Err(err).Str("email", req.Email).Msg("failed to register user")
		}
		writeServiceError(w, r, err)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("user registered")
	utils.JSON(w, http.StatusCreated, user)
}

// -------------- LOGIN ------------------------

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if utils.IsForm(r) {
		req = loginReq{Email: r.FormValue("email"), Password: r.FormValue("password")}
	} else if err := utils.DecodeJSON(w, r, &req); err != nil {
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		utils.JSONError(w, http.StatusBadRequest, "user does not exist")
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		log.Warn().Str("email", req.Email).Msg("failed authentication attempt")
		utils.JSONError(w, http.StatusBadRequest, "invalid credentials")
		return
	case err != nil:
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, res)
}
