package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"reviewboost/internal/domain"
	feedbackusecase "reviewboost/internal/usecase/feedback"
)

// FeedbackHandler обслуживает публичную страницу отзывов: данные бизнеса
// и приём отзывов без аутентификации.
type FeedbackHandler struct {
	service *feedbackusecase.Service
	log     zerolog.Logger
}

// NewFeedbackHandler создаёт обработчик.
func NewFeedbackHandler(service *feedbackusecase.Service, logger zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{service: service, log: logger}
}

// Routes регистрирует маршруты обработчика.
func (h *FeedbackHandler) Routes(r chi.Router) {
	r.Options("/", noContent)
	r.Options("/user/{accountID}", noContent)
	r.Get("/user/{accountID}", h.publicInfo)
	r.Post("/", h.submit)
}

type publicInfoResponse struct {
	BusinessName     string `json:"businessName"`
	GoogleReviewLink string `json:"googleReviewLink"`
	LogoURL          string `json:"logoUrl"`
	CustomColor      string `json:"customColor"`
}

func (h *FeedbackHandler) publicInfo(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	profile, err := h.service.PublicInfo(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error().Err(err).Str("account_id", accountID).Msg("feedback: публичный профиль недоступен")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, publicInfoResponse{
		BusinessName:     profile.BusinessName,
		GoogleReviewLink: profile.GoogleReviewLink,
		LogoURL:          profile.LogoURL,
		CustomColor:      profile.CustomColor,
	})
}

type submitRequest struct {
	UserID    string   `json:"userId"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	Phone     string   `json:"phone"`
	Rating    *float64 `json:"rating"`
	Comment   string   `json:"comment"`
	Consent   bool     `json:"consent"`
	Source    string   `json:"source"`
}

func (h *FeedbackHandler) submit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data")
		return
	}
	params := feedbackusecase.SubmitParams{
		AccountID: req.UserID,
		Email:     req.Email,
		FirstName: req.FirstName,
		Phone:     req.Phone,
		Comment:   req.Comment,
		Consent:   req.Consent,
		Source:    req.Source,
		UserAgent: r.UserAgent(),
	}
	if req.Rating != nil {
		params.Rating = *req.Rating
	}
	feedbackID, err := h.service.Submit(r.Context(), params)
	if err != nil {
		if errors.Is(err, feedbackusecase.ErrInvalidSubmission) {
			writeError(w, http.StatusBadRequest, "Invalid data")
			return
		}
		h.log.Error().Err(err).Str("account_id", req.UserID).Msg("feedback: отзыв не сохранён")
		writeError(w, http.StatusInternalServerError, "Failed to save feedback")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": feedbackID})
}
