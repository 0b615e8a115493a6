package handlers

import (
	"encoding/json"
	"net/http"

	"inventory/auth"
	"inventory/config"
	"inventory/form"
	"inventory/i18n"
	"inventory/models"

	"go.uber.org/zap"
)

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func sendJSONResponse(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func noticeText(lang string, n *models.Notice) string {
	return i18n.Format(lang, n.Message, n.Args...)
}

func APILoginHandler(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)
	if r.Method != http.MethodPost {
		sendJSONResponse(w, http.StatusMethodNotAllowed, APIResponse{Status: "error", Message: i18n.T(lang, "MethodNotAllowed")})
		return
	}

	ip := getClientIP(r)
	if config.AppConfig.RateLimitEnabled && !loginLimiter.Allow(ip) {
		sendJSONResponse(w, http.StatusTooManyRequests, APIResponse{Status: "error", Message: i18n.T(lang, "TooManyAttempts")})
		return
	}

	var input models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		return
	}

	id, notice, err := controller.Authenticate(r.Context(), input)
	if err != nil {
		zap.L().Error("API login", zap.Error(err))
		sendJSONResponse(w, http.StatusInternalServerError, APIResponse{Status: "error", Message: i18n.T(lang, "InternalServerError")})
		return
	}
	if notice.Level == models.NoticeError {
		loginLimiter.RecordFailure(ip)
		sendJSONResponse(w, http.StatusUnauthorized, APIResponse{Status: "error", Message: noticeText(lang, notice)})
		return
	}

	loginLimiter.Reset(ip)

	token, err := auth.CreateAPIToken(id)
	if err != nil {
		zap.L().Error("API login", zap.Error(err))
		sendJSONResponse(w, http.StatusInternalServerError, APIResponse{Status: "error", Message: i18n.T(lang, "InternalServerError")})
		return
	}

	sendJSONResponse(w, http.StatusOK, APIResponse{
		Status:  "success",
		Message: noticeText(lang, notice),
		Data: map[string]any{
			"token":    token,
			"username": id.Username,
			"role":     id.Role,
			"admin":    id.Admin,
		},
	})
}

func APISignupHandler(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)
	if r.Method != http.MethodPost {
		sendJSONResponse(w, http.StatusMethodNotAllowed, APIResponse{Status: "error", Message: i18n.T(lang, "MethodNotAllowed")})
		return
	}

	ip := getClientIP(r)
	if config.AppConfig.RateLimitEnabled && !signupLimiter.Allow(ip) {
		sendJSONResponse(w, http.StatusTooManyRequests, APIResponse{Status: "error", Message: i18n.T(lang, "TooManyAttempts")})
		return
	}

	var input models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		return
	}

	st := form.State{View: models.ViewSignup}
	out, err := controller.SubmitSignup(r.Context(), &st, input)
	if err != nil {
		zap.L().Error("API signup", zap.Error(err))
		sendJSONResponse(w, http.StatusInternalServerError, APIResponse{Status: "error", Message: i18n.T(lang, "InternalServerError")})
		return
	}

	if out.Notice.Level == models.NoticeError {
		status := http.StatusBadRequest
		if out.Notice.Message == "AccountExists" {
			status = http.StatusConflict
		}
		sendJSONResponse(w, status, APIResponse{Status: "error", Message: noticeText(lang, out.Notice)})
		return
	}

	// Record signup attempt to limit rate of creation per IP
	signupLimiter.RecordFailure(ip)

	sendJSONResponse(w, http.StatusCreated, APIResponse{
		Status:  "success",
		Message: noticeText(lang, out.Notice),
		Data:    map[string]any{"name": input.Name},
	})
}

func APISessionHandler(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)
	if r.Method != http.MethodGet {
		sendJSONResponse(w, http.StatusMethodNotAllowed, APIResponse{Status: "error", Message: i18n.T(lang, "MethodNotAllowed")})
		return
	}

	token := r.Header.Get("X-API-Token")
	id, ok := auth.GetAPISession(token)
	if token == "" || !ok {
		sendJSONResponse(w, http.StatusUnauthorized, APIResponse{Status: "error", Message: i18n.T(lang, "Unauthorized")})
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: id})
}
