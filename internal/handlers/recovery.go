package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"passport/internal/logger"
	"passport/internal/services"
	helpers "passport/internal/utils/helpres"

	"go.uber.org/zap"
)

type RecoveryHandler struct {
	svc        *services.RecoveryService
	codeTTLMin int
}

func NewRecoveryHandler(svc *services.RecoveryService, codeTTLMin int) *RecoveryHandler {
	return &RecoveryHandler{svc: svc, codeTTLMin: codeTTLMin}
}

type forgotReq struct {
	Email string `json:"email"`
}

// Forgot godoc
// @Summary Запрос кода восстановления пароля
// @Description Отправляет на почту одноразовый код. Ответ всегда одинаковый, даже если e-mail не найден.
// @Tags recovery
// @Accept json
// @Produce json
// @Param input body forgotReq true "Email пользователя"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/recovery/forgot [post]
func (h *RecoveryHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req forgotReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		log.Warn("Невалидный payload в Forgot")
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}

	// Не раскрываем, существует ли email — всегда возвращаем 200
	code, user, err := h.svc.RequestResetCode(r.Context(), req.Email)
	if err != nil {
		log.Warn("Сбой при запросе кода восстановления", zap.String("email_masked", maskEmail(req.Email)), zap.Error(err))
	} else {
		services.EmailQueue <- services.EmailJob{
			To:      []string{user.Email},
			Subject: "Код восстановления пароля",
			Body:    helpers.BuildResetCodeHTML(user.FullName, code, h.codeTTLMin),
			IsHTML:  true,
		}
		log.Info("Код восстановления поставлен на отправку", zap.String("email_masked", maskEmail(req.Email)))
	}

	helpers.JSON(w, http.StatusOK, map[string]any{"message": "If the email exists, a reset code has been sent."})
}

type verifyCodeReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type verifyCodeResp struct {
	ResetToken string `json:"reset_token"`
}

// VerifyCode godoc
// @Summary Проверка кода восстановления
// @Description Проверяет код из письма и выдаёт одноразовый токен для смены пароля.
// @Tags recovery
// @Accept json
// @Produce json
// @Param input body verifyCodeReq true "Email и код из письма"
// @Success 200 {object} verifyCodeResp
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /api/recovery/verify-code [post]
func (h *RecoveryHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req verifyCodeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		log.Warn("Невалидный payload в VerifyCode")
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}

	token, err := h.svc.VerifyResetCode(r.Context(), req.Email, strings.TrimSpace(req.Code))
	if err != nil {
		log.Warn("Код восстановления не принят", zap.String("email_masked", maskEmail(req.Email)), zap.Error(err))
		helpers.Error(w, recoveryStatus(err), recoveryMessage(err))
		return
	}

	log.Info("Код восстановления подтверждён", zap.String("email_masked", maskEmail(req.Email)))
	helpers.JSON(w, http.StatusOK, verifyCodeResp{ResetToken: token})
}

type resetReq struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Reset godoc
// @Summary Смена пароля по токену восстановления
// @Description Устанавливает новый пароль по токену, выданному после проверки кода.
// @Tags recovery
// @Accept json
// @Produce json
// @Param input body resetReq true "Email, токен и новый пароль"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/recovery/reset [post]
func (h *RecoveryHandler) Reset(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req resetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		log.Warn("Невалидный payload в Reset")
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(req.NewPassword) < 8 {
		log.Warn("Слишком короткий новый пароль")
		helpers.Error(w, http.StatusBadRequest, "password too short")
		return
	}

	user, err := h.svc.CommitNewPassword(r.Context(), req.Email, strings.TrimSpace(req.Token), req.NewPassword)
	if err != nil {
		log.Warn("Не удалось сбросить пароль по токену", zap.Error(err))
		helpers.Error(w, recoveryStatus(err), recoveryMessage(err))
		return
	}

	services.EmailQueue <- services.EmailJob{
		To:      []string{user.Email},
		Subject: "Пароль изменён",
		Body:    helpers.BuildPasswordChangedHTML(user.FullName),
		IsHTML:  true,
	}

	log.Info("Пароль успешно сброшен")
	helpers.JSON(w, http.StatusOK, map[string]string{"message": "Password has been reset."})
}

// recoveryStatus переводит ошибки протокола восстановления в HTTP-статусы.
func recoveryStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrExpired), errors.Is(err, services.ErrMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func recoveryMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return "code or token is required"
	case errors.Is(err, services.ErrNotFound):
		return "no active recovery request"
	case errors.Is(err, services.ErrRateLimited):
		return "too many attempts, request a new code"
	case errors.Is(err, services.ErrExpired):
		return "code or token expired"
	case errors.Is(err, services.ErrMismatch):
		return "code or token does not match"
	default:
		return "internal error"
	}
}

func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
