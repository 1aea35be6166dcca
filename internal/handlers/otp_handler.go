package handlers

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"pulse/internal/config"
	"pulse/internal/metrics"
	"pulse/internal/middleware"
	"pulse/internal/models"
	"pulse/internal/repository"
	"pulse/internal/services"
)

// OTPHandler drives the password-reset flow: a code is issued and emailed,
// the caller proves knowledge of it, then spends it once on a password
// change. Issuing a new code supersedes any active one, and every code dies
// at its expiry regardless of how far through the flow it got.
type OTPHandler struct {
	db     *sql.DB
	users  repository.UserRepository
	otps   repository.OTPRepository
	mailer services.EmailSender
	cfg    *config.Config
	v      *validator.Validate
}

func NewOTPHandler(db *sql.DB, cfg *config.Config, mailer services.EmailSender) *OTPHandler {
	return &OTPHandler{
		db:     db,
		users:  repository.NewUserRepository(db),
		otps:   repository.NewOTPRepository(db),
		mailer: mailer,
		cfg:    cfg,
		v:      validator.New(),
	}
}

func (h *OTPHandler) ttl() time.Duration {
	if h.cfg.OTPTTL > 0 {
		return h.cfg.OTPTTL
	}
	return 5 * time.Minute
}

// @Tags Password reset
// @Summary Send a password reset code
// @Description Emails a 6-digit code to the caller's address. Any previously issued code is invalidated.
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.SendOTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/otp/send [post]
func (h *OTPHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.CtxUserID).(string)

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeJSONError(w, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "send_failed", "Failed to send verification code")
		return
	}
	if u.Email == "" {
		writeJSONError(w, http.StatusBadRequest, "email_missing", "No email address on file")
		return
	}

	code, err := generateOTPCode()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "send_failed", "Failed to send verification code")
		return
	}

	now := time.Now().UTC()
	otp := &models.OTP{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Email:     u.Email,
		Code:      code,
		Purpose:   models.OTPPurposePasswordReset,
		Status:    models.OTPStatusActive,
		ExpiresAt: now.Add(h.ttl()),
		CreatedAt: now,
	}

	// Supersede-then-insert must be atomic so two concurrent sends cannot
	// leave two active codes behind.
	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "send_failed", "Failed to send verification code")
		return
	}
	defer tx.Rollback()

	txOTPs := repository.NewOTPRepository(tx)
	if err := txOTPs.SupersedeActive(r.Context(), u.ID, models.OTPPurposePasswordReset); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "send_failed", "Failed to send verification code")
		return
	}
	if err := txOTPs.Create(r.Context(), otp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "send_failed", "Failed to send verification code")
		return
	}
	if err := tx.Commit(); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "send_failed", "Failed to send verification code")
		return
	}

	metrics.OTPIssued.Inc()

	subject := "Your password reset code"
	body := fmt.Sprintf("Your verification code is %s.\n\nIt expires in %d minutes. If you did not request a password reset, you can ignore this email.", code, int(h.ttl().Minutes()))
	if err := h.mailer.Send(u.Email, subject, body); err != nil {
		// The code is already persisted; delivery problems must not fail the
		// request. In test mode the code travels in the response instead.
		metrics.EmailSendFailures.Inc()
		log.Error().Err(err).Str("user_id", u.ID).Msg("send reset code email")
	}

	resp := models.SendOTPResponse{
		Success:   true,
		Message:   "Verification code sent",
		Email:     maskEmail(u.Email),
		ExpiresIn: int64(h.ttl().Seconds()),
	}
	if h.cfg.EmailTestMode {
		resp.OTPCode = code
		resp.TestMode = true
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// @Tags Password reset
// @Summary Verify a password reset code
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.VerifyOTPRequest true "Code to verify"
// @Success 200 {object} models.VerifyOTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/otp/verify [post]
func (h *OTPHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.CtxUserID).(string)

	var req models.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	otp, err := h.otps.GetLatestByCode(r.Context(), userID, req.OTPCode, models.OTPPurposePasswordReset)
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			metrics.OTPRejected.WithLabelValues("incorrect").Inc()
			writeJSONError(w, http.StatusBadRequest, "otp_incorrect", "Verification code is incorrect")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "verify_failed", "Failed to verify code")
		return
	}

	// Superseded and verified rows both count as used: the first because a
	// newer code replaced it, the second because verification is one-shot.
	if otp.Status != models.OTPStatusActive {
		metrics.OTPRejected.WithLabelValues("used").Inc()
		writeJSONError(w, http.StatusBadRequest, "otp_used", "Verification code has already been used")
		return
	}
	if otp.Expired(time.Now().UTC()) {
		metrics.OTPRejected.WithLabelValues("expired").Inc()
		writeJSONError(w, http.StatusBadRequest, "otp_expired", "Verification code has expired")
		return
	}

	if err := h.otps.MarkVerified(r.Context(), otp.ID); err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			// Lost a race with a concurrent verify or send.
			metrics.OTPRejected.WithLabelValues("used").Inc()
			writeJSONError(w, http.StatusBadRequest, "otp_used", "Verification code has already been used")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "verify_failed", "Failed to verify code")
		return
	}

	metrics.OTPVerified.Inc()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(models.VerifyOTPResponse{
		Success: true,
		Message: "Verification code confirmed",
		OTPID:   otp.ID,
	})
}

// @Tags Password reset
// @Summary Change password with a verified code
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.ChangePasswordRequest true "Verified code and new password"
// @Success 200 {object} models.ChangePasswordResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/otp/change-password [post]
func (h *OTPHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.CtxUserID).(string)

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	otp, err := h.otps.GetLatestVerifiedByCode(r.Context(), userID, req.OTPCode, models.OTPPurposePasswordReset)
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			writeJSONError(w, http.StatusBadRequest, "otp_unverified", "Invalid or unverified verification code")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "change_failed", "Failed to change password")
		return
	}
	// A verified code that sat past its window is dead too.
	if otp.Expired(time.Now().UTC()) {
		writeJSONError(w, http.StatusBadRequest, "otp_expired", "Verification code has expired")
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeJSONError(w, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "change_failed", "Failed to change password")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "change_failed", "Failed to change password")
		return
	}

	// Password update and OTP purge commit together: either the new password
	// is live and the flow is fully reset, or neither happened.
	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "change_failed", "Failed to change password")
		return
	}
	defer tx.Rollback()

	if err := repository.NewUserRepository(tx).UpdatePasswordHash(r.Context(), u.ID, string(hash)); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "change_failed", "Failed to change password")
		return
	}
	if err := repository.NewOTPRepository(tx).DeleteAllForPurpose(r.Context(), u.ID, models.OTPPurposePasswordReset); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "change_failed", "Failed to change password")
		return
	}
	if err := tx.Commit(); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "change_failed", "Failed to change password")
		return
	}

	metrics.OTPConsumed.Inc()

	subject := "Your password was changed"
	body := "The password for your account was just changed. If this was not you, contact support immediately."
	if err := h.mailer.Send(u.Email, subject, body); err != nil {
		metrics.EmailSendFailures.Inc()
		log.Error().Err(err).Str("user_id", u.ID).Msg("send password changed email")
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(models.ChangePasswordResponse{
		Success: true,
		Message: "Password changed successfully",
	})
}

// generateOTPCode draws a uniform 6-digit code from 100000 to 999999.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// maskEmail keeps the first two characters of the local part and the full
// domain: alice@example.com becomes al***@example.com.
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at < 0 {
		return email
	}
	local := email[:at]
	if len(local) > 2 {
		local = local[:2]
	}
	return local + "***" + email[at:]
}
