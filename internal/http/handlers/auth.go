package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gsmwallet/server/internal/auth"
	"github.com/gsmwallet/server/internal/middleware"
	"github.com/gsmwallet/server/internal/model"
)

// OtpAuthenticator is the part of auth.AuthService the handler needs.
type OtpAuthenticator interface {
	RequestOTP(ctx context.Context, phone string) (int, error)
	VerifyOTP(ctx context.Context, phone string, code int) (string, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService     OtpAuthenticator
	phoneLimiter    middleware.PhoneLimiter
	ipLimiter       *middleware.RateLimiter
	verifyIPLimiter *middleware.RateLimiter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService OtpAuthenticator, phoneLimiter middleware.PhoneLimiter) *AuthHandler {
	if phoneLimiter == nil {
		phoneLimiter = middleware.NoopPhoneLimiter{}
	}
	// IP rate limiters: 10 per 10min for request-otp, 20 per 10min for verify-otp
	return &AuthHandler{
		authService:     authService,
		phoneLimiter:    phoneLimiter,
		ipLimiter:       middleware.NewRateLimiter(10*time.Minute, 10),
		verifyIPLimiter: middleware.NewRateLimiter(10*time.Minute, 20),
	}
}

// HandleRequestOTP handles POST /api/auth/request-otp?gsmNumber=...
func (h *AuthHandler) HandleRequestOTP(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(r.URL.Query().Get("gsmNumber"))
	if !model.ValidGsmNumber(phone) {
		respondText(w, http.StatusBadRequest, "Invalid GSM number.")
		return
	}

	if !h.ipLimiter.Allow(middleware.GetIPKey(r)) {
		respondText(w, http.StatusTooManyRequests, "Too many requests.")
		return
	}

	allowed, retryAfter, err := h.phoneLimiter.Allow(r.Context(), phone)
	if err != nil {
		logMaskedPhone(phone, "phone limiter unavailable; allowing", err)
	} else if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		respondText(w, http.StatusTooManyRequests, "Too many requests.")
		return
	}

	code, err := h.authService.RequestOTP(r.Context(), phone)
	if err != nil {
		logMaskedPhone(phone, "failed to request OTP", err)
		respondText(w, http.StatusInternalServerError, "Error generating OTP code.")
		return
	}

	respondText(w, http.StatusOK, strconv.Itoa(code))
}

// HandleVerifyOTP handles POST /api/auth/verify-otp?gsmNumber=...&otpCode=...
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	phone := strings.TrimSpace(q.Get("gsmNumber"))
	if !model.ValidGsmNumber(phone) {
		respondText(w, http.StatusBadRequest, "Invalid GSM number.")
		return
	}
	code, err := strconv.Atoi(strings.TrimSpace(q.Get("otpCode")))
	if err != nil {
		respondText(w, http.StatusBadRequest, "Invalid OTP code format.")
		return
	}

	if !h.verifyIPLimiter.Allow(middleware.GetIPKey(r)) {
		respondText(w, http.StatusTooManyRequests, "Too many requests.")
		return
	}

	token, err := h.authService.VerifyOTP(r.Context(), phone, code)
	switch {
	case err == nil:
		respondText(w, http.StatusOK, token)
	case errors.Is(err, auth.ErrVerificationLimitExceeded),
		errors.Is(err, auth.ErrVerificationTimedOut),
		errors.Is(err, auth.ErrInvalidOtpCode):
		logMaskedPhone(phone, "OTP verification failed", err)
		respondText(w, http.StatusUnauthorized, err.Error())
	default:
		log.Printf("level=error component=http msg=\"verify-otp failed\" phone=%s err=%v", auth.MaskPhone(phone), err)
		respondText(w, http.StatusInternalServerError, "An error occurred.")
	}
}
