package httpapi

import (
	"context"
	"net/http"

	craveAuth "github.com/CraveEvents/craveAuth"
	"github.com/CraveEvents/craveAuth/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Success messages.
const (
	msgOTPSent           = "OTP sent"
	msgVerified          = "Verification done"
	msgRegistered        = "Registration completed"
	msgApplicationQueued = "Application submitted waiting for admin approval"
	msgLoggedIn          = "Logged in"
	msgLoggedOut         = "Logged out"
	msgResetMailSent     = "Reset mail send successfully"
	msgPasswordReset     = "Password reset"
	msgSessionExtended   = "Session extended"
	msgUpdated           = "Updated"
)

// AuthService is the Engine surface the handlers and guards need.
type AuthService interface {
	middleware.Authenticator
	middleware.StatusChecker

	SendSignupOTP(ctx context.Context, email string) error
	VerifySignupOTP(ctx context.Context, email, code string) error
	Register(ctx context.Context, req craveAuth.RegisterRequest) (*craveAuth.Profile, error)
	Login(ctx context.Context, role craveAuth.Role, email, password string) (*craveAuth.LoginResult, error)
	GoogleLogin(ctx context.Context, credential, clientID string, role craveAuth.Role) (*craveAuth.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*craveAuth.LoginResult, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	RequestPasswordReset(ctx context.Context, role craveAuth.Role, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	SetAccountStatus(ctx context.Context, role craveAuth.Role, userID string, status craveAuth.AccountStatus) error
}

type handler struct {
	auth   AuthService
	logger *zap.Logger
}

func (h *handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.Fail(c, http.StatusBadRequest, bindMessage(err))
		return false
	}
	return true
}

func (h *handler) fail(c *gin.Context, err error) {
	middleware.FailWith(c, err)
}

func ok(c *gin.Context, status int, message string, extra gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

func (h *handler) sendOTP(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.auth.SendSignupOTP(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, msgOTPSent, nil)
}

func (h *handler) verifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.auth.VerifySignupOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, msgVerified, nil)
}

func (h *handler) signup(c *gin.Context) {
	var req signupRequest
	if !h.bind(c, &req) {
		return
	}
	role, _ := craveAuth.ParseRole(req.Role)

	profile, err := h.auth.Register(c.Request.Context(), craveAuth.RegisterRequest{
		Role:        role,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Password:    req.Password,
		IDProof:     req.IDProof,
		AboutVendor: req.AboutVendor,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	message := msgRegistered
	if profile.Status == craveAuth.StatusPending {
		message = msgApplicationQueued
	}
	ok(c, http.StatusCreated, message, gin.H{"user": profile})
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	role, _ := craveAuth.ParseRole(req.Role)

	res, err := h.auth.Login(c.Request.Context(), role, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	middleware.SetAuthCookies(c, h.auth.CookiePolicy(), role, res.Tokens)
	ok(c, http.StatusOK, msgLoggedIn, gin.H{"user": res.User})
}

func (h *handler) googleAuth(c *gin.Context) {
	var req googleRequest
	if !h.bind(c, &req) {
		return
	}
	role, _ := craveAuth.ParseRole(req.Role)

	res, err := h.auth.GoogleLogin(c.Request.Context(), req.Credential, req.ClientID, role)
	if err != nil {
		h.fail(c, err)
		return
	}
	middleware.SetAuthCookies(c, h.auth.CookiePolicy(), role, res.Tokens)
	ok(c, http.StatusOK, msgLoggedIn, gin.H{"user": res.User})
}

func (h *handler) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !h.bind(c, &req) {
		return
	}
	role, _ := craveAuth.ParseRole(req.Role)

	if err := h.auth.RequestPasswordReset(c.Request.Context(), role, req.Email); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, msgResetMailSent, nil)
}

func (h *handler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, msgPasswordReset, nil)
}

// refreshToken rotates the refresh cookie of the role named in the body.
// A rejected token also clears the cookies so the client stops retrying.
func (h *handler) refreshToken(c *gin.Context) {
	var req refreshRequest
	if !h.bind(c, &req) {
		return
	}
	role, _ := craveAuth.ParseRole(req.Role)
	policy := h.auth.CookiePolicy()

	token, _ := c.Cookie(middleware.RefreshCookieName(role))
	if token == "" {
		middleware.Fail(c, http.StatusUnauthorized, middleware.MsgUnauthorized)
		return
	}

	res, err := h.auth.Refresh(c.Request.Context(), token)
	if err == nil && res.User.Role != role {
		err = craveAuth.ErrTokenInvalid
	}
	if err != nil {
		if status, _ := middleware.StatusFor(err); status == http.StatusUnauthorized {
			middleware.ClearAuthCookies(c, policy, role)
		}
		h.fail(c, err)
		return
	}

	middleware.SetAuthCookies(c, policy, role, res.Tokens)
	ok(c, http.StatusOK, msgSessionExtended, gin.H{"user": res.User})
}

func (h *handler) logout(c *gin.Context) {
	sess, found := middleware.SessionFrom(c)
	if !found {
		middleware.Fail(c, http.StatusUnauthorized, middleware.MsgUnauthorized)
		return
	}
	if err := h.auth.Logout(c.Request.Context(), sess.AccessToken, sess.RefreshToken); err != nil {
		h.fail(c, err)
		return
	}
	middleware.ClearAuthCookies(c, h.auth.CookiePolicy(), sess.Role)
	ok(c, http.StatusOK, msgLoggedOut, nil)
}

func (h *handler) setStatus(c *gin.Context) {
	role, err := craveAuth.ParseRole(c.Param("role"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var req statusRequest
	if !h.bind(c, &req) {
		return
	}

	userID := c.Param("userId")
	if err := h.auth.SetAccountStatus(c.Request.Context(), role, userID, craveAuth.AccountStatus(req.Status)); err != nil {
		h.fail(c, err)
		return
	}

	if sess, found := middleware.SessionFrom(c); found {
		h.logger.Info("account status changed",
			zap.String("admin_id", sess.UserID),
			zap.String("user_id", userID),
			zap.String("role", string(role)),
			zap.String("status", req.Status),
		)
	}
	ok(c, http.StatusOK, msgUpdated, nil)
}
