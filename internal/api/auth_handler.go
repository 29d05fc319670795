package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"reelStudio/internal/auth"
	"reelStudio/internal/config"
	"reelStudio/internal/database"
)

const refreshTokenCookieName = "refresh_token"
const refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"

// adminPrincipalID 是配置中静态管理员的主体 ID，不对应 users 表中的任何行。
const adminPrincipalID = 0

// AuthHandler 处理注册、登录、刷新、退出与改密，以及静态管理员登录。
type AuthHandler struct {
	db          *gorm.DB
	authService *auth.AuthService
	redis       redis.UniversalClient
	logger      *slog.Logger
	cfg         config.AuthConfig
	admin       config.AdminConfig
}

// NewAuthHandler 构造认证处理器，redisClient 为 nil 时不做登录限流与刷新令牌黑名单。
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, redisClient redis.UniversalClient, logger *slog.Logger, cfg config.AuthConfig, admin config.AdminConfig) *AuthHandler {
	return &AuthHandler{
		db:          db,
		authService: authService,
		redis:       redisClient,
		logger:      logger,
		cfg:         cfg,
		admin:       admin,
	}
}

type userResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func newUserResponse(u database.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=128"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// Register 创建新用户账号，角色固定为 user。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "name, email and password (8-72 chars) are required")
		return
	}

	ctx := c.Request.Context()
	email := normalizeEmail(req.Email)
	logger := h.loggerFromContext(c).With(slog.String("email", email))

	var existing database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		logger.Info("register conflict: user already exists")
		Conflict(c, "email already registered")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("register lookup failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}

	user := database.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hashed,
		Role:         database.RoleUser,
	}
	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		// 并发注册或软删除账号仍占用唯一索引
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Info("register conflict: duplicate email")
			Conflict(c, "email already registered")
			return
		}
		logger.Error("create user failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	c.JSON(http.StatusCreated, gin.H{"user": newUserResponse(user)})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken        string `json:"access_token"`
	TokenType          string `json:"token_type"`
	ExpiresIn          int    `json:"expires_in"`
	MustChangePassword bool   `json:"must_change_password"`
}

// Login 校验口令并返回 Token。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "email and password are required")
		return
	}

	ctx := c.Request.Context()
	email := normalizeEmail(req.Email)
	logger := h.loggerFromContext(c).With(slog.String("email", email))

	if blocked, msg := h.loginBlocked(ctx, c.ClientIP(), email); blocked {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": msg})
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: user not found")
			h.incrementLoginFail(ctx, email)
			Unauthorized(c)
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}

	if !h.authService.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		h.incrementLoginFail(ctx, email)
		Unauthorized(c)
		return
	}

	h.clearLoginFail(ctx, email)
	h.issue(c, auth.Principal{UserID: user.ID, Role: user.Role, MustChangePassword: user.MustChangePassword})
}

type adminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin 使用配置中的管理员用户名与密码哈希登录，签发 admin 角色令牌。
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "username and password are required")
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)
	subject := "admin:" + strings.ToLower(strings.TrimSpace(req.Username))

	if blocked, msg := h.loginBlocked(ctx, c.ClientIP(), subject); blocked {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": msg})
		return
	}

	usernameOK := auth.SecretEqual(req.Username, h.admin.Username)
	passwordOK := h.admin.PasswordHash != "" && auth.CheckPasswordHash(req.Password, h.admin.PasswordHash)
	if !usernameOK || !passwordOK {
		logger.Info("admin login failed")
		h.incrementLoginFail(ctx, subject)
		Unauthorized(c)
		return
	}

	h.clearLoginFail(ctx, subject)
	logger.Info("admin logged in")
	h.issue(c, auth.Principal{UserID: adminPrincipalID, Role: database.RoleAdmin})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh 校验刷新令牌并颁发新的 TokenPair，旧令牌进入黑名单。
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	claims, key, ok := h.validRefreshClaims(c, logger)
	if !ok {
		Unauthorized(c)
		return
	}

	revoked, err := h.isRevoked(ctx, key)
	if err != nil {
		logger.Error("refresh token blacklist lookup failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	if revoked {
		logger.Info("refresh token revoked", slog.String("jti", claims.ID))
		Unauthorized(c)
		return
	}

	principal := auth.Principal{UserID: adminPrincipalID, Role: database.RoleAdmin}
	if !(claims.UserID == adminPrincipalID && claims.Role == database.RoleAdmin) {
		var user database.User
		if err := h.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
			logger.Info("refresh user not found", slog.Any("error", err))
			Unauthorized(c)
			return
		}
		principal = auth.Principal{UserID: user.ID, Role: user.Role, MustChangePassword: user.MustChangePassword}
	}

	// 旋转旧刷新令牌，防止重复使用。
	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("refresh revoke old token failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}

	h.issue(c, principal)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required,min=8,max=72"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required,min=8,max=72"`
}

// ChangePassword 校验当前密码并更新为新密码。
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "current_password, new_password and confirm_password are required")
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		BadRequest(c, "password confirmation does not match")
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	if userID == adminPrincipalID {
		Forbidden(c, "configured admin password cannot be changed here")
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		logger.Info("change password: user not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	if !h.authService.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		logger.Info("change password: current password mismatch")
		Unauthorized(c)
		return
	}
	if strings.TrimSpace(req.NewPassword) == strings.TrimSpace(req.CurrentPassword) {
		BadRequest(c, "new password must be different from current password")
		return
	}

	hashed, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("change password: hash failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}

	if err := h.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"password_hash":        hashed,
		"must_change_password": false,
	}).Error; err != nil {
		logger.Error("change password: update failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}

	if refreshToken, err := c.Cookie(refreshTokenCookieName); err == nil && refreshToken != "" {
		if claims, err := h.authService.ValidateToken(refreshToken); err == nil && claims.TokenType == auth.TokenTypeRefresh && claims.ID != "" {
			if err := h.revokeRefreshToken(ctx, refreshTokenBlacklistKeyPrefix+claims.ID, claims.ExpiresAt); err != nil {
				logger.Error("change password: revoke refresh failed", slog.Any("error", err))
				InternalErr(c, err)
				return
			}
		}
	}

	h.issue(c, auth.Principal{UserID: user.ID, Role: user.Role})
}

// Logout 将刷新令牌加入黑名单，防止继续使用。
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	if h.extractRefreshToken(c) == "" {
		BadRequest(c, "refresh token missing")
		return
	}
	claims, key, ok := h.validRefreshClaims(c, logger)
	if !ok {
		Unauthorized(c)
		return
	}

	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("logout revoke token failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   strings.TrimSpace(h.cfg.CookieDomain),
	})
	c.Status(http.StatusOK)
}

// Me 返回当前会话对应的账号。
func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	if p.UserID == adminPrincipalID && p.Role == database.RoleAdmin {
		c.JSON(http.StatusOK, gin.H{"user": userResponse{Name: h.admin.Username, Role: database.RoleAdmin}})
		return
	}

	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, p.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Unauthorized(c)
			return
		}
		h.loggerFromContext(c).Error("me lookup failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

func (h *AuthHandler) issue(c *gin.Context, p auth.Principal) {
	tokenPair, err := h.authService.GenerateTokenPair(p)
	if err != nil {
		h.loggerFromContext(c).Error("generate token pair failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}

	h.setRefreshCookie(c, tokenPair.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:        tokenPair.AccessToken,
		TokenType:          "Bearer",
		ExpiresIn:          int(h.authService.AccessTokenTTL().Seconds()),
		MustChangePassword: p.MustChangePassword,
	})
}

func (h *AuthHandler) validRefreshClaims(c *gin.Context, logger *slog.Logger) (*auth.TokenClaims, string, bool) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		return nil, "", false
	}
	claims, err := h.authService.ValidateToken(refreshToken)
	if err != nil {
		logger.Info("refresh token invalid", slog.Any("error", err))
		return nil, "", false
	}
	if claims.TokenType != auth.TokenTypeRefresh {
		logger.Info("refresh token wrong type", slog.String("token_type", claims.TokenType))
		return nil, "", false
	}
	if claims.ID == "" {
		logger.Info("refresh token missing jti")
		return nil, "", false
	}
	return claims, refreshTokenBlacklistKeyPrefix + claims.ID, true
}

func (h *AuthHandler) extractRefreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshTokenCookieName); err == nil && token != "" {
		return token
	}
	if v, ok := c.Get(refreshTokenCookieName); ok {
		return v.(string)
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		// 请求体只能读取一次，缓存结果供后续调用使用
		c.Set(refreshTokenCookieName, req.RefreshToken)
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, refreshToken string) {
	ttl := h.authService.RefreshTokenTTL()
	maxAge := int(ttl.Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Hour.Seconds())
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    refreshToken,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   strings.TrimSpace(h.cfg.CookieDomain),
		Expires:  time.Now().Add(ttl),
	})
}

func (h *AuthHandler) isRevoked(ctx context.Context, key string) (bool, error) {
	if h.redis == nil {
		return false, nil
	}
	err := h.redis.Get(ctx, key).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return false, err
}

func (h *AuthHandler) revokeRefreshToken(ctx context.Context, key string, expiresAt *jwt.NumericDate) error {
	if h.redis == nil {
		return nil
	}
	var ttl time.Duration
	if expiresAt == nil {
		ttl = h.authService.RefreshTokenTTL()
	} else {
		ttl = time.Until(expiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return h.redis.Set(ctx, key, "revoked", ttl).Err()
}

// loginBlocked 速率限制：每 IP+账号 每小时 N 次；连续失败达到阈值后锁定。
func (h *AuthHandler) loginBlocked(ctx context.Context, ip, subject string) (bool, string) {
	if h.redis == nil {
		return false, ""
	}
	rateKey := "rate:login:" + ip + ":" + subject + ":" + time.Now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour)
	if err == nil && h.cfg.LoginRateLimitPerHour > 0 && count > int64(h.cfg.LoginRateLimitPerHour) {
		return true, "rate limit exceeded"
	}
	if ttl, _ := h.redis.TTL(ctx, "lock:login:"+subject).Result(); ttl > 0 {
		return true, "account temporarily locked"
	}
	return false, ""
}

func (h *AuthHandler) incrementLoginFail(ctx context.Context, subject string) {
	if h.redis == nil || h.cfg.LoginLockThreshold <= 0 {
		return
	}
	count, err := incrWithTTL(ctx, h.redis, "lock:login:fail:"+subject, h.cfg.LoginLockTTL)
	if err != nil {
		return
	}
	if count >= int64(h.cfg.LoginLockThreshold) {
		_ = h.redis.Set(ctx, "lock:login:"+subject, "1", h.cfg.LoginLockTTL).Err()
	}
}

func (h *AuthHandler) clearLoginFail(ctx context.Context, subject string) {
	if h.redis == nil {
		return
	}
	_ = h.redis.Del(ctx, "lock:login:fail:"+subject).Err()
}

func (h *AuthHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	return requestLogger(c, h.logger)
}

func isHTTPSRequest(c *gin.Context) bool {
	if c.Request == nil {
		return false
	}
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
