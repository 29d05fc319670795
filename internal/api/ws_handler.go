package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"reelStudio/internal/auth"
	"reelStudio/internal/database"
	"reelStudio/internal/tasks"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// WsHandler 把 admin_notify 频道的消息推送给已登录的管理员。
type WsHandler struct {
	redisClient    redis.UniversalClient
	authService    *auth.AuthService
	adminToken     string
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

// NewWsHandler 构造 WebSocket 处理器。
func NewWsHandler(redisClient redis.UniversalClient, authService *auth.AuthService, adminToken string, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	h := &WsHandler{
		redisClient:    redisClient,
		authService:    authService,
		adminToken:     adminToken,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *WsHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.allowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection 升级连接；首条消息必须是 {"type":"auth","token":...}。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	log := requestLogger(c, h.logger).With(slog.String("client_ip", c.ClientIP()))
	if h.redisClient == nil {
		Error(c, http.StatusServiceUnavailable, "live notifications unavailable")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	principalCh := make(chan auth.Principal, 1)
	errCh := make(chan error, 2)

	go h.readLoop(ctx, conn, principalCh, errCh, cancel, log)

	authTimer := time.NewTimer(wsAuthTimeout)
	defer authTimer.Stop()

	var principal auth.Principal
	select {
	case <-ctx.Done():
		return
	case <-authTimer.C:
		writeClose(conn, websocket.ClosePolicyViolation, "auth timeout")
		log.Warn("websocket authentication timed out")
		return
	case err := <-errCh:
		if err != nil {
			log.Warn("websocket authentication failed", slog.Any("error", err))
		}
		return
	case principal = <-principalCh:
	}

	adminLog := log.With(slog.Uint64("user_id", uint64(principal.UserID)))
	go h.subscribeLoop(ctx, conn, errCh, cancel, adminLog)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			adminLog.Info("websocket connection closed", slog.Any("error", err))
		} else {
			adminLog.Info("websocket connection closed")
		}
	}
}

// authenticate 接受 admin 角色的访问令牌，或与配置一致的静态管理令牌。
func (h *WsHandler) authenticate(token string) (auth.Principal, error) {
	if auth.SecretEqual(token, h.adminToken) {
		return auth.Principal{UserID: adminPrincipalID, Role: database.RoleAdmin}, nil
	}
	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		return auth.Principal{}, fmt.Errorf("validate token: %w", err)
	}
	if claims.TokenType != auth.TokenTypeAccess {
		return auth.Principal{}, fmt.Errorf("invalid token type: %s", claims.TokenType)
	}
	if claims.Role != database.RoleAdmin {
		return auth.Principal{}, errors.New("admin role required")
	}
	if claims.MustChangePassword {
		return auth.Principal{}, errors.New("password change required")
	}
	return claims.Principal(), nil
}

func (h *WsHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	principalCh chan<- auth.Principal,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	authenticated := false
	fail := func(code int, text string, err error) {
		writeClose(conn, code, text)
		report(errCh, err)
		cancel()
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			fail(websocket.CloseAbnormalClosure, "read error", fmt.Errorf("read message: %w", err))
			return
		}
		if authenticated {
			// 管理端不发送业务消息，继续读取以检测断开。
			continue
		}

		var authMsg wsAuthMessage
		if err := json.Unmarshal(message, &authMsg); err != nil {
			fail(websocket.ClosePolicyViolation, "invalid auth payload", fmt.Errorf("decode auth payload: %w", err))
			return
		}
		if authMsg.Type != "auth" || authMsg.Token == "" {
			fail(websocket.ClosePolicyViolation, "auth required", errors.New("invalid auth message"))
			return
		}

		principal, err := h.authenticate(authMsg.Token)
		if err != nil {
			fail(websocket.ClosePolicyViolation, "unauthorized", err)
			return
		}

		authenticated = true
		principalCh <- principal
		log.Info("websocket authenticated", slog.Uint64("user_id", uint64(principal.UserID)))
	}
}

func (h *WsHandler) subscribeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	pubsub := h.redisClient.Subscribe(ctx, tasks.AdminNotifyChannel)
	defer pubsub.Close()

	log.Info("subscribed to redis channel", slog.String("channel", tasks.AdminNotifyChannel))

	ch := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				report(errCh, errors.New("pubsub channel closed"))
				cancel()
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				report(errCh, fmt.Errorf("write message: %w", err))
				cancel()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				report(errCh, fmt.Errorf("write ping: %w", err))
				cancel()
				return
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

func report(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
}
