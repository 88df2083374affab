package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aspirehq/aspire/backend/internal/auth"
	"github.com/aspirehq/aspire/backend/internal/habits"
	"github.com/aspirehq/aspire/backend/internal/notify"
	"github.com/aspirehq/aspire/backend/internal/prefs"
	"github.com/aspirehq/aspire/backend/internal/push"
	"github.com/aspirehq/aspire/backend/internal/scheduler"
	"github.com/aspirehq/aspire/backend/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userIDContextKey = "aspire_user_id"

var (
	errMissingSessionValidator = errors.New("session validator dependency required")
	errMissingTokenManager     = errors.New("token manager dependency required")
	errMissingAccountService   = errors.New("account service dependency required")
	errMissingHabitService     = errors.New("habit service dependency required")
	errInvalidAuthorization    = errors.New("authorization header missing or invalid")
)

// SessionVerifier validates a hosted-provider session token.
type SessionVerifier interface {
	ValidateToken(token string) (auth.SessionClaims, error)
	ValidateRequest(r *http.Request) (auth.SessionClaims, error)
}

// Dependencies carries everything the HTTP layer needs.
type Dependencies struct {
	SessionValidator SessionVerifier
	TokenManager     *auth.TokenIssuer
	Accounts         *users.Service
	Habits           *habits.Service
	Prefs            *prefs.Service
	Push             *push.Service
	Notifier         *notify.Notifier
	Dispatcher       *scheduler.Dispatcher
	CoachKey         *auth.APIKeyValidator
	CronSecret       string
	Logger           *zap.Logger
}

// NewHTTPHandler wires the full route tree.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.SessionValidator == nil {
		return nil, errMissingSessionValidator
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Accounts == nil {
		return nil, errMissingAccountService
	}
	if deps.Habits == nil {
		return nil, errMissingHabitService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler := &httpHandler{
		sessions:   deps.SessionValidator,
		tokens:     deps.TokenManager,
		accounts:   deps.Accounts,
		habits:     deps.Habits,
		prefs:      deps.Prefs,
		push:       deps.Push,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		coachKey:   deps.CoachKey,
		cronSecret: strings.TrimSpace(deps.CronSecret),
		logger:     logger,
	}

	router.GET("/healthz", handler.handleHealthz)
	router.POST("/auth/session", handler.handleAuthSession)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	{
		protected.GET("/identities", handler.handleListIdentities)
		protected.POST("/identities", handler.handleCreateIdentity)
		protected.PATCH("/identities/:id", handler.handleUpdateIdentity)
		protected.DELETE("/identities/:id", handler.handleDeleteIdentity)

		protected.GET("/habits", handler.handleListHabits)
		protected.POST("/habits", handler.handleCreateHabit)
		protected.PATCH("/habits/:id", handler.handleUpdateHabit)
		protected.DELETE("/habits/:id", handler.handleDeleteHabit)
		protected.POST("/habits/:id/toggle", handler.handleToggleHabit)

		protected.GET("/export", handler.handleExport)
		protected.POST("/import", handler.handleImport)

		protected.GET("/prefs", handler.handleGetPrefs)
		protected.PUT("/prefs", handler.handlePutPrefs)

		protected.POST("/push/subscribe", handler.handlePushSubscribe)
		protected.POST("/push/unsubscribe", handler.handlePushUnsubscribe)
		protected.POST("/push/test", handler.handlePushTest)
	}

	router.POST("/cron/push", handler.handleCronPush)
	router.POST("/cron/email", handler.handleCronEmail)
	router.POST("/notify", handler.handleNotify)

	coachRoutes := router.Group("/coach")
	coachRoutes.Use(handler.authorizeCoachRequest)
	{
		coachRoutes.GET("/habits", handler.handleCoachHabits)
		coachRoutes.GET("/stats", handler.handleCoachStats)
		coachRoutes.GET("/today", handler.handleCoachToday)
		coachRoutes.GET("/motivation", handler.handleCoachMotivation)
	}

	return router, nil
}

// corsMiddleware allows browser clients served from any origin to call the
// API with the auth headers the frontend sends.
func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Api-Key"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

type httpHandler struct {
	sessions   SessionVerifier
	tokens     *auth.TokenIssuer
	accounts   *users.Service
	habits     *habits.Service
	prefs      *prefs.Service
	push       *push.Service
	notifier   *notify.Notifier
	dispatcher *scheduler.Dispatcher
	coachKey   *auth.APIKeyValidator
	cronSecret string
	logger     *zap.Logger
}

func (h *httpHandler) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type sessionRequestPayload struct {
	SessionToken string `json:"session_token"`
}

type sessionResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// handleAuthSession exchanges a provider session token for a backend bearer
// token scoped to the canonical user id.
func (h *httpHandler) handleAuthSession(c *gin.Context) {
	var request sessionRequestPayload
	_ = c.ShouldBindJSON(&request)

	var claims auth.SessionClaims
	var err error
	if strings.TrimSpace(request.SessionToken) != "" {
		claims, err = h.sessions.ValidateToken(request.SessionToken)
	} else {
		claims, err = h.sessions.ValidateRequest(c.Request)
	}
	if err != nil {
		h.logger.Warn("session verification failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	userID, err := h.accounts.ResolveCanonicalUserID(claims)
	if err != nil {
		h.logger.Warn("account resolution failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, expiresIn, err := h.tokens.IssueBackendToken(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to issue backend token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, sessionResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

// authorizeRequest validates the backend bearer token and stores the subject.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

// authorizeCoachRequest accepts the static coach API key from the X-Api-Key
// header or the api_key query parameter.
func (h *httpHandler) authorizeCoachRequest(c *gin.Context) {
	if h.coachKey == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "coach_api_disabled"})
		return
	}
	candidate := c.GetHeader("X-Api-Key")
	if candidate == "" {
		candidate = c.Query("api_key")
	}
	if err := h.coachKey.Validate(candidate); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

// authorizeCron enforces the optional shared-secret bearer on cron endpoints.
func (h *httpHandler) authorizeCron(c *gin.Context) bool {
	if h.cronSecret == "" {
		return true
	}
	token, ok := bearerToken(c)
	if !ok || token != h.cronSecret {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	return true
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
