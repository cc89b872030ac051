package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/views"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	adminSubjectContextKey   = "westernstar_admin_subject"
	defaultHeartbeatInterval = 25 * time.Second
)

var (
	errMissingStore         = errors.New("content store dependency required")
	errMissingTokenManager  = errors.New("token manager dependency required")
	errMissingCredentials   = errors.New("credential verifier dependency required")
	errMissingRealtime      = errors.New("realtime dispatcher dependency required")
	errMissingCookieName    = errors.New("session cookie name required")
	errInvalidAuthorization = errors.New("authorization header or session cookie missing")
)

// AdminTokenManager issues and validates admin session tokens.
type AdminTokenManager interface {
	IssueAdminToken(ctx context.Context, subject string) (string, int64, error)
	ValidateToken(token string) (auth.AdminClaims, error)
}

// CredentialVerifier checks the admin login.
type CredentialVerifier interface {
	Verify(email, password string) (string, error)
}

// HomepageSource serves the current home page model.
type HomepageSource interface {
	Current() views.Homepage
}

type Dependencies struct {
	Store          *content.Store
	TokenManager   AdminTokenManager
	Credentials    CredentialVerifier
	Realtime       *RealtimeDispatcher
	Homepage       HomepageSource
	Metrics        http.Handler
	ResetSeed      *content.Snapshot
	Logger         *zap.Logger
	CookieName     string
	SecureCookies  bool
	AllowedOrigins []string
	Heartbeat      time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Store == nil {
		return nil, errMissingStore
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Credentials == nil {
		return nil, errMissingCredentials
	}
	if deps.Realtime == nil {
		return nil, errMissingRealtime
	}
	cookieName := strings.TrimSpace(deps.CookieName)
	if cookieName == "" {
		return nil, errMissingCookieName
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins...))

	handler := &httpHandler{
		store:         deps.Store,
		tokens:        deps.TokenManager,
		credentials:   deps.Credentials,
		realtime:      deps.Realtime,
		homepage:      deps.Homepage,
		resetSeed:     deps.ResetSeed,
		logger:        logger,
		cookieName:    cookieName,
		secureCookies: deps.SecureCookies,
		heartbeat:     heartbeat,
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	router.POST("/auth/login", handler.handleLogin)
	router.POST("/auth/logout", handler.handleLogout)

	router.GET("/site/home", handler.handleHomepage)
	router.GET("/content/stream", handler.handleStream)

	router.GET("/content/newsletters", handler.handleReadCollection(content.CollectionNewsletters))
	router.GET("/content/newsletters/:id", handler.handleGetNewsletter)
	router.GET("/content/newsletters/:id/related", handler.handleRelatedNewsletters)
	router.GET("/content/news", handler.handleReadCollection(content.CollectionArticles))
	router.GET("/content/news/search", handler.handleSearchArticles)
	router.GET("/content/news/stats", handler.handleArticleStats)
	router.GET("/content/news/:id", handler.handleGetArticle)
	router.GET("/content/availableTags", handler.handleReadCollection(content.CollectionTags))
	router.GET("/content/testimonials", handler.handleReadCollection(content.CollectionTestimonials))

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/content/newsletters", handler.handleAddNewsletter)
	protected.PATCH("/content/newsletters/:id", handler.handleUpdateNewsletter)
	protected.DELETE("/content/newsletters/:id", handler.handleDeleteNewsletter)
	protected.POST("/content/news", handler.handleAddArticle)
	protected.POST("/content/news/reorder", handler.handleReorderArticles)
	protected.PATCH("/content/news/:id", handler.handleUpdateArticle)
	protected.DELETE("/content/news/:id", handler.handleDeleteArticle)
	protected.POST("/content/availableTags", handler.handleAddTag)
	protected.PATCH("/content/availableTags/:name", handler.handleUpdateTag)
	protected.DELETE("/content/availableTags/:name", handler.handleDeleteTag)
	protected.POST("/content/testimonials", handler.handleAddTestimonial)
	protected.PATCH("/content/testimonials/:id", handler.handleUpdateTestimonial)
	protected.DELETE("/content/testimonials/:id", handler.handleDeleteTestimonial)
	protected.POST("/admin/reset", handler.handleReset)

	return router, nil
}

type httpHandler struct {
	store         *content.Store
	tokens        AdminTokenManager
	credentials   CredentialVerifier
	realtime      *RealtimeDispatcher
	homepage      HomepageSource
	resetSeed     *content.Snapshot
	logger        *zap.Logger
	cookieName    string
	secureCookies bool
	heartbeat     time.Duration
}

func corsMiddleware(allowedOrigins ...string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Last-Event-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		config.AllowOriginFunc = func(string) bool { return true }
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

type loginRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Email) == "" || request.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	subject, err := h.credentials.Verify(request.Email, request.Password)
	if err != nil {
		h.logger.Warn("admin login rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, expiresIn, err := h.tokens.IssueAdminToken(c.Request.Context(), subject)
	if err != nil {
		h.logger.Error("failed to issue admin token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, int(expiresIn), "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, loginResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secureCookies, true)
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token := auth.TokenFromRequest(c.Request, h.cookieName)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(adminSubjectContextKey, claims.Subject)
	c.Next()
}

// writeStoreError maps store failures onto HTTP statuses with the service code.
func (h *httpHandler) writeStoreError(c *gin.Context, err error) {
	code := ""
	var serviceErr *content.ServiceError
	if errors.As(err, &serviceErr) {
		code = serviceErr.Code()
	}
	switch {
	case content.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "code": code})
	case content.IsDuplicateKey(err):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_key", "code": code})
	case errors.Is(err, content.ErrUnknownCollection):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_collection", "code": code})
	default:
		h.logger.Error("content operation failed", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "code": code})
	}
}

func writeInvalidRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
}
