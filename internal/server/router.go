package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tasklet-labs/tasklet/backend/internal/todo"
	"go.uber.org/zap"
)

const userIDContextKey = "tasklet_user_id"

var (
	errMissingTokenValidator = errors.New("token validator dependency required")
	errMissingTodoService    = errors.New("todo service dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// TokenValidator resolves a bearer token to the owning principal. Identity
// issuance lives outside this service; the router only ever validates.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// Dependencies wires the HTTP layer to its collaborators.
type Dependencies struct {
	TokenValidator TokenValidator
	TodoService    *todo.Service
	Logger         *zap.Logger
}

// NewHTTPHandler builds the gin router with CORS, recovery, and the sync
// and CRUD route groups behind bearer authorization.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenValidator == nil {
		return nil, errMissingTokenValidator
	}
	if deps.TodoService == nil {
		return nil, errMissingTodoService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler := &httpHandler{
		tokens:      deps.TokenValidator,
		todoService: deps.TodoService,
		logger:      logger,
	}

	router.GET("/", handler.handleIndex)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	lists := protected.Group("/lists")
	lists.GET("", handler.handleListLists)
	lists.POST("", handler.handleCreateList)
	lists.GET("/:id", handler.handleGetList)
	lists.PUT("/:id", handler.handleUpdateList)
	lists.DELETE("/:id", handler.handleDeleteList)
	lists.GET("/:id/tasks", handler.handleTasksByList)

	tasks := protected.Group("/tasks")
	tasks.GET("", handler.handleListTasks)
	tasks.POST("", handler.handleCreateTask)
	tasks.GET("/:id", handler.handleGetTask)
	tasks.PUT("/:id", handler.handleUpdateTask)
	tasks.DELETE("/:id", handler.handleDeleteTask)

	sync := protected.Group("/sync")
	sync.POST("/push", handler.handleSyncPush)
	sync.POST("/pull", handler.handleSyncPull)
	sync.POST("/full", handler.handleSyncFull)

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	})
}

type httpHandler struct {
	tokens      TokenValidator
	todoService *todo.Service
	logger      *zap.Logger
}

func (h *httpHandler) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "tasklet-api", "status": "ok"})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		// Expired tokens are routine client churn, not an anomaly.
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

func (h *httpHandler) ownerFromContext(c *gin.Context) (todo.OwnerID, bool) {
	owner, err := todo.NewOwnerID(c.GetString(userIDContextKey))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return owner, true
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Ownership violations and missing rows share one response body so
// existence is never disclosed across owners.
func (h *httpHandler) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, todo.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, todo.ErrNameRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_name"})
	case errors.Is(err, todo.ErrTitleRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_title"})
	case errors.Is(err, todo.ErrListRefRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_list_id"})
	case errors.Is(err, todo.ErrInvalidEntityID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
	default:
		h.logger.Error("todo service failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
