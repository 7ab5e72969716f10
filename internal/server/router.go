package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/schoolboard/internal/records"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const recordIDParam = "id"

var (
	errMissingStudentService      = errors.New("student service dependency required")
	errMissingNoticeService       = errors.New("notice service dependency required")
	errMissingAnnouncementService = errors.New("announcement service dependency required")
)

// CollectionService is the CRUD contract a collection handler delegates to.
type CollectionService[R records.Record] interface {
	Kind() records.Kind
	List(ctx context.Context) ([]R, error)
	Create(ctx context.Context, record R) (R, error)
	Update(ctx context.Context, id string, record R) (R, error)
	Delete(ctx context.Context, id string) error
}

type Dependencies struct {
	Students      CollectionService[records.Student]
	Notices       CollectionService[records.Notice]
	Announcements CollectionService[records.Announcement]
	Logger        *zap.Logger
}

// NewHTTPHandler mounts the list/create/update/delete routes for every collection.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Students == nil {
		return nil, errMissingStudentService
	}
	if deps.Notices == nil {
		return nil, errMissingNoticeService
	}
	if deps.Announcements == nil {
		return nil, errMissingAnnouncementService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware())

	mountCollection(router, &collectionHandler[records.Student]{service: deps.Students, logger: logger})
	mountCollection(router, &collectionHandler[records.Notice]{service: deps.Notices, logger: logger})
	mountCollection(router, &collectionHandler[records.Announcement]{service: deps.Announcements, logger: logger})

	return router, nil
}

func mountCollection[R records.Record](router gin.IRouter, handler *collectionHandler[R]) {
	group := router.Group("/" + handler.service.Kind().Collection())
	group.GET("", handler.handleList)
	group.POST("", handler.handleCreate)
	group.PUT("/:"+recordIDParam, handler.handleUpdate)
	group.DELETE("/:"+recordIDParam, handler.handleDelete)
}

type collectionHandler[R records.Record] struct {
	service CollectionService[R]
	logger  *zap.Logger
}

func (h *collectionHandler[R]) handleList(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		h.respondError(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *collectionHandler[R]) handleCreate(c *gin.Context) {
	var record R
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.service.Create(c.Request.Context(), record)
	if err != nil {
		h.respondError(c, "create", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *collectionHandler[R]) handleUpdate(c *gin.Context) {
	var record R
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	updated, err := h.service.Update(c.Request.Context(), c.Param(recordIDParam), record)
	if err != nil {
		h.respondError(c, "update", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *collectionHandler[R]) handleDelete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param(recordIDParam)); err != nil {
		h.respondError(c, "delete", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type codedError interface {
	Code() string
}

func (h *collectionHandler[R]) respondError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, records.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, records.ErrInvalidRecord):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_record"})
	case errors.Is(err, records.ErrInvalidRecordID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
	default:
		h.logger.Error("collection operation failed",
			zap.String("collection", h.service.Kind().Collection()),
			zap.String("operation", operation),
			zap.Error(err))
		payload := gin.H{"error": "internal_error"}
		var coded codedError
		if errors.As(err, &coded) {
			payload["code"] = coded.Code()
		}
		c.JSON(http.StatusInternalServerError, payload)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(started)))
	}
}
