package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dfryer1193/timecapsule/api"
	"github.com/dfryer1193/timecapsule/capsule/application"
	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the services behind the HTTP API.
type Options struct {
	Capsules *application.CapsuleService
	Selfies  *application.SelfieService
	Exports  *application.ExportService
	Store    domain.BlobStore
	DB       Pinger

	// Gatherer backs /metrics; nil leaves the route out
	Gatherer prometheus.Gatherer

	ThumbnailCacheSize int
	MaxUploadBytes     int64
	SelfieKeepDays     int
	ExportKeepDays     int
}

type Api struct {
	capsules *application.CapsuleService
	selfies  *application.SelfieService
	exports  *application.ExportService
	store    domain.BlobStore
	db       Pinger

	// thumbnails keyed by storage path
	thumbnails *lru.Cache[string, cachedThumbnail]

	maxUploadBytes int64
	selfieKeepDays int
	exportKeepDays int
}

// NewApi registers the capsule, storage, health and metrics routes on router.
func NewApi(router *gin.Engine, opts Options) (*Api, error) {
	size := opts.ThumbnailCacheSize
	if size <= 0 {
		size = 128
	}
	thumbnails, err := lru.New[string, cachedThumbnail](size)
	if err != nil {
		return nil, err
	}

	a := &Api{
		capsules:       opts.Capsules,
		selfies:        opts.Selfies,
		exports:        opts.Exports,
		store:          opts.Store,
		db:             opts.DB,
		thumbnails:     thumbnails,
		maxUploadBytes: opts.MaxUploadBytes,
		selfieKeepDays: opts.SelfieKeepDays,
		exportKeepDays: opts.ExportKeepDays,
	}
	if a.maxUploadBytes <= 0 {
		a.maxUploadBytes = 20 << 20
	}

	router.GET("/health", a.Health)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	capsulesV1 := router.Group("capsules/v1")
	{
		capsulesV1.GET("/", a.ListCapsules)
		capsulesV1.POST("/", a.CreateCapsule)
		capsulesV1.GET("/active", a.GetActiveCapsule)
		capsulesV1.GET("/:capsuleId", a.GetCapsule)
		capsulesV1.DELETE("/:capsuleId", a.DeleteCapsule)
		capsulesV1.GET("/:capsuleId/progress", a.GetProgress)
		capsulesV1.POST("/:capsuleId/export", a.ExportCapsule)

		capsulesV1.GET("/:capsuleId/entries", a.ListEntries)
		capsulesV1.PUT("/:capsuleId/entries/:date", a.SaveEntry)
		capsulesV1.DELETE("/:capsuleId/entries/:date", a.DeleteEntry)
		capsulesV1.GET("/:capsuleId/entries/:date/photo", a.GetPhoto)
		capsulesV1.GET("/:capsuleId/entries/:date/thumbnail", a.GetThumbnail)
	}

	storageV1 := router.Group("storage/v1")
	{
		storageV1.GET("/", a.GetStorage)
		storageV1.POST("/cleanup", a.Cleanup)
	}

	return a, nil
}

func (a *Api) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func capsuleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("capsuleId"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, api.Error{Error: "invalid capsule id", Kind: domain.InvalidInput.String()})
		return 0, false
	}
	return id, true
}

// writeError answers with 404 for missing records and 500 otherwise.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, api.Error{Error: err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, api.Error{Error: err.Error()})
}

// writeFailure maps a pipeline failure onto an HTTP status.
func writeFailure(c *gin.Context, f domain.Failure) {
	c.JSON(failureStatus(f.Kind), api.Error{Error: f.Message, Kind: f.Kind.String()})
}

func failureStatus(kind domain.ErrorKind) int {
	switch kind {
	case domain.InvalidInput:
		return http.StatusBadRequest
	case domain.DecodeFailed, domain.EmptyInput, domain.NoValidImages, domain.LayoutTooSmall:
		return http.StatusUnprocessableEntity
	case domain.Cancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toApiCapsule(c *domain.Capsule) api.Capsule {
	return api.Capsule{
		ID:         c.ID,
		Name:       c.Name,
		StartDate:  c.StartDate,
		EndDate:    c.EndDate,
		IsActive:   c.IsActive,
		CreatedAt:  formatTime(c.CreatedAt),
		ExportedAt: formatTime(c.ExportedAt),
		ExportPath: c.ExportPath,
	}
}

func toApiEntry(e *domain.Entry) api.Entry {
	return api.Entry{
		ID:            e.ID,
		CapsuleID:     e.CapsuleID,
		Date:          e.Date,
		DayNumber:     e.DayNumber,
		Mood:          e.Mood,
		ImagePath:     e.ImagePath,
		ImageFileName: e.ImageFileName,
		ThumbnailPath: e.ThumbnailPath,
		CreatedAt:     formatTime(e.CreatedAt),
		UpdatedAt:     formatTime(e.UpdatedAt),
	}
}
