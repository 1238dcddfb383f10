// Package controller maps the HTTP surface onto the registry service.
package controller

import (
	"io"
	"net/http"
	"strconv"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/openmlhub/model-registry/internal/registry/dto"
	"github.com/openmlhub/model-registry/internal/registry/model"
	"github.com/openmlhub/model-registry/internal/registry/service"
	mongoSDK "github.com/openmlhub/model-registry/library/db/mongo"
)

// errDetailLimit bounds error details surfaced to clients so internal
// store errors do not leak connection strings or topology.
const errDetailLimit = 50

// Registry controller type
type Registry struct {
	logger glog.Logger
	svc    *service.Registry
	db     mongoSDK.DB
}

// New create new controller. db may be nil when no store is configured;
// the diagnostics endpoint reports that instead of failing.
func New(logger glog.Logger, svc *service.Registry, db mongoSDK.DB) *Registry {
	return &Registry{
		logger: logger,
		svc:    svc,
		db:     db,
	}
}

// UploadModel handles POST /api/models: multipart upload of a model
// archive, stored in the database and activated.
func (r *Registry) UploadModel(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "model file is required"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "cannot open uploaded file"})
		return
	}
	defer f.Close() //nolint:errcheck

	content, err := io.ReadAll(f)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return
	}

	ret, err := r.svc.ActivateFile(c.Request.Context(),
		fh.Filename, fh.Header.Get("Content-Type"), content)
	if err != nil {
		r.abortErr(c, err)
		return
	}

	c.JSON(http.StatusOK, ret)
}

// SetModelURL handles POST /api/models/url: registers an external model
// URL as the active source.
func (r *Registry) SetModelURL(c *gin.Context) {
	payload := new(dto.URLPayload)
	if err := c.ShouldBindJSON(payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	ret, err := r.svc.ActivateURL(c.Request.Context(), payload.URL)
	if err != nil {
		r.abortErr(c, err)
		return
	}

	c.JSON(http.StatusOK, ret)
}

// GetActiveModel handles GET /api/models/active. "No active source" is
// a valid state, reported as {"active": false} with status 200.
func (r *Registry) GetActiveModel(c *gin.Context) {
	src, err := r.svc.GetActive(c.Request.Context())
	if err != nil {
		r.abortErr(c, err)
		return
	}
	if src == nil {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}

	c.JSON(http.StatusOK, src.Describe())
}

// ListModels handles GET /api/models?limit=N.
func (r *Registry) ListModels(c *gin.Context) {
	limit, err := strconv.ParseInt(
		c.DefaultQuery("limit", strconv.Itoa(service.DefaultListLimit)), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return
	}

	metas, err := r.svc.ListFiles(c.Request.Context(), limit)
	if err != nil {
		r.abortErr(c, err)
		return
	}

	c.JSON(http.StatusOK, metas)
}

// abortErr translates service errors to the HTTP error taxonomy:
// invalid input 400, missing store 503, anything else 500 with a
// truncated detail.
func (r *Registry) abortErr(c *gin.Context, err error) {
	var vErr *model.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
	case errors.Is(err, service.ErrStoreUnavailable):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable,
			gin.H{"error": "model store is not available"})
	default:
		r.logger.Error("registry operation", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			gin.H{"error": truncateDetail(err.Error())})
	}
}

func truncateDetail(msg string) string {
	if len(msg) > errDetailLimit {
		return msg[:errDetailLimit]
	}
	return msg
}
