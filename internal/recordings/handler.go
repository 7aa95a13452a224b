package recordings

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidnote/backend/pkg/response"
)

// Handler handles recording HTTP endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a recordings handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the recording routes on the router.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/recordings", h.Upload)
	r.GET("/recordings/:uuid", h.Detail)
	r.GET("/recordings/:uuid/stream", h.Stream)
}

// Upload handles POST /recordings (multipart field "video"). The response is
// the PROCESSING record; re-encoding concludes in the background.
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("video")
	if err != nil {
		response.BadRequest(c, "multipart field 'video' required")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "unreadable upload")
		return
	}
	defer f.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	rec, err := h.service.Submit(c.Request.Context(), f, fileHeader.Filename, contentType, fileHeader.Size)
	if err != nil {
		h.logger.Error("upload failed", zap.Error(err), zap.String("filename", fileHeader.Filename))
		response.Internal(c, "failed to store recording")
		return
	}
	response.Created(c, toUploadResponse(rec))
}

// Detail handles GET /recordings/:uuid.
func (h *Handler) Detail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	rec, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "recording not found")
			return
		}
		h.logger.Error("detail lookup failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to load recording")
		return
	}
	response.OK(c, toDetailResponse(rec))
}

// Stream handles GET /recordings/:uuid/stream with optional single-range
// requests. Out-of-bounds ranges (start beyond the artifact, or inverted
// bounds) are rejected with 416; an end past the artifact is clamped.
func (h *Handler) Stream(c *gin.Context) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	rec, f, size, err := h.service.OpenArtifact(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "recording not found")
			return
		}
		h.logger.Error("open artifact failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to open recording")
		return
	}
	defer f.Close()

	contentType := baseContentType(rec.ContentType)
	c.Header("Accept-Ranges", "bytes")

	rng, err := ParseRange(c.GetHeader("Range"), size)
	if err != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
		response.RangeNotSatisfiable(c, err.Error())
		return
	}
	if rng == nil {
		c.DataFromReader(http.StatusOK, size, contentType, f, nil)
		return
	}

	if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
		h.logger.Error("seek failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to read recording")
		return
	}
	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, size))
	c.DataFromReader(http.StatusPartialContent, rng.Length(), contentType, io.LimitReader(f, rng.Length()), nil)
}

// baseContentType strips media type parameters; browser recorders often send
// values like "video/webm;codecs=vp8,opus" which are not valid response
// Content-Type values as-is.
func baseContentType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	base = strings.TrimSpace(base)
	if base == "" {
		return "application/octet-stream"
	}
	return base
}
