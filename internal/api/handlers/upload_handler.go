package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/eduscale/backend-go/internal/config"
	"github.com/eduscale/backend-go/internal/repository"
	"github.com/eduscale/backend-go/internal/service"
	"github.com/eduscale/backend-go/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const fallbackFileName = "unnamed"

type UploadHandler struct {
	svc            *service.UploadService
	maxUploadBytes int64
	allowedTypes   map[string]struct{}
}

func NewUploadHandler(svc *service.UploadService, cfg config.UploadConfig) *UploadHandler {
	var allowed map[string]struct{}
	if len(cfg.AllowedMimeTypes) > 0 {
		allowed = make(map[string]struct{}, len(cfg.AllowedMimeTypes))
		for _, t := range cfg.AllowedMimeTypes {
			allowed[t] = struct{}{}
		}
	}
	return &UploadHandler{
		svc:            svc,
		maxUploadBytes: cfg.MaxUploadBytes(),
		allowedTypes:   allowed,
	}
}

// Upload accepts a multipart upload ("file" part plus "region_id" form
// field), streams it to the active storage backend and returns the catalog
// record with 201.
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	regionID := strings.TrimSpace(c.PostForm("region_id"))
	if regionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region_id is required"})
		return
	}

	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds maximum allowed size"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if h.allowedTypes != nil {
		if _, ok := h.allowedTypes[contentType]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "content type not allowed"})
			return
		}
	}

	fileName := fileHeader.Filename
	if fileName == "" {
		fileName = fallbackFileName
	}

	f, err := fileHeader.Open()
	if err != nil {
		log.Error().Err(err).Str("filename", fileName).Msg("failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	defer f.Close()

	fileID := uuid.NewString()

	record, err := h.svc.Store(c.Request.Context(), fileID, regionID, fileName, contentType, fileHeader.Size, f)
	if err != nil {
		log.Error().Err(err).Str("file_id", fileID).Msg("failed to store upload")
		if errors.Is(err, storage.ErrBucketNotConfigured) || errors.Is(err, storage.ErrUnknownBackend) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage configuration error"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}

	c.JSON(http.StatusCreated, record)
}

// GetUpload returns a single upload record by file ID.
func (h *UploadHandler) GetUpload(c *gin.Context) {
	fileID := c.Param("id")

	record, err := h.svc.Get(c.Request.Context(), fileID)
	if err != nil {
		if errors.Is(err, repository.ErrUploadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
			return
		}
		log.Error().Err(err).Str("file_id", fileID).Msg("failed to fetch upload record")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch upload"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListUploads returns all upload records.
func (h *UploadHandler) ListUploads(c *gin.Context) {
	records, err := h.svc.List(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list upload records")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list uploads"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploads": records,
		"count":   len(records),
	})
}
