package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/eduscale/backend-go/internal/cache"
	"github.com/eduscale/backend-go/internal/config"
	"github.com/eduscale/backend-go/internal/domain"
	"github.com/eduscale/backend-go/internal/repository/memory"
	"github.com/eduscale/backend-go/internal/service"
	"github.com/eduscale/backend-go/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, uploadCfg config.UploadConfig) (*gin.Engine, afero.Fs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fs := afero.NewMemMapFs()
	backend := storage.NewLocalBackendWithFs(fs, "data/uploads/raw")
	svc := service.NewUploadService(backend, memory.NewUploadCatalog(), cache.NewNoopUploadCache())
	h := NewUploadHandler(svc, uploadCfg)

	r := gin.New()
	r.POST("/api/v1/upload", h.Upload)
	r.GET("/api/v1/uploads", h.ListUploads)
	r.GET("/api/v1/uploads/:id", h.GetUpload)
	return r, fs
}

func multipartUpload(t *testing.T, fileName, contentType, regionID string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if fileName != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	if regionID != "" {
		require.NoError(t, w.WriteField("region_id", regionID))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestUploadSuccess(t *testing.T) {
	router, fs := newTestRouter(t, config.UploadConfig{MaxUploadMB: 10})

	payload := []byte("region,score\nnorth,42\n")
	body, contentType := multipartUpload(t, "scores.csv", "text/csv", "region-north", payload)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var record domain.UploadRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.NotEmpty(t, record.FileID)
	assert.Equal(t, "region-north", record.RegionID)
	assert.Equal(t, "scores.csv", record.FileName)
	assert.Equal(t, "text/csv", record.ContentType)
	assert.Equal(t, int64(len(payload)), record.SizeBytes)
	assert.Equal(t, "local", record.StorageBackend)

	stored, err := afero.ReadFile(fs, record.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)

	// The record is retrievable by its ID.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+record.FileID, nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var fetched domain.UploadRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, record.FileID, fetched.FileID)
}

func TestUploadNeutralizesTraversalFileName(t *testing.T) {
	router, _ := newTestRouter(t, config.UploadConfig{})

	body, contentType := multipartUpload(t, "../../etc/passwd", "text/plain", "region-1", []byte("x"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var record domain.UploadRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.True(t, strings.HasSuffix(record.StoragePath, "etc_passwd"), record.StoragePath)
	assert.NotContains(t, record.StoragePath, "..")
}

func TestUploadRequiresRegionID(t *testing.T) {
	router, _ := newTestRouter(t, config.UploadConfig{})

	body, contentType := multipartUpload(t, "scores.csv", "text/csv", "", []byte("x"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRequiresFile(t *testing.T) {
	router, _ := newTestRouter(t, config.UploadConfig{})

	body, contentType := multipartUpload(t, "", "", "region-1", nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	router, _ := newTestRouter(t, config.UploadConfig{MaxUploadMB: 1})

	body, contentType := multipartUpload(t, "big.bin", "application/octet-stream", "region-1", make([]byte, 2*1024*1024))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRejectsDisallowedContentType(t *testing.T) {
	router, _ := newTestRouter(t, config.UploadConfig{AllowedMimeTypes: []string{"text/csv"}})

	body, contentType := multipartUpload(t, "notes.txt", "text/plain", "region-1", []byte("x"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUnknownUploadReturns404(t *testing.T) {
	router, _ := newTestRouter(t, config.UploadConfig{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/nope", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListUploads(t *testing.T) {
	router, _ := newTestRouter(t, config.UploadConfig{})

	for i := 0; i < 3; i++ {
		body, contentType := multipartUpload(t, fmt.Sprintf("file-%d.csv", i), "text/csv", "region-1", []byte("x"))
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
		req.Header.Set("Content-Type", contentType)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Uploads []domain.UploadRecord `json:"uploads"`
		Count   int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.Len(t, resp.Uploads, 3)
}
