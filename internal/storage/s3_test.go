package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3BackendTargetPath(t *testing.T) {
	b := NewS3Backend(S3Config{Bucket: "uploads", Endpoint: "localhost:9000"})

	path, err := b.GetTargetPath("abc123", "../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "s3://uploads/raw/abc123/etc_passwd", path)

	again, err := b.GetTargetPath("abc123", "../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestS3BackendRequiresBucket(t *testing.T) {
	b := NewS3Backend(S3Config{Endpoint: "localhost:9000"})

	_, err := b.GetTargetPath("abc123", "file.txt")
	assert.ErrorIs(t, err, ErrBucketNotConfigured)

	_, err = b.StoreFile(context.Background(), "abc123", "file.txt", "text/plain", 0, bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrBucketNotConfigured)
}

// newFakeS3Backend points an S3Backend at an in-process fake server and
// hands back the request it receives.
func newFakeS3Backend(t *testing.T, handler http.HandlerFunc) *S3Backend {
	t.Helper()

	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	client, err := minio.New(u.Host, &minio.Options{
		Creds:     credentials.NewStaticV4("access", "secret", ""),
		Secure:    true,
		Transport: srv.Client().Transport,
		Region:    "us-east-1",
	})
	require.NoError(t, err)

	return NewS3BackendWithClient(client, S3Config{Bucket: "uploads", Endpoint: u.Host})
}

func TestS3BackendStoreFileRoundTrip(t *testing.T) {
	var (
		gotMethod      string
		gotPath        string
		gotContentType string
		gotBody        []byte
	)
	b := newFakeS3Backend(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = body

		w.Header().Set("ETag", `"9b2cf535f27731c974343645a3985328"`)
		w.WriteHeader(http.StatusOK)
	})

	payload := []byte("region,score\nnorth,42\nsouth,17\n")
	path, err := b.StoreFile(context.Background(), "file-1", "scores report.csv", "text/csv", int64(len(payload)), bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "s3://uploads/raw/file-1/scores_report.csv", path)

	// The upload hits the derived key with the declared content type and
	// the exact payload bytes.
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/uploads/raw/file-1/scores_report.csv", gotPath)
	assert.Equal(t, "text/csv", gotContentType)
	assert.Equal(t, payload, gotBody)
}

// countingReader fails the test if more than limit bytes are ever buffered
// in a single read.
type countingReader struct {
	r       io.Reader
	maxRead int
}

func (c *countingReader) Read(p []byte) (int, error) {
	if len(p) > c.maxRead {
		c.maxRead = len(p)
	}
	return c.r.Read(p)
}

func TestS3BackendBoundsUnknownLengthReads(t *testing.T) {
	// Unknown-length uploads take the multipart path, so the fake server
	// answers the initiate, part and complete calls.
	b := newFakeS3Backend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		query := r.URL.Query()
		switch {
		case r.Method == http.MethodPost && query.Has("uploads"):
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<InitiateMultipartUploadResult><Bucket>uploads</Bucket><Key>raw/file-2/big.bin</Key><UploadId>upload-1</UploadId></InitiateMultipartUploadResult>`)
		case r.Method == http.MethodPut:
			w.Header().Set("ETag", `"part-1"`)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost:
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<CompleteMultipartUploadResult><Bucket>uploads</Bucket><Key>raw/file-2/big.bin</Key><ETag>"done"</ETag></CompleteMultipartUploadResult>`)
		default:
			w.WriteHeader(http.StatusOK)
		}
	})

	rec := &countingReader{r: bytes.NewReader(make([]byte, 256*1024))}
	_, err := b.StoreFile(context.Background(), "file-2", "big.bin", "application/octet-stream", -1, rec)
	require.NoError(t, err)

	// An unknown-length stream must not be slurped into a part buffer
	// sized for the maximum object size.
	assert.LessOrEqual(t, rec.maxRead, s3StreamPartSize)
}

func TestS3BackendStoreFileServerError(t *testing.T) {
	// 403 is not retried by the client, so the failure surfaces at once.
	b := newFakeS3Backend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "access denied", http.StatusForbidden)
	})

	payload := []byte("x")
	_, err := b.StoreFile(context.Background(), "file-3", "a.txt", "text/plain", int64(len(payload)), bytes.NewReader(payload))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
