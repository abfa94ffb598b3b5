package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	gcs "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestPurgeGCSBucketRemovesRawObjects(t *testing.T) {
	var deleted []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "raw/", r.URL.Query().Get("prefix"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"kind":"storage#objects","items":[{"name":"raw/file-1/a.csv"},{"name":"raw/file-2/b.csv"}]}`)
		case http.MethodDelete:
			deleted = append(deleted, r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{}`)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	client, err := gcs.NewClient(context.Background(),
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, purgeGCSBucket(context.Background(), client, "test-bucket"))

	require.Len(t, deleted, 2)
	assert.Contains(t, deleted[0], "file-1")
	assert.Contains(t, deleted[1], "file-2")
}
