package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/config"
	"nutribyte/fitness-app/internal/logger"
)

type recordedRequest struct {
	method string
	path   string
}

func newTestStorage(t *testing.T) (FileStorage, func() []recordedRequest) {
	t.Helper()

	var mu sync.Mutex
	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, recordedRequest{method: r.Method, path: r.URL.Path})
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	store, err := NewS3Storage(context.Background(), config.S3Config{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		BucketName:      "plans",
	}, logger.Discard())
	require.NoError(t, err)

	return store, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), seen...)
	}
}

func TestS3Storage_PutAndDelete(t *testing.T) {
	store, requests := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.PutObject(ctx, "exports/u/p.json", "application/json", []byte(`{}`)))
	require.NoError(t, store.DeleteObject(ctx, "exports/u/p.json"))

	got := requests()
	require.Len(t, got, 2)
	assert.Equal(t, http.MethodPut, got[0].method)
	assert.Equal(t, "/plans/exports/u/p.json", got[0].path)
	assert.Equal(t, http.MethodDelete, got[1].method)
}

func TestS3Storage_PresignedDownloadURL(t *testing.T) {
	store, requests := newTestStorage(t)

	raw, err := store.GeneratePresignedDownloadURL(context.Background(), "exports/u/p.json", 10*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/plans/exports/u/p.json", u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	// Presigning is local.
	assert.Empty(t, requests())
}

func TestNewS3Storage_Disabled(t *testing.T) {
	_, err := NewS3Storage(context.Background(), config.S3Config{}, logger.Discard())
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestPlanExportKey(t *testing.T) {
	user, plan := primitive.NewObjectID(), primitive.NewObjectID()
	assert.Equal(t, "exports/"+user.Hex()+"/"+plan.Hex()+".json", PlanExportKey(user, plan))
}
