package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"imgapi/internal/convert"
	"imgapi/internal/model"
	"imgapi/internal/repository/memory"
	"imgapi/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCloser(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func storageInfo(key string) storage.ObjectInfo {
	return storage.ObjectInfo{Key: key}
}

// pngPayload is a small PNG, enough to survive the real converter.
func pngPayload(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 90), G: uint8(y * 60), B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// Full lifecycle against the real memory store, fs blob store and conversion
// pipeline: reserve a slot, complete the upload, retrieve the artifact, and
// verify account scoping and the one-shot publish transition.
func TestLifecycle_SlotThenCompleteThenGet(t *testing.T) {
	ctx := context.Background()

	store := memory.New()
	require.NoError(t, store.SeedAccount(ctx, model.Account{AccountID: "acct1", AccountHash: "h"}))

	blobs, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)

	pipeline, err := convert.NewPipeline(convert.PipelineConfig{
		Store:    blobs,
		Workers:  1,
		Registry: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	pipeline.Start()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pipeline.Shutdown(sctx)
	}()

	svc := NewImageService(store, store, blobs, pipeline, "http://img.test")
	payload := pngPayload(t)

	slot, err := svc.RequestUploadSlot(ctx, "acct1")
	require.NoError(t, err)

	// Drafts are invisible to retrieval, even for the owning account.
	_, err = svc.Get(ctx, "acct1", slot.ImageID)
	assert.ErrorIs(t, err, ErrNotFound)

	// A multi-dot filename: only the final extension is stripped, and the
	// artifact must be found under the matching key.
	require.NoError(t, svc.CompleteUpload(ctx, slot.ImageID, "my.photo.png", payload))

	// A second completion finds no draft record.
	err = svc.CompleteUpload(ctx, slot.ImageID, "my.photo.png", payload)
	assert.ErrorIs(t, err, ErrNotFound)

	// Conversion is deferred; wait for the artifact to land.
	require.Eventually(t, func() bool {
		_, err := svc.Get(ctx, "acct1", slot.ImageID)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	data, err := svc.Get(ctx, "acct1", slot.ImageID)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	// The published name and the artifact key agree.
	img, err := store.FindPublished(ctx, slot.ImageID, "acct1")
	require.NoError(t, err)
	require.NotNil(t, img.Name)
	assert.Equal(t, "my.photo", *img.Name)
	rc, _, err := blobs.Get(ctx, "my.photo.webp")
	require.NoError(t, err)
	rc.Close()

	// Foreign accounts see nothing.
	_, err = svc.Get(ctx, "acct2", slot.ImageID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// DirectUpload must land in the same final state as slot+complete.
func TestLifecycle_DirectUploadEquivalence(t *testing.T) {
	ctx := context.Background()

	store := memory.New()
	require.NoError(t, store.SeedAccount(ctx, model.Account{AccountID: "acct1", AccountHash: "h"}))

	blobs, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)

	pipeline, err := convert.NewPipeline(convert.PipelineConfig{
		Store:    blobs,
		Workers:  1,
		Registry: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	pipeline.Start()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pipeline.Shutdown(sctx)
	}()

	svc := NewImageService(store, store, blobs, pipeline, "http://img.test")

	id, err := svc.DirectUpload(ctx, "acct1", "dog.png", pngPayload(t))
	require.NoError(t, err)

	img, err := store.FindPublished(ctx, id, "acct1")
	require.NoError(t, err)
	assert.False(t, img.Draft)
	require.NotNil(t, img.Name)
	assert.Equal(t, "dog", *img.Name)

	require.Eventually(t, func() bool {
		_, err := svc.Get(ctx, "acct1", id)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}
