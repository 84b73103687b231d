package graph

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/climate-api/internal/adapter/cube"
	"go.ngs.io/climate-api/internal/domain"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func newSeries(t *testing.T, ny int) cube.Cube {
	t.Helper()
	ys := make([]float64, ny)
	for i := range ys {
		ys[i] = float64(i)
	}
	data := make([]float64, 4*ny)
	for i := range data {
		data[i] = float64(i)
	}
	data[1] = math.NaN()
	c, err := cube.NewDense("air_temperature", "K", []cube.Axis{
		{Name: cube.TimeAxis, Units: "days since 2010-01-01", Points: []float64{0.5, 1.5, 2.5, 3.5}},
		{Name: cube.YAxis, Points: ys},
		{Name: cube.XAxis, Points: []float64{0}},
	}, data, nil)
	require.NoError(t, err)
	return c
}

type flakyStore struct {
	failures int
	calls    int
	keys     []string
}

func (s *flakyStore) Put(_ context.Context, key string, body []byte, contentType string) (string, error) {
	s.calls++
	s.keys = append(s.keys, key)
	if s.calls <= s.failures {
		return "", errors.New("temporarily unavailable")
	}
	if !bytes.HasPrefix(body, pngMagic) || contentType != ContentType {
		return "", backoff.Permanent(errors.New("not a png"))
	}
	return "https://graphs.example/" + key, nil
}

func newTestPublisher(store Store, retries uint64) *Publisher {
	p := NewPublisher(store, retries, nil)
	p.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return p
}

func TestRenderPNG(t *testing.T) {
	img, err := RenderPNG(newSeries(t, 1))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	_, err = RenderPNG(newSeries(t, 2))
	assert.ErrorIs(t, err, domain.ErrData)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Air Temperature", title("air_temperature"))
	assert.Equal(t, "Tasmax", title("tasmax"))
}

func TestPublishRetries(t *testing.T) {
	store := &flakyStore{failures: 2}
	url, err := newTestPublisher(store, 3).Publish(context.Background(), newSeries(t, 1))
	require.NoError(t, err)

	assert.Equal(t, 3, store.calls)
	assert.True(t, strings.HasPrefix(url, "https://graphs.example/"))
	assert.True(t, strings.HasSuffix(url, ".png"))
	// The same key is reused across attempts.
	assert.Equal(t, store.keys[0], store.keys[2])
}

func TestPublishGivesUp(t *testing.T) {
	store := &flakyStore{failures: 10}
	_, err := newTestPublisher(store, 2).Publish(context.Background(), newSeries(t, 1))
	assert.Error(t, err)
	assert.Equal(t, 3, store.calls)
}

func TestDirStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "graphs")
	s, err := NewDirStore(dir, "http://localhost:8080/graphs/")
	require.NoError(t, err)

	url, err := newTestPublisher(s, 0).Publish(context.Background(), newSeries(t, 1))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "http://localhost:8080/graphs/"))

	written, err := os.ReadFile(filepath.Join(s.Dir(), strings.TrimPrefix(url, "http://localhost:8080/graphs/")))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(written, pngMagic))

	_, err = s.Put(context.Background(), "../escape.png", nil, ContentType)
	assert.Error(t, err)
}
