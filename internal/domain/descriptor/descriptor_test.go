package descriptor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capsulehq/capsuled/internal/domain/artifact"
	"github.com/capsulehq/capsuled/internal/domain/manifest"
	"github.com/capsulehq/capsuled/internal/infrastructure/config"
	"github.com/capsulehq/capsuled/internal/shared/id"
)

func testMeta() artifact.Meta {
	return artifact.Meta{
		ID:          id.NewArtifactID(),
		Digest:      "a3f1c2d4e5b6a7c8d9e0f1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2",
		Size:        2048,
		ContentType: "text/html; charset=utf-8",
		CreatedAt:   time.Now(),
	}
}

func TestBuildProducesCompleteDescriptor(t *testing.T) {
	svc := NewService(config.Default().Storage, nil)
	capsule := id.NewCapsuleID()
	meta := testMeta()

	d, err := svc.Build(capsule, manifest.CreateDefault(manifest.RunnerClientStatic), meta)
	require.NoError(t, err)

	assert.Equal(t, meta.ID, d.ArtifactID)
	assert.Equal(t, Version, d.Version)
	assert.Equal(t, capsule.String()+"/"+meta.Digest, d.BundleKey)
	assert.Equal(t, meta.Size, d.BundleSize)
	assert.NotEmpty(t, d.BridgeScript)
	assert.NotEmpty(t, d.GuardScript)
	assert.NotEmpty(t, d.BootstrapScript)
	assert.Contains(t, d.BridgeScript, "capsule-bridge")
}

func TestBuildCachesByArtifact(t *testing.T) {
	svc := NewService(config.Default().Storage, nil)
	capsule := id.NewCapsuleID()
	meta := testMeta()
	m := manifest.CreateDefault(manifest.RunnerClientStatic)

	first, err := svc.Build(capsule, m, meta)
	require.NoError(t, err)
	second, err := svc.Build(capsule, m, meta)
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt, "second Build must hit the cache")

	cached, ok := svc.Get(meta.ID)
	require.True(t, ok)
	assert.Equal(t, first.BundleKey, cached.BundleKey)

	svc.Invalidate(meta.ID)
	_, ok = svc.Get(meta.ID)
	assert.False(t, ok)
}

func TestBootstrapPerRunner(t *testing.T) {
	svc := NewService(config.Default().Storage, nil)
	capsule := id.NewCapsuleID()

	for _, runner := range []manifest.Runner{
		manifest.RunnerClientStatic,
		manifest.RunnerWebContainer,
		manifest.RunnerWorkerEdge,
	} {
		d, err := svc.Build(capsule, manifest.CreateDefault(runner), testMeta())
		require.NoError(t, err, "runner %s", runner)
		assert.Contains(t, d.BootstrapScript, "capsule.ready", "runner %s", runner)
	}

	_, err := svc.Build(capsule, &manifest.Manifest{Runner: "teleporter"}, testMeta())
	assert.Error(t, err, "unknown runner must not get a silent default bootstrap")
}

func TestVerifyAgainstBundleStore(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if strings.Contains(r.URL.Path, "missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default().Storage
	cfg.Endpoint = srv.URL
	svc := NewService(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	present := Descriptor{BundleKey: "cap_x/deadbeef"}
	require.NoError(t, svc.Verify(ctx, present))
	assert.Equal(t, "/cap_x/deadbeef", gotPath)

	absent := Descriptor{BundleKey: "cap_x/missing"}
	assert.Error(t, svc.Verify(ctx, absent))
}
