// Package descriptor produces the immutable launch descriptors the host
// needs to boot a compiled capsule: where the bundle lives, what digest it
// must match, and the scripts injected around it.
package descriptor

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/capsulehq/capsuled/internal/domain/artifact"
	"github.com/capsulehq/capsuled/internal/domain/manifest"
	"github.com/capsulehq/capsuled/internal/infrastructure/config"
	"github.com/capsulehq/capsuled/internal/shared/id"
)

// Version is the descriptor schema version.
const Version = "1"

// Descriptor is everything required to launch one artifact. Descriptors are
// values and never mutated after Build; cache hits hand out copies.
type Descriptor struct {
	ArtifactID      id.ArtifactID   `json:"artifactId"`
	CapsuleID       id.CapsuleID    `json:"capsuleId"`
	Runner          manifest.Runner `json:"runner"`
	Version         string          `json:"version"`
	BundleKey       string          `json:"bundleKey"`
	BundleDigest    string          `json:"bundleDigest"`
	BundleSize      int64           `json:"bundleSize"`
	BridgeScript    string          `json:"bridgeScript"`
	GuardScript     string          `json:"guardScript"`
	BootstrapScript string          `json:"bootstrapScript"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Service builds, caches, and verifies descriptors.
type Service struct {
	cache    sync.Map // id.ArtifactID -> Descriptor
	endpoint string
	client   *retryablehttp.Client
	logger   *zap.Logger
}

// NewService creates a descriptor service backed by the configured bundle
// store endpoint.
func NewService(cfg config.StorageConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil

	return &Service{
		endpoint: cfg.Endpoint,
		client:   client,
		logger:   logger,
	}
}

// Build creates the descriptor for a stored artifact. Building the same
// artifact twice returns the cached descriptor.
func (s *Service) Build(capsule id.CapsuleID, m *manifest.Manifest, meta artifact.Meta) (Descriptor, error) {
	if cached, ok := s.cache.Load(meta.ID); ok {
		return cached.(Descriptor), nil
	}

	bootstrap, err := bootstrapFor(m.Runner)
	if err != nil {
		return Descriptor{}, err
	}

	d := Descriptor{
		ArtifactID:      meta.ID,
		CapsuleID:       capsule,
		Runner:          m.Runner,
		Version:         Version,
		BundleKey:       fmt.Sprintf("%s/%s", capsule, meta.Digest),
		BundleDigest:    meta.Digest,
		BundleSize:      meta.Size,
		BridgeScript:    BridgeScript,
		GuardScript:     GuardScript,
		BootstrapScript: bootstrap,
		CreatedAt:       time.Now(),
	}

	s.cache.Store(meta.ID, d)
	s.logger.Info("descriptor built",
		zap.String("artifact_id", meta.ID.String()),
		zap.String("runner", string(m.Runner)),
		zap.String("bundle_key", d.BundleKey))
	return d, nil
}

// Get returns a cached descriptor.
func (s *Service) Get(artifactID id.ArtifactID) (Descriptor, bool) {
	cached, ok := s.cache.Load(artifactID)
	if !ok {
		return Descriptor{}, false
	}
	return cached.(Descriptor), true
}

// Verify confirms the bundle the descriptor points to is actually reachable
// in the object store. Transient failures are retried; a definitive miss is
// an error, since launching against a missing bundle strands the viewer on a
// blank frame.
func (s *Service) Verify(ctx context.Context, d Descriptor) error {
	url := fmt.Sprintf("%s/%s", s.endpoint, d.BundleKey)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build verify request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("bundle verify failed for %s: %w", d.BundleKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bundle %s not available: status %d", d.BundleKey, resp.StatusCode)
	}
	return nil
}

// Invalidate drops a cached descriptor, forcing the next Build to re-derive
// it. Used when an artifact is deleted.
func (s *Service) Invalidate(artifactID id.ArtifactID) {
	s.cache.Delete(artifactID)
}
