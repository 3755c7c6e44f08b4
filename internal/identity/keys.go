package identity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"go.uber.org/zap"
)

// KeySetConfig locates the provider's published signing keys.
type KeySetConfig struct {
	URL string
	// RefreshInterval re-downloads the key set in the background. Zero loads it once.
	RefreshInterval time.Duration
	Timeout         time.Duration
	Client          *http.Client
}

// NewKeyfunc downloads the JWKS and returns a keyfunc resolving token kids against it.
// The first download must succeed; later refresh failures are logged and keep the previous keys.
// Background refreshing stops when ctx is done.
func NewKeyfunc(ctx context.Context, cfg KeySetConfig, logger *zap.Logger) (keyfunc.Keyfunc, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	storage, err := jwkset.NewStorageFromHTTP(cfg.URL, jwkset.HTTPClientStorageOptions{
		Client:          cfg.Client,
		Ctx:             ctx,
		HTTPTimeout:     timeout,
		RefreshInterval: cfg.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Warn("JWKS refresh failed, keeping previous keys", zap.String("url", cfg.URL), zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("jwks fetch: %w", err)
	}

	kf, err := keyfunc.New(keyfunc.Options{
		Ctx:     ctx,
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("jwks keyfunc: %w", err)
	}
	return kf, nil
}

// KeyCount reports how many keys the keyfunc currently holds.
func KeyCount(ctx context.Context, kf keyfunc.Keyfunc) (int, error) {
	keys, err := kf.Storage().KeyReadAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}
