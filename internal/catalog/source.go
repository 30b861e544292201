package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dtudk/dtu-env/internal/config"
	"github.com/dtudk/dtu-env/internal/logger"
)

// Source provides the catalog and the raw definition behind each entry.
type Source interface {
	// ListEnvironments returns every definition, unique by name and by filename.
	ListEnvironments(ctx context.Context) ([]Environment, error)
	// RawDefinition returns the YAML document stored under filename.
	RawDefinition(ctx context.Context, filename string) ([]byte, error)
}

// New picks the Source implementation configured by cfg.Source.
func New(cfg *config.Config, log *logger.Logger) Source {
	switch cfg.Source {
	case config.SourceBundled:
		return NewBundledSource(log)
	case config.SourceAuto:
		return &FallbackSource{
			Primary:  NewLiveSource(cfg, log),
			Fallback: NewBundledSource(log),
			Log:      log,
		}
	default:
		return NewLiveSource(cfg, log)
	}
}

// FallbackSource lists from Primary and, when that fails with a catalog or
// rate-limit error, from Fallback. RawDefinition follows whichever source
// answered the last listing.
type FallbackSource struct {
	Primary  Source
	Fallback Source
	Log      *logger.Logger

	mu     sync.Mutex
	active Source
}

func (f *FallbackSource) ListEnvironments(ctx context.Context) ([]Environment, error) {
	envs, err := f.Primary.ListEnvironments(ctx)
	if err == nil {
		f.setActive(f.Primary)
		return envs, nil
	}
	if !errors.Is(err, ErrCatalogUnavailable) && !errors.Is(err, ErrRateLimited) {
		return nil, err
	}

	f.Log.Warn().Err(err).Msg("live catalog failed, using bundled snapshot")
	envs, ferr := f.Fallback.ListEnvironments(ctx)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	f.setActive(f.Fallback)
	return envs, nil
}

func (f *FallbackSource) RawDefinition(ctx context.Context, filename string) ([]byte, error) {
	f.mu.Lock()
	src := f.active
	f.mu.Unlock()
	if src == nil {
		src = f.Primary
	}
	return src.RawDefinition(ctx, filename)
}

// String names the source that answered the last listing.
func (f *FallbackSource) String() string {
	f.mu.Lock()
	src := f.active
	f.mu.Unlock()
	if src == nil {
		return fmt.Sprintf("%v, bundled fallback", f.Primary)
	}
	return fmt.Sprint(src)
}

func (f *FallbackSource) setActive(s Source) {
	f.mu.Lock()
	f.active = s
	f.mu.Unlock()
}

// dedupe drops definitions that repeat an earlier name or filename.
// Input order decides which one is kept; every drop is logged.
func dedupe(envs []Environment, log *logger.Logger) []Environment {
	names := make(map[string]string, len(envs))
	files := make(map[string]bool, len(envs))
	out := make([]Environment, 0, len(envs))
	for _, e := range envs {
		if files[e.Filename] {
			log.Warn().Str("filename", e.Filename).Msg("duplicate catalog file dropped")
			continue
		}
		if kept, ok := names[e.Name]; ok {
			log.Warn().
				Str("name", e.Name).
				Str("kept", kept).
				Str("dropped", e.Filename).
				Msg("duplicate environment name dropped")
			continue
		}
		names[e.Name] = e.Filename
		files[e.Filename] = true
		out = append(out, e)
	}
	return out
}
