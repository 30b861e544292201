package catalog

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sync"
	"time"

	"github.com/dtudk/dtu-env/internal/logger"
)

//go:embed snapshot/environments.json snapshot/environments/*.yml
var snapshotFS embed.FS

// Snapshot is the catalog index shipped with the binary.
type Snapshot struct {
	GeneratedAt  time.Time     `json:"generated_at"`
	Environments []Environment `json:"environments"`
}

// BundledSource serves the catalog from an index file and the definitions
// next to it, normally the snapshot embedded at build time.
type BundledSource struct {
	fsys fs.FS
	log  *logger.Logger

	once sync.Once
	snap Snapshot
	err  error
}

// NewBundledSource serves the embedded snapshot.
func NewBundledSource(log *logger.Logger) *BundledSource {
	sub, err := fs.Sub(snapshotFS, "snapshot")
	if err != nil {
		panic(err)
	}
	return NewBundledSourceFS(sub, log)
}

// NewBundledSourceFS serves a snapshot laid out as environments.json plus
// environments/*.yml at the root of fsys.
func NewBundledSourceFS(fsys fs.FS, log *logger.Logger) *BundledSource {
	return &BundledSource{fsys: fsys, log: log}
}

// Snapshot returns the decoded index.
func (b *BundledSource) Snapshot() (Snapshot, error) {
	b.once.Do(func() {
		data, err := fs.ReadFile(b.fsys, "environments.json")
		if err != nil {
			b.err = &UnavailableError{URL: "bundled:environments.json", Err: err}
			return
		}
		if err := json.Unmarshal(data, &b.snap); err != nil {
			b.err = &ParseError{Filename: "environments.json", Err: err}
			return
		}
		for i, e := range b.snap.Environments {
			b.snap.Environments[i] = e.normalize()
		}
	})
	return b.snap, b.err
}

func (b *BundledSource) ListEnvironments(_ context.Context) ([]Environment, error) {
	snap, err := b.Snapshot()
	if err != nil {
		return nil, err
	}
	b.log.Debug().
		Int("count", len(snap.Environments)).
		Time("generated_at", snap.GeneratedAt).
		Msg("bundled catalog loaded")

	envs := make([]Environment, len(snap.Environments))
	copy(envs, snap.Environments)
	return dedupe(envs, b.log), nil
}

func (b *BundledSource) RawDefinition(_ context.Context, filename string) ([]byte, error) {
	if !fs.ValidPath(filename) || path.Base(filename) != filename {
		return nil, &UnavailableError{URL: "bundled:" + filename, Err: fmt.Errorf("invalid filename %q", filename)}
	}
	data, err := fs.ReadFile(b.fsys, path.Join("environments", filename))
	if err != nil {
		return nil, &UnavailableError{URL: "bundled:" + filename, Err: err}
	}
	return data, nil
}

// String describes the source for status lines.
func (b *BundledSource) String() string {
	snap, err := b.Snapshot()
	if err != nil || snap.GeneratedAt.IsZero() {
		return "bundled catalog"
	}
	return fmt.Sprintf("bundled catalog (%s)", snap.GeneratedAt.Format("2006-01-02"))
}
