package metadata

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/woxQAQ/config-props-lsp/internal/index"
)

// Loader reads descriptor files from disk.
type Loader struct {
	cache  *DescriptorCache
	logger *zap.Logger
}

// NewLoader creates a loader. cache may be nil.
func NewLoader(cache *DescriptorCache, logger *zap.Logger) *Loader {
	return &Loader{
		cache:  cache,
		logger: logger.With(zap.String("component", "metadata-loader")),
	}
}

// Load parses a single descriptor file, consulting the cache first.
func (l *Loader) Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DescriptorNotFoundError{Path: path, Err: err}
	}

	key := Digest(sha256.Sum256(data))
	if d, ok, err := l.cache.Get(key); err != nil {
		l.logger.Warn("Ignoring unreadable cache entry", zap.String("path", path), zap.Error(err))
	} else if ok {
		l.logger.Debug("Descriptor cache hit", zap.String("path", path))
		d.Path = path
		return d, nil
	}

	d, err := ParseDescriptorData(path, data)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Put(d); err != nil {
		l.logger.Warn("Failed to cache descriptor", zap.String("path", path), zap.Error(err))
	}

	l.logger.Debug("Descriptor loaded",
		zap.String("path", path),
		zap.Int("properties", len(d.Properties)),
	)
	return d, nil
}

// Discover loads every descriptor file found in paths. A path may name a
// file or a directory, which is searched recursively. Files are parsed in
// parallel; results are ordered by path.
func (l *Loader) Discover(ctx context.Context, paths []string) ([]*Descriptor, error) {
	var files []string
	for _, basePath := range paths {
		l.logger.Debug("Scanning metadata path", zap.String("path", basePath))

		info, err := os.Stat(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("Metadata path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to stat '%s': %w", basePath, err)
		}
		if !info.IsDir() {
			files = append(files, basePath)
			continue
		}

		err = filepath.WalkDir(basePath, func(p string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !entry.IsDir() && IsDescriptorFile(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}
	}
	sort.Strings(files)

	results := make([]*Descriptor, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := l.Load(file)
			if err != nil {
				l.logger.Error("Failed to load descriptor",
					zap.String("path", file),
					zap.Error(err),
				)
				errs[i] = err
				return nil
			}
			results[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var descriptors []*Descriptor
	var failed []error
	for i, d := range results {
		if d != nil {
			descriptors = append(descriptors, d)
		} else if errs[i] != nil {
			failed = append(failed, errs[i])
		}
	}

	if len(descriptors) > 0 && len(failed) > 0 {
		l.logger.Warn("Some descriptors failed to load",
			zap.Int("loaded", len(descriptors)),
			zap.Int("failed", len(failed)),
		)
	}
	if len(descriptors) == 0 {
		if len(failed) > 0 {
			return nil, errors.Join(failed...)
		}
		return nil, &NoDescriptorsFoundError{Paths: paths}
	}
	return descriptors, nil
}

// BuildIndex merges descriptors into one index. When several descriptors
// declare the same id the first one wins.
func BuildIndex(descriptors []*Descriptor, logger *zap.Logger) (*index.Index, error) {
	seen := make(map[string]string)
	var props []*index.PropertyInfo
	for _, d := range descriptors {
		for i := range d.Properties {
			p := &d.Properties[i]
			if first, dup := seen[p.Name]; dup {
				logger.Warn("Ignoring duplicate property",
					zap.String("id", p.Name),
					zap.String("path", d.Path),
					zap.String("first", first),
				)
				continue
			}
			seen[p.Name] = d.Path
			props = append(props, p.PropertyInfo())
		}
	}
	return index.New(props)
}
