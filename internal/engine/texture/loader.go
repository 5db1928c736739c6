package texture

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/glmodel/pkg/importer"
)

// DefaultSubdir is the conventional texture folder next to a model file.
const DefaultSubdir = "Texture"

// ErrNotFound is returned (wrapped) when no candidate path could be decoded.
var ErrNotFound = errors.New("texture not found")

// Texture is a GPU-resident texture as referenced by a mesh.
type Texture struct {
	ID   uint32
	Type string // sampler kind, e.g. "texture_diffuse"
	Path string // reference exactly as stored in the model file
}

// Uploader is the GPU capability the loader needs.
// Implementations must be called on the thread owning the GL context.
type Uploader interface {
	// UploadTexture creates a texture object from a 4-channel image,
	// generates mipmaps and sets repeat wrapping with trilinear filtering.
	UploadTexture(img *image.NRGBA) uint32
	// AllocTexture creates a texture object without contents.
	AllocTexture() uint32
	// DeleteTexture frees a texture object.
	DeleteTexture(id uint32)
}

// EmbeddedFunc returns image bytes stored inside the model for a "*N" reference.
type EmbeddedFunc func(ref string) ([]byte, bool)

// Source says where a texture's pixels came from.
type Source int

const (
	SourceNone Source = iota
	SourcePrimary
	SourceFallback
	SourceEmbedded
	SourceMissing
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourcePrimary:
		return "primary"
	case SourceFallback:
		return "fallback"
	case SourceEmbedded:
		return "embedded"
	case SourceMissing:
		return "missing"
	default:
		return "none"
	}
}

// Result describes one Load call.
type Result struct {
	Texture Texture
	Source  Source
	// Resolved is the file that was decoded, empty for cache hits on
	// embedded textures and for failures.
	Resolved string
	CacheHit bool
}

// Stats counts loader activity.
type Stats struct {
	Hits     int
	Misses   int
	Shared   int // misses served by a file another reference already loaded
	Decodes  int
	Failures int
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// Dir is the model's directory; empty means the working directory.
	Dir string
	// Subdir is tried under Dir before Dir itself. Defaults to DefaultSubdir.
	Subdir   string
	Uploader Uploader
	// Decode defaults to LoadFile.
	Decode   DecodeFunc
	Embedded EmbeddedFunc
	Logger   *zap.Logger
}

// Loader resolves material texture references to GPU textures and caches them
// for the lifetime of one model. Not safe for concurrent use.
type Loader struct {
	dir      string
	subdir   string
	uploader Uploader
	decode   DecodeFunc
	embedded EmbeddedFunc
	log      *zap.Logger

	// byRef is keyed by the reference string exactly as the importer reported it
	byRef map[string]Texture
	// byFile is keyed by the cleaned path of the decoded file
	byFile map[string]uint32
	owned  []uint32

	stats Stats
	errs  error
}

// NewLoader creates a texture loader.
func NewLoader(cfg LoaderConfig) *Loader {
	l := &Loader{
		dir:      cfg.Dir,
		subdir:   cfg.Subdir,
		uploader: cfg.Uploader,
		decode:   cfg.Decode,
		embedded: cfg.Embedded,
		log:      cfg.Logger,
		byRef:    make(map[string]Texture),
		byFile:   make(map[string]uint32),
	}
	if l.subdir == "" {
		l.subdir = DefaultSubdir
	}
	if l.decode == nil {
		l.decode = LoadFile
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	return l
}

// Load returns the texture for a material reference.
// It never fails: when nothing can be decoded an empty texture object is
// returned and the error is recorded in Err.
func (l *Loader) Load(ref, typeName string) Texture {
	return l.LoadResult(ref, typeName).Texture
}

// LoadResult is Load with details about how the texture was resolved.
func (l *Loader) LoadResult(ref, typeName string) Result {
	if tex, ok := l.byRef[ref]; ok {
		l.stats.Hits++
		return Result{Texture: tex, CacheHit: true, Source: SourceNone}
	}
	l.stats.Misses++

	if _, ok := importer.ParseEmbeddedRef(ref); ok && l.embedded != nil {
		if res, ok := l.loadEmbedded(ref, typeName); ok {
			return res
		}
	}

	filename := Filename(ref)
	candidates := Candidates(l.dir, l.subdir, filename)
	sources := []Source{SourcePrimary, SourceFallback}

	var errs error
	for i, path := range candidates {
		key := filepath.Clean(path)
		if id, ok := l.byFile[key]; ok {
			tex := Texture{ID: id, Type: typeName, Path: ref}
			l.byRef[ref] = tex
			l.stats.Shared++
			l.log.Debug("texture shared with another reference",
				zap.String("ref", ref), zap.String("path", path))
			return Result{Texture: tex, Source: sources[i], Resolved: path, CacheHit: true}
		}

		l.stats.Decodes++
		img, err := l.decode(path)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		id := l.uploader.UploadTexture(img)
		l.owned = append(l.owned, id)
		l.byFile[key] = id
		tex := Texture{ID: id, Type: typeName, Path: ref}
		l.byRef[ref] = tex

		if sources[i] == SourcePrimary {
			l.log.Info("texture loaded", zap.String("path", path))
		} else {
			l.log.Info("texture loaded from fallback path", zap.String("path", path))
		}
		return Result{Texture: tex, Source: sources[i], Resolved: path}
	}

	// Not cached: the same reference is retried next time.
	l.stats.Failures++
	id := l.uploader.AllocTexture()
	l.owned = append(l.owned, id)
	err := fmt.Errorf("%w: %s in %s: %w", ErrNotFound, filename, strings.Join(candidates, ", "), errs)
	l.errs = multierr.Append(l.errs, err)
	l.log.Warn("texture load failed",
		zap.String("ref", ref),
		zap.Strings("tried", candidates),
		zap.Error(errs),
	)
	return Result{Texture: Texture{ID: id, Type: typeName, Path: ref}, Source: SourceMissing}
}

func (l *Loader) loadEmbedded(ref, typeName string) (Result, bool) {
	data, ok := l.embedded(ref)
	if !ok {
		return Result{}, false
	}
	l.stats.Decodes++
	img, err := Decode(ref, data)
	if err != nil {
		l.stats.Failures++
		l.errs = multierr.Append(l.errs, fmt.Errorf("embedded texture %s: %w", ref, err))
		l.log.Warn("embedded texture decode failed", zap.String("ref", ref), zap.Error(err))
		id := l.uploader.AllocTexture()
		l.owned = append(l.owned, id)
		return Result{Texture: Texture{ID: id, Type: typeName, Path: ref}, Source: SourceMissing}, true
	}

	id := l.uploader.UploadTexture(img)
	l.owned = append(l.owned, id)
	tex := Texture{ID: id, Type: typeName, Path: ref}
	l.byRef[ref] = tex
	l.log.Info("embedded texture loaded", zap.String("ref", ref))
	return Result{Texture: tex, Source: SourceEmbedded}, true
}

// Stats returns the loader counters.
func (l *Loader) Stats() Stats {
	return l.stats
}

// Err returns every load failure so far, combined.
func (l *Loader) Err() error {
	return l.errs
}

// Len returns the number of cached references.
func (l *Loader) Len() int {
	return len(l.byRef)
}

// Release deletes every texture object the loader created and empties the cache.
func (l *Loader) Release() {
	for _, id := range l.owned {
		l.uploader.DeleteTexture(id)
	}
	l.owned = nil
	l.byRef = make(map[string]Texture)
	l.byFile = make(map[string]uint32)
}

// Filename strips any directory prefix from a reference. Both '/' and '\' are
// separators since references are often paths from the authoring machine.
func Filename(ref string) string {
	if i := strings.LastIndexAny(ref, `/\`); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// Candidates returns the paths tried for filename, in order:
// <dir>/<subdir>/<filename>, then <dir>/<filename>.
func Candidates(dir, subdir, filename string) []string {
	return []string{
		filepath.Join(dir, subdir, filename),
		filepath.Join(dir, filename),
	}
}
