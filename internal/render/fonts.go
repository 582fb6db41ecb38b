package render

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"visiogen/internal/logging"
	"visiogen/internal/services"
)

// Built-in font ids always available without configuration.
const (
	FontGoRegular = "go-regular"
	FontGoBold    = "go-bold"
	FontGoMono    = "go-mono"
)

var builtinFonts = map[string][]byte{
	FontGoRegular: goregular.TTF,
	FontGoBold:    gobold.TTF,
	FontGoMono:    gomono.TTF,
}

// FontInfo describes one registry entry for listings.
type FontInfo struct {
	ID      string
	Source  string
	Builtin bool
	Default bool
	Present bool
}

// Registry maps font ids to font data. Unknown ids resolve to the default id.
type Registry struct {
	paths     map[string]string
	defaultID string
	logger    *slog.Logger

	mu     sync.Mutex
	parsed map[string]*opentype.Font
}

// NewRegistry builds a registry from configured id → path pairs. Configured
// ids shadow built-ins of the same name.
func NewRegistry(paths map[string]string, defaultID string, logger *slog.Logger) *Registry {
	normalized := make(map[string]string, len(paths))
	for id, path := range paths {
		key := normalizeFontID(id)
		if key == "" {
			continue
		}
		normalized[key] = path
	}
	defaultID = normalizeFontID(defaultID)
	if defaultID == "" {
		defaultID = FontGoBold
	}
	return &Registry{
		paths:     normalized,
		defaultID: defaultID,
		logger:    logging.NewComponentLogger(logger, "fonts"),
		parsed:    make(map[string]*opentype.Font),
	}
}

func normalizeFontID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// DefaultID returns the id used when a requested font is unknown.
func (r *Registry) DefaultID() string {
	return r.defaultID
}

func (r *Registry) known(id string) bool {
	if _, ok := r.paths[id]; ok {
		return true
	}
	_, ok := builtinFonts[id]
	return ok
}

// Resolve maps a requested id to a registered id. The second return value is
// true when the request was unknown and the default was substituted.
func (r *Registry) Resolve(id string) (string, bool) {
	key := normalizeFontID(id)
	if key == "" {
		return r.defaultID, false
	}
	if r.known(key) {
		return key, false
	}
	return r.defaultID, true
}

// Face resolves id and opens a face at the given size and DPI. The resolved id
// is returned so callers can report substitutions.
func (r *Registry) Face(id string, size, dpi float64) (font.Face, string, error) {
	resolved, substituted := r.Resolve(id)
	if substituted {
		logging.WarnWithContext(r.logger, "unknown font id, using default", "font_substituted",
			logging.String("requested", id),
			logging.String("resolved", resolved),
			logging.String(logging.FieldErrorHint, "add the font under [fonts] or run 'visiogen fonts' to list ids"),
			logging.String(logging.FieldImpact, "captions render in the default font"),
		)
	}
	parsed, err := r.load(resolved)
	if err != nil {
		return nil, resolved, err
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, resolved, services.Wrap(services.ErrResourceOpen, "render", "create font face",
			fmt.Sprintf("font %q", resolved), err)
	}
	return face, resolved, nil
}

func (r *Registry) load(id string) (*opentype.Font, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.parsed[id]; ok {
		return f, nil
	}

	var data []byte
	if path, ok := r.paths[id]; ok {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, services.Wrap(services.ErrResourceOpen, "render", "read font file",
				fmt.Sprintf("font %q at %s", id, path), err)
		}
		data = raw
	} else if builtin, ok := builtinFonts[id]; ok {
		data = builtin
	} else {
		return nil, services.Wrap(services.ErrConfiguration, "render", "resolve font",
			fmt.Sprintf("default font %q is not registered", id), nil)
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, services.Wrap(services.ErrResourceOpen, "render", "parse font",
			fmt.Sprintf("font %q", id), err)
	}
	r.parsed[id] = f
	return f, nil
}

// Validate checks that the default id is registered and that every configured
// font file exists.
func (r *Registry) Validate() error {
	var errs []error
	if !r.known(r.defaultID) {
		errs = append(errs, fmt.Errorf("default font %q is not registered", r.defaultID))
	}
	for _, id := range sortedKeys(r.paths) {
		info, err := os.Stat(r.paths[id])
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("font %q: %w", id, err))
		case info.IsDir():
			errs = append(errs, fmt.Errorf("font %q: %s is a directory", id, r.paths[id]))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "render", "validate fonts", "font registry is invalid", errors.Join(errs...))
}

// List describes every registered font, sorted by id.
func (r *Registry) List() []FontInfo {
	ids := make(map[string]struct{}, len(r.paths)+len(builtinFonts))
	for id := range r.paths {
		ids[id] = struct{}{}
	}
	for id := range builtinFonts {
		ids[id] = struct{}{}
	}
	out := make([]FontInfo, 0, len(ids))
	for _, id := range sortedKeys(ids) {
		info := FontInfo{ID: id, Default: id == r.defaultID}
		if path, ok := r.paths[id]; ok {
			info.Source = path
			if stat, err := os.Stat(path); err == nil && !stat.IsDir() {
				info.Present = true
			}
		} else {
			info.Source = "built-in"
			info.Builtin = true
			info.Present = true
		}
		out = append(out, info)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
