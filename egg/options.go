package egg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tiendc/go-deepcopy"
	"gopkg.in/yaml.v2"
)

type LODPolicy int

const (
	LODImportAll LODPolicy = iota
	// LODHighestOnly keeps only LOD groups whose switch-in distance is 0.
	LODHighestOnly
)

func (p LODPolicy) String() string {
	if p == LODHighestOnly {
		return "highest-only"
	}
	return "import-all"
}

func (p LODPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *LODPolicy) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "import-all", "all":
		*p = LODImportAll
	case "highest-only", "highest":
		*p = LODHighestOnly
	default:
		return fmt.Errorf("egg: unknown lod policy %q", string(b))
	}
	return nil
}

type Options struct {
	LODPolicy         LODPolicy `yaml:"lod_policy" toml:"lod_policy"`
	ImportCollision   bool      `yaml:"import_collision" toml:"import_collision"`
	SkipFootprints    bool      `yaml:"skip_footprints" toml:"skip_footprints"`
	SkipSkeletal      bool      `yaml:"skip_skeletal" toml:"skip_skeletal"`
	SkipAnimationOnly bool      `yaml:"skip_animation_only" toml:"skip_animation_only"`
	SkipFolders       []string  `yaml:"skip_folders" toml:"skip_folders"`
	EarClipPolygons   bool      `yaml:"ear_clip_polygons" toml:"ear_clip_polygons"`

	// Progress is called during mesh assembly.
	Progress func(stage string, done, total int) `yaml:"-" toml:"-" copy:"-"`
}

func DefaultOptions() *Options {
	return &Options{
		LODPolicy:       LODImportAll,
		EarClipPolygons: true,
	}
}

// LoadOptions reads a .yaml/.yml or .toml settings file over the defaults.
func LoadOptions(path string) (*Options, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	opts := DefaultOptions()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(b, opts)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, opts)
	default:
		return nil, fmt.Errorf("egg: unsupported settings file %q", path)
	}
	if err != nil {
		return nil, fmt.Errorf("egg: %s: %w", path, err)
	}
	return opts, nil
}

// Clone returns a deep copy.
func (o *Options) Clone() (*Options, error) {
	if o == nil {
		return DefaultOptions(), nil
	}
	var c Options
	if err := deepcopy.Copy(&c, o); err != nil {
		return nil, err
	}
	c.Progress = o.Progress
	return &c, nil
}

// SkipPath reports whether a file should not be imported: a directory of the path
// is in SkipFolders, or it is a footprint file and footprints are skipped.
func (o *Options) SkipPath(path string) bool {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
	for _, dir := range parts[:len(parts)-1] {
		for _, skip := range o.SkipFolders {
			if strings.EqualFold(dir, skip) {
				return true
			}
		}
	}
	return o.SkipFootprints && isFootprintName(parts[len(parts)-1])
}

func (o *Options) progress(stage string, done, total int) {
	if o.Progress != nil {
		o.Progress(stage, done, total)
	}
}

func isFootprintName(name string) bool {
	return strings.Contains(strings.ToLower(name), "footprint")
}
