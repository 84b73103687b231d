// Package partition resolves parameter names to dataset locations and loads
// the year partitions a request needs as a single cube.
package partition

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"

	"go.ngs.io/climate-api/internal/adapter/cube"
	"go.ngs.io/climate-api/internal/adapter/store"
	csvstore "go.ngs.io/climate-api/internal/adapter/store/csv"
	ncstore "go.ngs.io/climate-api/internal/adapter/store/netcdf"
	"go.ngs.io/climate-api/internal/domain"
)

// Catalog indexes the parameter directories under a data root. It is read-only
// after construction and safe for concurrent use.
type Catalog struct {
	root    string
	readers map[string]store.Reader
	log     logrus.FieldLogger
}

var _ store.ParameterLoader = (*Catalog)(nil)

// Option configures a Catalog.
type Option func(*Catalog)

// WithReader registers r for files with the given extension (e.g. ".nc").
func WithReader(ext string, r store.Reader) Option {
	return func(c *Catalog) {
		c.readers[strings.ToLower(ext)] = r
	}
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Catalog) {
		c.log = l
	}
}

// NewCatalog creates a catalog rooted at root. NetCDF and CSV readers are registered by default.
func NewCatalog(root string, opts ...Option) *Catalog {
	c := &Catalog{
		root: root,
		readers: map[string]store.Reader{
			".nc":  ncstore.NewReader(),
			".csv": csvstore.NewReader(""),
		},
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Parameter is a resolved dataset location.
type Parameter struct {
	Name string
	Path string

	catalog *Catalog
}

// ListParameters returns the sorted names of the directories directly under the root.
func (c *Catalog) ListParameters() ([]string, error) {
	dirs, err := c.dirs()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = filepath.Base(d)
	}
	return names, nil
}

// Resolve finds the directory for name: an exact match first, otherwise the
// lexically first directory whose name contains name. The substring fallback
// can pick an unintended directory when names overlap.
func (c *Catalog) Resolve(name string) (Parameter, error) {
	if strings.TrimSpace(name) == "" {
		return Parameter{}, domain.InputErrorf("parameter name is empty")
	}

	dirs, err := c.dirs()
	if err != nil {
		return Parameter{}, err
	}

	for _, d := range dirs {
		if filepath.Base(d) == name {
			return Parameter{Name: name, Path: d, catalog: c}, nil
		}
	}
	for _, d := range dirs {
		if strings.Contains(filepath.Base(d), name) {
			return Parameter{Name: filepath.Base(d), Path: d, catalog: c}, nil
		}
	}
	return Parameter{}, domain.NotFoundErrorf("parameter %q not found under %s", name, c.root)
}

// dirs lists the immediate child directories of the root in lexical order.
func (c *Catalog) dirs() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, domain.DataErrorf("data directory %s is not readable: %v", c.root, err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(c.root, e.Name()))
		}
	}
	return dirs, nil
}

// Files lists the readable partition files directly in the parameter directory
// that match pattern, sorted. An empty pattern selects every file; otherwise
// "<path>/*<pattern>*" is globbed, with brace sets such as "{2010,2011}"
// matching any of their alternatives.
func (p Parameter) Files(pattern string) ([]string, error) {
	glob := filepath.Join(p.Path, "*")
	if pattern != "" {
		glob = filepath.Join(p.Path, "*"+pattern+"*")
	}
	matches, err := doublestar.FilepathGlob(glob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, domain.InputErrorf("invalid partition pattern %q: %v", pattern, err)
	}

	// Overlapping alternatives may match a file twice.
	seen := make(map[string]bool, len(matches))
	files := make([]string, 0, len(matches))
	for _, f := range matches {
		if seen[f] || p.reader(f) == nil {
			continue
		}
		seen[f] = true
		files = append(files, f)
	}
	sort.Strings(files)

	if len(files) == 0 {
		if pattern == "" {
			return nil, domain.NotFoundErrorf("no data files for %s in %s", p.Name, p.Path)
		}
		return nil, domain.NotFoundErrorf("no data files for %s matching %q in %s", p.Name, pattern, p.Path)
	}
	return files, nil
}

// Load reads every file matching pattern and concatenates them along time.
func (p Parameter) Load(pattern string) (cube.Cube, error) {
	files, err := p.Files(pattern)
	if err != nil {
		return nil, err
	}

	log := p.catalog.log.WithFields(logrus.Fields{"parameter": p.Name, "pattern": pattern})
	log.WithField("files", len(files)).Debug("loading partitions")

	cubes := make([]cube.Cube, 0, len(files))
	for _, f := range files {
		c, err := p.reader(f).Read(f)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
		cubes = append(cubes, c)
	}
	if len(cubes) == 1 {
		return cubes[0], nil
	}

	joined, err := cube.Concatenate(cubes, cube.TimeAxis)
	if err != nil {
		return nil, fmt.Errorf("failed to concatenate %d partitions of %s: %w", len(cubes), p.Name, err)
	}
	return joined, nil
}

func (p Parameter) reader(path string) store.Reader {
	if p.catalog == nil {
		return nil
	}
	return p.catalog.readers[strings.ToLower(filepath.Ext(path))]
}

// Load resolves parameter and loads the partitions matching pattern.
func (c *Catalog) Load(parameter, pattern string) (cube.Cube, error) {
	p, err := c.Resolve(parameter)
	if err != nil {
		return nil, err
	}
	return p.Load(pattern)
}
