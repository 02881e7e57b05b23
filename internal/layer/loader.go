package layer

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/identity"
	"github.com/axesdev/axes/internal/obs"
	"github.com/axesdev/axes/internal/script/ast"
	"github.com/axesdev/axes/internal/script/compile"
)

var log = obs.Named("layer")

// ConfigFileNames are the accepted per-project configuration file
// names, tried in order.
var ConfigFileNames = []string{"axes.yaml", "axes.yml"}

// Loader loads and merges a project's ancestry of compiled layers. A
// Loader is safe for concurrent use; its singleflight group guarantees
// a given project+hash is never compiled twice concurrently (§4.4).
type Loader struct {
	store    *identity.Store
	cacheDir string
	sf       singleflight.Group
}

// New builds a Loader backed by store, caching compiled layers under
// cacheDir (see DefaultCacheDir for the conventional location).
func New(store *identity.Store, cacheDir string) *Loader {
	return &Loader{store: store, cacheDir: cacheDir}
}

// Load resolves target's ancestry chain [target, parent(target), …,
// root], loads (from cache or by compiling) every layer in parallel,
// and merges them root-down-to-target into a View.
func (l *Loader) Load(target uuid.UUID) (*View, error) {
	chain, err := l.ancestryRootFirst(target)
	if err != nil {
		return nil, err
	}

	layers := make([]*ast.CompiledLayer, len(chain))
	g := &errgroup.Group{}
	for i, id := range chain {
		i, id := i, id
		g.Go(func() error {
			compiled, err := l.loadOne(id)
			if err != nil {
				return err
			}
			layers[i] = compiled
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Merge(layers), nil
}

// ancestryRootFirst returns [root, …, parent(target), target].
func (l *Loader) ancestryRootFirst(target uuid.UUID) ([]uuid.UUID, error) {
	var chain []uuid.UUID
	cur := target
	for {
		entry, err := l.store.Lookup(cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cur)
		if cur == identity.Root || !entry.HasParent {
			break
		}
		cur = entry.Parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// loadOne loads a single project's compiled layer. It always reads and
// hashes the configuration file, then uses the cache file keyed by that
// fresh hash if one exists and decodes, or compiles the file otherwise;
// the project's stored config_hash is only written (after a compile),
// never consulted. A project with no configuration file on disk (including
// the root, which has no project directory) contributes an empty
// layer.
func (l *Loader) loadOne(id uuid.UUID) (*ast.CompiledLayer, error) {
	entry, err := l.store.Lookup(id)
	if err != nil {
		return nil, err
	}

	path, ok := findConfigFile(entry.Path)
	if !ok {
		return &ast.CompiledLayer{
			Env: map[string]string{}, Vars: map[string]ast.CompiledValue{},
			Scripts: map[string]ast.Task{}, OpenWith: map[string]ast.Task{},
		}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, axerr.Wrap(axerr.IOError, "read project configuration", err)
	}
	hash := compile.ContentHash(raw)

	key := id.String() + ":" + hash
	v, err, _ := l.sf.Do(key, func() (interface{}, error) {
		return l.loadOrCompile(id, hash, raw)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ast.CompiledLayer), nil
}

func (l *Loader) loadOrCompile(id uuid.UUID, hash string, raw []byte) (*ast.CompiledLayer, error) {
	cached, cacheErr := readCache(l.cacheDir, id, hash)
	if cacheErr != nil {
		log.Debugw("compiled layer cache decode failed, treating as miss", "project", id, "err", cacheErr)
	} else if cached != nil {
		return cached, nil
	}

	compiled, err := compile.Compile(raw)
	if err != nil {
		return nil, err
	}

	if err := writeCache(l.cacheDir, id, hash, compiled); err != nil {
		return nil, err
	}
	if err := l.store.SetConfigHash(id, hash); err != nil {
		return nil, err
	}
	return compiled, nil
}

func findConfigFile(projectPath string) (string, bool) {
	if projectPath == "" {
		return "", false
	}
	for _, name := range ConfigFileNames {
		p := filepath.Join(projectPath, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}
