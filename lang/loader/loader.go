// Package loader resolves and caches AISL modules by name, searching a
// fixed list of directories and detecting circular imports.
package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dolthub/swiss"

	"github.com/aislang/aisl/lang/ast"
)

// stdlibCategories are the stdlib subdirectories searched, in order, after
// the user-facing search path (spec.md's module search rules).
var stdlibCategories = []string{"core", "data", "net", "sys", "crypto", "db", "pattern"}

// SearchPath returns the ordered list of directories a Loader searches for
// a module named name, given the current working directory root.
func SearchPath(root string) []string {
	home, _ := os.UserHomeDir()
	paths := []string{
		filepath.Join(root, "modules"),
	}
	for _, cat := range stdlibCategories {
		paths = append(paths, filepath.Join(root, "stdlib", cat))
	}
	paths = append(paths, filepath.Join(root, "stdlib"))
	if home != "" {
		paths = append(paths, filepath.Join(home, ".aisl", "modules"))
	}
	paths = append(paths, filepath.Join("/usr", "lib", "aisl", "modules"))
	return paths
}

// ParseFunc parses the source of a single module file into an AST. It is
// supplied by the caller (see lang/sexpr) so that loader does not need to
// import a concrete front end.
type ParseFunc func(src []byte, path string) (*ast.Module, error)

// CircularImportError reports that loading a module required loading
// itself, transitively, before it finished compiling.
type CircularImportError struct {
	Cycle []string
}

func (e *CircularImportError) Error() string {
	msg := "circular import: "
	for i, name := range e.Cycle {
		if i > 0 {
			msg += " -> "
		}
		msg += name
	}
	return msg
}

// NotFoundError reports that no source file for a module name was found on
// the search path.
type NotFoundError struct {
	Name  string
	Paths []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module %q not found on search path %v", e.Name, e.Paths)
}

type cacheEntry struct {
	path      string
	source    []byte
	module    *ast.Module
	compiling bool
}

// Loader resolves module names to files on a search path, parses them with
// Parse, and caches the result so a module is never parsed twice. It
// detects circular imports via an in-progress flag on each cache entry.
type Loader struct {
	Root  string
	Parse ParseFunc

	paths []string
	cache *swiss.Map[string, *cacheEntry]
	stack []string
}

// New returns a Loader rooted at root, searching the directories described
// by SearchPath(root).
func New(root string, parse ParseFunc) *Loader {
	return &Loader{
		Root:  root,
		Parse: parse,
		paths: SearchPath(root),
		cache: swiss.NewMap[string, *cacheEntry](8),
	}
}

// Resolve finds the source file for a module name on the search path,
// without loading it.
func (l *Loader) Resolve(name string) (string, error) {
	rel := name + ".aisl"
	for _, dir := range l.paths {
		p := filepath.Join(dir, rel)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", &NotFoundError{Name: name, Paths: l.paths}
}

// Load resolves, reads, parses, and caches the module named name. A second
// call for the same name returns the cached module without re-parsing. A
// call for a module still in the middle of being loaded (i.e. reached
// again via one of its own imports, directly or transitively) fails with a
// *CircularImportError.
func (l *Loader) Load(name string) (*ast.Module, error) {
	if e, ok := l.cache.Get(name); ok {
		if e.compiling {
			return nil, &CircularImportError{Cycle: append(append([]string{}, l.stack...), name)}
		}
		return e.module, nil
	}

	path, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: reading %s: %w", path, err)
	}

	entry := &cacheEntry{path: path, source: src, compiling: true}
	l.cache.Put(name, entry)
	l.stack = append(l.stack, name)

	mod, err := l.Parse(src, path)
	if err != nil {
		l.stack = l.stack[:len(l.stack)-1]
		l.cache.Delete(name)
		return nil, fmt.Errorf("loader: parsing %s: %w", path, err)
	}

	for _, imp := range mod.Imports {
		if _, err := l.Load(imp); err != nil {
			l.stack = l.stack[:len(l.stack)-1]
			l.cache.Delete(name)
			return nil, err
		}
	}

	entry.module = mod
	entry.compiling = false
	l.stack = l.stack[:len(l.stack)-1]
	return mod, nil
}

// Closure returns the names of entry and every module it transitively
// imports, in an order where each module appears after all of its own
// imports (so compiling the modules in this order never needs a forward
// reference to an import's function table). entry must already have been
// loaded successfully.
func (l *Loader) Closure(entry string) ([]string, error) {
	var order []string
	seen := make(map[string]bool)
	var visit func(name string) error
	visit = func(name string) error {
		if seen[name] {
			return nil
		}
		seen[name] = true
		mod, ok := l.Cached(name)
		if !ok {
			return fmt.Errorf("loader: %q not found in cache; call Load first", name)
		}
		for _, imp := range mod.Imports {
			if err := visit(imp); err != nil {
				return err
			}
		}
		order = append(order, name)
		return nil
	}
	if err := visit(entry); err != nil {
		return nil, err
	}
	return order, nil
}

// Cached returns name's module and true if it has finished loading; for a
// module that was never loaded or is still mid-load it returns nil, false.
func (l *Loader) Cached(name string) (*ast.Module, bool) {
	e, ok := l.cache.Get(name)
	if !ok || e.compiling {
		return nil, false
	}
	return e.module, true
}
