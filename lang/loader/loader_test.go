package loader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aislang/aisl/lang/ast"
	"github.com/aislang/aisl/lang/loader"
)

// fakeParse treats the source file as a newline-separated list of import
// names, so tests can build arbitrary import graphs without a real parser.
func fakeParse(src []byte, path string) (*ast.Module, error) {
	mod := &ast.Module{Name: filepath.Base(path)}
	var cur []byte
	for _, b := range src {
		if b == '\n' {
			if len(cur) > 0 {
				mod.Imports = append(mod.Imports, string(cur))
			}
			cur = nil
			continue
		}
		cur = append(cur, b)
	}
	if len(cur) > 0 {
		mod.Imports = append(mod.Imports, string(cur))
	}
	return mod, nil
}

func writeModule(t *testing.T, root, name string, imports ...string) {
	t.Helper()
	dir := filepath.Join(root, "modules")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := ""
	for _, imp := range imports {
		content += imp + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".aisl"), []byte(content), 0o644))
}

func TestLoadSimple(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "leaf")
	writeModule(t, root, "main", "leaf")

	l := loader.New(root, fakeParse)
	mod, err := l.Load("main")
	require.NoError(t, err)
	require.Equal(t, []string{"leaf"}, mod.Imports)

	// second load is served from cache, not reparsed.
	mod2, err := l.Load("main")
	require.NoError(t, err)
	require.Same(t, mod, mod2)
}

func TestLoadNotFound(t *testing.T) {
	root := t.TempDir()
	l := loader.New(root, fakeParse)
	_, err := l.Load("missing")
	require.Error(t, err)
	var nf *loader.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestLoadCircularImport(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "a", "b")
	writeModule(t, root, "b", "a")

	l := loader.New(root, fakeParse)
	_, err := l.Load("a")
	require.Error(t, err)
	var ce *loader.CircularImportError
	require.ErrorAs(t, err, &ce)
}

func TestLoadDiamondSharesModule(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "leaf")
	writeModule(t, root, "left", "leaf")
	writeModule(t, root, "right", "leaf")
	writeModule(t, root, "top", "left", "right")

	l := loader.New(root, fakeParse)
	_, err := l.Load("top")
	require.NoError(t, err)

	leaf, ok := l.Cached("leaf")
	require.True(t, ok)
	require.NotNil(t, leaf)
}

func TestSearchPathIncludesStdlibCategories(t *testing.T) {
	paths := loader.SearchPath("/proj")
	require.Contains(t, paths, filepath.Join("/proj", "stdlib", "core"))
	require.Contains(t, paths, filepath.Join("/proj", "stdlib", "crypto"))
	require.Contains(t, paths, filepath.Join("/proj", "modules"))
}
