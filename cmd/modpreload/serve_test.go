package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpreload/modpreload/pkg/api"
)

const serveMetafile = `{
  "outputs": {
    "dist/main.js": {
      "imports": [{"path": "dist/page.js", "kind": "dynamic-import"}],
      "exports": [],
      "entryPoint": "src/main.js"
    },
    "dist/page.js": {
      "imports": [{"path": "dist/shared.js", "kind": "import-statement"}],
      "exports": ["default"],
      "entryPoint": "src/page.js",
      "cssBundle": "dist/page.css"
    },
    "dist/shared.js": {"imports": [], "exports": ["x"]},
    "dist/page.css": {"imports": [], "exports": []}
  }
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"meta.json":       serveMetafile,
		"dist/main.js":    "import(\"./page.js\");\n",
		"dist/page.js":    "import{x}from\"./shared.js\";export default x;\n",
		"dist/shared.js":  "export const x = 1;\n",
		"dist/page.css":   "body{color:red}\n",
		"dist/index.html": "<!DOCTYPE html><script type=module src=/assets/main.js></script>",
	}
	for name, contents := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(contents), 0644))
	}

	s, err := newPreviewServer(zerolog.Nop(), api.InjectOptions{
		AbsWorkingDir: dir,
		Outdir:        "dist",
		Metafile:      "meta.json",
		Base:          "/assets/",
	})
	require.NoError(t, err)

	server := httptest.NewServer(s.routes())
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(body)
}

func TestServeInjectedOutput(t *testing.T) {
	server := newTestServer(t)

	status, body := get(t, server.URL+"/assets/main.js")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `import { __preload, __preloadKeep } from "./preload-helper.js";__preloadKeep(__preload);`+
		"__preload(() => import(\"./page.js\"),[0,1]);\n", body)

	status, body = get(t, server.URL+"/assets/preload-helper.js")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `registry: ["shared.js","page.css"],`)

	// Unchanged files come from disk
	status, body = get(t, server.URL+"/assets/shared.js")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "export const x = 1;\n", body)

	status, body = get(t, server.URL+"/assets/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<script type=module")

	status, _ = get(t, server.URL+"/assets/missing.js")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = get(t, server.URL+"/main.js")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServeGraph(t *testing.T) {
	server := newTestServer(t)

	status, body := get(t, server.URL+"/_modpreload/graph")
	require.Equal(t, http.StatusOK, status)
	var result graphJSON
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	ids := make([]string, len(result.Units))
	for i, unit := range result.Units {
		ids[i] = unit.ID
	}
	// The graph is the one from before injection
	assert.Equal(t, []string{"main.js", "page.css", "page.js", "shared.js"}, ids)
	assert.Equal(t, []string{"shared.js"}, result.Units[2].Imports)
	assert.Equal(t, []string{"page.css"}, result.Units[2].Styles)

	status, body = get(t, server.URL+"/_modpreload/deps/page.js?from=main.js")
	require.Equal(t, http.StatusOK, status)
	var deps depsJSON
	require.NoError(t, json.Unmarshal([]byte(body), &deps))
	assert.Equal(t, depsJSON{Target: "page.js", From: "main.js", Deps: []string{"shared.js", "page.css"}}, deps)

	status, _ = get(t, server.URL+"/_modpreload/deps/nope.js")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServePrefix(t *testing.T) {
	assert.Equal(t, "/", servePrefix(""))
	assert.Equal(t, "/", servePrefix("./"))
	assert.Equal(t, "/", servePrefix("https://cdn.example.com/app/"))
	assert.Equal(t, "/", servePrefix("//cdn.example.com/"))
	assert.Equal(t, "/assets/", servePrefix("/assets"))
}
