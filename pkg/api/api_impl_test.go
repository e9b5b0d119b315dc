package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpreload/modpreload/internal/fs"
)

const testMetafile = `{
  "outputs": {
    "dist/main.js": {
      "imports": [
        {"path": "dist/page.js", "kind": "dynamic-import"},
        {"path": "dist/theme.js", "kind": "dynamic-import"}
      ],
      "exports": [],
      "entryPoint": "src/main.js"
    },
    "dist/page.js": {
      "inputs": {"src/page.js": {"bytesInOutput": 40}},
      "imports": [{"path": "dist/shared.js", "kind": "import-statement"}],
      "exports": ["default"],
      "entryPoint": "src/page.js",
      "cssBundle": "dist/page.css"
    },
    "dist/theme.js": {
      "inputs": {"src/theme.js": {"bytesInOutput": 0}},
      "imports": [],
      "exports": [],
      "entryPoint": "src/theme.js",
      "cssBundle": "dist/theme.css"
    },
    "dist/shared.js": {"imports": [], "exports": ["x"]},
    "dist/page.css": {"imports": [], "exports": []},
    "dist/theme.css": {"imports": [], "exports": []}
  }
}`

const testHeader = `import { __preload, __preloadKeep } from "./preload-helper.js";__preloadKeep(__preload);`

func testFiles() map[string]string {
	return map[string]string{
		"meta.json":      testMetafile,
		"dist/main.js":   "import(\"./page.js\");import(\"./theme.js\");\n",
		"dist/page.js":   "import{x}from\"./shared.js\";export default x;\n",
		"dist/theme.js":  "",
		"dist/shared.js": "export const x = 1;\n",
		"dist/page.css":  "body{color:red}\n",
		"dist/theme.css": "body{color:blue}\n",
	}
}

func outputsByPath(files []OutputFile) map[string]string {
	result := make(map[string]string, len(files))
	for _, file := range files {
		result[file.Path] = string(file.Contents)
	}
	return result
}

func TestInjectWithMetafile(t *testing.T) {
	fsys := fs.MockFS(testFiles())
	result := injectImpl(fsys, InjectOptions{
		Outdir:   "dist",
		Metafile: "meta.json",
		Base:     "/assets/",
	})
	require.Empty(t, result.Errors)

	outputs := outputsByPath(result.OutputFiles)
	assert.Equal(t, []string{"dist/main.js", "dist/preload-helper.js"}, []string{result.OutputFiles[0].Path, result.OutputFiles[1].Path})
	assert.Equal(t, testHeader+"__preload(() => import(\"./page.js\"),[0,1]);__preload(() => import(\"./theme.js\"),[2]);\n",
		outputs["dist/main.js"])
	assert.Contains(t, outputs["dist/preload-helper.js"], `["shared.js","page.css","theme.css"]`)
	assert.Equal(t, []string{"main.js"}, result.Participating)
	assert.Equal(t, 2, result.PatchedSites)
	assert.Equal(t, 3, result.RegistrySize)

	// Nothing is written unless asked
	assert.Equal(t, testFiles(), fs.Snapshot(fsys))
}

func TestInjectWrite(t *testing.T) {
	fsys := fs.MockFS(testFiles())
	result := injectImpl(fsys, InjectOptions{
		Outdir:   "dist",
		Metafile: "meta.json",
		Base:     "/assets/",
		Write:    true,
	})
	require.Empty(t, result.Errors)

	files := fs.Snapshot(fsys)
	assert.True(t, strings.HasPrefix(files["dist/main.js"], testHeader))
	assert.Contains(t, files["dist/preload-helper.js"], "isModern: true,")
	assert.Equal(t, testFiles()["dist/page.js"], files["dist/page.js"])
}

func TestInjectTwice(t *testing.T) {
	fsys := fs.MockFS(testFiles())
	options := InjectOptions{
		Outdir:   "dist",
		Metafile: "meta.json",
		Base:     "/assets/",
		Write:    true,
	}
	result := injectImpl(fsys, options)
	require.Empty(t, result.Errors)
	first := fs.Snapshot(fsys)

	result = injectImpl(fsys, options)
	require.Empty(t, result.Errors)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, `Skipping the output because "main.js" already imports the preload helper`, result.Warnings[0].Text)
	assert.Empty(t, result.OutputFiles)
	assert.Equal(t, first, fs.Snapshot(fsys))
}

func TestInjectPruneStyleOnlyChunks(t *testing.T) {
	fsys := fs.MockFS(testFiles())
	result := injectImpl(fsys, InjectOptions{
		Outdir:               "dist",
		Metafile:             "meta.json",
		Base:                 "/assets/",
		PruneStyleOnlyChunks: true,
		Write:                true,
	})
	require.Empty(t, result.Errors)

	assert.Equal(t, []string{"dist/theme.js"}, result.RemovedFiles)
	files := fs.Snapshot(fsys)
	_, ok := files["dist/theme.js"]
	assert.False(t, ok)
	assert.Equal(t, testHeader+"__preload(() => import(\"./page.js\"),[0,1]);__preload(() => Promise.resolve({}),[2]);\n",
		files["dist/main.js"])
}

func TestInjectWithoutPreload(t *testing.T) {
	fsys := fs.MockFS(testFiles())
	result := injectImpl(fsys, InjectOptions{
		Outdir:               "dist",
		Metafile:             "meta.json",
		PruneStyleOnlyChunks: true,
		DisablePreload:       true,
	})
	require.Empty(t, result.Errors)

	outputs := outputsByPath(result.OutputFiles)
	assert.Equal(t, "import(\"./page.js\");Promise.resolve({}) ;\n", outputs["dist/main.js"])
	_, ok := outputs["dist/preload-helper.js"]
	assert.False(t, ok)
	assert.Empty(t, result.Participating)
}

func TestInjectWithoutMetafile(t *testing.T) {
	files := testFiles()
	delete(files, "meta.json")
	result := injectImpl(fs.MockFS(files), InjectOptions{Outdir: "dist", Base: "/"})
	require.Empty(t, result.Errors)

	// Only code dependencies can be found by scanning
	outputs := outputsByPath(result.OutputFiles)
	assert.Equal(t, testHeader+"__preload(() => import(\"./page.js\"),[0]);import(\"./theme.js\");\n", outputs["dist/main.js"])
	assert.Equal(t, 1, result.PatchedSites)
	assert.Equal(t, 1, result.RegistrySize)
}

func TestInjectErrors(t *testing.T) {
	result := injectImpl(fs.MockFS(testFiles()), InjectOptions{Metafile: "meta.json"})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Must provide an output directory", result.Errors[0].Text)

	files := testFiles()
	delete(files, "dist/shared.js")
	result = injectImpl(fs.MockFS(files), InjectOptions{Outdir: "dist", Metafile: "meta.json"})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Text, `Failed to read output "shared.js"`)

	files = testFiles()
	files["dist/main.js"] = "import(\"./page.js\""
	fsys := fs.MockFS(files)
	result = injectImpl(fsys, InjectOptions{Outdir: "dist", Metafile: "meta.json", Write: true})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, `Expected ")" to end dynamic import`, result.Errors[0].Text)
	assert.Equal(t, "main.js", result.Errors[0].Location.File)
	assert.Equal(t, files, fs.Snapshot(fsys))
}

func TestInjectHooks(t *testing.T) {
	var hosts []string
	result := injectImpl(fs.MockFS(testFiles()), InjectOptions{
		Outdir:   "dist",
		Metafile: "meta.json",
		ResolveDependencies: func(target string, deps []string, hostID string) []string {
			hosts = append(hosts, hostID+" -> "+target+": "+strings.Join(deps, ","))
			return deps
		},
		RenderBuiltURL: func(dep string, kind AssetKind, fromUnit string) BuiltURL {
			if kind == AssetStyle {
				return BuiltURL{RuntimeExpr: "window.cssUrl(" + `"` + dep + `"` + ")"}
			}
			return BuiltURL{URL: "https://cdn.example.com/" + dep}
		},
	})
	require.Empty(t, result.Errors)

	assert.Equal(t, []string{"main.js -> page.js: shared.js", "main.js -> theme.js: "}, hosts)
	helper := outputsByPath(result.OutputFiles)["dist/preload-helper.js"]
	assert.Contains(t, helper, `["https://cdn.example.com/shared.js",window.cssUrl("page.css"),window.cssUrl("theme.css")]`)
}

const testPage = `<!DOCTYPE html>
<html><head>
<meta property="csp-nonce" nonce="abc">
<link rel="stylesheet" href="/assets/page.css">
<script type="module" src="/assets/main.js"></script>
</head><body></body></html>`

func TestLinks(t *testing.T) {
	result := linksImpl(fs.MockFS(testFiles()), LinksOptions{
		Page:           testPage,
		Outdir:         "dist",
		Metafile:       "meta.json",
		Base:           "/assets",
		Targets:        []string{"page.js", "./theme.js"},
		IncludeTargets: true,
	})
	require.Empty(t, result.Errors)
	require.Empty(t, result.Warnings)

	// The stylesheet is already on the page
	assert.Equal(t, []string{"/assets/page.js", "/assets/shared.js", "/assets/theme.js", "/assets/theme.css"}, result.Links)
	assert.Contains(t, result.HTML, `<link rel="modulepreload" as="script" crossorigin="" href="/assets/shared.js" nonce="abc"/>`)
	assert.Contains(t, result.HTML, `<link rel="stylesheet" crossorigin="" href="/assets/theme.css" nonce="abc"/>`)
}

func TestLinksRelativeBase(t *testing.T) {
	page := `<html><head>
<link rel="stylesheet" href="page.css">
<script type="module" src="./main.js"></script>
</head><body></body></html>`
	result := linksImpl(fs.MockFS(testFiles()), LinksOptions{
		Page:           page,
		Outdir:         "dist",
		Metafile:       "meta.json",
		Base:           "./",
		Targets:        []string{"page.js", "theme.js"},
		IncludeTargets: true,
	})
	require.Empty(t, result.Errors)
	require.Empty(t, result.Warnings)

	assert.Equal(t, []string{"page.js", "shared.js", "theme.js", "theme.css"}, result.Links)
	assert.Contains(t, result.HTML, `<link rel="modulepreload" as="script" crossorigin="" href="shared.js"/>`)
}

func TestLinksErrors(t *testing.T) {
	result := linksImpl(fs.MockFS(testFiles()), LinksOptions{
		Page:     testPage,
		Outdir:   "dist",
		Metafile: "meta.json",
		Base:     "/assets/",
		Targets:  []string{"missing.js"},
	})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, `Unknown output "missing.js"`, result.Errors[0].Text)
	assert.Empty(t, result.HTML)
}
