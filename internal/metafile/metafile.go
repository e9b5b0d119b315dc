package metafile

// Reads the metafile esbuild writes next to a build. The outputs section is
// all that's needed: it lists every emitted file with its static imports, its
// dynamic imports and the stylesheet bundle of each JavaScript entry point.

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/modpreload/modpreload/internal/fs"
	"github.com/modpreload/modpreload/internal/graph"
	"github.com/modpreload/modpreload/internal/helpers"
)

const (
	KindImportStatement = "import-statement"
	KindDynamicImport   = "dynamic-import"
	KindRequireCall     = "require-call"
)

type Import struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external"`
}

type OutputInput struct {
	BytesInOutput int `json:"bytesInOutput"`
}

type Output struct {
	Bytes      int                    `json:"bytes"`
	Inputs     map[string]OutputInput `json:"inputs"`
	Imports    []Import               `json:"imports"`
	Exports    []string               `json:"exports"`
	EntryPoint string                 `json:"entryPoint"`
	CSSBundle  string                 `json:"cssBundle"`
}

type Metafile struct {
	Outputs map[string]Output `json:"outputs"`
}

func Parse(data []byte) (*Metafile, error) {
	var m Metafile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "Invalid metafile")
	}
	if m.Outputs == nil {
		return nil, errors.New("Invalid metafile: missing \"outputs\"")
	}
	return &m, nil
}

// Returns the output paths that live in "outdir", relative to it and sorted.
// Paths in the metafile are relative to the directory esbuild ran in.
func (m *Metafile) OutputIDs(outdir string) []string {
	var ids []string
	for p := range m.Outputs {
		if id, ok := outputID(outdir, p); ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func outputID(outdir string, p string) (string, bool) {
	outdir = strings.Trim(path.Clean(helpers.ToSlash(outdir)), "/")
	p = strings.TrimPrefix(path.Clean(helpers.ToSlash(p)), "/")
	if outdir == "." || outdir == "" {
		return p, !strings.HasPrefix(p, "../")
	}
	if !strings.HasPrefix(p, outdir+"/") {
		return "", false
	}
	return p[len(outdir)+1:], true
}

// Builds the artifact graph. "contents" maps output IDs to file contents.
// Map files are included as asset units so that units can find their maps.
func (m *Metafile) Graph(outdir string, contents map[string]string) (*graph.Graph, error) {
	g := graph.New()

	for p, output := range m.Outputs {
		id, ok := outputID(outdir, p)
		if !ok {
			continue
		}
		text, ok := contents[id]
		if !ok {
			return nil, errors.Errorf("Missing contents for output %q", id)
		}

		unit := &graph.Unit{ID: id, Text: text, IsEntry: output.EntryPoint != ""}
		if isCode(id) {
			unit.Kind = graph.UnitCode
		} else {
			unit.Kind = graph.UnitAsset
		}

		for _, imp := range output.Imports {
			if imp.External || imp.Kind != KindImportStatement {
				continue
			}
			dep, ok := outputID(outdir, imp.Path)
			if !ok {
				return nil, errors.Errorf("Import %q of %q is outside of %q", imp.Path, id, outdir)
			}
			if isCode(dep) {
				unit.DeclaredImports = append(unit.DeclaredImports, dep)
			} else if strings.HasSuffix(dep, ".css") {
				unit.AddImportedStyle(dep)
			}
		}

		if output.CSSBundle != "" {
			style, ok := outputID(outdir, output.CSSBundle)
			if !ok {
				return nil, errors.Errorf("Stylesheet %q of %q is outside of %q", output.CSSBundle, id, outdir)
			}
			unit.AddImportedStyle(style)
		}

		g.Add(unit)
	}

	// Maps aren't listed in the metafile
	for id, text := range contents {
		if _, ok := g.Units[id]; !ok && strings.HasSuffix(id, ".map") {
			g.Add(&graph.Unit{ID: id, Kind: graph.UnitAsset, Text: text})
		}
	}

	return g, nil
}

func isCode(id string) bool {
	return strings.HasSuffix(id, ".js") || strings.HasSuffix(id, ".mjs") || strings.HasSuffix(id, ".cjs")
}

// Reads every output in parallel, along with the ".map" file next to each
// one if there is one
func ReadOutputs(fsys fs.FS, outdir string, ids []string) (map[string]string, error) {
	type file struct {
		id   string
		text string
	}
	files := make([]file, 0, len(ids)*2)
	for _, id := range ids {
		files = append(files, file{id: id})
		if isCode(id) && !slices.Contains(ids, id+".map") {
			files = append(files, file{id: id + ".map"})
		}
	}

	group := errgroup.Group{}
	for i := range files {
		f := &files[i]
		group.Go(func() error {
			text, err := fsys.ReadFile(path.Join(outdir, f.id))
			if err != nil {
				if strings.HasSuffix(f.id, ".map") && fs.IsNotExist(err) {
					f.id = ""
					return nil
				}
				return errors.Wrapf(err, "Failed to read output %q", f.id)
			}
			f.text = text
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	contents := make(map[string]string, len(files))
	for _, f := range files {
		if f.id != "" {
			contents[f.id] = f.text
		}
	}
	return contents, nil
}

// Reads a metafile and every output it lists
func Load(fsys fs.FS, metafilePath string, outdir string) (*graph.Graph, *Metafile, error) {
	data, err := fsys.ReadFile(metafilePath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "Failed to read metafile %q", metafilePath)
	}
	m, err := Parse([]byte(data))
	if err != nil {
		return nil, nil, err
	}
	contents, err := ReadOutputs(fsys, outdir, m.OutputIDs(outdir))
	if err != nil {
		return nil, nil, err
	}
	g, err := m.Graph(outdir, contents)
	return g, m, err
}
