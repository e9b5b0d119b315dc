package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/modpreload/modpreload/internal/fs"
	"github.com/modpreload/modpreload/internal/graph"
	"github.com/modpreload/modpreload/internal/logger"
	"github.com/modpreload/modpreload/internal/metafile"
	"github.com/modpreload/modpreload/internal/preload"
	"github.com/modpreload/modpreload/internal/scanner"
	"github.com/modpreload/modpreload/pkg/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves an output directory with preloading added",
	Long: "Serves the output directory as it would look after \"inject\" without\n" +
		"changing anything on disk. The dependency graph can be inspected at\n" +
		"/_modpreload/graph and /_modpreload/deps/<unit>?from=<unit>.",
	Args:          cobra.NoArgs,
	RunE:          cmdRunServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := serveCmd.Flags()
	flags.SortFlags = false
	flags.String("addr", "127.0.0.1:8000", "address to listen on")
	addOutputFlags(flags)
	addPreloadFlags(flags)
	rootCmd.AddCommand(serveCmd)
}

type previewServer struct {
	logger zerolog.Logger

	// Where the output directory lives on disk
	dir string

	// The URL path the output directory is served at
	prefix string

	// The graph as it was before injection
	graph *graph.Graph

	// Outputs that injection changed, by ID
	files   map[string][]byte
	removed map[string]bool
}

func newPreviewServer(log zerolog.Logger, options api.InjectOptions) (*previewServer, error) {
	options.Write = false
	result := api.Inject(options)
	if err := resultError(result.Errors); err != nil {
		return nil, err
	}

	workingDir := options.AbsWorkingDir
	if workingDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		workingDir = cwd
	}
	dir := options.Outdir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(workingDir, dir)
	}

	fsys := fs.RealFS(workingDir)
	var g *graph.Graph
	var err error
	if options.Metafile == "" {
		g, err = metafile.LoadDirectory(logger.NewDeferLog(), fsys, dir, scanner.Lexer{})
	} else {
		rel, relErr := filepath.Rel(workingDir, dir)
		if relErr != nil {
			return nil, relErr
		}
		g, _, err = metafile.Load(fsys, options.Metafile, filepath.ToSlash(rel))
	}
	if err != nil {
		return nil, err
	}

	s := &previewServer{
		logger:  log,
		dir:     dir,
		prefix:  servePrefix(options.Base),
		graph:   g,
		files:   make(map[string][]byte, len(result.OutputFiles)),
		removed: make(map[string]bool, len(result.RemovedFiles)),
	}
	for _, file := range result.OutputFiles {
		s.files[s.outputID(workingDir, file.Path)] = file.Contents
	}
	for _, p := range result.RemovedFiles {
		s.removed[s.outputID(workingDir, p)] = true
	}
	return s, nil
}

func (s *previewServer) outputID(workingDir string, p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(workingDir, p)
	}
	rel, err := filepath.Rel(s.dir, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

// Only a base with a path part says where files are served. A relative base
// or a CDN origin is served from the root.
func servePrefix(base string) string {
	if !strings.HasPrefix(base, "/") || strings.HasPrefix(base, "//") {
		return "/"
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

func (s *previewServer) routes() *httprouter.Router {
	router := httprouter.New()
	router.GET("/_modpreload/graph", s.handleGraph)
	router.GET("/_modpreload/deps/*unit", s.handleDeps)
	router.NotFound = http.HandlerFunc(s.handleFile)
	return router
}

type unitJSON struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Entry   bool     `json:"entry,omitempty"`
	Imports []string `json:"imports,omitempty"`
	Styles  []string `json:"styles,omitempty"`
}

type graphJSON struct {
	Units   []unitJSON          `json:"units"`
	Removed map[string][]string `json:"removed,omitempty"`
}

func (s *previewServer) handleGraph(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	result := graphJSON{Removed: s.graph.Removed}
	for _, id := range s.graph.SortedIDs() {
		unit := s.graph.Units[id]
		kind := "asset"
		if unit.Kind == graph.UnitCode {
			kind = "code"
		}
		result.Units = append(result.Units, unitJSON{
			ID:      id,
			Kind:    kind,
			Entry:   unit.IsEntry,
			Imports: unit.DeclaredImports,
			Styles:  unit.ImportedStyles,
		})
	}
	s.writeJSON(w, http.StatusOK, result)
}

type depsJSON struct {
	Target        string                      `json:"target"`
	From          string                      `json:"from,omitempty"`
	Deps          []string                    `json:"deps"`
	RemovedTarget bool                        `json:"removedTarget,omitempty"`
	Missing       []preload.MissingDependency `json:"missing,omitempty"`
}

func (s *previewServer) handleDeps(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	target := strings.TrimPrefix(params.ByName("unit"), "/")
	_, isUnit := s.graph.Units[target]
	_, isRemoved := s.graph.Removed[target]
	if !isUnit && !isRemoved {
		http.Error(w, "Unknown unit "+target, http.StatusNotFound)
		return
	}

	from := r.URL.Query().Get("from")
	deps, removedTarget, missing := preload.Traverse(s.graph, from, target)
	s.writeJSON(w, http.StatusOK, depsJSON{
		Target:        target,
		From:          from,
		Deps:          deps,
		RemovedTarget: removedTarget,
		Missing:       missing,
	})
}

func (s *previewServer) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !strings.HasPrefix(r.URL.Path, s.prefix) {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(r.URL.Path, s.prefix)), "/")
	if id == "" {
		id = "index.html"
	}

	if s.removed[id] {
		http.NotFound(w, r)
		return
	}
	if contents, ok := s.files[id]; ok {
		s.logger.Debug().Str("path", r.URL.Path).Msg("Serving injected output")
		http.ServeContent(w, r, path.Base(id), time.Time{}, bytes.NewReader(contents))
		return
	}
	http.ServeFile(w, r, filepath.Join(s.dir, filepath.FromSlash(id)))
}

func (s *previewServer) writeJSON(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write response")
	}
}

func cmdRunServe(cmd *cobra.Command, args []string) error {
	logger := commandLogger("serve")

	options, err := injectOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	s, err := newPreviewServer(logger, options)
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	server := &http.Server{Addr: addr, Handler: s.routes()}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdown)
	}()

	logger.Info().Str("addr", "http://"+addr+s.prefix).Int("injected", len(s.files)).Msg("Serving")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "Server failed")
	}
	return nil
}
