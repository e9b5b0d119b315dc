package preloader

// This is the server-side counterpart of the runtime helper. It follows the
// same algorithm so that links injected into a page ahead of time are exactly
// the ones the browser would have added, and so that a page rendered this way
// never gets a link twice.

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/modpreload/modpreload/internal/runtime"
)

type Link struct {
	Rel         string
	As          string
	CrossOrigin bool // Rendered as an empty "crossorigin" attribute
	Href        string
	Nonce       string
}

func (link Link) IsStylesheet() bool {
	return link.Rel == "stylesheet"
}

// Waits until a stylesheet has been applied or has failed. Nil means there's
// nothing to wait for.
type Pending func(ctx context.Context) error

// The page links are added to
type Document interface {
	// Existing links in document order
	Links() []Link

	// The nonce of a "<meta property=csp-nonce>" tag, if there is one
	CSPNonce() string

	SupportsModulePreload() bool

	// Adds a link to the head. Links are always added in dependency order.
	AppendLink(link Link) Pending
}

// Turns a registry entry into an absolute URL
type Resolver func(dep string, importerURL string) (string, error)

// Dispatched for every failed dependency and for a failed load. Calling
// PreventDefault swallows the error.
type ErrorEvent struct {
	Name      string
	Payload   error
	prevented bool
}

func (e *ErrorEvent) PreventDefault() {
	e.prevented = true
}

func (e *ErrorEvent) DefaultPrevented() bool {
	return e.prevented
}

type SessionOptions struct {
	Document Document
	Registry []string
	Resolve  Resolver

	// False for output formats that can't preload. Loads still happen.
	IsModern bool

	OnError func(event *ErrorEvent)
}

// Lives as long as the page. A URL is never requested twice.
type Session struct {
	options SessionOptions

	mutex sync.Mutex
	seen  map[string]bool
}

func NewSession(options SessionOptions) *Session {
	return &Session{
		options: options,
		seen:    make(map[string]bool),
	}
}

// Requests every dependency in parallel, then runs "load". The load always
// runs, even if dependencies failed. A dependency failure that nobody
// prevented is returned once the load has succeeded.
func (s *Session) Preload(ctx context.Context, load func(ctx context.Context) error, deps []int, importerURL string) error {
	var failure error

	if s.options.IsModern && len(deps) > 0 {
		errs := s.preloadAll(ctx, deps, importerURL)
		for _, err := range errs {
			if err == nil {
				continue
			}
			if err := s.handleError(err); err != nil && failure == nil {
				failure = err
			}
		}
	}

	if err := load(ctx); err != nil {
		return s.handleError(err)
	}
	return failure
}

// Returns true if the URL was new
func (s *Session) markSeen(url string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.seen[url] {
		return false
	}
	s.seen[url] = true
	return true
}

func (s *Session) preloadAll(ctx context.Context, deps []int, importerURL string) []error {
	doc := s.options.Document
	existing := doc.Links()
	nonce := doc.CSPNonce()
	scriptRel := "preload"
	if doc.SupportsModulePreload() {
		scriptRel = "modulepreload"
	}

	errs := make([]error, len(deps))
	waitGroup := sync.WaitGroup{}

	// Every link is added before anything is waited on
	for i, index := range deps {
		if index < 0 || index >= len(s.options.Registry) {
			errs[i] = &RegistryError{Index: index}
			continue
		}
		url, err := s.options.Resolve(s.options.Registry[index], importerURL)
		if err != nil {
			errs[i] = err
			continue
		}
		if !s.markSeen(url) {
			continue
		}

		isCSS := strings.HasSuffix(url, ".css")
		if hasLink(existing, url, isCSS) {
			continue
		}

		link := Link{Href: url, CrossOrigin: true, Nonce: nonce}
		if isCSS {
			link.Rel = "stylesheet"
		} else {
			link.Rel = scriptRel
			link.As = "script"
		}

		pending := doc.AppendLink(link)
		if pending == nil {
			continue
		}
		waitGroup.Add(1)
		go func(i int) {
			defer waitGroup.Done()
			errs[i] = pending(ctx)
		}(i)
	}

	waitGroup.Wait()
	return errs
}

func hasLink(links []Link, url string, isCSS bool) bool {
	for i := len(links) - 1; i >= 0; i-- {
		if link := links[i]; link.Href == url && (!isCSS || link.IsStylesheet()) {
			return true
		}
	}
	return false
}

func (s *Session) handleError(err error) error {
	event := &ErrorEvent{Name: runtime.ErrorEventName, Payload: err}
	if s.options.OnError != nil {
		s.options.OnError(event)
	}
	if event.prevented {
		return nil
	}
	return err
}

type RegistryError struct {
	Index int
}

func (e *RegistryError) Error() string {
	return "No registry entry for dependency " + strconv.Itoa(e.Index)
}
