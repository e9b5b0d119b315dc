package htmldoc

// An HTML page that the preloader can add links to. The page is parsed into a
// tree so links end up inside "<head>" even when the markup omits it.

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/modpreload/modpreload/internal/preloader"
)

// Checks that a stylesheet can be loaded. Nil means every stylesheet loads.
type StylesheetCheck func(ctx context.Context, href string) error

type Document struct {
	root  *html.Node
	head  *html.Node
	check StylesheetCheck
}

func Parse(r io.Reader, check StylesheetCheck) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse HTML")
	}
	doc := &Document{root: root, check: check}
	doc.head = findElement(root, atom.Head)
	if doc.head == nil {
		return nil, errors.New("Document has no head element")
	}
	return doc, nil
}

func ParseString(text string, check StylesheetCheck) (*Document, error) {
	return Parse(strings.NewReader(text), check)
}

var _ preloader.Document = (*Document)(nil)

func (d *Document) Links() []preloader.Link {
	var links []preloader.Link
	walk(d.root, func(n *html.Node) {
		if n.DataAtom != atom.Link {
			return
		}
		link := preloader.Link{
			Rel:   attr(n, "rel"),
			As:    attr(n, "as"),
			Href:  attr(n, "href"),
			Nonce: attr(n, "nonce"),
		}
		_, link.CrossOrigin = lookupAttr(n, "crossorigin")
		links = append(links, link)
	})
	return links
}

func (d *Document) CSPNonce() string {
	nonce := ""
	walk(d.root, func(n *html.Node) {
		if nonce == "" && n.DataAtom == atom.Meta && attr(n, "property") == "csp-nonce" {
			nonce = attr(n, "nonce")
		}
	})
	return nonce
}

func (d *Document) SupportsModulePreload() bool {
	return true
}

func (d *Document) AppendLink(link preloader.Link) preloader.Pending {
	n := &html.Node{Type: html.ElementNode, Data: "link", DataAtom: atom.Link}
	n.Attr = append(n.Attr, html.Attribute{Key: "rel", Val: link.Rel})
	if link.As != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "as", Val: link.As})
	}
	if link.CrossOrigin {
		n.Attr = append(n.Attr, html.Attribute{Key: "crossorigin"})
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "href", Val: link.Href})
	if link.Nonce != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "nonce", Val: link.Nonce})
	}
	d.head.AppendChild(n)

	if !link.IsStylesheet() || d.check == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return d.check(ctx, link.Href)
	}
}

func (d *Document) Render(w io.Writer) error {
	return errors.Wrap(html.Render(w, d.root), "Failed to render HTML")
}

func (d *Document) String() string {
	sb := strings.Builder{}
	if err := html.Render(&sb, d.root); err != nil {
		panic(err)
	}
	return sb.String()
}

// The "src" of every "<script type=module>" in document order
func (d *Document) ModuleScripts() []string {
	var scripts []string
	walk(d.root, func(n *html.Node) {
		if n.DataAtom == atom.Script && attr(n, "type") == "module" {
			if src := attr(n, "src"); src != "" {
				scripts = append(scripts, src)
			}
		}
	})
	return scripts
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walk(n, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && n.DataAtom == a {
			found = n
		}
	})
	return found
}

func walk(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func attr(n *html.Node, key string) string {
	val, _ := lookupAttr(n, key)
	return val
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
