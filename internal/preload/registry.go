package preload

import (
	"github.com/modpreload/modpreload/internal/helpers"
)

type registryEntry struct {
	text   string
	quoted bool
}

// The table of dependency URLs shared by every call site in the bundle. Call
// sites refer to entries by index so each URL is only written once.
type Registry struct {
	entries []registryEntry
}

// Returns the index of an entry, appending it if it isn't there yet. Quoted
// entries are string literals. Unquoted entries are JavaScript expressions
// that are evaluated when the helper is loaded.
func (r *Registry) Index(text string, quoted bool) int {
	for i, entry := range r.entries {
		if entry.text == text && entry.quoted == quoted {
			return i
		}
	}
	r.entries = append(r.entries, registryEntry{text: text, quoted: quoted})
	return len(r.entries) - 1
}

func (r *Registry) Len() int {
	return len(r.entries)
}

func (r *Registry) Text(index int) string {
	return r.entries[index].text
}

// Serializes the registry as a JavaScript array literal
func (r *Registry) String() string {
	j := helpers.Joiner{}
	j.AddString("[")
	for i, entry := range r.entries {
		if i > 0 {
			j.AddString(",")
		}
		if entry.quoted {
			j.AddBytes(helpers.QuoteForJSON(entry.text))
		} else {
			j.AddString(entry.text)
		}
	}
	j.AddString("]")
	return string(j.Done())
}
