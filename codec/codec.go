// Package codec parses raw locale file content of a known format into a
// document tree.
//
// Three formats are supported: JSON, YAML and XML. All three produce
// structurally equivalent document.Node trees for equivalent input, so the
// rest of the module never cares which format a locale was stored in.
//
// The XML mapping is deliberately shallow: an element with children becomes a
// one-level nested mapping and grandchildren are flattened to their parent's
// character data. Locale files that need deeper nesting should use JSON or
// YAML.
package codec

import (
	"encoding/json"
	"encoding/xml"
	"path"
	"strings"

	"github.com/valentin-kaiser/go-locale/apperror"
	"github.com/valentin-kaiser/go-locale/document"
	"gopkg.in/yaml.v2"
)

// Format identifies a locale file format
type Format string

const (
	// JSON is the JavaScript Object Notation format
	JSON Format = "json"
	// YAML is the YAML Ain't Markup Language format
	YAML Format = "yaml"
	// XML is the Extensible Markup Language format
	XML Format = "xml"
)

// Extensions returns the file extensions tried when searching for locale
// files, in resolution order
func Extensions() []string {
	return []string{"json", "yaml", "yml", "xml"}
}

// FormatForPath infers the format from the trailing extension of a path or
// URL. It returns false when the extension does not map to a known format.
func FormatForPath(p string) (Format, bool) {
	switch strings.ToLower(path.Ext(p)) {
	case ".json":
		return JSON, true
	case ".yaml", ".yml":
		return YAML, true
	case ".xml":
		return XML, true
	}
	return "", false
}

// Parse converts raw content of the given format into a document tree
func Parse(data []byte, format Format) (document.Node, error) {
	switch format {
	case JSON:
		return parseJSON(data)
	case YAML:
		return parseYAML(data)
	case XML:
		return parseXML(data)
	default:
		return nil, apperror.NewErrorf("unsupported locale file format %q", format)
	}
}

// parseJSON parses strict JSON. Malformed input or a non-object document
// fails.
func parseJSON(data []byte) (document.Node, error) {
	var raw map[string]interface{}
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, apperror.NewError("parsing JSON content failed").AddError(err)
	}
	node, _ := document.NodeFromAny(raw)
	return node, nil
}

// parseYAML parses YAML in safe mode. An empty document parses to an empty
// node, not an error.
func parseYAML(data []byte) (document.Node, error) {
	var raw interface{}
	err := yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, apperror.NewError("parsing YAML content failed").AddError(err)
	}

	node, ok := document.NodeFromAny(raw)
	if !ok {
		return nil, apperror.NewErrorf("YAML document is not a mapping")
	}
	return node, nil
}

// xmlElement is the generic shape every element of a locale XML file is
// decoded into
type xmlElement struct {
	XMLName  xml.Name
	Text     string       `xml:",chardata"`
	Children []xmlElement `xml:",any"`
}

// parseXML parses a locale XML document. The root element may carry a <meta>
// child whose sub-elements become scalar metadata keys, and either a <locale>
// child or bare top-level elements holding the translations. Nesting is
// limited to one level: grandchildren are flattened to their parent's own
// character data.
func parseXML(data []byte) (document.Node, error) {
	var root xmlElement
	err := xml.Unmarshal(data, &root)
	if err != nil {
		return nil, apperror.NewError("parsing XML content failed").AddError(err)
	}

	result := document.Node{}

	var entries, bare []xmlElement
	for _, child := range root.Children {
		switch child.XMLName.Local {
		case document.MetaKey:
			meta := document.Node{}
			for _, m := range child.Children {
				meta[m.XMLName.Local] = document.Leaf(strings.TrimSpace(m.Text))
			}
			result[document.MetaKey] = meta
		case "locale":
			entries = append(entries, child.Children...)
		default:
			bare = append(bare, child)
		}
	}

	// Bare top-level elements only count when there is no <locale> section
	if entries == nil {
		entries = bare
	}

	for _, entry := range entries {
		if len(entry.Children) == 0 {
			result[entry.XMLName.Local] = document.Leaf(strings.TrimSpace(entry.Text))
			continue
		}

		nested := document.Node{}
		for _, sub := range entry.Children {
			nested[sub.XMLName.Local] = document.Leaf(strings.TrimSpace(sub.Text))
		}
		result[entry.XMLName.Local] = nested
	}

	return result, nil
}
