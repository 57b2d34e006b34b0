package sitemap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tinytelemetry/edetail/internal/model"
	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned for a missing or blank configuration document.
var ErrEmptyDocument = errors.New("sitemap: document is empty")

// Document is the decoded configuration document.
type Document struct {
	Pages   []*Node             `json:"pages" yaml:"pages"`
	Buttons []*Node             `json:"buttonbar" yaml:"buttonbar"`
	Paths   map[string][]string `json:"paths" yaml:"paths"`
}

type envelope struct {
	Sitemap *Document `json:"sitemap" yaml:"sitemap"`
}

// Format identifies the encoding of a sitemap source.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the format from a file name; anything that is not .yaml
// or .yml is treated as JSON.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Parse decodes a JSON configuration document.
func Parse(data []byte) (*Document, error) {
	return Decode(data, FormatJSON)
}

// Decode decodes a configuration document in the given format, applies the
// defaults for missing sections and normalizes entry kinds.
func Decode(data []byte, format Format) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}

	var env envelope
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &env)
	default:
		err = json.Unmarshal(data, &env)
	}
	if err != nil {
		return nil, fmt.Errorf("sitemap: decode: %w", err)
	}
	if env.Sitemap == nil {
		return nil, ErrEmptyDocument
	}

	doc := env.Sitemap
	if doc.Pages == nil {
		doc.Pages = []*Node{}
	}
	if doc.Buttons == nil {
		doc.Buttons = []*Node{}
	}
	if doc.Paths == nil {
		doc.Paths = map[string][]string{}
	}

	if err := normalize(doc.Pages); err != nil {
		return nil, err
	}
	if err := normalize(doc.Buttons); err != nil {
		return nil, err
	}
	return doc, nil
}

func normalize(roots []*Node) error {
	var firstErr error
	Walk(roots, func(n, _ *Node, _ int) bool {
		if firstErr != nil {
			return false
		}
		if strings.TrimSpace(n.ID) == "" {
			firstErr = errors.New("sitemap: entry without id")
			return false
		}
		kind, err := model.ParseKind(string(n.Kind))
		if err != nil {
			firstErr = fmt.Errorf("sitemap: %s: %w", n.ID, err)
			return false
		}
		n.Kind = kind
		if kind.Fetchable() && n.ContentRef == "" {
			firstErr = fmt.Errorf("sitemap: %s: %s entry has no file", n.ID, kind)
			return false
		}
		return true
	})
	return firstErr
}

// MarshalJSON writes the document in its wire envelope.
func (d *Document) MarshalJSON() ([]byte, error) {
	type plain Document
	return json.Marshal(struct {
		Sitemap *plain `json:"sitemap"`
	}{Sitemap: (*plain)(d)})
}
