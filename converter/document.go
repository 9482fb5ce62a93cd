package converter

import (
	"bytes"
	"fmt"

	"github.com/tidwall/pretty"
)

// Indent is the indentation unit of rendered documents.
const Indent = "  "

var prettyOptions = &pretty.Options{
	// Width 0 keeps every array element on its own line.
	Width:    0,
	Prefix:   "",
	Indent:   Indent,
	SortKeys: false,
}

// Document is the top-level proxy-core fragment.
type Document struct {
	Endpoints []*Endpoint `json:"endpoints"`
}

// NewDocument wraps a single endpoint.
func NewDocument(endpoint *Endpoint) *Document {
	return &Document{Endpoints: []*Endpoint{endpoint}}
}

// Text renders the document as indented JSON without a trailing newline.
func (d *Document) Text() (string, error) {
	endpoints := d.Endpoints
	if endpoints == nil {
		endpoints = []*Endpoint{}
	}

	obj := newObject()
	obj.set("endpoints", endpoints)

	var buf bytes.Buffer
	if err := encodeJSON(&buf, obj); err != nil {
		return "", fmt.Errorf("encoding document: %w", err)
	}

	out := pretty.PrettyOptions(buf.Bytes(), prettyOptions)
	return string(bytes.TrimRight(out, "\n")), nil
}

// ToText renders a single endpoint inside an endpoints document.
func ToText(endpoint *Endpoint) (string, error) {
	return NewDocument(endpoint).Text()
}
