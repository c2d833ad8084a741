package org

import (
	"bytes"
	"io"
)

// Document is a parsed org file: the lines before the first heading and a
// tree of headings under a level-0 root.
type Document struct {
	Preamble []string
	Root     *Heading
	// Todos is the vocabulary in effect for this document, including
	// keywords declared by #+TODO lines in the preamble.
	Todos Todos
}

// NewDocument returns an empty document using the given vocabulary.
func NewDocument(todos Todos) *Document {
	return &Document{
		Root:  &Heading{},
		Todos: todos,
	}
}

// HeadingByPath walks down from the root matching one title per level and
// returns the heading at the end of the path, or nil.
func (d *Document) HeadingByPath(path ...string) *Heading {
	if len(path) == 0 {
		return nil
	}

	current := d.Root
	for _, title := range path {
		var next *Heading
		for _, child := range current.children {
			if child.title == title {
				next = child
				break
			}
		}
		if next == nil {
			return nil
		}
		current = next
	}
	return current
}

// Filter returns every heading, in document order, for which keep is true.
func (d *Document) Filter(keep func(*Heading) bool) []*Heading {
	var out []*Heading
	var walk func(h *Heading)
	walk = func(h *Heading) {
		for _, c := range h.children {
			if keep(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(d.Root)
	return out
}

// IsOpen reports whether h carries one of the document's open keywords.
func (d *Document) IsOpen(h *Heading) bool {
	return d.Todos.IsTodo(h.todo)
}

// IsDone reports whether h carries one of the document's done keywords.
func (d *Document) IsDone(h *Heading) bool {
	return d.Todos.IsDone(h.todo)
}

// WriteTo serializes the document. Every line is newline-terminated.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	for _, line := range d.Preamble {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	var walk func(h *Heading)
	walk = func(h *Heading) {
		for _, line := range h.header() {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
		for _, line := range h.body {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
		for _, c := range h.children {
			walk(c)
		}
	}
	for _, c := range d.Root.children {
		walk(c)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// String renders the document as text.
func (d *Document) String() string {
	var buf bytes.Buffer
	_, _ = d.WriteTo(&buf)
	return buf.String()
}
