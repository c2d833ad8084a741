package org

import "strings"

// Planning keywords.
const (
	PlanningClosed    = "CLOSED"
	PlanningScheduled = "SCHEDULED"
	PlanningDeadline  = "DEADLINE"
)

// Planning is one keyword/timestamp pair of a heading's planning line.
// Timestamp keeps its brackets, e.g. "[2024-01-01 Mon 00:00]".
type Planning struct {
	Keyword   string
	Timestamp string
}

// Property is one entry of a heading's property drawer.
type Property struct {
	Key   string
	Value string
}

// Heading is a node of the outline. The root of a Document is a level-0
// heading with no headline of its own.
//
// Headings read from a file keep their original header lines and are
// written back verbatim until one of the setters changes them.
type Heading struct {
	level      int
	todo       string
	priority   string
	title      string
	tags       []string
	planning   []Planning
	properties []Property
	body       []string

	parent   *Heading
	children []*Heading

	raw   []string
	dirty bool

	// Planning line as read, and any text on it that is not a
	// KEYWORD: timestamp pair (e.g. a trailing note).
	planningRaw     string
	planningExtra   string
	planningChanged bool
}

// NewHeading creates a detached heading. todo may be empty.
func NewHeading(level int, todo, title string) *Heading {
	return &Heading{
		level: level,
		todo:  todo,
		title: title,
		dirty: true,
	}
}

func (h *Heading) Level() int {
	return h.level
}

func (h *Heading) Todo() string {
	return h.todo
}

func (h *Heading) Priority() string {
	return h.priority
}

func (h *Heading) Title() string {
	return h.title
}

func (h *Heading) Parent() *Heading {
	return h.parent
}

func (h *Heading) Children() []*Heading {
	return h.children
}

// Tags returns a copy of the heading's tags.
func (h *Heading) Tags() []string {
	return append([]string(nil), h.tags...)
}

// Body returns the lines between the header and the next heading.
func (h *Heading) Body() []string {
	return append([]string(nil), h.body...)
}

func (h *Heading) SetTodo(todo string) {
	if h.todo != todo {
		h.todo = todo
		h.dirty = true
	}
}

func (h *Heading) SetTitle(title string) {
	if h.title != title {
		h.title = title
		h.dirty = true
	}
}

// Planning returns the timestamp recorded for a planning keyword.
func (h *Heading) Planning(keyword string) (string, bool) {
	for _, p := range h.planning {
		if p.Keyword == keyword {
			return p.Timestamp, true
		}
	}
	return "", false
}

// SetPlanning sets or replaces a planning entry. An empty timestamp removes it.
// A new CLOSED entry goes first on the line, the others last.
func (h *Heading) SetPlanning(keyword, timestamp string) {
	for i, p := range h.planning {
		if p.Keyword != keyword {
			continue
		}
		if timestamp == "" {
			h.planning = append(h.planning[:i], h.planning[i+1:]...)
			h.markPlanningChanged()
		} else if p.Timestamp != timestamp {
			h.planning[i].Timestamp = timestamp
			h.markPlanningChanged()
		}
		return
	}
	if timestamp == "" {
		return
	}
	entry := Planning{Keyword: keyword, Timestamp: timestamp}
	if keyword == PlanningClosed {
		h.planning = append([]Planning{entry}, h.planning...)
	} else {
		h.planning = append(h.planning, entry)
	}
	h.markPlanningChanged()
}

func (h *Heading) markPlanningChanged() {
	h.planningChanged = true
	h.dirty = true
}

// Closed returns the CLOSED timestamp, if any.
func (h *Heading) Closed() (string, bool) {
	return h.Planning(PlanningClosed)
}

func (h *Heading) SetClosed(timestamp string) {
	h.SetPlanning(PlanningClosed, timestamp)
}

// Property looks up a drawer property. Keys are case-insensitive.
func (h *Heading) Property(key string) (string, bool) {
	for _, p := range h.properties {
		if strings.EqualFold(p.Key, key) {
			return p.Value, true
		}
	}
	return "", false
}

// SetProperty sets or appends a drawer property.
func (h *Heading) SetProperty(key, value string) {
	for i, p := range h.properties {
		if strings.EqualFold(p.Key, key) {
			if p.Value != value {
				h.properties[i].Value = value
				h.dirty = true
			}
			return
		}
	}
	h.properties = append(h.properties, Property{Key: key, Value: value})
	h.dirty = true
}

// Properties returns a copy of the drawer in file order.
func (h *Heading) Properties() []Property {
	return append([]Property(nil), h.properties...)
}

// AddChild appends child and moves it one level below h, together with
// its own subtree.
func (h *Heading) AddChild(child *Heading) {
	child.parent = h
	child.shift(h.level + 1 - child.level)
	h.children = append(h.children, child)
}

func (h *Heading) shift(delta int) {
	if delta == 0 {
		return
	}
	h.level += delta
	h.dirty = true
	for _, c := range h.children {
		c.shift(delta)
	}
}

// header returns the headline, planning and drawer lines of h.
func (h *Heading) header() []string {
	if !h.dirty && h.raw != nil {
		return h.raw
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("*", h.level))
	for _, part := range []string{h.todo, priorityCookie(h.priority), h.title} {
		if part != "" {
			b.WriteByte(' ')
			b.WriteString(part)
		}
	}
	if len(h.tags) > 0 {
		b.WriteString(" :" + strings.Join(h.tags, ":") + ":")
	}
	lines := []string{b.String()}

	if line := h.planningLine(); line != "" {
		lines = append(lines, line)
	}

	if len(h.properties) > 0 {
		lines = append(lines, ":PROPERTIES:")
		for _, p := range h.properties {
			line := ":" + p.Key + ":"
			if p.Value != "" {
				line += " " + p.Value
			}
			lines = append(lines, line)
		}
		lines = append(lines, ":END:")
	}

	return lines
}

// planningLine renders the planning entries. A line read from the file is
// kept as is until an entry changes.
func (h *Heading) planningLine() string {
	if !h.planningChanged && h.planningRaw != "" {
		return h.planningRaw
	}

	parts := make([]string, 0, len(h.planning)+1)
	for _, p := range h.planning {
		parts = append(parts, p.Keyword+": "+p.Timestamp)
	}
	if h.planningExtra != "" {
		parts = append(parts, h.planningExtra)
	}
	return strings.Join(parts, " ")
}

func priorityCookie(p string) string {
	if p == "" {
		return ""
	}
	return "[#" + p + "]"
}
