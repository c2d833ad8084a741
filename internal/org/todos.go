package org

import "strings"

// Todos is the TODO keyword vocabulary of a document.
// Both maps go from a state name (e.g. "done") to the keyword written in
// the file (e.g. "DONE").
type Todos struct {
	TodoStates map[string]string
	DoneStates map[string]string
}

// NewTodos copies the given state maps into a new vocabulary.
func NewTodos(todoStates, doneStates map[string]string) Todos {
	t := Todos{
		TodoStates: make(map[string]string, len(todoStates)),
		DoneStates: make(map[string]string, len(doneStates)),
	}
	for name, kw := range todoStates {
		t.TodoStates[name] = kw
	}
	for name, kw := range doneStates {
		t.DoneStates[name] = kw
	}
	return t
}

// TodoKeyword returns the keyword of an open state, or "" if unknown.
func (t Todos) TodoKeyword(name string) string {
	return t.TodoStates[name]
}

// DoneKeyword returns the keyword of a done state, or "" if unknown.
func (t Todos) DoneKeyword(name string) string {
	return t.DoneStates[name]
}

// IsTodo reports whether keyword is one of the open states.
func (t Todos) IsTodo(keyword string) bool {
	return containsValue(t.TodoStates, keyword)
}

// IsDone reports whether keyword is one of the done states.
func (t Todos) IsDone(keyword string) bool {
	return containsValue(t.DoneStates, keyword)
}

// IsKeyword reports whether keyword belongs to the vocabulary at all.
func (t Todos) IsKeyword(keyword string) bool {
	return keyword != "" && (t.IsTodo(keyword) || t.IsDone(keyword))
}

// Extend returns a copy of the vocabulary with the keywords declared by an
// in-buffer setting such as "#+TODO: TODO NEXT(n) | DONE(d!) CANCELLED".
// Without a "|" the last keyword is the done state.
func (t Todos) Extend(declaration string) Todos {
	out := NewTodos(t.TodoStates, t.DoneStates)

	fields := strings.Fields(declaration)
	if len(fields) == 0 {
		return out
	}

	split := -1
	for i, f := range fields {
		if f == "|" {
			split = i
			break
		}
	}

	var todo, done []string
	if split >= 0 {
		todo, done = fields[:split], fields[split+1:]
	} else {
		todo, done = fields[:len(fields)-1], fields[len(fields)-1:]
	}

	for _, f := range todo {
		out.add(out.TodoStates, stripFastKey(f))
	}
	for _, f := range done {
		if f == "|" {
			continue
		}
		out.add(out.DoneStates, stripFastKey(f))
	}
	return out
}

// add records keyword under its lower-cased name, never replacing a name
// that is already bound to another keyword.
func (t Todos) add(states map[string]string, keyword string) {
	if t.IsKeyword(keyword) {
		return
	}
	for _, name := range []string{strings.ToLower(keyword), keyword} {
		if _, taken := states[name]; !taken {
			states[name] = keyword
			return
		}
	}
}

// stripFastKey drops the "(x)" selection key suffix from a keyword.
func stripFastKey(f string) string {
	if i := strings.IndexByte(f, '('); i > 0 && strings.HasSuffix(f, ")") {
		return f[:i]
	}
	return f
}

func containsValue(m map[string]string, v string) bool {
	for _, kw := range m {
		if kw == v {
			return true
		}
	}
	return false
}
