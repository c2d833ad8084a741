package org

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	headlineRe     = regexp.MustCompile(`^(\*+)[ \t]+(.*)$`)
	tagsRe         = regexp.MustCompile(`^(.*?)[ \t]+(:(?:[\w@#%]+:)+)[ \t]*$`)
	priorityRe     = regexp.MustCompile(`^\[#([A-Za-z0-9])\][ \t]*`)
	planningLineRe = regexp.MustCompile(`^[ \t]*(CLOSED|SCHEDULED|DEADLINE):`)
	planningRe     = regexp.MustCompile(`(CLOSED|SCHEDULED|DEADLINE):[ \t]*(<[^>]*>(?:--<[^>]*>)?|\[[^\]]*\](?:--\[[^\]]*\])?)`)
	drawerStartRe  = regexp.MustCompile(`(?i)^[ \t]*:PROPERTIES:[ \t]*$`)
	drawerEndRe    = regexp.MustCompile(`(?i)^[ \t]*:END:[ \t]*$`)
	propertyRe     = regexp.MustCompile(`^[ \t]*:([^ \t:]+):(?:[ \t]+(.*?))?[ \t]*$`)
	todoSettingRe  = regexp.MustCompile(`(?i)^#\+(?:SEQ_|TYP_)?TODO:(.*)$`)
)

const maxLineLength = 1024 * 1024

// Parse reads an org document. Keywords of todos, plus any declared by
// #+TODO lines before the first heading, are recognized as TODO keywords.
func Parse(r io.Reader, todos Todos) (*Document, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	doc := NewDocument(todos)

	i := 0
	for ; i < len(lines) && !headlineRe.MatchString(lines[i]); i++ {
		doc.Preamble = append(doc.Preamble, lines[i])
		if m := todoSettingRe.FindStringSubmatch(strings.TrimSpace(lines[i])); m != nil {
			doc.Todos = doc.Todos.Extend(m[1])
		}
	}

	// stack[k] is the most recent heading at depth k of the open path
	stack := []*Heading{doc.Root}
	for i < len(lines) {
		h, next, err := parseHeading(lines, i, doc.Todos)
		if err != nil {
			return nil, err
		}

		for len(stack) > 1 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		h.parent = parent
		parent.children = append(parent.children, h)
		stack = append(stack, h)

		i = next
	}

	return doc, nil
}

// parseHeading parses the heading starting at lines[start] and returns it
// along with the index of the first line after its body.
func parseHeading(lines []string, start int, todos Todos) (*Heading, int, error) {
	m := headlineRe.FindStringSubmatch(lines[start])
	h := &Heading{level: len(m[1])}
	parseHeadline(h, m[2], todos)

	i := start + 1
	if i < len(lines) && planningLineRe.MatchString(lines[i]) {
		for _, pm := range planningRe.FindAllStringSubmatch(lines[i], -1) {
			h.planning = append(h.planning, Planning{Keyword: pm[1], Timestamp: pm[2]})
		}
		h.planningRaw = lines[i]
		h.planningExtra = strings.TrimSpace(planningRe.ReplaceAllString(lines[i], ""))
		i++
	}

	if i < len(lines) && drawerStartRe.MatchString(lines[i]) {
		drawerStart := i
		i++
		for {
			if i >= len(lines) || headlineRe.MatchString(lines[i]) {
				return nil, 0, fmt.Errorf("line %d: unterminated property drawer", drawerStart+1)
			}
			if drawerEndRe.MatchString(lines[i]) {
				i++
				break
			}
			pm := propertyRe.FindStringSubmatch(lines[i])
			if pm == nil {
				return nil, 0, fmt.Errorf("line %d: malformed property %q", i+1, lines[i])
			}
			h.properties = append(h.properties, Property{Key: pm[1], Value: pm[2]})
			i++
		}
	}

	h.raw = append([]string(nil), lines[start:i]...)

	for i < len(lines) && !headlineRe.MatchString(lines[i]) {
		h.body = append(h.body, lines[i])
		i++
	}

	return h, i, nil
}

// parseHeadline splits the text after the stars into keyword, priority,
// title and tags.
func parseHeadline(h *Heading, text string, todos Todos) {
	text = strings.TrimRight(text, " \t")

	if m := tagsRe.FindStringSubmatch(text); m != nil {
		text = m[1]
		h.tags = strings.Split(strings.Trim(m[2], ":"), ":")
	}

	if fields := strings.Fields(text); len(fields) > 0 && todos.IsKeyword(fields[0]) {
		h.todo = fields[0]
		text = strings.TrimLeft(text[len(fields[0]):], " \t")
	}

	if m := priorityRe.FindStringSubmatch(text); m != nil {
		h.priority = m[1]
		text = text[len(m[0]):]
	}

	h.title = strings.TrimSpace(text)
}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return lines, nil
}
