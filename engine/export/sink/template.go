package sink

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-export/engine/export"
)

type tokenKind int

const (
	tokenLiteral tokenKind = iota
	tokenFrame
	tokenSource
	tokenID
	tokenBinding
)

type segment struct {
	kind    tokenKind
	literal string
	width   int
}

// PathTemplate expands per-frame output paths.
//
// Recognized tokens:
//   - {frame}: the frame number; {frame:05} pads it with zeros to five digits
//   - {source}: the source label, or its id when the label is empty
//   - {id}: the source id
//   - {binding}: the binding name
//
// A pattern without tokens names a fixed path that is overwritten every frame.
type PathTemplate struct {
	pattern  string
	segments []segment
}

// ParsePathTemplate parses a path pattern.
//
// Parameters:
//   - pattern: the path pattern
//
// Returns:
//   - *PathTemplate: the parsed template
//   - error: an error for an unknown token, bad width, or unbalanced brace
func ParsePathTemplate(pattern string) (*PathTemplate, error) {
	t := &PathTemplate{pattern: pattern}
	rest := pattern
	for len(rest) > 0 {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			t.segments = append(t.segments, segment{kind: tokenLiteral, literal: rest})
			break
		}
		if open > 0 {
			t.segments = append(t.segments, segment{kind: tokenLiteral, literal: rest[:open]})
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return nil, fmt.Errorf("path template %q: unclosed '{'", pattern)
		}
		seg, err := parseToken(rest[open+1 : open+end])
		if err != nil {
			return nil, fmt.Errorf("path template %q: %w", pattern, err)
		}
		t.segments = append(t.segments, seg)
		rest = rest[open+end+1:]
	}
	return t, nil
}

func parseToken(token string) (segment, error) {
	name, pad, hasPad := strings.Cut(token, ":")
	var seg segment
	switch name {
	case "frame":
		seg.kind = tokenFrame
	case "source":
		seg.kind = tokenSource
	case "id":
		seg.kind = tokenID
	case "binding":
		seg.kind = tokenBinding
	default:
		return seg, fmt.Errorf("unknown token {%s}", token)
	}
	if hasPad {
		if seg.kind != tokenFrame && seg.kind != tokenID {
			return seg, fmt.Errorf("token {%s} takes no width", name)
		}
		width, err := strconv.Atoi(pad)
		if err != nil || width < 0 || width > 20 {
			return seg, fmt.Errorf("bad width in {%s}", token)
		}
		seg.width = width
	}
	return seg, nil
}

// Pattern returns the pattern the template was parsed from.
func (t *PathTemplate) Pattern() string {
	return t.pattern
}

// Fixed reports whether the template contains no tokens.
func (t *PathTemplate) Fixed() bool {
	for _, s := range t.segments {
		if s.kind != tokenLiteral {
			return false
		}
	}
	return true
}

// Expand returns the path for a frame.
func (t *PathTemplate) Expand(frame export.Frame) string {
	var b strings.Builder
	for _, s := range t.segments {
		switch s.kind {
		case tokenLiteral:
			b.WriteString(s.literal)
		case tokenFrame:
			b.WriteString(padNumber(frame.Number, s.width))
		case tokenID:
			b.WriteString(padNumber(uint64(frame.Source), s.width))
		case tokenSource:
			if frame.Label == "" {
				b.WriteString(strconv.FormatUint(uint64(frame.Source), 10))
			} else {
				b.WriteString(sanitize(frame.Label))
			}
		case tokenBinding:
			b.WriteString(sanitize(frame.Binding))
		}
	}
	return b.String()
}

func padNumber(n uint64, width int) string {
	s := strconv.FormatUint(n, 10)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// sanitize keeps labels from introducing directories into expanded paths.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', 0:
			return '_'
		}
		return r
	}, s)
}
