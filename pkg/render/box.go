package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/valyala/bytebufferpool"
)

// ErrUnknownBorderStyle is returned when parsing an unsupported border style.
var ErrUnknownBorderStyle = errors.New("unknown border style")

// BorderStyle selects how boxed output is drawn.
type BorderStyle int

const (
	BorderRounded BorderStyle = iota
	BorderASCII
	BorderMinimal
)

func (s BorderStyle) String() string {
	switch s {
	case BorderRounded:
		return "rounded"
	case BorderASCII:
		return "ascii"
	case BorderMinimal:
		return "minimal"
	}
	return fmt.Sprintf("border(%d)", int(s))
}

// ParseBorderStyle parses "rounded", "ascii" or "minimal".
func ParseBorderStyle(s string) (BorderStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rounded":
		return BorderRounded, nil
	case "ascii":
		return BorderASCII, nil
	case "minimal":
		return BorderMinimal, nil
	}
	return BorderRounded, fmt.Errorf("%w: %q", ErrUnknownBorderStyle, s)
}

func (s BorderStyle) Valid() bool {
	return s >= BorderRounded && s <= BorderMinimal
}

func (s BorderStyle) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBorderStyle, int(s))
	}
	return []byte(s.String()), nil
}

func (s *BorderStyle) UnmarshalText(text []byte) error {
	parsed, err := ParseBorderStyle(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

var asciiBorder = lipgloss.Border{
	Top:         "-",
	Bottom:      "-",
	Left:        "|",
	Right:       "|",
	TopLeft:     "+",
	TopRight:    "+",
	BottomLeft:  "+",
	BottomRight: "+",
}

func (s BorderStyle) glyphs() lipgloss.Border {
	if s == BorderASCII {
		return asciiBorder
	}
	return lipgloss.RoundedBorder()
}

// BoxOptions are the per-box settings.
type BoxOptions struct {
	Title    string
	Color    lipgloss.TerminalColor // defaults to ColorBlue
	Centered bool
	MinWidth int // content width floor, ignored by the minimal style
}

// Box draws bordered (rounded, ascii) or borderless (minimal) blocks.
type Box struct {
	Style   BorderStyle
	Padding int
	Colors  bool
}

// NewBox returns a Box. Negative padding is treated as zero.
func NewBox(style BorderStyle, padding int, colors bool) *Box {
	if padding < 0 {
		padding = 0
	}
	return &Box{Style: style, Padding: padding, Colors: colors}
}

// Render draws lines inside a box. Lines containing newlines are split first
// so multi-line blocks (pretty JSON) stay inside the border.
func (b *Box) Render(lines []string, opts BoxOptions) string {
	if opts.Color == nil {
		opts.Color = ColorBlue
	}
	lines = splitLines(lines)
	if b.Style == BorderMinimal {
		return b.renderMinimal(lines, opts)
	}
	return b.renderBordered(lines, opts)
}

func (b *Box) renderBordered(lines []string, opts BoxOptions) string {
	g := b.Style.glyphs()

	contentWidth := opts.MinWidth
	if opts.Title != "" {
		contentWidth = max(contentWidth, lipgloss.Width(opts.Title))
	}
	for _, line := range lines {
		contentWidth = max(contentWidth, lipgloss.Width(line))
	}
	boxWidth := contentWidth + b.Padding*2
	if opts.Title != "" {
		// room for " title " plus at least one rule glyph on each side
		boxWidth = max(boxWidth, lipgloss.Width(opts.Title)+4)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if opts.Title != "" {
		space := max(boxWidth-lipgloss.Width(opts.Title)-2, 0)
		left := space / 2
		top := g.TopLeft + strings.Repeat(g.Top, left) + " " + opts.Title + " " + strings.Repeat(g.Top, space-left) + g.TopRight
		buf.WriteString(Colorize(top, opts.Color, b.Colors))
	} else {
		buf.WriteString(Colorize(g.TopLeft+strings.Repeat(g.Top, boxWidth)+g.TopRight, opts.Color, b.Colors))
	}
	buf.WriteByte('\n')

	side := Colorize(g.Left, opts.Color, b.Colors)
	for _, line := range lines {
		space := boxWidth - lipgloss.Width(line)
		left := b.Padding
		if opts.Centered {
			left = space / 2
		}
		buf.WriteString(side)
		buf.WriteString(strings.Repeat(" ", left))
		buf.WriteString(line)
		buf.WriteString(strings.Repeat(" ", max(space-left, 0)))
		buf.WriteString(side)
		buf.WriteByte('\n')
	}

	buf.WriteString(Colorize(g.BottomLeft+strings.Repeat(g.Bottom, boxWidth)+g.BottomRight, opts.Color, b.Colors))
	return buf.String()
}

// renderMinimal prints "=== TITLE ===" and indents the content. Centering
// doubles the indent rather than measuring the line.
func (b *Box) renderMinimal(lines []string, opts BoxOptions) string {
	pad := strings.Repeat(" ", b.Padding)
	out := make([]string, 0, len(lines)+1)
	if opts.Title != "" {
		out = append(out, Colorize("=== "+opts.Title+" ===", opts.Color, b.Colors))
	}
	for _, line := range lines {
		if opts.Centered {
			out = append(out, pad+pad+line+pad)
			continue
		}
		out = append(out, pad+line)
	}
	return strings.Join(out, "\n")
}

func splitLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, strings.Split(line, "\n")...)
	}
	return out
}
