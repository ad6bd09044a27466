package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rubiojr/tracekit/pkg/core"
)

// Basic ANSI palette indices. lipgloss maps them to SGR 30-37 / 90-97 under
// the ANSI profile.
const (
	ColorRed       = lipgloss.Color("1")
	ColorGreen     = lipgloss.Color("2")
	ColorYellow    = lipgloss.Color("3")
	ColorBlue      = lipgloss.Color("4")
	ColorMagenta   = lipgloss.Color("5")
	ColorCyan      = lipgloss.Color("6")
	ColorGray      = lipgloss.Color("8")
	ColorBrightRed = lipgloss.Color("9")
)

// ansi renders with a fixed 16-color profile. Colors are an explicit setting
// of the logger, not something inferred from the attached terminal.
var ansi = func() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.ANSI)
	return r
}()

var upper = cases.Upper(language.Und)

var levelColors = map[core.Level]lipgloss.Color{
	core.LevelDebug:   ColorCyan,
	core.LevelTrace:   ColorMagenta,
	core.LevelInfo:    ColorBlue,
	core.LevelSuccess: ColorGreen,
	core.LevelWarn:    ColorYellow,
	core.LevelError:   ColorRed,
	core.LevelFatal:   ColorBrightRed,
}

var levelIcons = map[core.Level]string{
	core.LevelDebug:   "🐛",
	core.LevelTrace:   "🔍",
	core.LevelInfo:    "ℹ️",
	core.LevelSuccess: "✅",
	core.LevelWarn:    "⚠️",
	core.LevelError:   "❌",
	core.LevelFatal:   "💀",
}

// LevelColor returns the color assigned to a level, blue for unknown levels.
func LevelColor(l core.Level) lipgloss.Color {
	if c, ok := levelColors[l]; ok {
		return c
	}
	return ColorBlue
}

// LevelIcon returns the icon shown in front of a level tag.
func LevelIcon(l core.Level) string {
	return levelIcons[l]
}

// Colorize paints s with the foreground color when enabled is true. Each line
// is styled on its own so lipgloss does not pad multi-line text into a block.
func Colorize(s string, color lipgloss.TerminalColor, enabled bool) string {
	return paint(ansi.NewStyle().Foreground(color), s, enabled)
}

// Faint renders s dimmed.
func Faint(s string, enabled bool) string {
	return paint(ansi.NewStyle().Faint(true), s, enabled)
}

func paint(style lipgloss.Style, s string, enabled bool) string {
	if !enabled || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// Upper upper-cases level names and titles.
func Upper(s string) string {
	return upper.String(s)
}
