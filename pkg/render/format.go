// Package render turns log entries into terminal text: single-line "simple"
// output and bordered boxes. Everything here is a pure function of its
// arguments; the logger decides what to render and where to write it.
package render

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/valyala/bytebufferpool"

	"github.com/rubiojr/tracekit/pkg/core"
)

// levelWidth is the width of the longest level name ("success"), so every tag
// lines up in a column.
const levelWidth = 7

// SimpleOptions controls single-line rendering.
type SimpleOptions struct {
	Timestamp bool
	Colors    bool
	Color     lipgloss.TerminalColor // level tag color, the level's own when nil
}

// DisplayTimestamp is the short local clock shown in simple lines.
func DisplayTimestamp(t time.Time) string {
	return t.Local().Format("15:04:05.000")
}

// FormatLevel renders the icon and the padded, upper-cased level name.
func FormatLevel(level core.Level, colors bool) string {
	return formatLevel(level, LevelColor(level), colors)
}

func formatLevel(level core.Level, color lipgloss.TerminalColor, colors bool) string {
	text := fmt.Sprintf("%-*s", levelWidth, Upper(level.String()))
	return LevelIcon(level) + " " + Colorize(text, color, colors)
}

// FormatSimple renders an entry on one line:
//
//	[15:04:05.000] ℹ️ INFO    [API] server ready {"port": 8080}
//
// The namespace tag is left out for the default namespace. Metadata, when
// present, follows the message as indented JSON.
func FormatSimple(entry core.Entry, opts SimpleOptions) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if opts.Timestamp {
		ts := entry.Time()
		if ts.IsZero() {
			ts = core.Now()
		}
		buf.WriteString(Colorize("["+DisplayTimestamp(ts)+"]", ColorGray, opts.Colors))
		buf.WriteByte(' ')
	}

	color := opts.Color
	if color == nil {
		color = LevelColor(entry.Level)
	}
	buf.WriteString(formatLevel(entry.Level, color, opts.Colors))

	if entry.Namespace != "" && entry.Namespace != core.DefaultNamespace {
		buf.WriteByte(' ')
		buf.WriteString(Colorize("["+entry.Namespace+"]", ColorBlue, opts.Colors))
	}

	buf.WriteByte(' ')
	buf.WriteString(entry.Message)

	if entry.HasMetadata() {
		buf.WriteByte(' ')
		buf.WriteString(Faint(core.FormatMetadata(entry.Metadata), opts.Colors))
	}

	return buf.String()
}

// BoxContent builds the lines shown inside a boxed entry: an optional
// timestamp line, the message line and, when metadata is present, a blank
// separator, a "Metadata:" label and the indented JSON.
func BoxContent(entry core.Entry, timestamp bool) []string {
	lines := make([]string, 0, 4)
	if timestamp {
		lines = append(lines, "🕐 "+entry.Timestamp)
	}
	lines = append(lines, "📝 "+entry.Message)
	if entry.HasMetadata() {
		lines = append(lines, "", "📋 Metadata:", core.FormatMetadata(entry.Metadata))
	}
	return lines
}

// DefaultTitle is the box title used when the caller does not provide one.
func DefaultTitle(entry core.Entry) string {
	return Upper(entry.Level.String()) + " - " + entry.Namespace
}
