package tracekit

import (
	"maps"

	"github.com/charmbracelet/lipgloss"

	"github.com/rubiojr/tracekit/pkg/render"
)

// CallOption adjusts a single log call. Values set here win over the
// logger's defaults.
type CallOption func(*callConfig)

type callConfig struct {
	boxed       *bool
	borderStyle *render.BorderStyle
	title       *string
	padding     *int
	centered    bool
	skipRemote  bool
	color       lipgloss.TerminalColor
	metadata    map[string]any
	namespace   string
}

func newCallConfig(opts []CallOption) callConfig {
	var cc callConfig
	for _, opt := range opts {
		opt(&cc)
	}
	return cc
}

// Boxed renders the entry as a box (or as a single line when false).
func Boxed(boxed bool) CallOption {
	return func(cc *callConfig) { cc.boxed = &boxed }
}

func WithBorderStyle(style render.BorderStyle) CallOption {
	return func(cc *callConfig) { cc.borderStyle = &style }
}

func WithTitle(title string) CallOption {
	return func(cc *callConfig) { cc.title = &title }
}

func WithPadding(padding int) CallOption {
	return func(cc *callConfig) { cc.padding = &padding }
}

// Centered centers box content.
func Centered() CallOption {
	return func(cc *callConfig) { cc.centered = true }
}

// SkipRemote keeps the entry local.
func SkipRemote() CallOption {
	return func(cc *callConfig) { cc.skipRemote = true }
}

// WithColor overrides the level color of the box or level tag.
func WithColor(color lipgloss.TerminalColor) CallOption {
	return func(cc *callConfig) { cc.color = color }
}

// InNamespace logs this entry under ns instead of the configured namespace.
func InNamespace(ns string) CallOption {
	return func(cc *callConfig) { cc.namespace = ns }
}

// WithMetadata attaches metadata. Repeated use merges the maps, later keys
// winning.
func WithMetadata(md map[string]any) CallOption {
	return func(cc *callConfig) {
		if len(md) == 0 {
			return
		}
		if cc.metadata == nil {
			cc.metadata = make(map[string]any, len(md))
		}
		maps.Copy(cc.metadata, md)
	}
}
