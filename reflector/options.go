package reflector

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	name       string
	logger     *slog.Logger
	pageLimit  int64
	bookmarks  bool
	registerer prometheus.Registerer
}

func defaultOptions() options {
	return options{
		name:      "reflector",
		logger:    slog.Default(),
		bookmarks: true,
	}
}

// Option configures a Reflector at construction time.
type Option func(*options)

// WithName sets the name used in log attributes and metric labels.
// Defaults to "reflector".
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithPageLimit caps the page size requested during relists. Zero, the
// default, lets the server choose.
func WithPageLimit(limit int64) Option {
	return func(o *options) { o.pageLimit = limit }
}

// WithBookmarks controls whether watch calls request bookmark events.
// Enabled by default; bookmarks keep the resume point fresh across quiet
// periods.
func WithBookmarks(enabled bool) Option {
	return func(o *options) { o.bookmarks = enabled }
}

// WithMetrics registers the Reflector's collectors with reg. Without this
// option no metrics are collected.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}
