package compiler

import (
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// DefaultMaxExprDepth is the maximum expression tree depth translation
// permits before failing with errs.Kind TooDeep (spec §5).
const DefaultMaxExprDepth = 256

// Options configures a single compile call. NewOptions returns the
// documented default policy; a zero Options is not equivalent to it (its
// MaxExprDepth of 0 rejects every expression).
type Options struct {
	MaxExprDepth int

	// AmbiguousColumnPolicy controls how an unqualified column matching
	// more than one source after a Join is resolved.
	AmbiguousColumnPolicy AmbiguousColumnPolicy

	// AllowCrossAsInnerTrue rewrites a Cross join into an Inner join
	// with a constant-true predicate instead of rejecting it outright.
	// Defaults false: spec §4.5's join table already says Cross is
	// rejected as unsupported (see SPEC_FULL.md's open-question
	// resolution).
	AllowCrossAsInnerTrue bool

	// Logger is carried with the options for callers; the compiler, sql
	// and substrait packages do not write to it. Schema cache hit/miss
	// logging lives on schema.MemoProvider's own logger.
	Logger *zap.Logger

	// TraceID is an opaque per-call identifier, a fresh ksuid by default,
	// independent of the program's content fingerprint. Nothing in this
	// module reads it.
	TraceID string
}

// Option mutates an Options value.
type Option func(*Options)

// NewOptions builds the default Options, applying opts in order.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		MaxExprDepth:           DefaultMaxExprDepth,
		AmbiguousColumnPolicy:  FirstOccurrence,
		AllowCrossAsInnerTrue:  false,
		Logger:                 zap.NewNop(),
		TraceID:                ksuid.New().String(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func WithMaxExprDepth(n int) Option {
	return func(o *Options) { o.MaxExprDepth = n }
}

func WithAmbiguousColumnPolicy(p AmbiguousColumnPolicy) Option {
	return func(o *Options) { o.AmbiguousColumnPolicy = p }
}

func WithAllowCrossAsInnerTrue(allow bool) Option {
	return func(o *Options) { o.AllowCrossAsInnerTrue = allow }
}

func WithLogger(log *zap.Logger) Option {
	return func(o *Options) { o.Logger = log }
}

func WithTraceID(id string) Option {
	return func(o *Options) { o.TraceID = id }
}
