package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes sampled when a record is written, e.g.
// the number of running combats.
type ContextProvider func() []slog.Attr

type roundKey struct{}

type roundScope struct {
	combatID int
	round    int
}

// WithRound returns a context whose log records carry the combat id and the
// round being resolved.
func WithRound(ctx context.Context, combatID, round int) context.Context {
	return context.WithValue(ctx, roundKey{}, roundScope{combatID: combatID, round: round})
}

// RoundFromContext returns the combat and round stored by WithRound.
func RoundFromContext(ctx context.Context) (combatID, round int, ok bool) {
	s, ok := ctx.Value(roundKey{}).(roundScope)
	return s.combatID, s.round, ok
}

// ContextHandler adds the provider's attributes and the round scope of the
// record context. Keys the record or the current group already carry are not
// repeated.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
	bound    map[string]bool // keys added by WithAttrs since the last group
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	var extra []slog.Attr
	if h.provider != nil {
		extra = h.provider()
	}
	if id, round, ok := RoundFromContext(ctx); ok {
		extra = append(extra, slog.Int("combatId", id), slog.Int("round", round))
	}
	if len(extra) == 0 {
		return h.inner.Handle(ctx, r)
	}

	seen := make(map[string]bool, len(h.bound)+r.NumAttrs())
	for k := range h.bound {
		seen[k] = true
	}
	r.Attrs(func(a slog.Attr) bool {
		seen[a.Key] = true
		return true
	})
	for _, a := range extra {
		if !seen[a.Key] {
			r.AddAttrs(a)
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make(map[string]bool, len(h.bound)+len(attrs))
	for k := range h.bound {
		bound[k] = true
	}
	for _, a := range attrs {
		bound[a.Key] = true
	}
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
		bound:    bound,
	}
}

// WithGroup starts a new level: keys bound outside the group no longer clash.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
	}
}
