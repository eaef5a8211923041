// Package extract is the built-in traversal driver for C and C++. It parses a
// file with tree-sitter and reports what it finds as index events.
//
// Extraction runs in two passes over the syntax tree. The first collects every
// type, function and namespace-scope variable so that uses appearing before
// their declaration still resolve. The second walks the tree in source order
// and emits declarations, definitions, uses and edges.
package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jward/xref/internal/index"
	"github.com/jward/xref/internal/slogutil"
)

// Sink receives extraction events. *index.File satisfies it.
type Sink interface {
	Handle(ev index.Event) error
}

// Extractor turns C and C++ source into index events.
type Extractor struct {
	logger     *slog.Logger
	uniqueUses bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger for parse warnings and dropped events.
func WithLogger(l *slog.Logger) Option {
	return func(x *Extractor) {
		x.logger = l
	}
}

// WithUniqueUses marks reference and call events as unique, so a location is
// recorded at most once per symbol.
func WithUniqueUses(unique bool) Option {
	return func(x *Extractor) {
		x.uniqueUses = unique
	}
}

// New returns an Extractor. Without WithLogger it logs nothing.
func New(opts ...Option) *Extractor {
	x := &Extractor{logger: slogutil.NewDiscardLogger()}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Result summarizes one extraction.
type Result struct {
	Language string
	Events   int
	Dropped  int
	// SyntaxErrors is set when tree-sitter recovered from errors in the input.
	SyntaxErrors bool
}

// Extract parses src as the language implied by path and reports its symbols
// to sink. Events the sink rejects are counted and logged, not returned.
func (x *Extractor) Extract(ctx context.Context, path string, src []byte, sink Sink) (Result, error) {
	lang, ok := LanguageForFile(path)
	if !ok {
		return Result{}, fmt.Errorf("extract %s: no language for extension", path)
	}
	return x.ExtractLanguage(ctx, lang, path, src, sink)
}

// ExtractLanguage is Extract with an explicit language.
func (x *Extractor) ExtractLanguage(ctx context.Context, lang, path string, src []byte, sink Sink) (Result, error) {
	res := Result{Language: lang}
	tree, err := Parse(ctx, lang, src)
	if err != nil {
		return res, fmt.Errorf("extract %s: %w", path, err)
	}
	root := tree.RootNode()
	if root.HasError() {
		res.SyntaxErrors = true
		x.logger.Warn("syntax errors, extracting what parsed", "path", path)
	}

	syms := newSymbols()
	col := &collector{src: src, syms: syms}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		col.walk(root.NamedChild(i), nil, nil)
	}
	syms.finalize()

	em := &emitter{x: x, path: path, src: src, syms: syms, sink: sink}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		em.walk(root.NamedChild(i), nil, nil)
	}

	res.Events, res.Dropped = em.events, em.dropped
	x.logger.Debug("extracted", "path", path, "lang", lang, "events", res.Events, "dropped", res.Dropped)
	return res, nil
}
