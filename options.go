// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpwire

// config holds the resolved set of Options for a Parser.
type config struct {
	skipBody      bool
	headerMaxSize int // 0 == unlimited
	bodyMaxSize   int64
	prevMethod    HTTPMethod // previous request method, for response framing
}

func defaultConfig() config {
	return config{
		headerMaxSize: 16 * 1024,
		bodyMaxSize:   0, // unlimited
		prevMethod:    MUndef,
	}
}

// Option configures a Parser at construction time (or via SetOption).
// Shaped like go.uber.org/zap.Option: a closure applied to the internal
// config rather than a struct-of-bools passed to New.
type Option func(*config)

// WithSkipBody instructs the Parser to never parse a body, regardless of
// framing (the caller asserts no body will follow, e.g. it already knows
// this is a response to a HEAD request).
func WithSkipBody(skip bool) Option {
	return func(c *config) { c.skipBody = skip }
}

// WithHeaderMaxSize bounds the cumulative size of the header block
// (start line + all header lines) a Parser will accept before failing
// with ErrHeaderTooLarge. 0 means unlimited.
func WithHeaderMaxSize(n int) Option {
	return func(c *config) { c.headerMaxSize = n }
}

// WithBodyMaxSize bounds the body size a Parser will accept (checked
// against Content-Length and against the running total of chunked body
// bytes) before failing with ErrBodyTooLarge. 0 means unlimited.
func WithBodyMaxSize(n int64) Option {
	return func(c *config) { c.bodyMaxSize = n }
}

// WithPrevMethod tells a RoleResponse Parser which request method this
// response answers, needed to apply the HEAD/CONNECT framing special
// cases of RFC 7230 section 3.3.3. Ignored for RoleRequest parsers.
func WithPrevMethod(m HTTPMethod) Option {
	return func(c *config) { c.prevMethod = m }
}

// SetOption applies additional Options to an already constructed Parser.
// Safe to call between messages (after Reset). Mid-message, a changed
// headerMaxSize applies to header bytes not yet checked, a changed
// bodyMaxSize to chunk-size lines not yet parsed (a Content-Length is
// checked only once, when the header block completes), and a changed
// skip-body setting to a header block not yet complete.
func (p *Parser) SetOption(opts ...Option) {
	for _, o := range opts {
		o(&p.cfg)
	}
	if p.cfg.skipBody {
		p.flags |= FlagSkipBody
	} else {
		p.flags &^= FlagSkipBody
	}
}
