// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpwire

// Role fixes, at construction time, whether a Parser reads requests or
// responses. Unlike the teacher's first-line auto-sniffing (matching the
// "HTTP/" prefix to tell requests from replies), a Parser here never
// guesses: role is a construction-time parameter, since a single
// connection's read direction is known in advance by the caller.
type Role uint8

const (
	// RoleRequest parses request messages (method SP target SP version).
	RoleRequest Role = iota
	// RoleResponse parses response (status-line) messages.
	RoleResponse
)

func (r Role) String() string {
	if r == RoleResponse {
		return "response"
	}
	return "request"
}

// Flags records the framing and connection-state bits accumulated while
// parsing a single message, mirroring RFC 7230's framing decision table
// (section 3.3.3) as a compact bitset instead of scattered booleans.
type Flags uint32

const (
	FlagGotSome        Flags = 1 << iota // start line fully parsed
	FlagHaveHeader                       // header block fully parsed
	FlagHTTP11                           // version is HTTP/1.1 or later (vs 1.0)
	FlagNeedEOF                          // body framed by connection close
	FlagContentLength                    // Content-Length framing selected
	FlagChunked                          // Transfer-Encoding: chunked selected
	FlagExpectCRLF                       // mid chunk, expecting trailing CRLF (never set by Parser)
	FlagFinalChunk                       // last-chunk (size 0) seen
	FlagUpgrade                          // Upgrade header present
	FlagConnClose                        // Connection: close seen
	FlagConnKeepAlive                    // Connection: keep-alive seen
	FlagConnUpgrade                      // Connection: upgrade seen
	FlagSkipBody                         // caller asserted no body (HEAD, etc)
	FlagPauseBody                        // body parsing paused (never set by Parser)
	FlagSplitParse                       // multi-buffer WriteV flatten was used
	FlagDone                             // message fully parsed
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// Callbacks receives parse events from a Parser. Every PField argument is
// a zero-copy view into the buf also passed to the same call: it is valid
// only for the duration of the callback (do not retain it past return;
// copy the bytes out via buf[..] if you need them later). Returning a
// non-nil error aborts parsing: the Write (or End) that made the call
// returns that error unchanged, the Parser enters the sticky-error state
// and every subsequent Write returns the same error without consuming
// any bytes.
type Callbacks interface {
	// OnRequest fires once the request line is fully parsed.
	OnRequest(buf []byte, method HTTPMethod, target, version PField) error
	// OnResponse fires once the status line is fully parsed.
	OnResponse(buf []byte, version PField, status uint16, reason PField) error
	// OnField fires for the name of each parsed header, before OnHeader.
	OnField(buf []byte, name PField) error
	// OnHeader fires once a header's value is fully parsed (name repeated
	// for convenience; value spans the raw, possibly obs-folded bytes --
	// use (*Parser).HeaderValue to get a normalized, fold-free copy).
	OnHeader(buf []byte, name, value PField) error
	// OnChunk fires once a chunk-size line (and any chunk-extension) is
	// parsed, before the chunk's data bytes. size == 0 marks the last
	// chunk; ext is the raw chunk-extension text (may be empty).
	OnChunk(buf []byte, size uint64, ext PField) error
	// OnBody fires for each contiguous run of body data made available by
	// a single Write call (Content-Length, chunked chunk-data, or
	// EOF-delimited body). last is true on the call that delivers the
	// final byte of a Content-Length body, and on the empty call End makes
	// to complete an EOF-delimited body. Chunk data is always reported
	// with last == false; the end of a chunked body is marked by OnChunk
	// with size == 0.
	OnBody(buf []byte, data PField, last bool) error
}

// NopCallbacks is a Callbacks implementation that does nothing; embed it
// to implement only the callbacks a caller cares about.
type NopCallbacks struct{}

func (NopCallbacks) OnRequest(buf []byte, method HTTPMethod, target, version PField) error {
	return nil
}
func (NopCallbacks) OnResponse(buf []byte, version PField, status uint16, reason PField) error {
	return nil
}
func (NopCallbacks) OnField(buf []byte, name PField) error                 { return nil }
func (NopCallbacks) OnHeader(buf []byte, name, value PField) error         { return nil }
func (NopCallbacks) OnChunk(buf []byte, size uint64, ext PField) error     { return nil }
func (NopCallbacks) OnBody(buf []byte, data PField, last bool) error       { return nil }
