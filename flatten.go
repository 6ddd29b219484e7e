// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpwire

import (
	"bytes"

	"github.com/valyala/bytebufferpool"
)

// WriteV is the gather-list counterpart of Write: it accepts several
// disjoint buffers representing one logically contiguous run of new
// input (e.g. the segments handed back by a vectored socket read) and
// parses them as if they had been concatenated.
//
// A single-element bufs is passed straight to Write (no copy, the common
// case). For 2+ buffers the segments are flattened into a private,
// grow-only scratch buffer (p.flatten, a bytebufferpool.ByteBuffer reused
// across calls) since every low-level parsing primitive needs a single
// contiguous []byte to scan.
//
// The returned consumed count is expressed against the flattened total
// length (sum of len(bufs[i])); FlagSplitParse is set on p.Flags for the
// duration of this call so callers/tests can tell a flattening copy
// occurred.
func (p *Parser) WriteV(bufs [][]byte) (int, error) {
	switch len(bufs) {
	case 0:
		return 0, nil
	case 1:
		return p.Write(bufs[0])
	}
	p.flags |= FlagSplitParse
	defer func() { p.flags &^= FlagSplitParse }()

	if p.flatten == nil {
		p.flatten = new(bytebufferpool.ByteBuffer)
	}
	p.flatten.Reset()
	for _, b := range bufs {
		p.flatten.Write(b) // ByteBuffer.Write never errors
	}
	return p.Write(p.flatten.B)
}

// HeaderValue returns the normalized value of a header as reported by
// OnHeader: obs-folds (CRLF followed by SP/HTAB, RFC 7230 section 3.2.4)
// are replaced by a single SP, matching "received as if part of the
// value" in the RFC's note on obs-fold.
//
// If value does not contain a fold, this is a zero-copy slice of buf. If
// it does, the normalized bytes are copied into p.foldBuf (reused across
// calls -- the result is only valid until the next Write/WriteV call or
// the next HeaderValue call on a folded value, whichever comes first).
func (p *Parser) HeaderValue(buf []byte, value PField) []byte {
	raw := value.Get(buf)
	if !bytes.ContainsAny(raw, "\r\n") {
		return raw
	}
	if p.foldBuf == nil {
		p.foldBuf = new(bytebufferpool.ByteBuffer)
	}
	p.foldBuf.Reset()
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\r' || c == '\n' {
			// collapse the CRLF/LF/CR and the run of SP/HTAB that follows
			// (the fold's leading whitespace) into a single SP.
			for i < len(raw) && (raw[i] == '\r' || raw[i] == '\n') {
				i++
			}
			for i < len(raw) && isSPHT(raw[i]) {
				i++
			}
			p.foldBuf.WriteByte(' ')
			i--
			continue
		}
		p.foldBuf.WriteByte(c)
	}
	return p.foldBuf.B
}
