// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpwire

import (
	"github.com/intuitivelabs/bytescase"
	"github.com/valyala/bytebufferpool"
)

// phase tracks which production a Parser is currently working through.
// Unlike PMsgIState (the teacher's message-level state, which persists
// absolute PField offsets across Write calls) phase carries no buffer
// offsets: everything that must survive a call boundary is either a
// small resumable scan counter (skip, hdrScan, ...) or a running byte
// count (bodyRemaining), both of which stay valid no matter how the
// caller slides its unconsumed-data window between calls.
type phase uint8

const (
	phaseStartLine phase = iota
	phaseHeaders
	phaseNoBody
	phaseBodyCLen
	phaseBodyEOF
	phaseChunkSize
	phaseChunkData
	phaseChunkCRLF
	phaseTrailers
	phaseDone
)

// Parser incrementally parses one HTTP/1.x message (request or response,
// fixed at construction) out of a byte stream the caller owns. It never
// reads from a socket itself: the caller feeds bytes via Write/WriteV and
// receives parsed fields through Callbacks.
//
// Write's contract: buf is the entire currently-unconsumed input (index 0
// is always the first byte the Parser hasn't seen a verdict on yet); the
// returned consumed count is how much of buf may be dropped before the
// next call (any remainder must be re-presented, unchanged, at index 0,
// with new bytes appended after it).
type Parser struct {
	role Role
	cb   Callbacks
	cfg  config

	flags Flags
	err   error
	phase phase

	// start-line / header-block terminator search state (byte counts
	// only, never buffer offsets -- see phase's doc comment).
	skip         int
	hdrScan      int
	hdrLineEmpty bool
	headerBytes  int // cumulative header-block bytes seen so far

	fl PFLine
	hl HdrLst
	pv PHdrVals

	hdrsArray [16]Hdr

	bodyRemaining int64
	bodySent      int64

	upgradeProtos UpgProtoT // union of resolved Upgrade header protocols
	wsProtos      WSProtoT  // union of resolved Sec-WebSocket-Protocol values

	flatten *bytebufferpool.ByteBuffer // gather-list flatten scratch (§WriteV)
	foldBuf *bytebufferpool.ByteBuffer // obs-fold normalization scratch (HeaderValue)
}

// New creates a Parser for the given role, delivering events to cb.
func New(role Role, cb Callbacks, opts ...Option) *Parser {
	p := &Parser{role: role, cb: cb, cfg: defaultConfig()}
	for _, o := range opts {
		o(&p.cfg)
	}
	p.hl.Hdrs = p.hdrsArray[:]
	p.hdrLineEmpty = true
	if p.cfg.skipBody {
		p.flags |= FlagSkipBody
	}
	return p
}

// Reset prepares the Parser for a new message on the same connection,
// preserving Role, Callbacks and Options (cfg.prevMethod is left as-is;
// callers tracking a request/response pipeline should call WithPrevMethod
// again via SetOption right after Reset if the method changed).
func (p *Parser) Reset() {
	role, cb, cfg := p.role, p.cb, p.cfg
	flatten, foldBuf := p.flatten, p.foldBuf
	*p = Parser{role: role, cb: cb, cfg: cfg, flatten: flatten, foldBuf: foldBuf}
	p.hl.Hdrs = p.hdrsArray[:]
	p.hdrLineEmpty = true
	if cfg.skipBody {
		p.flags |= FlagSkipBody
	}
}

// Flags returns the framing/connection flags accumulated so far.
func (p *Parser) Flags() Flags { return p.flags }

// Done returns true once the current message has been fully parsed.
func (p *Parser) Done() bool { return p.phase == phaseDone }

// NeedMore reports whether the Parser is waiting for more input: it
// has neither finished the message nor failed.
func (p *Parser) NeedMore() bool { return p.err == nil && p.phase != phaseDone }

// StatusCode returns the parsed reply status code (0 for a request, or
// before the status line has been parsed).
func (p *Parser) StatusCode() uint16 { return p.fl.Status }

// HTTPMajor returns the parsed major HTTP version number (e.g. 1 for
// both HTTP/1.0 and HTTP/1.1), or 0 before the first line has parsed.
func (p *Parser) HTTPMajor() uint8 { return p.fl.VerMajor }

// HTTPMinor returns the parsed minor HTTP version number (e.g. 1 for
// HTTP/1.1, 0 for HTTP/1.0), or 0 before the first line has parsed.
func (p *Parser) HTTPMinor() uint8 { return p.fl.VerMinor }

// ContentLength returns the Content-Length header's parsed value and
// true, or (0, false) if the message carries no Content-Length (e.g. it
// is chunked, has no body, or is EOF-delimited).
func (p *Parser) ContentLength() (int64, bool) {
	if !p.hl.PFlags.Test(HdrCLen) {
		return 0, false
	}
	return int64(p.pv.CLen.UIVal), true
}

// NeedsEOF reports whether the body (if any) is delimited by connection
// close rather than Content-Length or chunked Transfer-Encoding.
func (p *Parser) NeedsEOF() bool { return p.flags.Has(FlagNeedEOF) }

// Upgrade reports whether an Upgrade header was seen on this message.
func (p *Parser) Upgrade() bool { return p.flags.Has(FlagUpgrade) }

// HaveHeader reports whether the header block has been fully parsed.
func (p *Parser) HaveHeader() bool { return p.flags.Has(FlagHaveHeader) }

// KeepAlive reports whether the connection should stay open after this
// message, per RFC 7230 section 6.3: HTTP/1.1 defaults to keep-alive
// unless a Connection: close token was seen; HTTP/1.0 defaults to NOT
// keep-alive unless a Connection: keep-alive token was seen explicitly;
// an EOF-delimited body is never keep-alive regardless of version or
// Connection tokens, since there is no way to frame a following message.
func (p *Parser) KeepAlive() bool {
	if p.flags.Has(FlagNeedEOF) {
		return false
	}
	if p.flags.Has(FlagConnClose) {
		return false
	}
	if p.flags.Has(FlagHTTP11) {
		return true
	}
	return p.flags.Has(FlagConnKeepAlive)
}

// Write feeds new input to the Parser. See the Parser doc comment for the
// sliding-window contract. It returns the number of bytes consumed
// (safe to drop from the front of buf before the next call) and, on
// failure, a non-nil error: for a grammar or framing failure one that
// wraps an *Error (inspect via errors.Is against the package's Err*
// sentinels), for a failing callback that callback's own error,
// unchanged. Once an error has been returned, every subsequent Write
// returns the same error and consumes 0 bytes.
func (p *Parser) Write(buf []byte) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	pos := 0
	for {
		switch p.phase {
		case phaseStartLine:
			n, ok, err := p.stepStartLine(buf, pos)
			if err != nil {
				return p.fail(err)
			}
			if !ok {
				return pos, nil
			}
			pos = n
		case phaseHeaders:
			n, ok, err := p.stepHeaders(buf, pos)
			if err != nil {
				return p.fail(err)
			}
			if !ok {
				return pos, nil
			}
			pos = n
		case phaseNoBody:
			p.phase = phaseDone
			p.flags |= FlagDone
		case phaseBodyCLen:
			n, ok := p.stepBodyCLen(buf, pos)
			if p.err != nil {
				return 0, p.err
			}
			pos = n
			if !ok {
				return pos, nil
			}
		case phaseBodyEOF:
			n := p.stepBodyEOF(buf, pos)
			if p.err != nil {
				return 0, p.err
			}
			return n, nil
		case phaseChunkSize:
			n, ok, err := p.stepChunkSize(buf, pos)
			if err != nil {
				return p.fail(err)
			}
			if !ok {
				return pos, nil
			}
			pos = n
		case phaseChunkData:
			n, ok := p.stepChunkData(buf, pos)
			if p.err != nil {
				return 0, p.err
			}
			pos = n
			if !ok {
				return pos, nil
			}
		case phaseChunkCRLF:
			n, ok, err := p.stepChunkCRLF(buf, pos)
			if err != nil {
				return p.fail(err)
			}
			if !ok {
				return pos, nil
			}
			pos = n
		case phaseTrailers:
			n, ok, err := p.stepHeaders(buf, pos)
			if err != nil {
				return p.fail(err)
			}
			if !ok {
				return pos, nil
			}
			pos = n
			p.phase = phaseDone
			p.flags |= FlagDone
		case phaseDone:
			return pos, nil
		}
	}
}

// End signals that no more input will ever arrive (e.g. the connection
// was closed). It is only meaningful while a body is being collected: an
// EOF-delimited body (phaseBodyEOF) is only "complete" once End is
// called; any other in-progress phase means the message was truncated
// and End returns ErrPartialMessage.
func (p *Parser) End() error {
	if p.err != nil {
		return p.err
	}
	switch p.phase {
	case phaseDone:
		return nil
	case phaseBodyEOF:
		if err := p.cb.OnBody(nil, PField{}, true); err != nil {
			_, e := p.fail(withOffset(&Error{Kind: KindBug}, 0))
			_ = e
			p.err = err
			return err
		}
		p.phase = phaseDone
		p.flags |= FlagDone
		return nil
	default:
		_, err := p.fail(withOffset(ErrPartialMessage, 0))
		return err
	}
}

func (p *Parser) fail(err error) (int, error) {
	p.err = err
	return 0, err
}

// stepStartLine searches for the request/status-line terminator starting
// at buf[pos+p.skip:] (a plain byte scan, resumable via p.skip alone);
// once found, the whole line is known to be present and is hand off, in
// a single non-resumable pass, to ParseFLine (parse_fline.go) -- whose
// own resumable state machine never actually pauses here, since nothing
// it touches can run past the terminator we already located.
func (p *Parser) stepStartLine(buf []byte, pos int) (int, bool, error) {
	window := buf[pos:]
	_, _, found := findCRLF(window, p.skip)
	if !found {
		p.skip = len(window)
		if p.cfg.headerMaxSize > 0 && p.skip > p.cfg.headerMaxSize {
			return 0, false, withOffset(ErrHeaderTooLarge, pos+p.skip)
		}
		return 0, false, nil
	}
	p.fl.Reset()
	n, err := ParseFLine(buf, pos, &p.fl, p.role)
	if err != 0 {
		return 0, false, fromGrammar(err, flineCtx(p.fl.state), pos)
	}
	p.skip = 0
	p.headerBytes = n - pos
	if p.cfg.headerMaxSize > 0 && p.headerBytes > p.cfg.headerMaxSize {
		return 0, false, withOffset(ErrHeaderTooLarge, pos)
	}
	p.flags |= FlagGotSome
	if p.fl.VerMajor > 1 || (p.fl.VerMajor == 1 && p.fl.VerMinor >= 1) {
		p.flags |= FlagHTTP11
	}
	if p.role == RoleRequest {
		if e := p.cb.OnRequest(buf, p.fl.MethodNo, p.fl.URI, p.fl.Version); e != nil {
			return 0, false, e
		}
	} else {
		if e := p.cb.OnResponse(buf, p.fl.Version, p.fl.Status, p.fl.Reason); e != nil {
			return 0, false, e
		}
	}
	p.phase = phaseHeaders
	return n, true, nil
}

// flineCtx maps the PFLine internal state active when ParseFLine failed
// to the fieldCtx fromGrammar needs to pick the right public Kind.
func flineCtx(state uint8) fieldCtx {
	switch state {
	case flReqMethod:
		return ctxMethod
	case flReqURI:
		return ctxPath
	case flReqVer, flCRLF:
		return ctxVersion
	case flRplStatus:
		return ctxStatus
	case flRplReason:
		return ctxReason
	default:
		return ctxVersion
	}
}

// findCRLF searches window[from:] for a line terminator (CRLF or bare
// LF). It returns the offset of the terminator's first byte and its
// length.
func findCRLF(window []byte, from int) (int, int, bool) {
	for i := from; i < len(window); i++ {
		switch window[i] {
		case '\n':
			if i > 0 && window[i-1] == '\r' {
				// resumed just past a CR seen on an earlier call
				return i - 1, 2, true
			}
			return i, 1, true
		case '\r':
			if i+1 < len(window) && window[i+1] == '\n' {
				return i, 2, true
			}
		}
	}
	return 0, 0, false
}

// stepHeaders looks for the end of the (obs-fold aware) header block
// starting at buf[pos+p.hdrScan:]; once the whole block is present it is
// handed, in one shot, to the teacher's ParseHeaders/ParseHdrLine grammar
// (parse_headers.go), which never needs to resume mid-block here since
// everything it will touch is guaranteed already in buf.
func (p *Parser) stepHeaders(buf []byte, pos int) (int, bool, error) {
	end, found := p.scanHeaderBlockEnd(buf, pos)
	if !found {
		if p.cfg.headerMaxSize > 0 &&
			p.headerBytes+p.hdrScan > p.cfg.headerMaxSize {
			return 0, false, withOffset(ErrHeaderTooLarge, pos+p.hdrScan)
		}
		return 0, false, nil
	}
	p.headerBytes += end - pos
	if p.cfg.headerMaxSize > 0 && p.headerBytes > p.cfg.headerMaxSize {
		return 0, false, withOffset(ErrHeaderTooLarge, pos)
	}
	first := p.hl.N // trailers are appended after the header block's fields
	n, err := ParseHeaders(buf, pos, &p.hl, &p.pv)
	if err != 0 && err != ErrHdrEmpty {
		return 0, false, fromGrammar(err, ctxFieldValue, n)
	}
	count := p.hl.N
	if count > len(p.hl.Hdrs) {
		count = len(p.hl.Hdrs)
	}
	if p.phase != phaseTrailers {
		if e := checkDuplicateFramingHeaders(p.hl.Hdrs[:count], pos); e != nil {
			return 0, false, e
		}
	}
	for i := first; i < count; i++ {
		h := &p.hl.Hdrs[i]
		if h.Type == HdrConnection {
			p.scanConnectionTokens(buf, h.Val)
		}
		if h.Type == HdrUpgrade {
			p.flags |= FlagUpgrade
			p.scanUpgradeProtocols(buf, h.Val)
		}
		if h.Type == HdrWSockProto {
			var pp PWSProto
			ParseAllWSProtoValues(buf, int(h.Val.Offs), &pp)
			p.wsProtos |= pp.Protos
		}
		if h.Type == HdrTrEncoding && p.phase != phaseTrailers {
			if e := p.scanTransferEncoding(buf, h.Val); e != nil {
				return 0, false, e
			}
		}
		if e := p.cb.OnField(buf, h.Name); e != nil {
			return 0, false, e
		}
		if e := p.cb.OnHeader(buf, h.Name, h.Val); e != nil {
			return 0, false, e
		}
	}
	p.flags |= FlagHaveHeader
	p.hdrScan = 0
	p.hdrLineEmpty = true
	if p.phase == phaseTrailers {
		return n, true, nil
	}
	if e := p.decideBodyFraming(); e != nil {
		return 0, false, e
	}
	return n, true, nil
}

// checkDuplicateFramingHeaders rejects a second Content-Length or
// Transfer-Encoding header occurrence (RFC 7230 section 3.3.3): PFlags is
// only a presence bitmask, so it can't tell "seen once" from "seen
// twice" -- a duplicate has to be caught by counting Hdr.Type occurrences
// across the parsed header list instead.
func checkDuplicateFramingHeaders(hdrs []Hdr, pos int) error {
	var clen, trenc int
	for i := range hdrs {
		switch hdrs[i].Type {
		case HdrCLen:
			clen++
		case HdrTrEncoding:
			trenc++
		}
	}
	if clen > 1 {
		return withOffset(ErrBadContentLength, pos)
	}
	if trenc > 1 {
		return withOffset(ErrBadTransferEncoding, pos)
	}
	return nil
}

// scanConnectionTokens inspects a Connection header value for the
// close/keep-alive/upgrade tokens that affect connection-state flags
// (RFC 7230 section 6.1). val's bytes, plus whatever follows them in buf
// up to the header line's own (already parsed) CRLF, are reused directly
// as ParseTokenLst's input: the whole line is already known to be present,
// so this is a single, non-resumed call (see the doc comment on phase
// for why that matters under the sliding-window contract).
func (p *Parser) scanConnectionTokens(buf []byte, val PField) {
	offs := int(val.Offs)
	var tok PToken
	for {
		tok.Reset()
		n, err := ParseTokenLst(buf, offs, &tok, PTokCommaSepF)
		if err != ErrHdrOk && err != ErrHdrMoreValues {
			return
		}
		name := tok.Name().Get(buf)
		switch {
		case bytescase.CmpEq(name, []byte("close")):
			p.flags |= FlagConnClose
		case bytescase.CmpEq(name, []byte("keep-alive")):
			p.flags |= FlagConnKeepAlive
		case bytescase.CmpEq(name, []byte("upgrade")):
			p.flags |= FlagConnUpgrade
		}
		if err == ErrHdrOk {
			return
		}
		offs = n
	}
}

// scanTransferEncoding validates a Transfer-Encoding header value against
// RFC 7230 section 3.3.1: "chunked" must be the last coding applied, so
// a value whose final coding is anything else (gzip, an unknown coding,
// ...) is rejected. Only the final coding is checked: codings listed
// before it are not inspected, and their data is passed on undecoded as
// body bytes. val's bytes are fully
// present in buf already (it's a parsed header value), so this is a single
// non-resumed ParseAllTrEncValues call, same as scanConnectionTokens.
func (p *Parser) scanTransferEncoding(buf []byte, val PField) error {
	var te PTrEnc
	offs := int(val.Offs)
	_, _, err := ParseAllTrEncValues(buf, offs, &te)
	if err != ErrHdrOk && err != ErrHdrMoreBytes {
		return fromGrammar(err, ctxTransferEncoding, offs)
	}
	if te.Last.Enc != TrEncChunkedF {
		return withOffset(ErrBadTransferEncoding, offs)
	}
	return nil
}

// scanHeaderBlockEnd scans for the end of the header block (the offset
// just after the empty line terminating it), resuming from p.hdrScan and
// honoring obs-fold (a CRLF/LF immediately followed by SP/HTAB does not
// end a logical header line).
func (p *Parser) scanHeaderBlockEnd(buf []byte, pos int) (int, bool) {
	window := buf[pos:]
	i := p.hdrScan
	for i < len(window) {
		c := window[i]
		if c != '\r' && c != '\n' {
			p.hdrLineEmpty = false
			i++
			continue
		}
		term := 1
		if c == '\r' {
			if i+1 >= len(window) {
				p.hdrScan = i
				return 0, false
			}
			if window[i+1] == '\n' {
				term = 2
			}
		}
		end := i + term
		if p.hdrLineEmpty {
			// the empty line ends the block; no fold check needed
			return pos + end, true
		}
		if end >= len(window) {
			p.hdrScan = i
			return 0, false
		}
		if isSPHT(window[end]) {
			// obs-fold continuation: not a logical line end
			p.hdrLineEmpty = false
			i = end
			continue
		}
		p.hdrLineEmpty = true
		i = end
	}
	p.hdrScan = i
	return 0, false
}

// decideBodyFraming applies RFC 7230 section 3.3.3 to select how the
// body (if any) is delimited, mirroring PMsg.BodyType. Content-Length and
// Transfer-Encoding co-occurring on the same message is a request
// smuggling vector, not a framing ambiguity to resolve by precedence: it
// must fail outright rather than let either header silently win.
func (p *Parser) decideBodyFraming() error {
	if p.flags.Has(FlagSkipBody) {
		p.phase = phaseNoBody
		return nil
	}
	if p.hl.PFlags.Test(HdrTrEncoding) && p.hl.PFlags.Test(HdrCLen) {
		return withOffset(ErrBadTransferEncoding, 0)
	}
	if p.role == RoleResponse {
		st := p.fl.Status
		switch {
		case st > 99 && st < 200, st == 204, st == 304:
			p.phase = phaseNoBody
			return nil
		case p.cfg.prevMethod == MHead:
			p.phase = phaseNoBody
			return nil
		case p.cfg.prevMethod == MConnect && st >= 200 && st <= 299:
			p.flags |= FlagNeedEOF
			p.phase = phaseBodyEOF
			return nil
		}
	}
	switch {
	case p.hl.PFlags.Test(HdrTrEncoding):
		p.flags |= FlagChunked
		p.phase = phaseChunkSize
	case p.hl.PFlags.Test(HdrCLen):
		p.flags |= FlagContentLength
		p.bodyRemaining = int64(p.pv.CLen.UIVal)
		if p.cfg.bodyMaxSize > 0 && p.bodyRemaining > p.cfg.bodyMaxSize {
			return withOffset(ErrBodyTooLarge, 0)
		}
		if p.bodyRemaining == 0 {
			p.phase = phaseNoBody
		} else {
			p.phase = phaseBodyCLen
		}
	case p.role == RoleRequest:
		p.phase = phaseNoBody
	default:
		p.flags |= FlagNeedEOF
		p.phase = phaseBodyEOF
	}
	return nil
}

func (p *Parser) stepBodyCLen(buf []byte, pos int) (int, bool) {
	avail := int64(len(buf) - pos)
	n := p.bodyRemaining
	if n > avail {
		n = avail
	}
	if n == 0 && p.bodyRemaining > 0 {
		return pos, false
	}
	last := n == p.bodyRemaining
	var data PField
	data.Set(pos, pos+int(n))
	if err := p.cb.OnBody(buf, data, last); err != nil {
		p.err = err
		return pos, true // Write returns p.err right after this call
	}
	p.bodyRemaining -= n
	p.bodySent += n
	pos += int(n)
	if p.bodyRemaining == 0 {
		p.phase = phaseDone
		p.flags |= FlagDone
	}
	return pos, p.bodyRemaining == 0
}

func (p *Parser) stepBodyEOF(buf []byte, pos int) int {
	if len(buf) > pos {
		var data PField
		data.Set(pos, len(buf))
		if err := p.cb.OnBody(buf, data, false); err != nil {
			p.err = err
		}
	}
	return len(buf)
}

func (p *Parser) stepChunkSize(buf []byte, pos int) (int, bool, error) {
	window := buf[pos:]
	end, term, found := findCRLF(window, p.skip)
	if !found {
		p.skip = len(window)
		return 0, false, nil
	}
	line := window[:end]
	p.skip = 0
	size, ext, err := parseChunkSizeLine(line)
	if err != nil {
		return 0, false, err
	}
	ext.Offs += OffsT(pos) // line-relative -> buf-relative
	if p.cfg.bodyMaxSize > 0 && p.bodySent+int64(size) > p.cfg.bodyMaxSize {
		return 0, false, withOffset(ErrBodyTooLarge, pos)
	}
	if e := p.cb.OnChunk(buf, size, ext); e != nil {
		return 0, false, e
	}
	newPos := pos + end + term
	if size == 0 {
		p.flags |= FlagFinalChunk
		p.phase = phaseTrailers
		p.hdrScan = 0
		p.hdrLineEmpty = true
		return newPos, true, nil
	}
	p.bodyRemaining = int64(size)
	p.phase = phaseChunkData
	return newPos, true, nil
}

// parseChunkSizeLine parses "chunk-size [ chunk-ext ]" (RFC 7230 section
// 4.1.1), validating the extension grammar (";" token ["=" (token /
// quoted-string)])* rather than forwarding it as an opaque blob.
func parseChunkSizeLine(line []byte) (uint64, PField, error) {
	i := 0
	for i < len(line) && isHexTab[line[i]] {
		i++
	}
	if i == 0 {
		return 0, PField{}, withOffset(ErrBadChunk, 0)
	}
	size, ok := hexToU(line[:i])
	if !ok {
		return 0, PField{}, withOffset(ErrBadChunk, 0)
	}
	var ext PField
	if i < len(line) {
		extStart := i
		if !validateChunkExt(line[i:]) {
			return 0, PField{}, withOffset(ErrBadChunk, i)
		}
		ext.Set(extStart, len(line))
	}
	return size, ext, nil
}

// validateChunkExt checks "*( OWS ";" OWS chunk-ext-name
// [ OWS "=" OWS chunk-ext-val ] ) OWS".
func validateChunkExt(b []byte) bool {
	i := skipWS(b, 0)
	for i < len(b) {
		if b[i] != ';' {
			return false
		}
		i = skipWS(b, i+1)
		start := i
		for i < len(b) && isTChar(b[i]) {
			i++
		}
		if i == start {
			return false
		}
		i = skipWS(b, i)
		if i < len(b) && b[i] == '=' {
			i = skipWS(b, i+1)
			if i < len(b) && b[i] == '"' {
				i++
				for i < len(b) && b[i] != '"' {
					if b[i] == '\\' {
						i++
					}
					i++
				}
				if i >= len(b) {
					return false
				}
				i++
			} else {
				vstart := i
				for i < len(b) && isTChar(b[i]) {
					i++
				}
				if i == vstart {
					return false
				}
			}
			i = skipWS(b, i)
		}
	}
	return true
}

func (p *Parser) stepChunkData(buf []byte, pos int) (int, bool) {
	avail := int64(len(buf) - pos)
	n := p.bodyRemaining
	if n > avail {
		n = avail
	}
	if n == 0 && p.bodyRemaining > 0 {
		return pos, false
	}
	if n > 0 {
		var data PField
		data.Set(pos, pos+int(n))
		if err := p.cb.OnBody(buf, data, false); err != nil {
			p.err = err
			return pos, true
		}
	}
	p.bodyRemaining -= n
	p.bodySent += n
	pos += int(n)
	if p.bodyRemaining == 0 {
		p.phase = phaseChunkCRLF
		return pos, true
	}
	return pos, false
}

// stepChunkCRLF consumes the CRLF that terminates a chunk's data (RFC
// 7230 section 4.1: chunk = chunk-size [ chunk-ext ] CRLF chunk-data
// CRLF). buf[pos] must be '\r' or '\n'; anything else is a grammar
// error, not a framing ambiguity, so no skip counter is needed here.
func (p *Parser) stepChunkCRLF(buf []byte, pos int) (int, bool, error) {
	if len(buf)-pos < 1 {
		return pos, false, nil
	}
	switch buf[pos] {
	case '\n':
		p.phase = phaseChunkSize
		p.skip = 0
		return pos + 1, true, nil
	case '\r':
		if len(buf)-pos < 2 {
			return pos, false, nil
		}
		if buf[pos+1] != '\n' {
			return 0, false, withOffset(ErrBadChunk, pos)
		}
		p.phase = phaseChunkSize
		p.skip = 0
		return pos + 2, true, nil
	default:
		return 0, false, withOffset(ErrBadChunk, pos)
	}
}

