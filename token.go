// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpwire

// Low level grammar primitives shared by the first-line, header and chunk
// parsers. These operate on a plain buf+offset pair and never retain state
// across calls themselves (the caller, via the saved Hdr/PFLine state,
// decides when to resume).

// skipWS advances i over SP/HTAB (RFC 7230 OWS building block, without the
// obs-fold case, see skipLWS for that).
func skipWS(buf []byte, i int) int {
	for i < len(buf) && isSPHT(buf[i]) {
		i++
	}
	return i
}

// skipToken advances i over a run of field-vchar (VCHAR / obs-text, RFC
// 7230 section 3.2), stopping at the first SP/HTAB/CR/LF/control byte.
// Used for the request method, target, version and (loosely) header
// values: header values are scanned as a sequence of field-vchar runs
// separated by skipLWS, not as a single rfc "token".
func skipToken(buf []byte, i int) int {
	for i < len(buf) && isVChar(buf[i]) {
		i++
	}
	return i
}

// skipTokenDelim is like skipToken but also stops at delim (used to scan
// a header name up to the ':').
func skipTokenDelim(buf []byte, i int, delim byte) int {
	for i < len(buf) && buf[i] != delim && isVChar(buf[i]) {
		i++
	}
	return i
}

// skipCRLF consumes a single line terminator at i. Only CRLF and a bare LF
// are accepted (a bare CR not followed by LF is a grammar error); it
// returns the offset after the terminator and its length (1 or 2).
func skipCRLF(buf []byte, i int) (int, int, ErrorHdr) {
	if i >= len(buf) {
		return i, 0, ErrHdrMoreBytes
	}
	switch buf[i] {
	case '\r':
		if i+1 >= len(buf) {
			return i, 0, ErrHdrMoreBytes
		}
		if buf[i+1] == '\n' {
			return i + 2, 2, ErrHdrOk
		}
		return i, 0, ErrHdrBadChar
	case '\n':
		return i + 1, 1, ErrHdrOk
	}
	return i, 0, ErrHdrBadChar
}

// skipLine advances over a reason-phrase-like run (HTAB / SP / VCHAR /
// obs-text) up to and including its terminating CRLF. It returns the
// offset after the terminator and the terminator's length.
func skipLine(buf []byte, i int) (int, int, ErrorHdr) {
	j := i
	for j < len(buf) && buf[j] != '\r' && buf[j] != '\n' {
		if !isVChar(buf[j]) && !isSPHT(buf[j]) {
			return j, 0, ErrHdrBadChar
		}
		j++
	}
	if j >= len(buf) {
		return j, 0, ErrHdrMoreBytes
	}
	return skipCRLF(buf, j)
}

// skipLWS skips optional OWS, including one level of obs-fold (CRLF
// immediately followed by SP/HTAB continues the same value, RFC 7230
// section 3.2.4). flags is reserved for callers that need comma/space
// aware variants; the grammar implemented here does not currently depend
// on it.
//
// On success (err == ErrHdrOk) it returns the offset of the first
// non-whitespace byte following the run (the input offset itself, if
// there was no whitespace at all); callers continue scanning from there.
// On ErrHdrEOH it returns the offset of the CR/LF that ends the header
// value (no continuation follows) and the length of that terminator.
func skipLWS(buf []byte, i int, flags uint) (int, int, ErrorHdr) {
	n := i
	for {
		if n >= len(buf) {
			return n, 0, ErrHdrMoreBytes
		}
		c := buf[n]
		if isSPHT(c) {
			n++
			continue
		}
		if c == '\r' || c == '\n' {
			end, crl, err := skipCRLF(buf, n)
			if err == ErrHdrMoreBytes {
				return n, 0, ErrHdrMoreBytes
			}
			if err != ErrHdrOk {
				return n, 0, err
			}
			if end >= len(buf) {
				// need to peek ahead to know if this is an obs-fold
				return n, 0, ErrHdrMoreBytes
			}
			if isSPHT(buf[end]) {
				// obs-fold: the value continues after the fold
				n = end
				continue
			}
			return n, crl, ErrHdrEOH
		}
		// non-whitespace, non CR/LF byte: end of the LWS run
		return n, 0, ErrHdrOk
	}
}

// PUIntBody is a parsed unsigned-integer header value (used for
// Content-Length).
type PUIntBody struct {
	SVal   PField // the digit run, as found in the buffer
	UIVal  uint64
	parsed bool
}

// Reset re-initializes the parsed value.
func (b *PUIntBody) Reset() {
	*b = PUIntBody{}
}

// Parsed returns true once a value has been fully parsed.
func (b *PUIntBody) Parsed() bool {
	return b.parsed
}

// ParseCLenVal parses a Content-Length value: LWS *DIGIT LWS CRLF, where
// LWS is OWS that may contain an obs-fold (see skipLWS).
// Resumption on ErrHdrMoreBytes always restarts scanning from the
// original offs; this is cheap (header values are short) and avoids
// needing extra saved-state fields on PUIntBody.
func ParseCLenVal(buf []byte, offs int, clen *PUIntBody) (int, ErrorHdr) {
	i, _, err := skipLWS(buf, offs, 0)
	if err == ErrHdrMoreBytes {
		return offs, ErrHdrMoreBytes
	}
	if err != ErrHdrOk && err != ErrHdrEOH {
		return i, err
	}
	start := i
	for i < len(buf) && isDigit(buf[i]) {
		i++
	}
	if i >= len(buf) {
		return offs, ErrHdrMoreBytes
	}
	if i == start {
		return i, ErrHdrValNotNumber
	}
	var v uint64
	for _, c := range buf[start:i] {
		nv := v*10 + uint64(c-'0')
		if nv < v {
			return i, ErrHdrNumTooBig
		}
		v = nv
	}
	j, crl, err := skipLWS(buf, i, 0)
	if err == ErrHdrMoreBytes {
		return offs, ErrHdrMoreBytes
	}
	if err == ErrHdrOk {
		return j, ErrHdrBadChar // non-digit after the digit run
	}
	if err != ErrHdrEOH {
		return j, err
	}
	clen.SVal.Set(start, i)
	clen.UIVal = v
	clen.parsed = true
	return j + crl, ErrHdrOk
}
