// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpwire

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorHdr is the internal grammar-level error code returned by the
// low-level token/header/chunk parsing primitives (ParseFLine,
// ParseHeaders & friends). It is 0 (ErrHdrOk) on success.
//
// These are not the errors surfaced to Parser callers (see Kind and the
// package-level Err* sentinels below); (*Parser).Write translates an
// ErrorHdr into the public taxonomy and attaches a byte offset via
// github.com/pkg/errors.
type ErrorHdr uint8

// ErrorHdr values returned internally while walking the grammar.
const (
	ErrHdrOk ErrorHdr = iota
	// ErrHdrMoreBytes means the field/line/chunk is not fully contained
	// in the passed buffer; call again with more data appended, from the
	// returned offset.
	ErrHdrMoreBytes
	// ErrHdrMoreValues means one value of a comma separated list was
	// parsed successfully and more values follow (caller should loop).
	ErrHdrMoreValues
	// ErrHdrEOH means end-of-header-list was reached (e.g. the empty
	// line terminating the header block, or no more list elements).
	ErrHdrEOH
	// ErrHdrEmpty means a list or parameter lookup found nothing.
	ErrHdrEmpty
	// ErrHdrBadChar means a grammar-violating octet was found.
	ErrHdrBadChar
	// ErrHdrBad is a generic grammar failure distinct from bad char
	// (e.g. a malformed chunk-size, an empty mandatory token).
	ErrHdrBad
	// ErrHdrNumTooBig means a numeric token (status code, chunk size,
	// Content-Length digits) overflowed its representation.
	ErrHdrNumTooBig
	// ErrHdrValNotNumber means a numeric field held non-digit content.
	ErrHdrValNotNumber
	// ErrHdrNoCLen means a Content-Length-delimited body state was
	// reached without a successfully parsed Content-Length value.
	ErrHdrNoCLen
	// ErrHdrTrunc means the input ended (caller signalled no more data)
	// while a value was still pending (partial_message, spec taxonomy).
	ErrHdrTrunc
	// ErrHdrBug marks an internal state-machine invariant violation;
	// should never be observed from well-formed input.
	ErrHdrBug
)

func (e ErrorHdr) String() string {
	switch e {
	case ErrHdrOk:
		return "ok"
	case ErrHdrMoreBytes:
		return "more bytes needed"
	case ErrHdrMoreValues:
		return "more values follow"
	case ErrHdrEOH:
		return "end of header list"
	case ErrHdrEmpty:
		return "empty value"
	case ErrHdrBadChar:
		return "invalid character"
	case ErrHdrBad:
		return "malformed value"
	case ErrHdrNumTooBig:
		return "numeric value too large"
	case ErrHdrValNotNumber:
		return "value is not numeric"
	case ErrHdrNoCLen:
		return "missing Content-Length"
	case ErrHdrTrunc:
		return "truncated message"
	case ErrHdrBug:
		return "internal parser bug"
	}
	return "unknown error"
}

// Kind identifies a member of the public error taxonomy a Parser surfaces
// to callers through Write's returned error (via errors.Is against the
// matching Err* sentinel below).
type Kind uint8

// Public error taxonomy.
const (
	KindNone Kind = iota
	KindBadMethod
	KindBadPath
	KindBadVersion
	KindBadStatus
	KindBadReason
	KindBadField
	KindBadValue
	KindBadContentLength
	KindBadTransferEncoding
	KindBadChunk
	KindPartialMessage
	KindBufferOverflow
	KindHeaderTooLarge
	KindBodyTooLarge
	KindBug
)

var kindNames = [...]string{
	KindNone:                "none",
	KindBadMethod:           "bad_method",
	KindBadPath:             "bad_path",
	KindBadVersion:          "bad_version",
	KindBadStatus:           "bad_status",
	KindBadReason:           "bad_reason",
	KindBadField:            "bad_field",
	KindBadValue:            "bad_value",
	KindBadContentLength:    "bad_content_length",
	KindBadTransferEncoding: "bad_transfer_encoding",
	KindBadChunk:            "bad_chunk",
	KindPartialMessage:      "partial_message",
	KindBufferOverflow:      "buffer_overflow",
	KindHeaderTooLarge:      "header_too_large",
	KindBodyTooLarge:        "body_too_large",
	KindBug:                 "bug",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Error is the type of every error a Parser itself produces (Write returns
// it wrapped with an offset; an error returned by a callback is passed
// through unchanged). Callers
// should compare against the package-level Err* sentinels with errors.Is;
// Offset is meaningful only for the Write call during which the error was
// first produced.
type Error struct {
	Kind   Kind
	Offset int
	cause  error // not set by this package (always nil)
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset %d", e.Kind, e.Offset)
	}
	return e.Kind.String()
}

// Is makes errors.Is(err, ErrBadMethod) succeed for any *Error sharing the
// same Kind, regardless of Offset.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel errors, one per Kind, for use with errors.Is. These carry no
// offset (Offset: -1); withOffset() below produces the offset-carrying
// copy actually returned from Write.
var (
	ErrBadMethod           = &Error{Kind: KindBadMethod, Offset: -1}
	ErrBadPath             = &Error{Kind: KindBadPath, Offset: -1}
	ErrBadVersion          = &Error{Kind: KindBadVersion, Offset: -1}
	ErrBadStatus           = &Error{Kind: KindBadStatus, Offset: -1}
	ErrBadReason           = &Error{Kind: KindBadReason, Offset: -1}
	ErrBadField            = &Error{Kind: KindBadField, Offset: -1}
	ErrBadValue            = &Error{Kind: KindBadValue, Offset: -1}
	ErrBadContentLength    = &Error{Kind: KindBadContentLength, Offset: -1}
	ErrBadTransferEncoding = &Error{Kind: KindBadTransferEncoding, Offset: -1}
	ErrBadChunk            = &Error{Kind: KindBadChunk, Offset: -1}
	ErrPartialMessage      = &Error{Kind: KindPartialMessage, Offset: -1}
	ErrBufferOverflow      = &Error{Kind: KindBufferOverflow, Offset: -1}
	ErrHeaderTooLarge      = &Error{Kind: KindHeaderTooLarge, Offset: -1}
	ErrBodyTooLarge        = &Error{Kind: KindBodyTooLarge, Offset: -1}
	ErrBug                 = &Error{Kind: KindBug, Offset: -1}
)

// withOffset returns a copy of sentinel carrying offset, wrapped with
// github.com/pkg/errors so the call stack at the first failure is
// preserved for diagnostics while errors.Is(result, sentinel) still
// succeeds (pkg/errors.Wrap implements Unwrap/Cause).
func withOffset(sentinel *Error, offset int) error {
	e := &Error{Kind: sentinel.Kind, Offset: offset}
	return errors.Wrapf(e, "httpwire: %s", sentinel.Kind)
}

// fromGrammar maps an internal ErrorHdr (produced while parsing the
// start line, headers, or a chunk header) to the public taxonomy,
// distinguishing the handful of ErrorHdr codes that can mean more than
// one Kind depending on which production was being parsed.
func fromGrammar(e ErrorHdr, field fieldCtx, offset int) error {
	var k Kind
	switch e {
	case ErrHdrOk, ErrHdrMoreBytes, ErrHdrMoreValues, ErrHdrEOH, ErrHdrEmpty:
		return nil // not errors at this level; caller handles control flow
	case ErrHdrTrunc:
		return withOffset(ErrPartialMessage, offset)
	case ErrHdrBug:
		return withOffset(ErrBug, offset)
	case ErrHdrNoCLen:
		return withOffset(ErrBadContentLength, offset)
	default:
		k = field.kindFor(e)
	}
	return withOffset(&Error{Kind: k}, offset)
}

// fieldCtx tells fromGrammar which production was being parsed when an
// ErrorHdr occurred, since the same ErrorHdr (e.g. ErrHdrBadChar) maps to
// different Kinds depending on context (bad_method vs bad_path vs
// bad_value, ...).
type fieldCtx uint8

const (
	ctxMethod fieldCtx = iota
	ctxPath
	ctxVersion
	ctxStatus
	ctxReason
	ctxFieldName
	ctxFieldValue
	ctxContentLength
	ctxTransferEncoding
	ctxChunk
)

func (f fieldCtx) kindFor(e ErrorHdr) Kind {
	switch f {
	case ctxMethod:
		return KindBadMethod
	case ctxPath:
		return KindBadPath
	case ctxVersion:
		return KindBadVersion
	case ctxStatus:
		return KindBadStatus
	case ctxReason:
		return KindBadReason
	case ctxFieldName:
		return KindBadField
	case ctxFieldValue:
		return KindBadValue
	case ctxContentLength:
		return KindBadContentLength
	case ctxTransferEncoding:
		return KindBadTransferEncoding
	case ctxChunk:
		return KindBadChunk
	}
	return KindBug
}
