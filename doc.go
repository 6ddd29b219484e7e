// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package httpwire implements an incremental HTTP/1.x message parser
// (RFC 7230) as a pure, allocation-conscious library: it owns no socket
// and performs no I/O. Callers feed it bytes as they arrive (Write/WriteV)
// and receive parsed fields through a Callbacks implementation, in the
// same request/response direction fixed at construction time (Role).
//
// A Parser never buffers a whole message: the start line and each header
// block are each parsed in a single pass once their terminating CRLF has
// been located, using small resumable scan counters (not stored buffer
// offsets) to survive a sliding, caller-owned input window across Write
// calls. Bodies are streamed byte-range by byte-range via OnBody,
// regardless of whether they are framed by Content-Length, chunked
// Transfer-Encoding, or connection close (RFC 7230 section 3.3.3).
package httpwire
