// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpwire

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

// recorder collects every callback invocation in order, for assertions.
type recorder struct {
	NopCallbacks
	method   HTTPMethod
	target   string
	version  string
	status   uint16
	reason   string
	fields   []string
	headers  map[string][]string
	chunks   []uint64
	body     []byte
	lastBody bool
}

func newRecorder() *recorder {
	return &recorder{headers: make(map[string][]string)}
}

func (r *recorder) OnRequest(buf []byte, method HTTPMethod, target, version PField) error {
	r.method = method
	r.target = string(target.Get(buf))
	r.version = string(version.Get(buf))
	return nil
}

func (r *recorder) OnResponse(buf []byte, version PField, status uint16, reason PField) error {
	r.version = string(version.Get(buf))
	r.status = status
	r.reason = string(reason.Get(buf))
	return nil
}

func (r *recorder) OnField(buf []byte, name PField) error {
	r.fields = append(r.fields, string(name.Get(buf)))
	return nil
}

func (r *recorder) OnHeader(buf []byte, name, value PField) error {
	n := string(name.Get(buf))
	r.headers[n] = append(r.headers[n], string(value.Get(buf)))
	return nil
}

func (r *recorder) OnChunk(buf []byte, size uint64, ext PField) error {
	r.chunks = append(r.chunks, size)
	return nil
}

func (r *recorder) OnBody(buf []byte, data PField, last bool) error {
	r.body = append(r.body, data.Get(buf)...)
	r.lastBody = last
	return nil
}

// feedWhole drives a Parser with the whole message in one Write call.
func feedWhole(t *testing.T, p *Parser, msg []byte) {
	t.Helper()
	n, err := p.Write(msg)
	if err != nil {
		t.Fatalf("Write(%q) = %d, %v; want no error", msg, n, err)
	}
	if n != len(msg) {
		t.Fatalf("Write(%q) consumed %d, want %d", msg, n, len(msg))
	}
}

// feedPiecewise drives a Parser one byte at a time, re-presenting the
// unconsumed tail on each call, mirroring the teacher's piecewise-feed
// style (buffer-split invariance).
func feedPiecewise(t *testing.T, p *Parser, msg []byte) {
	t.Helper()
	var pending []byte
	for i := 0; i < len(msg); i++ {
		pending = append(pending, msg[i])
		n, err := p.Write(pending)
		if err != nil {
			t.Fatalf("piecewise Write at byte %d: %v", i, err)
		}
		pending = pending[n:]
	}
	if len(pending) > 0 {
		n, err := p.Write(pending)
		if err != nil {
			t.Fatalf("piecewise final Write: %v", err)
		}
		pending = pending[n:]
	}
	if len(pending) != 0 {
		t.Fatalf("piecewise feed left %d unconsumed bytes: %q", len(pending), pending)
	}
}

func TestRequestContentLength(t *testing.T) {
	msg := []byte("POST /submit HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello")
	r := newRecorder()
	p := New(RoleRequest, r)
	feedWhole(t, p, msg)
	if !p.Done() {
		t.Fatal("parser not done after full Content-Length body")
	}
	if r.method != MPost || r.target != "/submit" {
		t.Errorf("method/target = %v/%q", r.method, r.target)
	}
	if !p.Flags().Has(FlagContentLength) {
		t.Error("expected FlagContentLength set")
	}
	if string(r.body) != "hello" {
		t.Errorf("body = %q, want %q", r.body, "hello")
	}
	if !r.lastBody {
		t.Error("expected last OnBody call to report last=true")
	}
}

func TestRequestContentLengthPiecewise(t *testing.T) {
	msg := []byte("PUT /x.html HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Content-Length: 11\r\n" +
		"\r\n" +
		"hello world")
	r := newRecorder()
	p := New(RoleRequest, r)
	feedPiecewise(t, p, msg)
	if !p.Done() {
		t.Fatal("parser not done")
	}
	if string(r.body) != "hello world" {
		t.Errorf("body = %q", r.body)
	}
}

func TestChunkedRequest(t *testing.T) {
	msg := []byte("POST /up HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"5\r\nhello\r\n" +
		"6\r\n world\r\n" +
		"0\r\n" +
		"\r\n")
	r := newRecorder()
	p := New(RoleRequest, r)
	feedWhole(t, p, msg)
	if !p.Done() {
		t.Fatal("parser not done after final chunk + trailers")
	}
	if !p.Flags().Has(FlagChunked) || !p.Flags().Has(FlagFinalChunk) {
		t.Error("expected FlagChunked and FlagFinalChunk set")
	}
	if string(r.body) != "hello world" {
		t.Errorf("body = %q, want %q", r.body, "hello world")
	}
	if len(r.chunks) != 3 || r.chunks[0] != 5 || r.chunks[1] != 6 || r.chunks[2] != 0 {
		t.Errorf("chunks = %v", r.chunks)
	}
}

func TestChunkedRequestPiecewise(t *testing.T) {
	msg := []byte("POST /up HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"4\r\nWiki\r\n" +
		"5\r\npedia\r\n" +
		"0\r\n\r\n")
	r := newRecorder()
	p := New(RoleRequest, r)
	feedPiecewise(t, p, msg)
	if !p.Done() {
		t.Fatal("parser not done")
	}
	if string(r.body) != "Wikipedia" {
		t.Errorf("body = %q", r.body)
	}
}

func TestChunkedWithTrailerAndExtension(t *testing.T) {
	msg := []byte("POST /up HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"3;foo=bar\r\nabc\r\n" +
		"0\r\n" +
		"X-Trailer: done\r\n" +
		"\r\n")
	r := newRecorder()
	p := New(RoleRequest, r)
	feedWhole(t, p, msg)
	if !p.Done() {
		t.Fatal("parser not done")
	}
	if string(r.body) != "abc" {
		t.Errorf("body = %q", r.body)
	}
	if v, ok := r.headers["X-Trailer"]; !ok || v[0] != "done" {
		t.Errorf("trailer X-Trailer = %v", r.headers["X-Trailer"])
	}
}

func TestResponseNoBody1xx(t *testing.T) {
	msg := []byte("HTTP/1.1 100 Continue\r\n\r\n")
	r := newRecorder()
	p := New(RoleResponse, r)
	feedWhole(t, p, msg)
	if !p.Done() {
		t.Fatal("1xx response should need no body")
	}
	if len(r.body) != 0 {
		t.Errorf("unexpected body %q for 1xx response", r.body)
	}
}

func TestResponseHeadNoBody(t *testing.T) {
	msg := []byte("HTTP/1.1 200 OK\r\n" +
		"Content-Length: 12345\r\n" +
		"\r\n")
	r := newRecorder()
	p := New(RoleResponse, r, WithPrevMethod(MHead))
	feedWhole(t, p, msg)
	if !p.Done() {
		t.Fatal("HEAD response should need no body regardless of Content-Length")
	}
	if len(r.body) != 0 {
		t.Errorf("unexpected body for HEAD response: %q", r.body)
	}
}

func TestResponseConnectTunnelEOF(t *testing.T) {
	msg := []byte("HTTP/1.1 200 Connection Established\r\n\r\n")
	r := newRecorder()
	p := New(RoleResponse, r, WithPrevMethod(MConnect))
	feedWhole(t, p, msg)
	if p.Done() {
		t.Fatal("2xx reply to CONNECT should be an EOF-delimited tunnel body, not done yet")
	}
	if !p.Flags().Has(FlagNeedEOF) {
		t.Error("expected FlagNeedEOF for CONNECT tunnel")
	}
	extra := []byte("tunneled bytes")
	n, err := p.Write(extra)
	if err != nil || n != len(extra) {
		t.Fatalf("tunnel body Write = %d, %v", n, err)
	}
	if err := p.End(); err != nil {
		t.Fatalf("End() = %v, want nil", err)
	}
	if !p.Done() {
		t.Fatal("expected Done() after End() on EOF-delimited body")
	}
	if string(r.body) != "tunneled bytes" || !r.lastBody {
		t.Errorf("body = %q, last = %v", r.body, r.lastBody)
	}
}

func TestResponseEOFBodyNoContentLength(t *testing.T) {
	msg := []byte("HTTP/1.0 200 OK\r\n\r\nfirst")
	r := newRecorder()
	p := New(RoleResponse, r)
	feedWhole(t, p, msg)
	if p.Done() {
		t.Fatal("no Content-Length/Transfer-Encoding response must be EOF-delimited")
	}
	n, err := p.Write([]byte("-second"))
	if err != nil || n != len("-second") {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if err := p.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if string(r.body) != "first-second" {
		t.Errorf("body = %q", r.body)
	}
}

func TestObsFoldNormalization(t *testing.T) {
	msg := []byte("GET / HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"X-Long: first\r\n second\r\n" +
		"\r\n")
	r := newRecorder()
	p := New(RoleRequest, r)
	feedWhole(t, p, msg)
	raw := r.headers["X-Long"][0]
	if !bytes.Contains([]byte(raw), []byte("\r\n")) {
		t.Fatalf("expected raw OnHeader value to retain the fold, got %q", raw)
	}
	norm := p.HeaderValue(msg, findHeaderValue(t, msg, "X-Long: first\r\n second"))
	if string(norm) != "first second" {
		t.Errorf("HeaderValue = %q, want %q", norm, "first second")
	}
}

// findHeaderValue locates the PField for the "X-Long" value directly in
// msg (bypassing the callback plumbing) so HeaderValue can be exercised
// against the exact same buffer it normalizes.
func findHeaderValue(t *testing.T, msg []byte, needle string) PField {
	t.Helper()
	idx := bytes.Index(msg, []byte("X-Long: "))
	if idx < 0 {
		t.Fatalf("fixture missing X-Long header")
	}
	start := idx + len("X-Long: ")
	end := bytes.Index(msg[start:], []byte("\r\n\r\n"))
	if end < 0 {
		t.Fatalf("fixture missing end of headers")
	}
	var f PField
	f.Set(start, start+end)
	return f
}

func TestContentLengthAndChunkedConflict(t *testing.T) {
	msg := []byte("POST /x HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Content-Length: 5\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"5\r\nhello\r\n0\r\n\r\n")
	r := newRecorder()
	p := New(RoleRequest, r)
	_, err := p.Write(msg)
	if !errors.Is(err, ErrBadTransferEncoding) {
		t.Fatalf("Write error = %v, want ErrBadTransferEncoding (Content-Length and "+
			"Transfer-Encoding must not both be accepted, RFC 7230 3.3.3)", err)
	}
}

func TestBadTransferEncodingRejected(t *testing.T) {
	msg := []byte("POST /x HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Transfer-Encoding: gzip\r\n" +
		"\r\n")
	r := newRecorder()
	p := New(RoleRequest, r)
	_, err := p.Write(msg)
	if !errors.Is(err, ErrBadTransferEncoding) {
		t.Fatalf("Write error = %v, want ErrBadTransferEncoding", err)
	}
}

func TestStickyErrorAfterFailure(t *testing.T) {
	msg := []byte("GET\x01 / HTTP/1.1\r\n\r\n")
	r := newRecorder()
	p := New(RoleRequest, r)
	_, err1 := p.Write(msg)
	if err1 == nil {
		t.Fatal("expected a grammar error for a control byte in the method token")
	}
	n2, err2 := p.Write([]byte("irrelevant"))
	if n2 != 0 || !errors.Is(err2, err1) {
		t.Errorf("second Write after failure = %d, %v, want 0, %v", n2, err2, err1)
	}
}

func TestHeaderTooLarge(t *testing.T) {
	big := bytes.Repeat([]byte("a"), 100)
	msg := append([]byte("GET / HTTP/1.1\r\nX-Big: "), big...)
	msg = append(msg, '\r', '\n', '\r', '\n')
	r := newRecorder()
	p := New(RoleRequest, r, WithHeaderMaxSize(32))
	_, err := p.Write(msg)
	if !errors.Is(err, ErrHeaderTooLarge) {
		t.Fatalf("Write error = %v, want ErrHeaderTooLarge", err)
	}
}

func TestBodyTooLarge(t *testing.T) {
	msg := []byte("POST /x HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Content-Length: 100\r\n" +
		"\r\n")
	r := newRecorder()
	p := New(RoleRequest, r, WithBodyMaxSize(10))
	_, err := p.Write(msg)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("Write error = %v, want ErrBodyTooLarge", err)
	}
}

func TestConnectionTokenFlags(t *testing.T) {
	msg := []byte("GET / HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Connection: keep-alive, Upgrade\r\n" +
		"Upgrade: websocket\r\n" +
		"\r\n")
	r := newRecorder()
	p := New(RoleRequest, r)
	feedWhole(t, p, msg)
	if !p.Flags().Has(FlagConnKeepAlive) || !p.Flags().Has(FlagConnUpgrade) {
		t.Errorf("flags = %v, want ConnKeepAlive|ConnUpgrade set", p.Flags())
	}
	if p.UpgradeProtocol() != UProtoWSockF {
		t.Errorf("UpgradeProtocol() = %v, want UProtoWSockF", p.UpgradeProtocol())
	}
}

func TestResetReusesParser(t *testing.T) {
	r := newRecorder()
	p := New(RoleRequest, r)
	feedWhole(t, p, []byte("GET /a HTTP/1.1\r\nHost: h\r\n\r\n"))
	if !p.Done() {
		t.Fatal("first message not done")
	}
	p.Reset()
	if p.phase != phaseStartLine {
		t.Errorf("Reset did not return to phaseStartLine, got %v", p.phase)
	}
	feedWhole(t, p, []byte("GET /b HTTP/1.1\r\nHost: h\r\n\r\n"))
	if r.target != "/b" {
		t.Errorf("target after Reset = %q", r.target)
	}
}

// TestRandomPiecewiseFeedInvariance mirrors the teacher's ParseFLine piece
// tests: the same message, split at random points across many runs, must
// produce an identical parse.
func TestRandomPiecewiseFeedInvariance(t *testing.T) {
	msg := []byte("POST /widgets HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Content-Length: 9\r\n" +
		"\r\n" +
		"abcdefghi")
	for i := 0; i < 20; i++ {
		r := newRecorder()
		p := New(RoleRequest, r)
		var pending []byte
		pos := 0
		for pos < len(msg) {
			step := 1 + rand.Intn(len(msg)-pos)
			pending = append(pending, msg[pos:pos+step]...)
			pos += step
			n, err := p.Write(pending)
			if err != nil {
				t.Fatalf("run %d: Write error: %v", i, err)
			}
			pending = pending[n:]
		}
		if string(r.body) != "abcdefghi" {
			t.Fatalf("run %d: body = %q", i, r.body)
		}
		if !p.Done() {
			t.Fatalf("run %d: parser not done", i)
		}
	}
}

func TestDuplicateContentLengthRejected(t *testing.T) {
	msg := []byte("POST /x HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Content-Length: 5\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello")
	r := newRecorder()
	p := New(RoleRequest, r)
	_, err := p.Write(msg)
	if !errors.Is(err, ErrBadContentLength) {
		t.Fatalf("Write error = %v, want ErrBadContentLength", err)
	}
}

func TestDuplicateTransferEncodingRejected(t *testing.T) {
	msg := []byte("POST /x HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n")
	r := newRecorder()
	p := New(RoleRequest, r)
	_, err := p.Write(msg)
	if !errors.Is(err, ErrBadTransferEncoding) {
		t.Fatalf("Write error = %v, want ErrBadTransferEncoding", err)
	}
}

func TestAccessorsRequest(t *testing.T) {
	msg := []byte("POST /submit HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello")
	r := newRecorder()
	p := New(RoleRequest, r)
	feedWhole(t, p, msg)
	if maj, min := p.HTTPMajor(), p.HTTPMinor(); maj != 1 || min != 1 {
		t.Errorf("HTTPMajor/HTTPMinor = %d.%d, want 1.1", maj, min)
	}
	cl, ok := p.ContentLength()
	if !ok || cl != 5 {
		t.Errorf("ContentLength() = %d, %v, want 5, true", cl, ok)
	}
	if p.NeedsEOF() {
		t.Error("NeedsEOF() true for a Content-Length delimited body")
	}
	if !p.KeepAlive() {
		t.Error("KeepAlive() false for a plain HTTP/1.1 request")
	}
	if !p.HaveHeader() {
		t.Error("HaveHeader() false after headers fully parsed")
	}
	if p.NeedMore() {
		t.Error("NeedMore() true once the message is done")
	}
}

func TestKeepAliveHTTP10RequiresExplicitToken(t *testing.T) {
	msg := []byte("GET / HTTP/1.0\r\nHost: example.com\r\n\r\n")
	r := newRecorder()
	p := New(RoleRequest, r)
	feedWhole(t, p, msg)
	if p.KeepAlive() {
		t.Error("KeepAlive() true for HTTP/1.0 without Connection: keep-alive")
	}

	msg2 := []byte("GET / HTTP/1.0\r\nHost: example.com\r\nConnection: keep-alive\r\n\r\n")
	r2 := newRecorder()
	p2 := New(RoleRequest, r2)
	feedWhole(t, p2, msg2)
	if !p2.KeepAlive() {
		t.Error("KeepAlive() false for HTTP/1.0 with explicit Connection: keep-alive")
	}
}

func TestKeepAliveHTTP11ConnectionClose(t *testing.T) {
	msg := []byte("GET / HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n")
	r := newRecorder()
	p := New(RoleRequest, r)
	feedWhole(t, p, msg)
	if p.KeepAlive() {
		t.Error("KeepAlive() true despite Connection: close")
	}
}

func TestKeepAliveEOFBodyNeverKeepAlive(t *testing.T) {
	msg := []byte("HTTP/1.1 200 OK\r\nHost: example.com\r\n\r\nbody-until-eof")
	r := newRecorder()
	p := New(RoleResponse, r)
	_, err := p.Write(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.NeedsEOF() {
		t.Fatal("expected an EOF-delimited response body")
	}
	if p.KeepAlive() {
		t.Error("KeepAlive() true for an EOF-delimited body")
	}
	if err := p.End(); err != nil {
		t.Fatalf("End() error: %v", err)
	}
}

func TestStatusCodeAccessor(t *testing.T) {
	msg := []byte("HTTP/1.1 404 Not Found\r\nHost: example.com\r\nContent-Length: 0\r\n\r\n")
	r := newRecorder()
	p := New(RoleResponse, r)
	feedWhole(t, p, msg)
	if p.StatusCode() != 404 {
		t.Errorf("StatusCode() = %d, want 404", p.StatusCode())
	}
}
