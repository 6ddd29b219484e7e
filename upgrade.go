// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpwire

// This file is the opt-in resolution layer for the Upgrade mechanism (RFC
// 7230 section 6.7): the core framing state machine only ever sets
// FlagUpgrade/FlagConnUpgrade per the Connection/Upgrade headers, but a
// caller negotiating a protocol switch (typically WebSocket) wants the
// actual negotiated values resolved from the tokens those headers carry.
// upgradeProtos/wsProtos accumulate automatically as Upgrade/
// Sec-WebSocket-Protocol headers are seen (parser.go's stepHeaders);
// Sec-WebSocket-Extensions has no dedicated HdrT (see HdrOther in
// parse_headers.go) so it is resolved on demand via ParseWSExtensions
// instead.

// UpgradeProtocol returns the union of protocols resolved out of every
// Upgrade header seen so far this message; zero (UProtoNone) if no
// Upgrade header has been parsed.
func (p *Parser) UpgradeProtocol() UpgProtoT { return p.upgradeProtos }

// WSSubprotocol returns the union of values resolved out of every
// Sec-WebSocket-Protocol header seen so far this message; zero
// (WSProtoNone) if none was present.
func (p *Parser) WSSubprotocol() WSProtoT { return p.wsProtos }

// scanUpgradeProtocols resolves an Upgrade header's protocol tokens the
// same way scanConnectionTokens resolves Connection's: a single,
// non-resumed ParseAllUpgradeValues call over a value already fully
// present in buf.
func (p *Parser) scanUpgradeProtocols(buf []byte, val PField) {
	var pu PUpgrade
	ParseAllUpgradeValues(buf, int(val.Offs), &pu)
	p.upgradeProtos |= pu.Protos
}

// ParseWSExtensions resolves a Sec-WebSocket-Extensions header value into
// its component extension flags. A caller recognizes the header by name
// in OnField/OnHeader (it surfaces as HdrOther, same as any header with
// no dedicated HdrT) and calls this directly with the header's value
// PField; the whole value is already fully present in buf, so -- like
// scanUpgradeProtocols -- this is a single non-resumed call.
func (p *Parser) ParseWSExtensions(buf []byte, val PField) (WSExtT, error) {
	var pe PWSExt
	_, _, err := ParseAllWSExtValues(buf, int(val.Offs), &pe)
	if err != ErrHdrOk && err != ErrHdrMoreBytes {
		return 0, fromGrammar(err, ctxFieldValue, int(val.Offs))
	}
	return pe.Extensions, nil
}
