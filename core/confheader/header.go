// Package confheader implements the versioned header prefixed to deployed
// contract code. The header carries the contract's confidentiality flag and
// an optional storage expiry height; code stored on chain is always the
// encoded header followed by the header-stripped payload.
package confheader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// Magic marks the start of a contract header. Any code beginning with these
// bytes must decode to a recognized header version or be rejected outright.
var Magic = []byte{0x00, 'c', 'c', 'h'}

// Version1 is the only header version currently defined.
const Version1 uint16 = 1

// prefixLen is magic + version (u16 BE) + body length (u16 BE).
const prefixLen = len("\x00cch") + 2 + 2

var (
	ErrTruncated          = errors.New("confheader: truncated header")
	ErrUnsupportedVersion = errors.New("confheader: unsupported header version")
	ErrMalformedBody      = errors.New("confheader: malformed header body")
)

// Header is the decoded form of a contract header. Confidential and Expiry
// are optional on the wire; nil means the field was absent.
type Header struct {
	Version      uint16
	Confidential *bool
	Expiry       *uint64
}

// bodyV1 is the RLP wire form of a version-1 header body. Presence flags are
// encoded explicitly so that "absent" and "false"/"zero" stay distinct.
type bodyV1 struct {
	HasConfidential bool
	Confidential    bool
	HasExpiry       bool
	Expiry          uint64
}

// IsConfidential reports whether the header marks the contract confidential.
func (h *Header) IsConfidential() bool {
	return h != nil && h.Confidential != nil && *h.Confidential
}

// ExpiryHeight returns the expiry and whether one was set.
func (h *Header) ExpiryHeight() (uint64, bool) {
	if h == nil || h.Expiry == nil {
		return 0, false
	}
	return *h.Expiry, true
}

// Encode serializes the header as it is stored on chain.
func (h *Header) Encode() ([]byte, error) {
	if h.Version != Version1 {
		return nil, ErrUnsupportedVersion
	}
	body := bodyV1{}
	if h.Confidential != nil {
		body.HasConfidential = true
		body.Confidential = *h.Confidential
	}
	if h.Expiry != nil {
		body.HasExpiry = true
		body.Expiry = *h.Expiry
	}
	enc, err := rlp.EncodeToBytes(&body)
	if err != nil {
		return nil, err
	}
	if len(enc) > 0xffff {
		return nil, fmt.Errorf("confheader: body too large: %d bytes", len(enc))
	}
	out := make([]byte, 0, prefixLen+len(enc))
	out = append(out, Magic...)
	out = binary.BigEndian.AppendUint16(out, h.Version)
	out = binary.BigEndian.AppendUint16(out, uint16(len(enc)))
	return append(out, enc...), nil
}

// Contract is the result of splitting stored code into its optional header
// and the header-stripped payload.
type Contract struct {
	// Header is nil when the code carried no header at all.
	Header *Header

	// RawHeader is the exact encoded header, empty when Header is nil.
	RawHeader []byte

	// Code is the payload with any header stripped.
	Code []byte
}

// Parse splits code into header and payload. Code that does not start with
// the magic marker parses successfully with a nil header. Code that does
// start with the marker must decode completely or Parse returns an error.
func Parse(code []byte) (*Contract, error) {
	if !bytes.HasPrefix(code, Magic) {
		return &Contract{Code: code}, nil
	}
	if len(code) < prefixLen {
		return nil, ErrTruncated
	}
	version := binary.BigEndian.Uint16(code[len(Magic):])
	if version != Version1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	bodyLen := int(binary.BigEndian.Uint16(code[len(Magic)+2:]))
	if len(code) < prefixLen+bodyLen {
		return nil, ErrTruncated
	}
	var body bodyV1
	if err := rlp.DecodeBytes(code[prefixLen:prefixLen+bodyLen], &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	h := &Header{Version: version}
	if body.HasConfidential {
		v := body.Confidential
		h.Confidential = &v
	}
	if body.HasExpiry {
		v := body.Expiry
		h.Expiry = &v
	}
	return &Contract{
		Header:    h,
		RawHeader: code[:prefixLen+bodyLen],
		Code:      code[prefixLen+bodyLen:],
	}, nil
}

// NewV1 builds a version-1 header. Either argument may be nil to leave the
// field absent on the wire.
func NewV1(confidential *bool, expiry *uint64) *Header {
	return &Header{Version: Version1, Confidential: confidential, Expiry: expiry}
}

// Bool returns a pointer to b, for building optional header fields.
func Bool(b bool) *bool { return &b }

// Uint64 returns a pointer to v, for building optional header fields.
func Uint64(v uint64) *uint64 { return &v }
