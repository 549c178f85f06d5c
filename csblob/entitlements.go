package csblob

import (
	"bytes"
	"fmt"

	"github.com/blacktop/go-csblob/der"
	"github.com/blacktop/go-csblob/plist"
	"github.com/blacktop/go-csblob/types"
)

// BuildEntitlements wraps raw entitlements XML in the CSMAGIC_EMBEDDED_
// ENTITLEMENTS slot header, unchanged. An empty payload is legal here (the
// entitlements slot is simply absent from the special-slot digests if the
// caller never builds it); only the DER variant rejects empty input.
func BuildEntitlements(xmlPayload []byte) []byte {
	out := make([]byte, 0, 8+len(xmlPayload))
	out = put32be(out, uint32(types.MagicEmbeddedEntitlements))
	out = put32be(out, uint32(8+len(xmlPayload)))
	out = append(out, xmlPayload...)
	return out
}

// BuildDerEntitlements decodes xmlPayload as an Apple XML property list,
// DER-encodes the resulting value tree, and wraps it in the CSMAGIC_
// EMBEDDED_DER_ENTITLEMENTS slot header. Fails with ErrInvalidInput if the
// input is empty, or ErrUnsupportedDERType if the tree contains a node the
// DER dialect cannot represent.
func BuildDerEntitlements(xmlPayload []byte) ([]byte, error) {
	if len(xmlPayload) == 0 {
		return nil, fmt.Errorf("%w: empty entitlements payload", ErrInvalidInput)
	}
	tree, err := plist.DecodeXML(bytes.NewReader(xmlPayload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	encoded, err := der.Encode(tree)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDERType, err)
	}
	out := make([]byte, 0, 8+len(encoded))
	out = put32be(out, uint32(types.MagicEmbeddedEntitlementsDER))
	out = put32be(out, uint32(8+len(encoded)))
	out = append(out, encoded...)
	return out, nil
}
