// Package der encodes a plist.Value tree into the custom DER dialect Apple
// uses for the entitlements-DER code-signature slot. It is not a general
// ASN.1/DER encoder: the tag choices and the treatment of maps as SET OF
// {key, value} SEQUENCEs are specific to this format and are grounded on
// ZSign's _DER/_DERLength (original_source/ZSign/signing.cpp), not on the
// X.690 standard.
package der

import (
	"fmt"

	"github.com/blacktop/go-csblob/plist"
)

// Tag values used by this dialect. They do not match general ASN.1 tag
// assignments (e.g. strings are tagged 0x0C regardless of charset, and maps
// reuse the SET tag 0x31 for what is really an ordered sequence of pairs).
const (
	tagBool    = 0x01
	tagInteger = 0x02
	tagString  = 0x0C // UTF8String
	tagArray   = 0x30 // SEQUENCE
	tagMap     = 0x31 // SET
)

// Encode renders v in the entitlements-DER dialect. Real, Date and Data
// values have no representation in this dialect and cause an error, mirroring
// ZSign's _DER, which asserts/fails on the same kinds.
func Encode(v plist.Value) ([]byte, error) {
	return encodeValue(v)
}

func encodeValue(v plist.Value) ([]byte, error) {
	switch v.Kind {
	case plist.Bool:
		return encodeBool(v.Bool), nil
	case plist.Integer:
		return encodeInteger(v.Integer), nil
	case plist.String:
		return encodeTagged(tagString, []byte(v.String)), nil
	case plist.Array:
		return encodeArray(v.Items)
	case plist.Dict:
		return encodeMap(v.Entries)
	default:
		return nil, fmt.Errorf("der: cannot encode plist value of kind %s", v.Kind)
	}
}

func encodeBool(b bool) []byte {
	v := byte(0x00)
	if b {
		v = 0x01
	}
	return encodeTagged(tagBool, []byte{v})
}

// encodeInteger emits the minimal big-endian two's-complement-free byte
// representation of i: no leading zero bytes beyond the single zero needed
// to represent zero itself, matching ZSign's integer packer.
func encodeInteger(i uint64) []byte {
	if i == 0 {
		return encodeTagged(tagInteger, []byte{0})
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte(i)}, b...)
		i >>= 8
	}
	return encodeTagged(tagInteger, b)
}

func encodeArray(items []plist.Value) ([]byte, error) {
	var body []byte
	for _, item := range items {
		enc, err := encodeValue(item)
		if err != nil {
			return nil, err
		}
		body = append(body, enc...)
	}
	return encodeTagged(tagArray, body), nil
}

// encodeMap renders d as a SET of nested SEQUENCE{key as UTF8String, value},
// one per entry, in d's own key order. Order is significant: this dialect has
// no canonical-sort-of-SET-elements rule, so a deterministic source order
// (plist.OrderedDict) is what keeps encoding reproducible (spec.md invariant
// on DER map ordering).
func encodeMap(d *plist.OrderedDict) ([]byte, error) {
	var body []byte
	if d == nil {
		return encodeTagged(tagMap, nil), nil
	}
	for _, key := range d.Keys() {
		val, _ := d.Get(key)
		valEnc, err := encodeValue(val)
		if err != nil {
			return nil, err
		}
		entry := append(encodeTagged(tagString, []byte(key)), valEnc...)
		body = append(body, encodeTagged(tagArray, entry)...)
	}
	return encodeTagged(tagMap, body), nil
}

// encodeTagged writes tag, the DER definite-length encoding of len(body), and
// body itself.
func encodeTagged(tag byte, body []byte) []byte {
	out := append([]byte{tag}, encodeLength(len(body))...)
	return append(out, body...)
}

// encodeLength implements DER definite-length encoding: lengths below 128
// are a single byte; longer lengths use the long form, 0x80|n followed by n
// big-endian bytes.
func encodeLength(n int) []byte {
	if n < 128 {
		return []byte{byte(n)}
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte(n)}, b...)
		n >>= 8
	}
	return append([]byte{0x80 | byte(len(b))}, b...)
}
