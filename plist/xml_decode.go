package plist

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DecodeXML decodes an Apple XML property list (the dialect entitlements
// are authored in) into a Value tree. Only the node kinds a property list
// can actually contain are recognized; anything else is a malformed
// document, not merely an unsupported DER type (that distinction is
// package der's to make).
func DecodeXML(r io.Reader) (Value, error) {
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, fmt.Errorf("plist: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "plist" {
			break
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, fmt.Errorf("plist: unexpected end of document: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return decodeElement(dec, t)
		case xml.EndElement:
			if t.Name.Local == "plist" {
				return Value{}, fmt.Errorf("plist: empty document")
			}
		}
	}
}

func decodeElement(dec *xml.Decoder, start xml.StartElement) (Value, error) {
	switch start.Name.Local {
	case "true", "false":
		if err := skipToEnd(dec, start.Name); err != nil {
			return Value{}, err
		}
		return Value{Kind: Bool, Bool: start.Name.Local == "true"}, nil
	case "string":
		s, err := readCharData(dec, start.Name)
		if err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case "integer":
		s, err := readCharData(dec, start.Name)
		if err != nil {
			return Value{}, err
		}
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("plist: invalid <integer>%s</integer>: %w", s, err)
		}
		return IntegerValue(n), nil
	case "real":
		s, err := readCharData(dec, start.Name)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Real, String: strings.TrimSpace(s)}, nil
	case "date":
		s, err := readCharData(dec, start.Name)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Date, String: strings.TrimSpace(s)}, nil
	case "data":
		s, err := readCharData(dec, start.Name)
		if err != nil {
			return Value{}, err
		}
		raw, err := base64.StdEncoding.DecodeString(stripWhitespace(s))
		if err != nil {
			return Value{}, fmt.Errorf("plist: invalid <data>: %w", err)
		}
		return DataValue(raw), nil
	case "array":
		return decodeArray(dec)
	case "dict":
		return decodeDict(dec)
	default:
		return Value{}, fmt.Errorf("plist: unrecognized element <%s>", start.Name.Local)
	}
}

func decodeArray(dec *xml.Decoder) (Value, error) {
	var items []Value
	for {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, fmt.Errorf("plist: unterminated <array>: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			v, err := decodeElement(dec, t)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		case xml.EndElement:
			if t.Name.Local == "array" {
				return Value{Kind: Array, Items: items}, nil
			}
		}
	}
}

func decodeDict(dec *xml.Decoder) (Value, error) {
	d := NewOrderedDict()
	var pendingKey string
	haveKey := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, fmt.Errorf("plist: unterminated <dict>: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "key" {
				key, err := readCharData(dec, t.Name)
				if err != nil {
					return Value{}, err
				}
				pendingKey, haveKey = key, true
				continue
			}
			if !haveKey {
				return Value{}, fmt.Errorf("plist: <dict> value without preceding <key>")
			}
			v, err := decodeElement(dec, t)
			if err != nil {
				return Value{}, err
			}
			d.Set(pendingKey, v)
			haveKey = false
		case xml.EndElement:
			if t.Name.Local == "dict" {
				return DictValue(d), nil
			}
		}
	}
}

// readCharData accumulates CharData tokens up to the matching end element,
// covering both "<string>x</string>" and self-closing "<true/>" (no data).
func readCharData(dec *xml.Decoder, name xml.Name) (string, error) {
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("plist: unterminated <%s>: %w", name.Local, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			if t.Name.Local == name.Local {
				return sb.String(), nil
			}
		}
	}
}

func skipToEnd(dec *xml.Decoder, name xml.Name) error {
	_, err := readCharData(dec, name)
	return err
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}
