package plist

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
`

// EncodeXML renders v as a complete Apple XML property-list document. It
// exists to build the CDHashes dictionary the CMS signer is handed
// (spec.md §4.6): a dict whose "cdhashes" key maps to an array of two
// <data> elements, base64-encoded.
func EncodeXML(v Value) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	if err := encodeValue(&buf, v, 0); err != nil {
		return nil, err
	}
	buf.WriteString("\n</plist>\n")
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v Value, indent int) error {
	pad := func() {
		for i := 0; i < indent; i++ {
			buf.WriteString("\t")
		}
	}
	pad()
	switch v.Kind {
	case Bool:
		if v.Bool {
			buf.WriteString("<true/>")
		} else {
			buf.WriteString("<false/>")
		}
	case Integer:
		fmt.Fprintf(buf, "<integer>%d</integer>", v.Integer)
	case String:
		buf.WriteString("<string>")
		xml.EscapeText(buf, []byte(v.String))
		buf.WriteString("</string>")
	case Data:
		buf.WriteString("<data>\n")
		encoded := base64.StdEncoding.EncodeToString([]byte(v.String))
		for i := 0; i < indent+1; i++ {
			buf.WriteString("\t")
		}
		buf.WriteString(encoded)
		buf.WriteString("\n")
		pad()
		buf.WriteString("</data>")
	case Array:
		if len(v.Items) == 0 {
			buf.WriteString("<array/>")
			break
		}
		buf.WriteString("<array>\n")
		for _, item := range v.Items {
			if err := encodeValue(buf, item, indent+1); err != nil {
				return err
			}
			buf.WriteString("\n")
		}
		pad()
		buf.WriteString("</array>")
	case Dict:
		if v.Entries == nil || v.Entries.Len() == 0 {
			buf.WriteString("<dict/>")
			break
		}
		buf.WriteString("<dict>\n")
		for _, key := range v.Entries.Keys() {
			val, _ := v.Entries.Get(key)
			for i := 0; i < indent+1; i++ {
				buf.WriteString("\t")
			}
			buf.WriteString("<key>")
			xml.EscapeText(buf, []byte(key))
			buf.WriteString("</key>\n")
			if err := encodeValue(buf, val, indent+1); err != nil {
				return err
			}
			buf.WriteString("\n")
		}
		pad()
		buf.WriteString("</dict>")
	default:
		return errUnsupportedKind(v.Kind)
	}
	return nil
}
