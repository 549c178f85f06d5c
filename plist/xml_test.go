package plist

import (
	"bytes"
	"strings"
	"testing"
)

func TestDecodeXMLScalarTypes(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>get-task-allow</key>
	<true/>
	<key>application-identifier</key>
	<string>ABCDE12345.com.example.app</string>
	<key>count</key>
	<integer>42</integer>
	<key>blob</key>
	<data>aGVsbG8=</data>
</dict>
</plist>`

	v, err := DecodeXML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeXML: %v", err)
	}
	if v.Kind != Dict {
		t.Fatalf("root kind = %s, want dict", v.Kind)
	}

	boolVal, ok := v.Entries.Get("get-task-allow")
	if !ok || boolVal.Kind != Bool || !boolVal.Bool {
		t.Errorf("get-task-allow = %+v, want true", boolVal)
	}

	strVal, ok := v.Entries.Get("application-identifier")
	if !ok || strVal.Kind != String || strVal.String != "ABCDE12345.com.example.app" {
		t.Errorf("application-identifier = %+v", strVal)
	}

	intVal, ok := v.Entries.Get("count")
	if !ok || intVal.Kind != Integer || intVal.Integer != 42 {
		t.Errorf("count = %+v, want 42", intVal)
	}

	dataVal, ok := v.Entries.Get("blob")
	if !ok || dataVal.Kind != Data || dataVal.String != "hello" {
		t.Errorf("blob = %+v, want \"hello\"", dataVal)
	}
}

func TestDecodeXMLPreservesKeyOrder(t *testing.T) {
	doc := `<plist version="1.0"><dict>
	<key>zebra</key><string>z</string>
	<key>apple</key><string>a</string>
	<key>mango</key><string>m</string>
</dict></plist>`

	v, err := DecodeXML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeXML: %v", err)
	}
	got := v.Entries.Keys()
	want := []string{"zebra", "apple", "mango"}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDecodeXMLArray(t *testing.T) {
	doc := `<plist version="1.0"><array><string>a</string><string>b</string></array></plist>`
	v, err := DecodeXML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeXML: %v", err)
	}
	if v.Kind != Array || len(v.Items) != 2 {
		t.Fatalf("v = %+v", v)
	}
	if v.Items[0].String != "a" || v.Items[1].String != "b" {
		t.Fatalf("items = %+v", v.Items)
	}
}

func TestDecodeXMLDictValueWithoutKeyFails(t *testing.T) {
	doc := `<plist version="1.0"><dict><string>orphan</string></dict></plist>`
	if _, err := DecodeXML(strings.NewReader(doc)); err == nil {
		t.Fatal("DecodeXML succeeded on a dict value with no preceding key")
	}
}

func TestEncodeXMLRoundTripsData(t *testing.T) {
	d := NewOrderedDict()
	d.Set("cdhashes", ArrayValue(DataValue([]byte{0x01, 0x02, 0x03}), DataValue([]byte{0xAA})))

	encoded, err := EncodeXML(DictValue(d))
	if err != nil {
		t.Fatalf("EncodeXML: %v", err)
	}
	if !bytes.Contains(encoded, []byte("<key>cdhashes</key>")) {
		t.Errorf("encoded plist missing cdhashes key:\n%s", encoded)
	}

	decoded, err := DecodeXML(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("DecodeXML(EncodeXML(x)): %v", err)
	}
	arr, ok := decoded.Entries.Get("cdhashes")
	if !ok || arr.Kind != Array || len(arr.Items) != 2 {
		t.Fatalf("round-tripped cdhashes = %+v", arr)
	}
	if arr.Items[0].String != string([]byte{0x01, 0x02, 0x03}) {
		t.Errorf("round-tripped first digest = %q", arr.Items[0].String)
	}
}

func TestEncodeXMLEmptyDict(t *testing.T) {
	got, err := EncodeXML(DictValue(NewOrderedDict()))
	if err != nil {
		t.Fatalf("EncodeXML: %v", err)
	}
	if !bytes.Contains(got, []byte("<dict/>")) {
		t.Errorf("expected self-closing <dict/> for an empty dict, got:\n%s", got)
	}
}
