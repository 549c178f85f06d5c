package csblob

import (
	"bytes"
	"testing"
)

func TestBuildRequirementsEmpty(t *testing.T) {
	tests := []struct {
		name      string
		bundleID  string
		subjectCN string
	}{
		{"both empty", "", ""},
		{"bundle empty", "", "Apple Inc."},
		{"subject empty", "com.example.app", ""},
	}
	want := []byte{0xfa, 0xde, 0x0c, 0x01, 0x00, 0x00, 0x00, 0x0c, 0x00, 0x00, 0x00, 0x00}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildRequirements(tc.bundleID, tc.subjectCN)
			if !bytes.Equal(got, want) {
				t.Errorf("BuildRequirements(%q, %q) = % x, want % x", tc.bundleID, tc.subjectCN, got, want)
			}
		})
	}
}

func TestBuildRequirementsEncodesStrings(t *testing.T) {
	bundleID := "com.example.app"
	subjectCN := "Apple Development: Jane Doe"

	got := BuildRequirements(bundleID, subjectCN)

	if !bytes.HasPrefix(got, []byte{0xfa, 0xde, 0x0c, 0x01}) {
		t.Fatalf("output does not start with the outer requirements magic: % x", got[:4])
	}
	if !bytes.Contains(got, []byte(bundleID)) {
		t.Errorf("output does not contain bundle id %q", bundleID)
	}
	if !bytes.Contains(got, []byte(subjectCN)) {
		t.Errorf("output does not contain subject CN %q", subjectCN)
	}
	if !bytes.Contains(got, []byte("subject.CN")) {
		t.Errorf("output does not contain the literal \"subject.CN\" attribute name")
	}

	length := get32be(got[4:8])
	if int(length) != len(got) {
		t.Errorf("declared length %d does not match blob length %d", length, len(got))
	}
}

func TestBuildRequirementsPadsTo4ByteBoundary(t *testing.T) {
	got := BuildRequirements("abc", "Apple Inc.") // "abc" is 3 bytes, needs 1 pad byte
	idx := bytes.Index(got, []byte("abc"))
	if idx < 0 {
		t.Fatal("bundle id not found in output")
	}
	if got[idx+3] != 0 {
		t.Errorf("expected a NUL pad byte after a 3-byte bundle id, got %#x", got[idx+3])
	}
}

func TestParseRequirementsRejectsShortInput(t *testing.T) {
	if _, err := ParseRequirements([]byte{1, 2, 3}); err == nil {
		t.Fatal("ParseRequirements succeeded on a 3-byte input, want an error")
	}
}
