package csblob

import (
	"bytes"
	"testing"

	"github.com/blacktop/go-csblob/types"
)

func TestBuildEmbeddedSignatureAdhocParsesBack(t *testing.T) {
	built, err := BuildEmbeddedSignature(SignInput{
		Code:     make([]byte, types.PageSize*2),
		BundleID: "com.example.app",
		IsAdhoc:  true,
	})
	if err != nil {
		t.Fatalf("BuildEmbeddedSignature: %v", err)
	}

	report, err := ParseEmbeddedSignature(built)
	if err != nil {
		t.Fatalf("ParseEmbeddedSignature: %v", err)
	}
	if len(report.Errors) != 0 {
		t.Errorf("unexpected parse errors: %v", report.Errors)
	}
	if report.CodeDirectory == nil {
		t.Fatal("report.CodeDirectory is nil")
	}
	if report.CodeDirectory.NCodeSlots != 2 {
		t.Errorf("NCodeSlots = %d, want 2", report.CodeDirectory.NCodeSlots)
	}
	if report.AlternateCodeDirectory == nil {
		t.Fatal("report.AlternateCodeDirectory is nil")
	}
	if report.AlternateCodeDirectory.HashType != types.HashTypeSHA256 {
		t.Errorf("alternate HashType = %s, want SHA256", report.AlternateCodeDirectory.HashType)
	}
	if report.CMS == nil {
		t.Fatal("report.CMS is nil")
	}

	cmsSlot, ok := report.Superblob.Slot(types.SlotCMSSignature)
	if !ok {
		t.Fatal("CMS slot missing from parsed superblob")
	}
	if !bytes.Equal(cmsSlot, emptyCMSWrapper) {
		t.Errorf("ad-hoc CMS slot = % x, want % x", cmsSlot, emptyCMSWrapper)
	}
}

func TestBuildEmbeddedSignatureWithEntitlements(t *testing.T) {
	xmlEntitlements := []byte(`<plist version="1.0"><dict><key>get-task-allow</key><true/></dict></plist>`)

	built, err := BuildEmbeddedSignature(SignInput{
		Code:            make([]byte, types.PageSize),
		BundleID:        "com.example.app",
		IsAdhoc:         true,
		IsExecuteArch:   true,
		EntitlementsXML: xmlEntitlements,
	})
	if err != nil {
		t.Fatalf("BuildEmbeddedSignature: %v", err)
	}

	report, err := ParseEmbeddedSignature(built)
	if err != nil {
		t.Fatalf("ParseEmbeddedSignature: %v", err)
	}
	if report.Entitlements != string(xmlEntitlements) {
		t.Errorf("report.Entitlements = %q, want %q", report.Entitlements, string(xmlEntitlements))
	}
	if _, ok := report.Superblob.Slot(types.SlotEntitlementsDER); !ok {
		t.Error("DER-entitlements slot missing despite IsExecuteArch=true and non-empty entitlements")
	}
}

func TestReuseExistingCodeSlots(t *testing.T) {
	built, err := BuildEmbeddedSignature(SignInput{
		Code:     make([]byte, types.PageSize*3),
		BundleID: "com.example.app",
		IsAdhoc:  true,
	})
	if err != nil {
		t.Fatalf("BuildEmbeddedSignature: %v", err)
	}
	sb, err := ParseSuperblob(built)
	if err != nil {
		t.Fatalf("ParseSuperblob: %v", err)
	}

	sha1Slots, sha256Slots, ok := ReuseExistingCodeSlots(sb)
	if !ok {
		t.Fatal("ReuseExistingCodeSlots reported not ok despite both code directories present")
	}
	if len(sha1Slots) != 3*types.HashSizeSHA1 {
		t.Errorf("len(sha1Slots) = %d, want %d", len(sha1Slots), 3*types.HashSizeSHA1)
	}
	if len(sha256Slots) != 3*types.HashSizeSHA256 {
		t.Errorf("len(sha256Slots) = %d, want %d", len(sha256Slots), 3*types.HashSizeSHA256)
	}
}

func TestReuseExistingCodeSlotsMissingAlternate(t *testing.T) {
	slots := []IndexEntryPayload{
		{Type: types.SlotCodeDirectory, Payload: []byte{0, 0, 0, 0}},
	}
	built := BuildSuperblob(slots)
	sb, err := ParseSuperblob(built)
	if err != nil {
		t.Fatalf("ParseSuperblob: %v", err)
	}
	if _, _, ok := ReuseExistingCodeSlots(sb); ok {
		t.Error("ReuseExistingCodeSlots reported ok despite a missing alternate code directory")
	}
}
