package csblob

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/blacktop/go-csblob/types"
)

func TestBuildCMSSignatureAdhoc(t *testing.T) {
	got, err := BuildCMSSignature(nil, true, []byte("primary"), []byte("alternate"))
	if err != nil {
		t.Fatalf("BuildCMSSignature: %v", err)
	}
	if !bytes.Equal(got, emptyCMSWrapper) {
		t.Errorf("BuildCMSSignature(adhoc) = % x, want % x", got, emptyCMSWrapper)
	}
}

func TestBuildCMSSignatureInvokesSigner(t *testing.T) {
	primary := []byte("primary-cd")
	alternate := []byte("alternate-cd")

	var gotPrimary, gotPlist, gotSHA1, gotSHA256Trunc []byte
	signer := CMSSignerFunc(func(primaryCDBlob, cdHashesPlist, cdHashSHA1, cdHashSHA256Trunc20 []byte) ([]byte, error) {
		gotPrimary = primaryCDBlob
		gotPlist = cdHashesPlist
		gotSHA1 = cdHashSHA1
		gotSHA256Trunc = cdHashSHA256Trunc20
		return []byte("DER-CMS-BYTES"), nil
	})

	got, err := BuildCMSSignature(signer, false, primary, alternate)
	if err != nil {
		t.Fatalf("BuildCMSSignature: %v", err)
	}

	wantSHA1 := sha1.Sum(primary)
	wantSHA256 := sha256.Sum256(alternate)

	if !bytes.Equal(gotPrimary, primary) {
		t.Errorf("signer received primary = % x, want % x", gotPrimary, primary)
	}
	if !bytes.Equal(gotSHA1, wantSHA1[:]) {
		t.Errorf("signer received cdHashSHA1 = % x, want % x", gotSHA1, wantSHA1[:])
	}
	if len(gotSHA256Trunc) != types.CDHashLen {
		t.Errorf("signer received cdHashSHA256Trunc20 of length %d, want %d", len(gotSHA256Trunc), types.CDHashLen)
	}
	if !bytes.Equal(gotSHA256Trunc, wantSHA256[:types.CDHashLen]) {
		t.Errorf("signer received cdHashSHA256Trunc20 = % x, want % x", gotSHA256Trunc, wantSHA256[:types.CDHashLen])
	}
	if !bytes.Contains(gotPlist, []byte("cdhashes")) {
		t.Errorf("CDHashes plist handed to signer is missing the cdhashes key:\n%s", gotPlist)
	}

	if !bytes.Contains(got, []byte("DER-CMS-BYTES")) {
		t.Errorf("BuildCMSSignature output missing the signer's DER bytes: % x", got)
	}
	if got[0] != 0xfa || got[1] != 0xde || got[2] != 0x0b || got[3] != 0x01 {
		t.Errorf("BuildCMSSignature output magic = % x, want BlobWrapper", got[:4])
	}
}

func TestBuildCMSSignatureWrapsSignerFailure(t *testing.T) {
	signer := CMSSignerFunc(func(_, _, _, _ []byte) ([]byte, error) {
		return nil, errors.New("no signing identity available")
	})
	_, err := BuildCMSSignature(signer, false, []byte("p"), []byte("a"))
	if err == nil {
		t.Fatal("BuildCMSSignature succeeded despite signer failure")
	}
	if !errors.Is(err, ErrCMSFailure) {
		t.Errorf("error = %v, want it to wrap ErrCMSFailure", err)
	}
}

func TestParseCMSSignatureAdhocStub(t *testing.T) {
	report, err := ParseCMSSignature(emptyCMSWrapper)
	if err != nil {
		t.Fatalf("ParseCMSSignature: %v", err)
	}
	if len(report.CertificateSubjects) != 0 || len(report.SignedAttributes) != 0 {
		t.Errorf("ad-hoc stub report = %+v, want an empty report", report)
	}
}

func TestParseCMSSignatureRejectsShortInput(t *testing.T) {
	if _, err := ParseCMSSignature([]byte{1, 2, 3}); err == nil {
		t.Fatal("ParseCMSSignature succeeded on a 3-byte input")
	}
}
