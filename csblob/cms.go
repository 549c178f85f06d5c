package csblob

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"fmt"

	"github.com/blacktop/go-csblob/plist"
	"github.com/blacktop/go-csblob/types"
)

// emptyCMSWrapper is the canonical ad-hoc CMS slot: a BlobWrapper with no
// payload at all.
var emptyCMSWrapper = []byte{0xfa, 0xde, 0x0b, 0x01, 0x00, 0x00, 0x00, 0x08}

// CMSSigner is the external signing capability: given the primary (SHA-1)
// code directory blob, the serialized CDHashes plist, and the two cdhash
// digests (SHA-1 and truncated SHA-256), it returns a DER-encoded CMS
// SignedData or an error. The engine never embeds key material itself
// (SPEC_FULL.md "External crypto boundary").
type CMSSigner interface {
	Sign(primaryCDBlob, cdHashesPlist, cdHashSHA1, cdHashSHA256Trunc20 []byte) ([]byte, error)
}

// CMSSignerFunc adapts a plain function to CMSSigner, mirroring the
// http.HandlerFunc idiom.
type CMSSignerFunc func(primaryCDBlob, cdHashesPlist, cdHashSHA1, cdHashSHA256Trunc20 []byte) ([]byte, error)

func (f CMSSignerFunc) Sign(primaryCDBlob, cdHashesPlist, cdHashSHA1, cdHashSHA256Trunc20 []byte) ([]byte, error) {
	return f(primaryCDBlob, cdHashesPlist, cdHashSHA1, cdHashSHA256Trunc20)
}

// BuildCMSSignature builds the CMS signature slot. Ad-hoc signatures emit
// the 8-byte empty wrapper unconditionally. Otherwise it computes both
// cdhashes, assembles the CDHashes plist, invokes signer, and wraps the
// result; a signer failure is reported as ErrCMSFailure.
func BuildCMSSignature(signer CMSSigner, isAdhoc bool, primaryCD, alternateCD []byte) ([]byte, error) {
	if isAdhoc {
		out := make([]byte, len(emptyCMSWrapper))
		copy(out, emptyCMSWrapper)
		return out, nil
	}

	cdHash1 := sha1Sum(primaryCD)
	cdHash256 := sha256Sum(alternateCD)
	cdHash256Trunc := truncated(cdHash256, types.CDHashLen)

	cdHashesPlist, err := buildCDHashesPlist(cdHash1, cdHash256Trunc)
	if err != nil {
		return nil, fmt.Errorf("%w: building CDHashes plist: %v", ErrCMSFailure, err)
	}

	cms, err := signer.Sign(primaryCD, cdHashesPlist, cdHash1, cdHash256Trunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCMSFailure, err)
	}

	out := make([]byte, 0, 8+len(cms))
	out = put32be(out, uint32(types.MagicBlobWrapper))
	out = put32be(out, uint32(8+len(cms)))
	out = append(out, cms...)
	return out, nil
}

func sha1Sum(b []byte) []byte {
	h := sha1.Sum(b)
	return h[:]
}

func sha256Sum(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}

// buildCDHashesPlist serializes { "cdhashes": [cdHash1, cdHash256Trunc] } as
// an Apple XML property list, the document the CMS signer authenticates
// alongside the primary code directory.
func buildCDHashesPlist(cdHash1, cdHash256Trunc []byte) ([]byte, error) {
	dict := plist.NewOrderedDict()
	dict.Set("cdhashes", plist.ArrayValue(
		plist.DataValue(cdHash1),
		plist.DataValue(cdHash256Trunc),
	))
	return plist.EncodeXML(plist.DictValue(dict))
}

// Well-known Apple CMS signed-attribute OIDs surfaced during diagnostic
// parsing (spec.md §4.6).
var (
	oidCDHashes  = asn1.ObjectIdentifier{1, 2, 840, 113635, 100, 9, 1}
	oidCDHashes2 = asn1.ObjectIdentifier{1, 2, 840, 113635, 100, 9, 2}
)

// CMSReport is the diagnostic summary produced when parsing a CMS signature
// slot: certificate subjects/issuers and the signed attributes found,
// named where recognized.
type CMSReport struct {
	CertificateSubjects []string
	CertificateIssuers  []string
	SignedAttributes    []SignedAttribute
}

// SignedAttribute describes one signed attribute found in the CMS
// SignerInfo, named when its OID is recognized.
type SignedAttribute struct {
	OID   asn1.ObjectIdentifier
	Name  string
	Count int
}

// asn1SignedData is a minimal CMS ContentInfo/SignedData shape sufficient
// for diagnostic extraction; it does not validate the signature or chain
// (verifying trust is explicitly a non-goal, spec.md §1).
type asn1ContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,tag:0"`
}

type asn1SignedData struct {
	Version          int
	DigestAlgorithms asn1.RawValue `asn1:"set"`
	ContentInfo      asn1.RawValue
	Certificates     asn1.RawValue `asn1:"optional,tag:0"`
	SignerInfos       asn1.RawValue `asn1:"set"`
}

// ParseCMSSignature best-effort decodes a CSMAGIC_BLOBWRAPPER CMS slot for
// diagnostics. It never errors on a malformed certificate/attribute; it
// simply omits what it cannot parse, matching the parser's tolerant
// discipline (spec.md §7).
func ParseCMSSignature(data []byte) (*CMSReport, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: CMS slot shorter than its header", ErrMalformedBlob)
	}
	payload := data[8:]
	if len(payload) == 0 {
		return &CMSReport{}, nil // ad-hoc stub
	}

	report := &CMSReport{}

	var ci asn1ContentInfo
	if _, err := asn1.Unmarshal(payload, &ci); err != nil {
		return report, nil
	}

	var sd asn1SignedData
	if _, err := asn1.Unmarshal(ci.Content.Bytes, &sd); err != nil {
		return report, nil
	}

	if certs, err := x509.ParseCertificates(sd.Certificates.Bytes); err == nil {
		for _, c := range certs {
			report.CertificateSubjects = append(report.CertificateSubjects, c.Subject.String())
			report.CertificateIssuers = append(report.CertificateIssuers, c.Issuer.String())
		}
	}

	report.SignedAttributes = extractSignedAttributes(sd.SignerInfos.Bytes)
	return report, nil
}

// extractSignedAttributes walks the raw SET OF SignerInfo bytes and collects
// each SignerInfo's signed attributes, naming the OIDs it recognizes;
// anything else is reported with its bare OID so callers can still see
// "unknown attribute, OID X, N values" (spec.md §4.6).
func extractSignedAttributes(raw []byte) []SignedAttribute {
	type attribute struct {
		Type   asn1.ObjectIdentifier
		Values []asn1.RawValue `asn1:"set"`
	}
	type signerInfo struct {
		Version         int
		SID             asn1.RawValue
		DigestAlgorithm asn1.RawValue
		SignedAttrs     []attribute `asn1:"optional,tag:0"`
	}
	var attrs []attribute
	rest := raw
	for len(rest) > 0 {
		var si signerInfo
		tail, err := asn1.Unmarshal(rest, &si)
		if err != nil {
			break
		}
		attrs = append(attrs, si.SignedAttrs...)
		if len(tail) == len(rest) {
			break
		}
		rest = tail
	}

	var out []SignedAttribute
	for _, a := range attrs {
		out = append(out, SignedAttribute{
			OID:   a.Type,
			Name:  attributeName(a.Type),
			Count: len(a.Values),
		})
	}
	return out
}

func attributeName(oid asn1.ObjectIdentifier) string {
	switch {
	case oid.Equal(oidCDHashes):
		return "CDHashes"
	case oid.Equal(oidCDHashes2):
		return "CDHashes2"
	case oid.Equal(asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}):
		return "ContentType"
	case oid.Equal(asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}):
		return "SigningTime"
	case oid.Equal(asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}):
		return "MessageDigest"
	default:
		return ""
	}
}
