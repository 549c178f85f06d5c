package csblob

// Literal byte templates for the designated-requirement expression "anchor
// apple generic and identifier = BUNDLE and subject.CN = CN", reproduced
// byte-for-byte from ZSign::SlotBuildRequirements (original_source/ZSign/
// signing.cpp) since the wire format has no documented grammar to derive
// these from; pack3 carries the literal ASCII "subject.CN" at offset 24.
var (
	reqPack1 = []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00, 0x14}
	reqPack2 = []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x00, 0x00, 0x00, 0x02}
	reqPack3 = []byte{
		0x00, 0x00, 0x00, 0x06, 0x00, 0x00, 0x00, 0x0f, 0x00, 0x00, 0x00, 0x06, 0x00, 0x00, 0x00, 0x0b,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0a, 0x73, 0x75, 0x62, 0x6a, 0x65, 0x63, 0x74, 0x2e,
		0x43, 0x4e, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01,
	}
	reqPack4 = []byte{
		0x00, 0x00, 0x00, 0x0e, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x0a, 0x2a, 0x86, 0x48, 0x86,
		0xf7, 0x63, 0x64, 0x06, 0x02, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	// emptyRequirementsBlob is the canonical placeholder emitted when either
	// the bundle id or the subject common name is absent.
	emptyRequirementsBlob = []byte{0xfa, 0xde, 0x0c, 0x01, 0x00, 0x00, 0x00, 0x0c, 0x00, 0x00, 0x00, 0x00}
)

// pad4 appends NUL bytes until s's length is a multiple of 4.
func pad4(s string) []byte {
	b := []byte(s)
	if rem := len(b) % 4; rem != 0 {
		b = append(b, make([]byte, 4-rem)...)
	}
	return b
}

// BuildRequirements builds the requirements slot: the canonical empty blob
// if bundleID or subjectCN is empty, otherwise the full designated
// requirement expression.
func BuildRequirements(bundleID, subjectCN string) []byte {
	if bundleID == "" || subjectCN == "" {
		out := make([]byte, len(emptyRequirementsBlob))
		copy(out, emptyRequirementsBlob)
		return out
	}

	paddedBundleID := pad4(bundleID)
	paddedSubjectCN := pad4(subjectCN)

	length2 := uint32(4+4+len(reqPack2)) +
		uint32(4+len(paddedBundleID)) +
		uint32(len(reqPack3)) +
		uint32(4+len(paddedSubjectCN)) +
		uint32(len(reqPack4))
	length1 := uint32(4+4+len(reqPack1)) + length2

	out := make([]byte, 0, 8+length1)
	out = put32be(out, uint32(0xfade0c01))
	out = put32be(out, length1)
	out = append(out, reqPack1...)
	out = put32be(out, uint32(0xfade0c00))
	out = put32be(out, length2)
	out = append(out, reqPack2...)
	out = put32be(out, uint32(len(bundleID)))
	out = append(out, paddedBundleID...)
	out = append(out, reqPack3...)
	out = put32be(out, uint32(len(subjectCN)))
	out = append(out, paddedSubjectCN...)
	out = append(out, reqPack4...)
	return out
}

// ParseRequirements renders a diagnostic summary of a requirements slot; it
// performs no structural validation beyond a minimum length of 8 bytes (the
// outer header), matching the parser's tolerant discipline.
func ParseRequirements(data []byte) (string, error) {
	if len(data) < 8 {
		return "", ErrMalformedBlob
	}
	magic := get32be(data[0:4])
	length := get32be(data[4:8])
	if magic == 0xfade0c01 && len(data) == 12 && length == 0x0c {
		return "requirements: (empty)", nil
	}
	return "requirements: opaque expression blob (not decompiled)", nil
}
