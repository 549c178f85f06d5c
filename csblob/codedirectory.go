package csblob

import (
	"fmt"

	"github.com/blacktop/go-csblob/types"
)

// codeDirectoryHeaderLength is fixed at the version this engine always
// emits (0x20400): 44 base bytes plus the scatter/team/codeLimit64/execSeg
// tail (SPEC_FULL.md "Layout computation" step 3). scatterOffset and
// codeLimit64 reserve their bytes but are always written as zero (spec.md
// §9 open question: the source computes their size but never populates
// them).
const codeDirectoryHeaderLength = 88

const codeDirectoryVersion = 0x00020400

// CodeDirectoryInput carries everything CodeDirectorySlot needs to build one
// of the two parallel code directories (primary SHA-1, alternate SHA-256).
type CodeDirectoryInput struct {
	Alternate         bool // selects SHA-256 over SHA-1
	Code              []byte
	ExistingCodeSlots []byte // optional: verbatim nCodeSlots*hashSize buffer to reuse instead of re-hashing
	ExecSegBase       uint64
	ExecSegLimit      uint64
	ExecSegFlags      types.ExecSegFlag
	BundleID          string
	TeamID            string // required unless IsAdhoc

	InfoPlistDigest      []byte
	RequirementsDigest   []byte
	CodeResourcesDigest  []byte
	EntitlementsDigest   []byte
	DerEntitlementsDigest []byte

	IsExecuteArch bool // governs whether the DER-entitlements special slot pair appears
	IsAdhoc       bool
}

// CodeDirectory is the built or parsed form of a CSMAGIC_CODEDIRECTORY blob.
type CodeDirectory struct {
	Raw           []byte
	Version       uint32
	Flags         types.CDFlag
	HashSize      int
	HashType      types.HashType
	NSpecialSlots uint32
	NCodeSlots    uint32
	CodeLimit     uint32
	Identifier    string
	TeamID        string
	SpecialSlots  []SpecialSlotDigest // indices -NSpecialSlots .. -1, ordered ascending
	CodeSlots     []byte              // raw concatenated per-page digests
}

// SpecialSlotDigest is one negative-indexed special-slot digest.
type SpecialSlotDigest struct {
	Index  int32
	Digest []byte
}

// BuildCodeDirectory builds one code directory blob per in. It refuses to
// build (returning ErrInvalidInput) if the code is empty, the bundle id is
// empty, or the team id is empty on a non-ad-hoc build.
func BuildCodeDirectory(in CodeDirectoryInput) ([]byte, error) {
	if len(in.Code) == 0 {
		return nil, fmt.Errorf("%w: code length is zero", ErrInvalidInput)
	}
	if in.BundleID == "" {
		return nil, fmt.Errorf("%w: bundle id is empty", ErrInvalidInput)
	}
	if in.TeamID == "" && !in.IsAdhoc {
		return nil, fmt.Errorf("%w: team id is empty on a non-ad-hoc build", ErrInvalidInput)
	}

	algo := algorithmFor(in.Alternate)
	nCodeSlots := (uint32(len(in.Code)) + types.PageSize - 1) / types.PageSize

	specials := buildSpecialSlotVector(in, algo.size)
	nSpecialSlots := uint32(len(specials))

	identOffset := uint32(codeDirectoryHeaderLength)
	bundleBytes := append([]byte(in.BundleID), 0)

	var teamOffset uint32
	var teamBytes []byte
	if in.TeamID != "" {
		teamOffset = identOffset + uint32(len(bundleBytes))
		teamBytes = append([]byte(in.TeamID), 0)
	}

	hashOffset := identOffset + uint32(len(bundleBytes)) + uint32(len(teamBytes)) + nSpecialSlots*uint32(algo.size)

	codeSlots, err := buildCodeSlots(in.Code, in.ExistingCodeSlots, algo)
	if err != nil {
		return nil, err
	}

	totalLength := hashOffset + nCodeSlots*uint32(algo.size)

	flags := types.CDFlag(0)
	if in.IsAdhoc {
		flags |= types.FlagAdhoc
	}

	out := make([]byte, 0, totalLength)
	out = put32be(out, uint32(types.MagicCodeDirectory))
	out = put32be(out, totalLength)
	out = put32be(out, codeDirectoryVersion)
	out = put32be(out, uint32(flags))
	out = put32be(out, hashOffset)
	out = put32be(out, identOffset)
	out = put32be(out, nSpecialSlots)
	out = put32be(out, nCodeSlots)
	out = put32be(out, uint32(len(in.Code)))
	out = put8(out, uint8(algo.size))
	out = put8(out, uint8(algo.cdType))
	out = put8(out, 0) // platform
	out = put8(out, types.PageLog2)
	out = put32be(out, 0) // spare2
	out = put32be(out, 0) // scatterOffset, reserved
	out = put32be(out, teamOffset)
	out = put32be(out, 0) // spare3
	out = put64be(out, 0) // codeLimit64, reserved
	out = put64be(out, in.ExecSegBase)
	out = put64be(out, in.ExecSegLimit)
	out = put64be(out, uint64(in.ExecSegFlags))

	out = append(out, bundleBytes...)
	out = append(out, teamBytes...)
	for _, s := range specials {
		out = append(out, s...)
	}
	out = append(out, codeSlots...)

	return out, nil
}

// buildSpecialSlotVector assembles the special-slot digest vector in the
// order the wire format lays them out (highest absolute index first, i.e.
// DER-entitlements before entitlements before the rest), substituting an
// all-zero buffer of hashSize bytes for any absent digest, then elides leading
// (highest-index) all-zero entries.
func buildSpecialSlotVector(in CodeDirectoryInput, hashSize int) [][]byte {
	zero := make([]byte, hashSize)
	fit := func(d []byte) []byte {
		if len(d) == 0 {
			return zero
		}
		return d
	}

	var vec [][]byte
	if in.IsExecuteArch {
		vec = append(vec, fit(in.DerEntitlementsDigest), zero)
	}
	vec = append(vec,
		fit(in.EntitlementsDigest),
		zero,
		fit(in.CodeResourcesDigest),
		fit(in.RequirementsDigest),
		fit(in.InfoPlistDigest),
	)

	first := 0
	for first < len(vec) && isZero(vec[first]) {
		first++
	}
	return vec[first:]
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// buildCodeSlots returns the concatenated per-page digests over code: a
// verbatim copy of existing if it is exactly nCodeSlots*hashSize bytes,
// otherwise a fresh hash per full page plus one over the trailing partial
// page.
func buildCodeSlots(code, existing []byte, algo hashAlgorithm) ([]byte, error) {
	nCodeSlots := (len(code) + types.PageSize - 1) / types.PageSize
	want := nCodeSlots * algo.size
	if len(existing) == want && want > 0 {
		out := make([]byte, want)
		copy(out, existing)
		return out, nil
	}

	out := make([]byte, 0, want)
	for off := 0; off < len(code); off += types.PageSize {
		end := off + types.PageSize
		if end > len(code) {
			end = len(code)
		}
		out = append(out, algo.sum(code[off:end])...)
	}
	return out, nil
}

// ParseCodeDirectory decodes a raw CSMAGIC_CODEDIRECTORY slot. It returns
// ErrTruncatedCodeDirectory if the declared offsets run past the slot's own
// length, but still returns whatever it managed to decode alongside the
// error so sibling slots keep parsing (the parser's tolerant discipline).
func ParseCodeDirectory(data []byte) (*CodeDirectory, error) {
	if len(data) < 44 {
		return nil, fmt.Errorf("%w: slot shorter than the fixed header", ErrTruncatedCodeDirectory)
	}

	cd := &CodeDirectory{Raw: data}
	cd.Version = get32be(data[8:12])
	cd.Flags = types.CDFlag(get32be(data[12:16]))
	hashOffset := get32be(data[16:20])
	identOffset := get32be(data[20:24])
	cd.NSpecialSlots = get32be(data[24:28])
	cd.NCodeSlots = get32be(data[28:32])
	cd.CodeLimit = get32be(data[32:36])
	cd.HashSize = int(data[36])
	cd.HashType = types.HashType(data[37])

	headerEnd := uint32(44)
	var teamOffset uint32
	if cd.Version >= uint32(types.SupportsScatter) {
		headerEnd += 4
	}
	if cd.Version >= uint32(types.SupportsTeamID) {
		if int(headerEnd)+4 <= len(data) {
			teamOffset = get32be(data[headerEnd : headerEnd+4])
		}
		headerEnd += 4
	}
	if cd.Version >= uint32(types.SupportsCodeLimit64) {
		headerEnd += 4 + 8
	}
	if cd.Version >= uint32(types.SupportsExecSeg) {
		headerEnd += 8 + 8 + 8
	}

	if identOffset != 0 && int(identOffset) < len(data) {
		cd.Identifier = cString(data[identOffset:])
	}
	if teamOffset != 0 && int(teamOffset) < len(data) {
		cd.TeamID = cString(data[teamOffset:])
	}

	specialSpan := uint64(cd.NSpecialSlots) * uint64(cd.HashSize)
	codeSpan := uint64(cd.NCodeSlots) * uint64(cd.HashSize)

	if uint64(hashOffset) > uint64(len(data)) {
		return cd, fmt.Errorf("%w: hashOffset %d exceeds slot length %d", ErrTruncatedCodeDirectory, hashOffset, len(data))
	}
	if uint64(hashOffset) < uint64(headerEnd) || specialSpan > uint64(hashOffset)-uint64(headerEnd) {
		return cd, fmt.Errorf("%w: special-slot span exceeds header-to-hashOffset gap", ErrTruncatedCodeDirectory)
	}
	if uint64(hashOffset)+codeSpan > uint64(len(data)) {
		return cd, fmt.Errorf("%w: code-slot span exceeds slot length", ErrTruncatedCodeDirectory)
	}

	specialStart := uint64(hashOffset) - specialSpan
	for i := uint32(0); i < cd.NSpecialSlots; i++ {
		off := specialStart + uint64(i)*uint64(cd.HashSize)
		digest := data[off : off+uint64(cd.HashSize)]
		index := -int32(cd.NSpecialSlots) + int32(i)
		cd.SpecialSlots = append(cd.SpecialSlots, SpecialSlotDigest{Index: index, Digest: digest})
	}

	cd.CodeSlots = data[hashOffset : uint64(hashOffset)+codeSpan]
	return cd, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
