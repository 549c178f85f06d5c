package csblob

import (
	"crypto/sha1"
	"crypto/sha256"
	"fmt"

	"github.com/blacktop/go-csblob/types"
)

// UnknownSlot is surfaced for a slot type the orchestrator does not have a
// dedicated parser for: it is still reported, generically, with both
// digests so a diagnostic dump can at least fingerprint it (spec.md §4.7).
type UnknownSlot struct {
	Type        types.SlotType
	SHA1Digest  []byte
	SHA256Digest []byte
}

// SuperblobReport is the diagnostic result of ParseEmbeddedSignature: every
// slot decoded as far as its own parser goes, plus anything unrecognized.
type SuperblobReport struct {
	Superblob              *Superblob
	CodeDirectory          *CodeDirectory
	AlternateCodeDirectory *CodeDirectory
	Requirements           string
	Entitlements           string
	CMS                    *CMSReport
	Unknown                []UnknownSlot
	Errors                 []error // non-fatal: one slot's failure never aborts the rest
}

// ParseEmbeddedSignature validates the superblob header, walks its index,
// and dispatches each slot to its parser. Per the parser's tolerant
// discipline, an error in one slot is recorded in Errors and does not
// prevent the remaining slots from being decoded.
func ParseEmbeddedSignature(data []byte) (*SuperblobReport, error) {
	sb, err := ParseSuperblob(data)
	if err != nil {
		return nil, err
	}

	report := &SuperblobReport{Superblob: sb}

	for _, entry := range sb.Index {
		slot, ok := sb.Slots[entry.Type]
		if !ok {
			continue
		}
		switch entry.Type {
		case types.SlotCodeDirectory:
			cd, err := ParseCodeDirectory(slot)
			report.CodeDirectory = cd
			if err != nil {
				report.Errors = append(report.Errors, err)
			}
		case types.SlotAlternateCodeDirectories:
			cd, err := ParseCodeDirectory(slot)
			report.AlternateCodeDirectory = cd
			if err != nil {
				report.Errors = append(report.Errors, err)
			}
		case types.SlotRequirements:
			s, err := ParseRequirements(slot)
			report.Requirements = s
			if err != nil {
				report.Errors = append(report.Errors, err)
			}
		case types.SlotEntitlements:
			if len(slot) < 8 {
				report.Errors = append(report.Errors, fmt.Errorf("%w: entitlements slot shorter than its header", ErrMalformedBlob))
				continue
			}
			report.Entitlements = string(slot[8:])
		case types.SlotCMSSignature:
			cms, err := ParseCMSSignature(slot)
			report.CMS = cms
			if err != nil {
				report.Errors = append(report.Errors, err)
			}
		default:
			report.Unknown = append(report.Unknown, UnknownSlot{
				Type:         entry.Type,
				SHA1Digest:   sha1Digest(slot),
				SHA256Digest: sha256Digest(slot),
			})
		}
	}

	return report, nil
}

func sha1Digest(b []byte) []byte {
	h := sha1.Sum(b)
	return h[:]
}

func sha256Digest(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}

// ReuseExistingCodeSlots scans a parsed superblob for the CODEDIRECTORY
// (SHA-1) and ALTERNATE_CODEDIRECTORIES (SHA-256) code-slot hash buffers.
// It returns ok only when both are present with non-zero length, permitting
// BuildCodeDirectory callers to skip re-hashing unchanged pages when
// re-signing.
func ReuseExistingCodeSlots(sb *Superblob) (sha1CodeSlots, sha256CodeSlots []byte, ok bool) {
	primary, hasPrimary := sb.Slot(types.SlotCodeDirectory)
	alternate, hasAlternate := sb.Slot(types.SlotAlternateCodeDirectories)
	if !hasPrimary || !hasAlternate {
		return nil, nil, false
	}

	primaryCD, err := ParseCodeDirectory(primary)
	if err != nil && primaryCD == nil {
		return nil, nil, false
	}
	alternateCD, err2 := ParseCodeDirectory(alternate)
	if err2 != nil && alternateCD == nil {
		return nil, nil, false
	}

	if len(primaryCD.CodeSlots) == 0 || len(alternateCD.CodeSlots) == 0 {
		return nil, nil, false
	}
	return primaryCD.CodeSlots, alternateCD.CodeSlots, true
}

// SignInput gathers every input the full build pipeline needs: the code
// region, identity, entitlements, companion digests, and the CMS signer.
// Building both code directories and assembling the superblob from them is
// the "data flows top-down on build" pipeline described in SPEC_FULL.md §2.
type SignInput struct {
	Code         []byte
	BundleID     string
	TeamID       string
	SubjectCN    string
	IsAdhoc      bool
	IsExecuteArch bool

	ExecSegBase  uint64
	ExecSegLimit uint64
	ExecSegFlags types.ExecSegFlag

	EntitlementsXML []byte // optional
	InfoPlistDigest      []byte
	CodeResourcesDigest  []byte

	ExistingSHA1CodeSlots   []byte // optional reuse, from ReuseExistingCodeSlots
	ExistingSHA256CodeSlots []byte

	Signer CMSSigner // unused when IsAdhoc
}

// BuildEmbeddedSignature runs the full pipeline: builds the requirements,
// entitlements and DER-entitlements slots, feeds their digests into the two
// parallel code directories (SHA-1 primary, SHA-256 alternate), signs with
// CMS, and packs everything into one CSMAGIC_EMBEDDED_SIGNATURE superblob.
func BuildEmbeddedSignature(in SignInput) ([]byte, error) {
	requirements := BuildRequirements(in.BundleID, in.SubjectCN)
	requirementsDigestSHA1 := sha1Digest(requirements)
	requirementsDigestSHA256 := sha256Digest(requirements)

	var entitlementsSlot, derEntitlementsSlot []byte
	var entitlementsDigestSHA1, entitlementsDigestSHA256 []byte
	var derEntitlementsDigestSHA1, derEntitlementsDigestSHA256 []byte
	haveEntitlements := len(in.EntitlementsXML) > 0
	if haveEntitlements {
		entitlementsSlot = BuildEntitlements(in.EntitlementsXML)
		entitlementsDigestSHA1 = sha1Digest(entitlementsSlot)
		entitlementsDigestSHA256 = sha256Digest(entitlementsSlot)

		var err error
		derEntitlementsSlot, err = BuildDerEntitlements(in.EntitlementsXML)
		if err != nil {
			return nil, err
		}
		derEntitlementsDigestSHA1 = sha1Digest(derEntitlementsSlot)
		derEntitlementsDigestSHA256 = sha256Digest(derEntitlementsSlot)
	}

	primaryCD, err := BuildCodeDirectory(CodeDirectoryInput{
		Alternate:             false,
		Code:                  in.Code,
		ExistingCodeSlots:     in.ExistingSHA1CodeSlots,
		ExecSegBase:           in.ExecSegBase,
		ExecSegLimit:          in.ExecSegLimit,
		ExecSegFlags:          in.ExecSegFlags,
		BundleID:              in.BundleID,
		TeamID:                in.TeamID,
		InfoPlistDigest:       in.InfoPlistDigest,
		RequirementsDigest:    requirementsDigestSHA1,
		CodeResourcesDigest:   in.CodeResourcesDigest,
		EntitlementsDigest:    entitlementsDigestSHA1,
		DerEntitlementsDigest: derEntitlementsDigestSHA1,
		IsExecuteArch:         in.IsExecuteArch,
		IsAdhoc:               in.IsAdhoc,
	})
	if err != nil {
		return nil, fmt.Errorf("building primary code directory: %w", err)
	}

	alternateCD, err := BuildCodeDirectory(CodeDirectoryInput{
		Alternate:             true,
		Code:                  in.Code,
		ExistingCodeSlots:     in.ExistingSHA256CodeSlots,
		ExecSegBase:           in.ExecSegBase,
		ExecSegLimit:          in.ExecSegLimit,
		ExecSegFlags:          in.ExecSegFlags,
		BundleID:              in.BundleID,
		TeamID:                in.TeamID,
		InfoPlistDigest:       in.InfoPlistDigest,
		RequirementsDigest:    requirementsDigestSHA256,
		CodeResourcesDigest:   in.CodeResourcesDigest,
		EntitlementsDigest:    entitlementsDigestSHA256,
		DerEntitlementsDigest: derEntitlementsDigestSHA256,
		IsExecuteArch:         in.IsExecuteArch,
		IsAdhoc:               in.IsAdhoc,
	})
	if err != nil {
		return nil, fmt.Errorf("building alternate code directory: %w", err)
	}

	cms, err := BuildCMSSignature(in.Signer, in.IsAdhoc, primaryCD, alternateCD)
	if err != nil {
		return nil, err
	}

	slots := []IndexEntryPayload{
		{Type: types.SlotCodeDirectory, Payload: primaryCD},
		{Type: types.SlotRequirements, Payload: requirements},
	}
	if haveEntitlements {
		slots = append(slots, IndexEntryPayload{Type: types.SlotEntitlements, Payload: entitlementsSlot})
	}
	slots = append(slots, IndexEntryPayload{Type: types.SlotAlternateCodeDirectories, Payload: alternateCD})
	if haveEntitlements {
		slots = append(slots, IndexEntryPayload{Type: types.SlotEntitlementsDER, Payload: derEntitlementsSlot})
	}
	slots = append(slots, IndexEntryPayload{Type: types.SlotCMSSignature, Payload: cms})

	return BuildSuperblob(slots), nil
}
