package types

// Magic is a code-signing blob magic number (big-endian on the wire).
type Magic uint32

const (
	MagicRequirement             Magic = 0xfade0c00 // single Requirement blob
	MagicRequirements            Magic = 0xfade0c01 // Requirements vector (internal requirements)
	MagicCodeDirectory           Magic = 0xfade0c02 // CodeDirectory blob
	MagicEmbeddedSignature       Magic = 0xfade0cc0 // embedded form of signature data (the superblob)
	MagicEmbeddedEntitlements    Magic = 0xfade7171 // embedded entitlements (raw XML plist)
	MagicEmbeddedEntitlementsDER Magic = 0xfade7172 // embedded entitlements (DER)
	MagicDetachedSignature       Magic = 0xfade0cc1 // multi-arch collection of embedded signatures
	MagicBlobWrapper             Magic = 0xfade0b01 // used for the CMS blob
)

var magicStrings = []IntName{
	{uint32(MagicRequirement), "Requirement"},
	{uint32(MagicRequirements), "Requirements"},
	{uint32(MagicCodeDirectory), "CodeDirectory"},
	{uint32(MagicEmbeddedSignature), "EmbeddedSignature"},
	{uint32(MagicEmbeddedEntitlements), "EmbeddedEntitlements"},
	{uint32(MagicEmbeddedEntitlementsDER), "EmbeddedEntitlementsDER"},
	{uint32(MagicDetachedSignature), "DetachedSignature"},
	{uint32(MagicBlobWrapper), "BlobWrapper"},
}

func (m Magic) String() string   { return StringName(uint32(m), magicStrings, false) }
func (m Magic) GoString() string { return StringName(uint32(m), magicStrings, true) }

// SlotType identifies a superblob index entry.
type SlotType uint32

const (
	SlotCodeDirectory             SlotType = 0
	SlotInfoSlot                  SlotType = 1
	SlotRequirements              SlotType = 2
	SlotResourceDir               SlotType = 3
	SlotApplication                        = SlotType(4)
	SlotEntitlements              SlotType = 5
	SlotRepSpecific               SlotType = 6
	SlotEntitlementsDER           SlotType = 7
	SlotAlternateCodeDirectories  SlotType = 0x1000
	SlotCMSSignature              SlotType = 0x10000
	SlotIdentificationSlot        SlotType = 0x10001
	SlotTicketSlot                SlotType = 0x10002
)

var slotTypeStrings = []IntName{
	{uint32(SlotCodeDirectory), "CodeDirectory"},
	{uint32(SlotInfoSlot), "InfoSlot"},
	{uint32(SlotRequirements), "Requirements"},
	{uint32(SlotResourceDir), "ResourceDir"},
	{uint32(SlotApplication), "Application"},
	{uint32(SlotEntitlements), "Entitlements"},
	{uint32(SlotRepSpecific), "RepSpecific"},
	{uint32(SlotEntitlementsDER), "EntitlementsDER"},
	{uint32(SlotAlternateCodeDirectories), "AlternateCodeDirectories"},
	{uint32(SlotCMSSignature), "CMSSignature"},
	{uint32(SlotIdentificationSlot), "IdentificationSlot"},
	{uint32(SlotTicketSlot), "TicketSlot"},
}

func (s SlotType) String() string   { return StringName(uint32(s), slotTypeStrings, false) }
func (s SlotType) GoString() string { return StringName(uint32(s), slotTypeStrings, true) }

// HashType is the cdHashType wire value in a CodeDirectory header.
type HashType uint8

const (
	HashTypeNone            HashType = 0
	HashTypeSHA1            HashType = 1
	HashTypeSHA256          HashType = 2
	HashTypeSHA256Truncated HashType = 3
)

var hashTypeStrings = []IntName{
	{uint32(HashTypeNone), "NoHash"},
	{uint32(HashTypeSHA1), "SHA1"},
	{uint32(HashTypeSHA256), "SHA256"},
	{uint32(HashTypeSHA256Truncated), "SHA256Truncated"},
}

func (h HashType) String() string { return StringName(uint32(h), hashTypeStrings, false) }

const (
	PageSize = 4096 // fixed code-page size
	PageLog2 = 12   // log2(PageSize), as stored in CodeDirectory.PageSize

	HashSizeSHA1   = 20
	HashSizeSHA256 = 32
	CDHashLen      = 20 // cdhashes are always truncated to this length
)

// CDVersion is the CodeDirectory compatibility version; each threshold below
// gates a fixed-size suffix appended to the header (see csblob's
// BuildCodeDirectory and ParseCodeDirectory).
type CDVersion uint32

const (
	SupportsScatter     CDVersion = 0x20100
	SupportsTeamID      CDVersion = 0x20200
	SupportsCodeLimit64 CDVersion = 0x20300
	SupportsExecSeg     CDVersion = 0x20400
)

var cdVersionStrings = []IntName{
	{uint32(SupportsScatter), "SupportsScatter"},
	{uint32(SupportsTeamID), "SupportsTeamID"},
	{uint32(SupportsCodeLimit64), "SupportsCodeLimit64"},
	{uint32(SupportsExecSeg), "SupportsExecSeg"},
}

func (v CDVersion) String() string { return StringName(uint32(v), cdVersionStrings, false) }

// CDFlag is the CodeDirectory Flags field (code signing attributes).
type CDFlag uint32

const (
	FlagNone  CDFlag = 0x00000000
	FlagValid CDFlag = 0x00000001 // dynamically valid
	FlagAdhoc CDFlag = 0x00000002 // ad hoc signed
)

// ExecSegFlag is the CodeDirectory ExecSegFlags field (version >= 0x20400).
type ExecSegFlag uint64

const (
	ExecSegMainBinary    ExecSegFlag = 0x1  // executable segment denotes main binary
	ExecSegAllowUnsigned ExecSegFlag = 0x10 // allow unsigned pages (for debugging)
)

var execSegFlagStrings = []Int64Name{
	{uint64(ExecSegMainBinary), "ExecSegMainBinary"},
	{uint64(ExecSegAllowUnsigned), "ExecSegAllowUnsigned"},
}

func (f ExecSegFlag) String() string { return StringName64(uint64(f), execSegFlagStrings, false) }

// RequirementType identifies a parsed internal-requirements entry.
type RequirementType uint32

const (
	HostRequirementType       RequirementType = 1
	GuestRequirementType      RequirementType = 2
	DesignatedRequirementType RequirementType = 3
	LibraryRequirementType    RequirementType = 4
	PluginRequirementType     RequirementType = 5
)

var requirementTypeStrings = []IntName{
	{uint32(HostRequirementType), "HostRequirement"},
	{uint32(GuestRequirementType), "GuestRequirement"},
	{uint32(DesignatedRequirementType), "DesignatedRequirement"},
	{uint32(LibraryRequirementType), "LibraryRequirement"},
	{uint32(PluginRequirementType), "PluginRequirement"},
}

func (t RequirementType) String() string { return StringName(uint32(t), requirementTypeStrings, false) }
