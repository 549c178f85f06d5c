package csblob

import (
	"fmt"

	"github.com/blacktop/go-csblob/types"
)

// IndexEntry is one (type, offset) pair of a superblob's index, offset
// measured from the start of the superblob.
type IndexEntry struct {
	Type   types.SlotType
	Offset uint32
}

// Superblob is the parsed form of a CSMAGIC_EMBEDDED_SIGNATURE container:
// the header, its index, and the raw bytes of every slot keyed by type.
type Superblob struct {
	Magic  types.Magic
	Length uint32
	Index  []IndexEntry
	Slots  map[types.SlotType][]byte
}

// Slot returns the raw bytes of the slot of the given type, if present.
func (s *Superblob) Slot(t types.SlotType) ([]byte, bool) {
	b, ok := s.Slots[t]
	return b, ok
}

// BuildSuperblob packs slots (in the given index order) into a single
// CSMAGIC_EMBEDDED_SIGNATURE buffer: a 12-byte header (magic, length,
// count), then count*8 index bytes, then the slot payloads back to back in
// the same order.
func BuildSuperblob(slots []IndexEntryPayload) []byte {
	headerLen := 12
	indexLen := len(slots) * 8
	offset := uint32(headerLen + indexLen)

	entries := make([]IndexEntry, len(slots))
	for i, s := range slots {
		entries[i] = IndexEntry{Type: s.Type, Offset: offset}
		offset += uint32(len(s.Payload))
	}

	out := make([]byte, 0, offset)
	out = put32be(out, uint32(types.MagicEmbeddedSignature))
	out = put32be(out, offset)
	out = put32be(out, uint32(len(slots)))
	for _, e := range entries {
		out = put32be(out, uint32(e.Type))
		out = put32be(out, e.Offset)
	}
	for _, s := range slots {
		out = append(out, s.Payload...)
	}
	return out
}

// IndexEntryPayload is a slot awaiting assembly into a superblob: its type
// tag and its already-built byte payload (magic+length+body, if the slot
// kind has its own inner framing).
type IndexEntryPayload struct {
	Type    types.SlotType
	Payload []byte
}

// ParseSuperblob validates the header and index and slices out each slot's
// raw bytes. It returns ErrMalformedBlob (wrapped with detail) on bad magic,
// a declared length exceeding the buffer, or an out-of-range slot offset;
// the dispatch to per-slot parsers is the orchestrator's job, not this
// function's (see orchestrator.go).
func ParseSuperblob(data []byte) (*Superblob, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: buffer too short for superblob header (%d bytes)", ErrMalformedBlob, len(data))
	}
	magic := types.Magic(get32be(data[0:4]))
	if magic != types.MagicEmbeddedSignature && magic != types.MagicDetachedSignature {
		return nil, fmt.Errorf("%w: unrecognized superblob magic %s", ErrMalformedBlob, magic)
	}
	length := get32be(data[4:8])
	if int(length) > len(data) {
		return nil, fmt.Errorf("%w: declared length %d exceeds buffer of %d bytes", ErrMalformedBlob, length, len(data))
	}
	count := get32be(data[8:12])
	indexEnd := 12 + int(count)*8
	if indexEnd > int(length) {
		return nil, fmt.Errorf("%w: index of %d entries overruns declared length %d", ErrMalformedBlob, count, length)
	}

	entries := make([]IndexEntry, count)
	for i := 0; i < int(count); i++ {
		off := 12 + i*8
		entries[i] = IndexEntry{
			Type:   types.SlotType(get32be(data[off : off+4])),
			Offset: get32be(data[off+4 : off+8]),
		}
	}

	slots := make(map[types.SlotType][]byte, count)
	for i, e := range entries {
		if int(e.Offset) < indexEnd || int(e.Offset) >= int(length) {
			return nil, fmt.Errorf("%w: slot %d offset %d out of range [%d, %d)", ErrMalformedBlob, i, e.Offset, indexEnd, length)
		}
		end := int(length)
		if i+1 < len(entries) {
			end = int(entries[i+1].Offset)
		}
		if end > len(data) || end < int(e.Offset) {
			return nil, fmt.Errorf("%w: slot %d has an invalid extent", ErrMalformedBlob, i)
		}
		slots[e.Type] = data[e.Offset:end]
	}

	return &Superblob{Magic: magic, Length: length, Index: entries, Slots: slots}, nil
}

// GetCodeSignatureLength reads the superblob header length when magic
// matches CSMAGIC_EMBEDDED_SIGNATURE, otherwise returns 0; used to discover
// an existing signature's footprint before overwriting it.
func GetCodeSignatureLength(data []byte) uint32 {
	if len(data) < 8 {
		return 0
	}
	if types.Magic(get32be(data[0:4])) != types.MagicEmbeddedSignature {
		return 0
	}
	return get32be(data[4:8])
}
