// Package block implements the single-column block codecs of spec.md §4.1:
// builder+iterator pairs for Plain, PlainNullable, RLE, Dict, PlainVarchar,
// PlainFixedChar and Vector blocks, framed by a common footer holding the
// block type, checksum type and checksum (see FooterSize; DESIGN.md notes
// the byte-count reconciliation against spec.md's field list).
package block

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/coldb/coldb/pkg/storage/config"
	"github.com/coldb/coldb/pkg/storage/errs"
)

// Type tags the codec used to produce a block's body. The low nibble names
// the base codec; NullableFlag marks that the body is wrapped by the
// nullable layout of spec.md §4.1 ("Plain nullable (wrapper)").
type Type int32

const (
	TypePlain       Type = 0
	TypeRLE         Type = 1
	TypeDict        Type = 2
	TypePlainVarchar Type = 3
	TypePlainFixedChar Type = 4
	TypeVector      Type = 5

	NullableFlag Type = 0x10
)

func (t Type) Base() Type       { return t &^ NullableFlag }
func (t Type) IsNullable() bool { return t&NullableFlag != 0 }

// FooterSize is the fixed footer: block_type:i32 LE, checksum_type:i32 LE,
// checksum:u64 LE — 16 bytes total (see DESIGN.md for why this resolves
// spec.md's narrower "12-byte footer" wording in favor of its own field list).
const FooterSize = 4 + 4 + 8

// Frame appends the footer to a block body, computing the checksum over
// body++block_type_bytes as spec.md §4.1 mandates.
func Frame(body []byte, bt Type, ct config.ChecksumType) []byte {
	btBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(btBytes, uint32(bt))

	var checksum uint64
	if ct == config.ChecksumCrc32 {
		h := crc32.NewIEEE()
		h.Write(body)
		h.Write(btBytes)
		checksum = uint64(h.Sum32())
	}

	out := make([]byte, 0, len(body)+FooterSize)
	out = append(out, body...)
	out = append(out, btBytes...)
	ctBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(ctBytes, uint32(ct))
	out = append(out, ctBytes...)
	csBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(csBytes, checksum)
	out = append(out, csBytes...)
	return out
}

// Split validates the footer checksum (when present) and returns the block
// type plus the body bytes (footer stripped).
func Split(raw []byte) (bt Type, body []byte, err error) {
	if len(raw) < FooterSize {
		return 0, nil, &errs.DecodeError{Reason: "block shorter than footer"}
	}
	bodyLen := len(raw) - FooterSize
	body = raw[:bodyLen]
	btBytes := raw[bodyLen : bodyLen+4]
	bt = Type(binary.LittleEndian.Uint32(btBytes))
	ct := config.ChecksumType(binary.LittleEndian.Uint32(raw[bodyLen+4 : bodyLen+8]))
	checksum := binary.LittleEndian.Uint64(raw[bodyLen+8 : bodyLen+16])

	if ct == config.ChecksumCrc32 {
		h := crc32.NewIEEE()
		h.Write(body)
		h.Write(btBytes)
		if uint64(h.Sum32()) != checksum {
			return 0, nil, &errs.DecodeError{Reason: "block checksum mismatch"}
		}
	}
	return bt, body, nil
}
