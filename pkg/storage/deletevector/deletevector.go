// Package deletevector implements spec.md §4.7: a sorted-unique row-id
// set persisted per rowset and applied to a visibility bitmap at scan
// time.
package deletevector

import (
	"encoding/binary"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/storage/errs"
)

// DV is a compressed, sorted-unique set of deleted row ids. Roaring
// bitmaps are the natural fit here: the set is sparse relative to a
// rowset's row-id space and needs fast "which of these ids are set"
// membership tests at scan time (spec.md §4.7 "apply_to").
type DV struct {
	bm *roaring.Bitmap
}

// New constructs a DV from a raw list of row ids, sorting and
// deduplicating (spec.md §4.7 "Construction from a raw list sorts and
// dedups" — Add on a roaring bitmap already does both).
func New(ids []uint32) *DV {
	bm := roaring.New()
	for _, id := range ids {
		bm.Add(id)
	}
	return &DV{bm: bm}
}

func Empty() *DV { return &DV{bm: roaring.New()} }

func (dv *DV) Add(rowID uint32) { dv.bm.Add(rowID) }

func (dv *DV) Contains(rowID uint32) bool { return dv.bm.Contains(rowID) }

func (dv *DV) Count() uint64 { return dv.bm.GetCardinality() }

// ApplyTo clears bits in bitmap for every deleted row id in
// [offsetRowID, offsetRowID+bitmap.Len()), walking the roaring bitmap's
// sorted iterator in lockstep rather than testing membership bit by bit
// (spec.md §4.7: "uses partition_point to skip leading deletes below the
// slice, then walks in lockstep with the bitmap").
func (dv *DV) ApplyTo(bitmap *array.Bitmap, offsetRowID uint32) {
	end := offsetRowID + uint32(bitmap.Len())
	it := dv.bm.Iterator()
	it.AdvanceIfNeeded(offsetRowID)
	for it.HasNext() {
		id := it.Next()
		if id >= end {
			break
		}
		bitmap.Set(int(id-offsetRowID), false)
	}
}

// Encode serializes the DV as a stream of length-delimited DeleteRecord
// messages, one per row id (spec.md §4.7).
func (dv *DV) Encode() []byte {
	out := make([]byte, 0, dv.bm.GetCardinality()*8)
	it := dv.bm.Iterator()
	var lenBuf, idBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], 4)
	for it.HasNext() {
		id := it.Next()
		out = append(out, lenBuf[:]...)
		binary.LittleEndian.PutUint32(idBuf[:], id)
		out = append(out, idBuf[:]...)
	}
	return out
}

// Decode parses a DV from its persisted length-delimited record stream.
func Decode(data []byte) (*DV, error) {
	bm := roaring.New()
	off := 0
	for off < len(data) {
		if off+4 > len(data) {
			return nil, &errs.DecodeError{Reason: "truncated delete vector record length"}
		}
		msgLen := binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
		if msgLen != 4 || off+4 > len(data) {
			return nil, &errs.DecodeError{Reason: "malformed delete vector record"}
		}
		bm.Add(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
	}
	return &DV{bm: bm}, nil
}
