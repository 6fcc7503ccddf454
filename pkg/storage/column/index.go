package column

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/coldb/coldb/pkg/storage/block"
	"github.com/coldb/coldb/pkg/storage/config"
	"github.com/coldb/coldb/pkg/storage/errs"
)

// indexMagic tags the start of a serialized column index, spec.md §3
// "Block index entry ... trailing footer { magic:u32, count:u64,
// checksum_type:i32, checksum:u64 }".
const indexMagic uint32 = 0x434f4c44 // "COLD"

// IndexFooterSize is the fixed trailer: magic:u32, count:u64,
// checksum_type:i32, checksum:u64 — 24 bytes.
const IndexFooterSize = 4 + 8 + 4 + 8

// Entry is one block's index record: spec.md §3 "Block index entry".
type Entry struct {
	Offset   uint64
	Length   uint64 // including the block's own footer
	FirstRow uint32
	RowCount uint32
	FirstKey []byte // nil when RecordFirstKey is false
	Stats    []block.Statistic
}

// appendEntry writes one length-delimited index record to buf.
func appendEntry(buf []byte, e Entry) []byte {
	rec := make([]byte, 0, 32+len(e.FirstKey))
	var tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], e.Offset)
	rec = append(rec, tmp8[:]...)
	binary.LittleEndian.PutUint64(tmp8[:], e.Length)
	rec = append(rec, tmp8[:]...)
	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], e.FirstRow)
	rec = append(rec, tmp4[:]...)
	binary.LittleEndian.PutUint32(tmp4[:], e.RowCount)
	rec = append(rec, tmp4[:]...)

	binary.LittleEndian.PutUint32(tmp4[:], uint32(len(e.FirstKey)))
	rec = append(rec, tmp4[:]...)
	rec = append(rec, e.FirstKey...)

	binary.LittleEndian.PutUint32(tmp4[:], uint32(len(e.Stats)))
	rec = append(rec, tmp4[:]...)
	for _, s := range e.Stats {
		binary.LittleEndian.PutUint32(tmp4[:], uint32(s.Type))
		rec = append(rec, tmp4[:]...)
		binary.LittleEndian.PutUint32(tmp4[:], uint32(len(s.Body)))
		rec = append(rec, tmp4[:]...)
		rec = append(rec, s.Body...)
	}

	var recLen [4]byte
	binary.LittleEndian.PutUint32(recLen[:], uint32(len(rec)))
	buf = append(buf, recLen[:]...)
	buf = append(buf, rec...)
	return buf
}

// EncodeIndex serializes the full list of block index entries plus the
// trailing footer (spec.md §3).
func EncodeIndex(entries []Entry, ct config.ChecksumType) []byte {
	var body []byte
	for _, e := range entries {
		body = appendEntry(body, e)
	}

	var checksum uint64
	if ct == config.ChecksumCrc32 {
		h := crc32.NewIEEE()
		h.Write(body)
		checksum = uint64(h.Sum32())
	}

	out := make([]byte, 0, len(body)+IndexFooterSize)
	out = append(out, body...)
	var tmp4 [4]byte
	var tmp8 [8]byte
	binary.LittleEndian.PutUint32(tmp4[:], indexMagic)
	out = append(out, tmp4[:]...)
	binary.LittleEndian.PutUint64(tmp8[:], uint64(len(entries)))
	out = append(out, tmp8[:]...)
	binary.LittleEndian.PutUint32(tmp4[:], uint32(ct))
	out = append(out, tmp4[:]...)
	binary.LittleEndian.PutUint64(tmp8[:], checksum)
	out = append(out, tmp8[:]...)
	return out
}

// DecodeIndex parses a serialized column index, verifying the footer
// checksum when present.
func DecodeIndex(raw []byte) ([]Entry, error) {
	if len(raw) < IndexFooterSize {
		return nil, &errs.DecodeError{Reason: "column index shorter than footer"}
	}
	bodyLen := len(raw) - IndexFooterSize
	body := raw[:bodyLen]
	footer := raw[bodyLen:]

	magic := binary.LittleEndian.Uint32(footer[0:4])
	if magic != indexMagic {
		return nil, &errs.DecodeError{Reason: "column index magic mismatch"}
	}
	count := binary.LittleEndian.Uint64(footer[4:12])
	ct := config.ChecksumType(binary.LittleEndian.Uint32(footer[12:16]))
	checksum := binary.LittleEndian.Uint64(footer[16:24])

	if ct == config.ChecksumCrc32 {
		h := crc32.NewIEEE()
		h.Write(body)
		if uint64(h.Sum32()) != checksum {
			return nil, &errs.DecodeError{Reason: "column index checksum mismatch"}
		}
	}

	entries := make([]Entry, 0, count)
	off := 0
	for off < len(body) {
		if off+4 > len(body) {
			return nil, &errs.DecodeError{Reason: "truncated column index record length"}
		}
		recLen := int(binary.LittleEndian.Uint32(body[off : off+4]))
		off += 4
		if off+recLen > len(body) {
			return nil, &errs.DecodeError{Reason: "truncated column index record"}
		}
		e, err := decodeEntry(body[off : off+recLen])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		off += recLen
	}
	if uint64(len(entries)) != count {
		return nil, &errs.DecodeError{Reason: "column index entry count mismatch"}
	}
	return entries, nil
}

func decodeEntry(rec []byte) (Entry, error) {
	if len(rec) < 24 {
		return Entry{}, &errs.DecodeError{Reason: "truncated column index entry"}
	}
	e := Entry{
		Offset:   binary.LittleEndian.Uint64(rec[0:8]),
		Length:   binary.LittleEndian.Uint64(rec[8:16]),
		FirstRow: binary.LittleEndian.Uint32(rec[16:20]),
		RowCount: binary.LittleEndian.Uint32(rec[20:24]),
	}
	off := 24
	fkLen := int(binary.LittleEndian.Uint32(rec[off : off+4]))
	off += 4
	if fkLen > 0 {
		e.FirstKey = append([]byte(nil), rec[off:off+fkLen]...)
	}
	off += fkLen

	statCount := int(binary.LittleEndian.Uint32(rec[off : off+4]))
	off += 4
	e.Stats = make([]block.Statistic, 0, statCount)
	for i := 0; i < statCount; i++ {
		st := block.StatType(binary.LittleEndian.Uint32(rec[off : off+4]))
		off += 4
		bl := int(binary.LittleEndian.Uint32(rec[off : off+4]))
		off += 4
		body := append([]byte(nil), rec[off:off+bl]...)
		off += bl
		e.Stats = append(e.Stats, block.Statistic{Type: st, Body: body})
	}
	return e, nil
}

// BlockOfRow finds the entry covering rowid via spec.md §4.2's
// "partition_point(index.first_rowid <= rowid)".
func BlockOfRow(entries []Entry, rowid uint32) (idx int, ok bool) {
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if entries[mid].FirstRow <= rowid {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return 0, false
	}
	idx = lo - 1
	if rowid < entries[idx].FirstRow+entries[idx].RowCount {
		return idx, true
	}
	return 0, false
}
