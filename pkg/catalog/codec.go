package catalog

import (
	"encoding/binary"

	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/storage/errs"
)

// EncodeColumns serializes a column schema, used both for a rowset's
// per-directory catalog snapshot and for CreateTable manifest entries
// (spec.md §6, §4.8).
func EncodeColumns(cols []ColumnCatalog) []byte {
	var buf []byte
	buf = putU32(buf, uint32(len(cols)))
	for _, c := range cols {
		buf = putU32(buf, c.ID)
		buf = putStr(buf, c.Name)
		buf = putI32(buf, int(c.Type.Kind))
		buf = append(buf, boolByte(c.Nullable))
		buf = putI32(buf, c.Type.Precision)
		buf = putI32(buf, c.Type.Scale)
		buf = putI32(buf, c.Type.Width)
		buf = putI32(buf, c.Type.Dim)
		buf = append(buf, boolByte(c.IsSortKey))
		buf = putI32(buf, c.SortKeyOrdinal)
	}
	return buf
}

func DecodeColumns(data []byte) ([]ColumnCatalog, error) {
	count, off, err := getU32(data, 0)
	if err != nil {
		return nil, err
	}
	cols := make([]ColumnCatalog, 0, count)
	for i := uint32(0); i < count; i++ {
		var c ColumnCatalog
		var id uint32
		var kind, precision, scale, width, dim, sortOrdinal int
		var nullByte, sortByte byte
		var name string

		if id, off, err = getU32(data, off); err != nil {
			return nil, err
		}
		if name, off, err = getStr(data, off); err != nil {
			return nil, err
		}
		if kind, off, err = getI32(data, off); err != nil {
			return nil, err
		}
		if nullByte, off, err = getByte(data, off); err != nil {
			return nil, err
		}
		if precision, off, err = getI32(data, off); err != nil {
			return nil, err
		}
		if scale, off, err = getI32(data, off); err != nil {
			return nil, err
		}
		if width, off, err = getI32(data, off); err != nil {
			return nil, err
		}
		if dim, off, err = getI32(data, off); err != nil {
			return nil, err
		}
		if sortByte, off, err = getByte(data, off); err != nil {
			return nil, err
		}
		if sortOrdinal, off, err = getI32(data, off); err != nil {
			return nil, err
		}

		c.ID = id
		c.Name = name
		c.Nullable = nullByte != 0
		c.IsSortKey = sortByte != 0
		c.SortKeyOrdinal = sortOrdinal
		c.Type = array.DataType{
			Kind:      array.Kind(kind),
			Nullable:  c.Nullable,
			Precision: precision,
			Scale:     scale,
			Width:     width,
			Dim:       dim,
		}
		cols = append(cols, c)
	}
	return cols, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func putU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putI32(buf []byte, v int) []byte { return putU32(buf, uint32(int32(v))) }

func putStr(buf []byte, s string) []byte {
	buf = putU32(buf, uint32(len(s)))
	return append(buf, s...)
}

func getU32(data []byte, off int) (uint32, int, error) {
	if off+4 > len(data) {
		return 0, off, &errs.DecodeError{Reason: "truncated column schema"}
	}
	return binary.LittleEndian.Uint32(data[off : off+4]), off + 4, nil
}

func getI32(data []byte, off int) (int, int, error) {
	v, off, err := getU32(data, off)
	return int(int32(v)), off, err
}

func getByte(data []byte, off int) (byte, int, error) {
	if off >= len(data) {
		return 0, off, &errs.DecodeError{Reason: "truncated column schema flag"}
	}
	return data[off], off + 1, nil
}

func getStr(data []byte, off int) (string, int, error) {
	n, off, err := getU32(data, off)
	if err != nil {
		return "", off, err
	}
	if off+int(n) > len(data) {
		return "", off, &errs.DecodeError{Reason: "truncated column schema string"}
	}
	return string(data[off : off+int(n)]), off + int(n), nil
}
