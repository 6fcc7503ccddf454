package rowset

import (
	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/storage/column"
	"github.com/coldb/coldb/pkg/storage/deletevector"
)

// RefKind distinguishes spec.md §6's StorageColumnRef sum type.
type RefKind int

const (
	RefIdx RefKind = iota
	RefRowHandler
)

type ColumnRef struct {
	Kind RefKind
	Idx  uint32 // storage column index, valid when Kind == RefIdx
}

func Idx(i uint32) ColumnRef   { return ColumnRef{Kind: RefIdx, Idx: i} }
func RowHandlerRef() ColumnRef { return ColumnRef{Kind: RefRowHandler} }

// RowSetIterator drives a single rowset's column iterators in lockstep,
// applies delete vectors, and synthesizes RowHandler columns (spec.md §4.5).
type RowSetIterator struct {
	rowset *Rowset
	refs   []ColumnRef
	dvs    []*deletevector.DV

	colIters  []column.Iterator // nil entry for RefRowHandler
	rowID     uint32            // next row id, used only when every ref is RefRowHandler
	endRowID  uint32
	finished  bool
	noRealRef bool
}

// NewIterator opens column iterators for every Idx ref at startRowID and
// defers RowHandler refs to synthesis time.
func NewIterator(rs *Rowset, refs []ColumnRef, dvs []*deletevector.DV, startRowID uint32) (*RowSetIterator, error) {
	it := &RowSetIterator{rowset: rs, refs: refs, dvs: dvs, rowID: startRowID, endRowID: rs.RowCount}
	it.colIters = make([]column.Iterator, len(refs))
	it.noRealRef = true
	for i, ref := range refs {
		if ref.Kind != RefIdx {
			continue
		}
		it.noRealRef = false
		ci, err := rs.NewColumnIterator(int(ref.Idx), startRowID)
		if err != nil {
			return nil, err
		}
		it.colIters[i] = ci
	}
	if startRowID >= rs.RowCount {
		it.finished = true
	}
	return it, nil
}

func (it *RowSetIterator) NextBatch(expected int) (*Chunk, bool) {
	if it.finished {
		return nil, false
	}

	fetch := expected
	if it.noRealRef {
		if remaining := int(it.endRowID - it.rowID); remaining < fetch {
			fetch = remaining
		}
	} else {
		fetch = 0
		for i, ref := range it.refs {
			if ref.Kind != RefIdx {
				continue
			}
			h := it.colIters[i].FetchHint()
			if h == 0 {
				continue
			}
			if fetch == 0 || h < fetch {
				fetch = h
			}
		}
		if fetch == 0 {
			fetch = expected
		}
		if fetch > expected {
			fetch = expected
		}
	}
	if fetch <= 0 {
		it.finished = true
		return nil, false
	}

	arrays := make([]array.Array, len(it.refs))
	firstRowID, length := it.rowID, 0
	haveFirst := it.noRealRef

	for i, ref := range it.refs {
		if ref.Kind != RefIdx {
			continue
		}
		fr, arr, ok := it.colIters[i].NextBatch(fetch)
		if !ok {
			it.finished = true
			if !haveFirst {
				return nil, false
			}
			break
		}
		if !haveFirst {
			firstRowID, length, haveFirst = fr, arr.Len(), true
		} else if fr != firstRowID || arr.Len() != length {
			panic("rowset: column iterators desynced within one rowset batch")
		}
		arrays[i] = arr
	}
	if !haveFirst {
		return nil, false
	}
	if it.noRealRef {
		length = fetch
	}

	for i, ref := range it.refs {
		if ref.Kind != RefRowHandler {
			continue
		}
		b := array.NewPrimitiveBuilder[int64](array.Int64(false))
		for r := 0; r < length; r++ {
			b.Append(PackRowHandle(it.rowset.ID, firstRowID+uint32(r)))
		}
		arrays[i] = b.Finish()
	}

	var visibility *array.Bitmap
	if len(it.dvs) > 0 {
		visibility = array.NewBitmap(length, true)
		for _, dv := range it.dvs {
			dv.ApplyTo(visibility, firstRowID)
		}
	}

	it.rowID = firstRowID + uint32(length)
	if it.noRealRef && it.rowID >= it.endRowID {
		it.finished = true
	}

	return &Chunk{FirstRowID: firstRowID, Columns: arrays, Visibility: visibility, Length: length}, true
}
