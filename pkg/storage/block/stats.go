package block

import "encoding/binary"

// StatType tags a BlockStatistics entry. Body is opaque to the index
// reader; only the block-pruning path interprets it, keyed by StatType.
type StatType int32

const (
	StatRowCount StatType = iota
	StatDistinctValue
	StatMinMax
)

// Statistic is spec.md §3's BlockStatistics: { type, body }.
type Statistic struct {
	Type StatType
	Body []byte
}

func RowCountStat(n int) Statistic {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(n))
	return Statistic{Type: StatRowCount, Body: b}
}

func DistinctValueStat(n int) Statistic {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(n))
	return Statistic{Type: StatDistinctValue, Body: b}
}

// MinMaxStat pins the "opaque encoding" open question of spec.md §9: a
// 1-byte width prefix followed by min and max, each width bytes, raw
// little-endian. Only fixed-width physical kinds collect it.
func MinMaxStat(width int, min, max []byte) Statistic {
	body := make([]byte, 1+2*width)
	body[0] = byte(width)
	copy(body[1:], min)
	copy(body[1+width:], max)
	return Statistic{Type: StatMinMax, Body: body}
}

func (s Statistic) AsMinMax() (min, max []byte, ok bool) {
	if s.Type != StatMinMax || len(s.Body) < 1 {
		return nil, nil, false
	}
	width := int(s.Body[0])
	if len(s.Body) < 1+2*width {
		return nil, nil, false
	}
	return s.Body[1 : 1+width], s.Body[1+width : 1+2*width], true
}

func (s Statistic) AsCount() (int, bool) {
	if (s.Type != StatRowCount && s.Type != StatDistinctValue) || len(s.Body) < 4 {
		return 0, false
	}
	return int(binary.LittleEndian.Uint32(s.Body)), true
}

func RowCountOf(stats []Statistic) int {
	for _, s := range stats {
		if s.Type == StatRowCount {
			if n, ok := s.AsCount(); ok {
				return n
			}
		}
	}
	return 0
}
