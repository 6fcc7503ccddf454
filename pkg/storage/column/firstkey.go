package column

import "encoding/binary"

// first_key encoding (spec.md §3 "Block index entry ... first_key:
// bytes?"): a fixed-width big-endian encoding for integer sort keys so
// lexicographic byte comparison matches numeric comparison, and the raw
// bytes for string/char sort keys.
func int32KeyOf(v *int32) []byte {
	if v == nil {
		return nil
	}
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(*v)^0x80000000)
	return b
}

func int64KeyOf(v *int64) []byte {
	if v == nil {
		return nil
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(*v)^0x8000000000000000)
	return b
}

func stringKeyOf(v *string) []byte {
	if v == nil {
		return nil
	}
	return []byte(*v)
}

func bytesKeyOf(v *[]byte) []byte {
	if v == nil {
		return nil
	}
	return *v
}
