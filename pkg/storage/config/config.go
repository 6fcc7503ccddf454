// Package config holds the storage engine's enumerated configuration
// knobs (spec.md §6), structured the way pkg/config/config.go nests its
// application configuration: one struct per concern, each with a
// Default*Config constructor.
package config

// ChecksumType selects the block/index footer checksum algorithm.
type ChecksumType int

const (
	ChecksumNone ChecksumType = iota
	ChecksumCrc32
)

// EncodeType selects the block codec a column builder picks by default.
type EncodeType int

const (
	EncodePlain EncodeType = iota
	EncodeRunLength
	EncodeDictionary
)

// IOBackend selects how the block cache's file handles satisfy reads.
type IOBackend int

const (
	// IOBackendNormalRead serializes reads through a per-file mutex around
	// a single Seek+Read cursor.
	IOBackendNormalRead IOBackend = iota
	// IOBackendPositionedRead issues concurrent offset reads via
	// os.File.ReadAt, requiring no cursor lock.
	IOBackendPositionedRead
)

// BlockConfig controls how column builders chunk arrays into blocks.
type BlockConfig struct {
	TargetBlockSize int64
	ChecksumType    ChecksumType
	EncodeType      EncodeType
	RecordFirstKey  bool
}

func DefaultBlockConfig() BlockConfig {
	return BlockConfig{
		TargetBlockSize: 64 * 1024,
		ChecksumType:    ChecksumCrc32,
		EncodeType:      EncodePlain,
		RecordFirstKey:  false,
	}
}

// CacheConfig controls the process-wide block cache.
type CacheConfig struct {
	MaxCost     int64 // approximate bytes
	NumCounters int64 // ristretto admission sketch size
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxCost:     64 << 20,
		NumCounters: 1e6,
	}
}

// CompactionConfig controls the background compactor.
type CompactionConfig struct {
	Tick             int64 // nanoseconds between ticks
	TargetRowsetSize int64 // bytes; rowsets packed under this are merged
	MinBatchSize     int   // minimum rowsets to merge in one pass
}

func DefaultCompactionConfig() CompactionConfig {
	return CompactionConfig{
		Tick:             int64(1e9), // 1 second
		TargetRowsetSize: 256 << 20,
		MinBatchSize:     2,
	}
}

// StorageConfig aggregates every enumerated knob of spec.md §6.
type StorageConfig struct {
	Path                     string
	Block                    BlockConfig
	Cache                    CacheConfig
	Compaction               CompactionConfig
	IOBackend                IOBackend
	DisableAllDiskOperation  bool
}

func DefaultStorageConfig(path string) StorageConfig {
	return StorageConfig{
		Path:       path,
		Block:      DefaultBlockConfig(),
		Cache:      DefaultCacheConfig(),
		Compaction: DefaultCompactionConfig(),
		IOBackend:  IOBackendPositionedRead,
	}
}
