package ecplugin

// OptimizationFlags is the bitwise union of optimization capabilities a
// codec reports through get_supported_optimizations (spec §4.6).
type OptimizationFlags uint32

const (
	// FlagOptimizedSupported marks the codec as safe to run through the
	// host's optimized-EC code path.
	FlagOptimizedSupported OptimizationFlags = 1 << 0
	// FlagZeroPadding marks support for the host's zero-padding
	// optimization.
	FlagZeroPadding OptimizationFlags = 1 << 1
	// FlagPartialRead marks support for reading less than a full chunk.
	FlagPartialRead OptimizationFlags = 1 << 2
	// FlagPartialWrite marks support for writing less than a full chunk.
	FlagPartialWrite OptimizationFlags = 1 << 3
	// FlagPartialParityUpdate marks support for delta-based parity updates.
	FlagPartialParityUpdate OptimizationFlags = 1 << 4
)

// Has reports whether all of want is present in f.
func (f OptimizationFlags) Has(want OptimizationFlags) bool {
	return f&want == want
}

// Core is the codec-specific logic every concrete erasure code implements:
// the algorithm itself, stripped of the host-facing plumbing (the deprecated
// dual signatures, chunk mapping, rule creation) that Facade supplies
// uniformly over any Core. SizeCeph and the XOR variant each provide one.
type Core interface {
	// Init validates profile and prepares the codec for use (spec §4.6 /
	// §6 "init"). It is called once, synchronously, before any other method.
	Init(profile Profile) error

	// DataChunkCount, CodingChunkCount, ChunkCount are K, M, N.
	DataChunkCount() int
	CodingChunkCount() int
	ChunkCount() int
	// SubChunkCount is always 1 for both codecs in this module (spec §4.4).
	SubChunkCount() int
	// Alignment is the internal processing block size, in bytes.
	Alignment() int
	// MinimumGranularity is the smallest addressable partial-write unit.
	MinimumGranularity() int

	// Encode implements spec §4.2. want must be validated by the concrete
	// codec against its own rules (SizeCeph requires want == [0,N); XOR has
	// no such restriction since it is driven by the host's conditional
	// decode model).
	Encode(want ShardSet, in []byte) (ShardMap, error)
	// Decode implements spec §4.3 / §4.7.
	Decode(want ShardSet, chunks ShardMap, chunkSize int) (ShardMap, error)
	// MinimumToDecode implements spec §4.4.
	MinimumToDecode(want, available ShardSet) (ShardSet, error)

	// EncodeChunks operates directly on already-split, shard-keyed buffers
	// (spec §4.5 "encode_chunks"): SizeCeph returns NotSupported; XOR
	// computes its parity chunk directly, matching the host's
	// jerasure-style conditional interface (spec §4.7).
	EncodeChunks(in ShardMap) (ShardMap, error)
	// DecodeChunks is the shard-ptr counterpart of Decode (spec §4.5/§4.7).
	DecodeChunks(want ShardSet, in ShardMap) (ShardMap, error)

	// EncodeDelta computes a delta buffer between old and new data of equal
	// length (spec §4.5 encode_delta / §4.7). SizeCeph's non-linear
	// transformation has no representable delta and returns an empty slice;
	// XOR's is linear and returns old^new.
	EncodeDelta(oldData, newData []byte) []byte
	// ApplyDelta applies deltas carried in `in` onto the matching entries of
	// `out`, mutating out in place (spec §4.5/§4.7).
	ApplyDelta(in, out ShardMap)

	// SupportedOptimizations implements spec §4.6's get_supported_optimizations.
	SupportedOptimizations() OptimizationFlags
}

// RuleHost is the external collaborator that owns CRUSH-like placement rule
// creation (spec §1's "host object store's placement and CRUSH-like rule
// creation" — out of scope here, named only). Facade.CreateRule delegates
// to it using the literal rule shape spec §4.6/§5 describes.
type RuleHost interface {
	// RuleExists reports the id of an existing rule named name, if any.
	RuleExists(name string) (id int, ok bool)
	// AddSimpleRule requests a new rule from the host and returns its id,
	// or a negative error code on failure (mirroring CrushWrapper::add_simple_rule).
	AddSimpleRule(name, root, failureDomain, deviceClass, mode string, poolType int) (id int, err error)
}

// PoolTypeErasure is the pool-type constant Facade.CreateRule passes to
// RuleHost.AddSimpleRule, matching pg_pool_t::TYPE_ERASURE in the original.
const PoolTypeErasure = 3
