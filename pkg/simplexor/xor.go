// Package simplexor implements the trivial (k=2, m=1) XOR parity code
// sharing the same plugin surface as sizeceph: shard 2 (the single parity
// chunk) always equals shard 0 XOR shard 1, and any one missing shard among
// the three is reconstructible from the other two by the same law (spec
// §4.7). Unlike sizeceph this is a genuine data-preservation code, driven by
// the host's jerasure-style conditional-decode pathway rather than an
// always-decode native validator.
package simplexor

import (
	"go.uber.org/zap"

	"github.com/dattu/sizeceph-plugin/pkg/ecplugin"
)

// Codec configuration constants (spec §4.7 "Simple XOR variant").
const (
	K = 2
	M = 1
	N = K + M

	// Alignment mirrors jerasure's SimpleXOR get_alignment(), sizeof(int) on
	// any platform this module targets.
	Alignment = 4

	Technique = "simple_xor"
)

// Core implements ecplugin.Core for the (k=2, m=1) XOR code.
type Core struct {
	log *zap.Logger
}

// New returns an uninitialized XOR codec. Call Init before use.
func New(log *zap.Logger) *Core {
	if log == nil {
		log = zap.NewNop()
	}
	return &Core{log: log}
}

// Init validates profile against the fixed k=2, m=1 shape (spec §4.7,
// grounded on ErasureCodeSimpleXOR::parse's k==2 && m==1 check).
func (c *Core) Init(profile ecplugin.Profile) error {
	if k, ok, err := profile.Int("k"); err != nil {
		return ecplugin.NewError(ecplugin.Invalid, "k: %v", err)
	} else if ok && k != K {
		return ecplugin.NewError(ecplugin.Invalid, "simplexor requires k=%d, got k=%d", K, k)
	}
	if m, ok, err := profile.Int("m"); err != nil {
		return ecplugin.NewError(ecplugin.Invalid, "m: %v", err)
	} else if ok && m != M {
		return ecplugin.NewError(ecplugin.Invalid, "simplexor requires m=%d, got m=%d", M, m)
	}
	if technique, ok := profile.String("technique"); ok && technique != Technique {
		return ecplugin.NewError(ecplugin.Invalid, "simplexor does not handle technique %q", technique)
	}
	return nil
}

func (c *Core) DataChunkCount() int     { return K }
func (c *Core) CodingChunkCount() int   { return M }
func (c *Core) ChunkCount() int         { return N }
func (c *Core) SubChunkCount() int      { return 1 }
func (c *Core) Alignment() int          { return Alignment }
func (c *Core) MinimumGranularity() int { return Alignment }

// xorInto XORs src into dst in place; dst and src must be the same length.
func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// Encode implements spec §4.7's encode law: chunk[2] = chunk[0] XOR chunk[1],
// both data chunks passed through unchanged (grounded on
// ErasureCodeSimpleXOR::jerasure_encode).
func (c *Core) Encode(want ecplugin.ShardSet, in []byte) (ecplugin.ShardMap, error) {
	if len(in)%K != 0 {
		return nil, ecplugin.NewError(ecplugin.Invalid, "input length %d is not a multiple of k=%d", len(in), K)
	}
	chunkSize := len(in) / K
	chunks := make([][]byte, K)
	for i := 0; i < K; i++ {
		chunks[i] = in[i*chunkSize : (i+1)*chunkSize]
	}
	parity := make([]byte, chunkSize)
	copy(parity, chunks[0])
	xorInto(parity, chunks[1])

	out := make(ecplugin.ShardMap, len(want))
	for id := range want {
		switch {
		case int(id) < K:
			out[id] = append([]byte(nil), chunks[id]...)
		case int(id) == K:
			out[id] = parity
		default:
			return nil, ecplugin.NewError(ecplugin.Invalid, "shard id %d out of range [0,%d)", id, N)
		}
	}
	return out, nil
}

// Decode reconstructs any single missing shard among the three from the
// other two via the XOR law (spec §4.7, grounded on
// ErasureCodeSimpleXOR::jerasure_decode's three cases). Unlike sizeceph,
// chunks need only contain the shards the host already has; erasures is the
// complement.
func (c *Core) Decode(want ecplugin.ShardSet, chunks ecplugin.ShardMap, chunkSize int) (ecplugin.ShardMap, error) {
	if chunkSize <= 0 {
		for _, buf := range chunks {
			chunkSize = len(buf)
			break
		}
	}
	if chunkSize <= 0 {
		return nil, ecplugin.NewError(ecplugin.Invalid, "chunk_size could not be determined")
	}

	have := chunks.Keys()
	missing := ecplugin.RangeShardSet(N)
	for id := range have {
		delete(missing, id)
	}
	if len(missing) > 1 {
		return nil, ecplugin.NewError(ecplugin.NotSupported, "simplexor cannot recover %d missing shards", len(missing))
	}

	reconstructed := make(ecplugin.ShardMap, N)
	for id, buf := range chunks {
		reconstructed[id] = buf
	}
	for id := range missing {
		result := make([]byte, chunkSize)
		for other, buf := range chunks {
			if other == id {
				continue
			}
			if len(buf) != chunkSize {
				return nil, ecplugin.NewError(ecplugin.Invalid, "shard %d has length %d, want %d", other, len(buf), chunkSize)
			}
			xorInto(result, buf)
		}
		reconstructed[id] = result
	}

	out := make(ecplugin.ShardMap, len(want))
	for id := range want {
		buf, ok := reconstructed[id]
		if !ok {
			return nil, ecplugin.NewError(ecplugin.Invalid, "shard id %d out of range [0,%d)", id, N)
		}
		out[id] = buf
	}
	return out, nil
}

// MinimumToDecode implements spec §4.7's conditional-decode policy: any two
// of the three shards suffice, unlike sizeceph's all-N requirement.
func (c *Core) MinimumToDecode(want, available ecplugin.ShardSet) (ecplugin.ShardSet, error) {
	if len(available) < K {
		return nil, ecplugin.NewError(ecplugin.IO, "simplexor minimum_to_decode: need at least %d shards, have %d", K, len(available))
	}
	min := make(ecplugin.ShardSet, K)
	count := 0
	for _, id := range available.Sorted() {
		if count == K {
			break
		}
		min[id] = struct{}{}
		count++
	}
	return min, nil
}

// EncodeChunks computes the parity chunk directly from pre-split, shard-keyed
// buffers, matching the host's jerasure-style shard-ptr interface (spec
// §4.7). Both data chunks must be present in `in`.
func (c *Core) EncodeChunks(in ecplugin.ShardMap) (ecplugin.ShardMap, error) {
	d0, ok0 := in[0]
	d1, ok1 := in[1]
	if !ok0 || !ok1 {
		return nil, ecplugin.NewError(ecplugin.Invalid, "encode_chunks requires both data shards present")
	}
	if len(d0) != len(d1) {
		return nil, ecplugin.NewError(ecplugin.Invalid, "data shards have mismatched lengths %d and %d", len(d0), len(d1))
	}
	parity := make([]byte, len(d0))
	copy(parity, d0)
	xorInto(parity, d1)
	return ecplugin.ShardMap{2: parity}, nil
}

// DecodeChunks is the shard-ptr counterpart of Decode.
func (c *Core) DecodeChunks(want ecplugin.ShardSet, in ecplugin.ShardMap) (ecplugin.ShardMap, error) {
	chunkSize := 0
	for _, buf := range in {
		chunkSize = len(buf)
		break
	}
	return c.Decode(want, in, chunkSize)
}

// EncodeDelta returns old XOR new: XOR is linear, so the delta between two
// versions of a data chunk is directly representable and directly applicable
// to the parity chunk (spec §4.7, grounded on
// ErasureCodeSimpleXOR::apply_delta's identity-matrix XOR-in-place form).
func (c *Core) EncodeDelta(oldData, newData []byte) []byte {
	if len(oldData) != len(newData) {
		return nil
	}
	delta := make([]byte, len(oldData))
	copy(delta, oldData)
	xorInto(delta, newData)
	return delta
}

// ApplyDelta XORs each delta chunk in `in` into the matching chunk of `out`
// in place, the linear code's matrix_apply_delta behavior (spec §4.7).
func (c *Core) ApplyDelta(in, out ecplugin.ShardMap) {
	for id, delta := range in {
		buf, ok := out[id]
		if !ok || len(buf) != len(delta) {
			continue
		}
		xorInto(buf, delta)
	}
}

// SupportedOptimizations reports the flags meaningful for a linear,
// partial-update-capable code (spec §4.7): unlike sizeceph, XOR supports
// partial parity updates since ApplyDelta is a real operation here.
func (c *Core) SupportedOptimizations() ecplugin.OptimizationFlags {
	return ecplugin.FlagOptimizedSupported | ecplugin.FlagZeroPadding | ecplugin.FlagPartialParityUpdate
}
