package sizeceph

import (
	"github.com/dattu/sizeceph-plugin/pkg/ecplugin"
	"github.com/dattu/sizeceph-plugin/pkg/sizeceph/binding"
	"go.uber.org/zap"
)

// nativeCodec is the seam between Codec and the process-wide cgo binding,
// so tests can exercise the encode/decode procedure without a real
// sizeceph.so loaded (the production path always uses defaultNative, which
// delegates straight to package binding).
type nativeCodec interface {
	Acquire() error
	Release()
	Loaded() bool
	Split(out [][]byte, in []byte) error
	Restore(in [][]byte, outLen int) ([]byte, error)
	CanRestore(in [][]byte) (bool, error)
}

type defaultNative struct{}

func (defaultNative) Acquire() error                                  { return binding.Acquire() }
func (defaultNative) Release()                                        { binding.Release() }
func (defaultNative) Loaded() bool                                    { return binding.Loaded() }
func (defaultNative) Split(out [][]byte, in []byte) error             { return binding.Split(out, in) }
func (defaultNative) Restore(in [][]byte, outLen int) ([]byte, error) { return binding.Restore(in, outLen) }
func (defaultNative) CanRestore(in [][]byte) (bool, error)            { return binding.CanRestore(in) }

// Codec implements ecplugin.Core for the SizeCeph always-decode algorithm
// (spec §4.1-§4.5). A Codec must be Init'd before use and Close'd when done
// so the process-wide native binding's reference count stays accurate
// (spec §3 "Native binding", invariant I2).
type Codec struct {
	profile        ecplugin.Profile
	forceAllChunks bool
	log            *zap.Logger
	acquired       bool
	native         nativeCodec
}

// New returns an uninitialized SizeCeph codec. Call Init before use.
func New(log *zap.Logger) *Codec {
	if log == nil {
		log = zap.NewNop()
	}
	return &Codec{log: log, native: defaultNative{}}
}

// Init implements ecplugin.Core. It validates k/m against the two accepted
// config shapes (standard k=4,m=5 and force_all_chunks k=9,m=0 — spec §3
// profile table, §5 "supplemented features") and loads the native binding.
func (c *Codec) Init(profile ecplugin.Profile) error {
	c.profile = profile.Clone()
	c.forceAllChunks = profile.Bool("force_all_chunks")

	wantK, wantM := K, M
	if c.forceAllChunks {
		wantK, wantM = N, 0
	}
	if k, ok, err := profile.Int("k"); err != nil {
		return ecplugin.NewError(ecplugin.Invalid, "k: %v", err)
	} else if ok && k != wantK {
		return ecplugin.NewError(ecplugin.Invalid, "sizeceph requires k=%d (force_all_chunks=%v), got k=%d", wantK, c.forceAllChunks, k)
	}
	if m, ok, err := profile.Int("m"); err != nil {
		return ecplugin.NewError(ecplugin.Invalid, "m: %v", err)
	} else if ok && m != wantM {
		return ecplugin.NewError(ecplugin.Invalid, "sizeceph requires m=%d (force_all_chunks=%v), got m=%d", wantM, c.forceAllChunks, m)
	}
	if technique, ok := profile.String("technique"); ok && technique != Technique {
		return ecplugin.NewError(ecplugin.Invalid, "sizeceph does not handle technique %q", technique)
	}

	if err := c.native.Acquire(); err != nil {
		return ecplugin.NewError(ecplugin.NotFound, "load sizeceph native library: %v", err)
	}
	c.acquired = true
	c.log.Info("sizeceph: initialized", zap.Bool("force_all_chunks", c.forceAllChunks))
	return nil
}

// Close releases this codec's reference on the native binding (spec §9
// "Consider a OnceCell-equivalent that can be reset to not-loaded when the
// last instance drops").
func (c *Codec) Close() {
	if c.acquired {
		c.native.Release()
		c.acquired = false
	}
}

func (c *Codec) DataChunkCount() int     { return K }
func (c *Codec) CodingChunkCount() int   { return M }
func (c *Codec) ChunkCount() int         { return N }
func (c *Codec) SubChunkCount() int      { return 1 }
func (c *Codec) Alignment() int          { return Alignment }
func (c *Codec) MinimumGranularity() int { return Alignment }

// Encode implements spec §4.2.
func (c *Codec) Encode(want ecplugin.ShardSet, in []byte) (ecplugin.ShardMap, error) {
	if !c.native.Loaded() {
		return nil, ecplugin.NewError(ecplugin.NotFound, "native binding not loaded")
	}
	if !want.IsRange(N) {
		return nil, ecplugin.NewError(ecplugin.Invalid, "want_to_encode must be exactly [0,%d)", N)
	}
	if len(in)%Alignment != 0 {
		return nil, ecplugin.NewError(ecplugin.Invalid, "input length %d is not a multiple of %d", len(in), Alignment)
	}

	encoded := make(ecplugin.ShardMap, N)
	if len(in) == 0 {
		for id := range want {
			encoded[id] = []byte{}
		}
		return encoded, nil
	}

	chunkSize := len(in) / Alignment
	out := make([][]byte, N)
	for i := range out {
		out[i] = make([]byte, chunkSize)
	}
	if err := c.native.Split(out, in); err != nil {
		return nil, ecplugin.Wrap(err, ecplugin.IO, "size_split")
	}
	for i := 0; i < N; i++ {
		encoded[ecplugin.ShardID(i)] = out[i]
	}
	return encoded, nil
}

// Decode implements spec §4.3. SizeCeph's always-decode policy requires
// every one of the N shards to be present; see DESIGN.md for why the
// strict form, rather than the relaxed "K or more" form, is implemented.
func (c *Codec) Decode(want ecplugin.ShardSet, chunks ecplugin.ShardMap, chunkSize int) (ecplugin.ShardMap, error) {
	if !c.native.Loaded() {
		return nil, ecplugin.NewError(ecplugin.NotFound, "native binding not loaded")
	}
	if len(chunks) != N || !chunks.Keys().Superset(ecplugin.RangeShardSet(N)) {
		return nil, ecplugin.NewError(ecplugin.NotFound, "sizeceph always-decode requires all %d shards, got %d", N, len(chunks))
	}

	if chunkSize <= 0 {
		for _, buf := range chunks {
			chunkSize = len(buf)
			break
		}
	}
	if chunkSize <= 0 {
		return nil, ecplugin.NewError(ecplugin.Invalid, "chunk_size could not be determined")
	}

	in := make([][]byte, N)
	for id, buf := range chunks {
		in[int(id)] = buf
	}

	if ok, err := c.native.CanRestore(in); err != nil {
		return nil, ecplugin.Wrap(err, ecplugin.NotFound, "size_can_get_restore_fn")
	} else if !ok {
		return nil, ecplugin.NewError(ecplugin.NotSupported, "shard pattern is not restorable")
	}

	originalLen := Alignment * chunkSize
	restored, err := c.native.Restore(in, originalLen)
	if err != nil {
		return nil, ecplugin.Wrap(err, ecplugin.IO, "size_restore")
	}

	if allZero(restored) && originalLen > 0 {
		c.log.Warn("sizeceph decode: restored data is all zeros, possible corruption")
	}

	decoded := make(ecplugin.ShardMap, len(want))
	perShard := originalLen / K
	for id := range want {
		switch {
		case int(id) < K:
			start := int(id) * perShard
			end := start + perShard
			if int(id) == K-1 {
				end = originalLen
			}
			decoded[id] = append([]byte(nil), restored[start:end]...)
		case int(id) < N:
			// Parity shards on disk carry no readable data once restored
			// (spec §4.3 step 5, property P4).
			decoded[id] = []byte{}
		default:
			return nil, ecplugin.NewError(ecplugin.Invalid, "shard id %d out of range [0,%d)", id, N)
		}
	}
	return decoded, nil
}

// allZero reports whether the first 64 bytes of b (or all of b, if shorter)
// are zero.
func allZero(b []byte) bool {
	limit := len(b)
	if limit > 64 {
		limit = 64
	}
	for i := 0; i < limit; i++ {
		if b[i] != 0 {
			return false
		}
	}
	return true
}

// MinimumToDecode implements spec §4.4: the minimum equals available iff
// available contains every id in [0,N); otherwise IO.
func (c *Codec) MinimumToDecode(want, available ecplugin.ShardSet) (ecplugin.ShardSet, error) {
	if !available.Superset(ecplugin.RangeShardSet(N)) {
		return nil, ecplugin.NewError(ecplugin.IO, "sizeceph minimum_to_decode: need all %d shards, have %d", N, len(available))
	}
	return available, nil
}

// EncodeChunks and DecodeChunks are unsupported for SizeCeph (spec §4.5).
func (c *Codec) EncodeChunks(ecplugin.ShardMap) (ecplugin.ShardMap, error) {
	return nil, ecplugin.NewError(ecplugin.NotSupported, "sizeceph does not implement encode_chunks")
}

func (c *Codec) DecodeChunks(ecplugin.ShardSet, ecplugin.ShardMap) (ecplugin.ShardMap, error) {
	return nil, ecplugin.NewError(ecplugin.NotSupported, "sizeceph does not implement decode_chunks")
}

// EncodeDelta returns an empty delta buffer: SizeCeph's non-linear
// transformation has no representable delta (spec §4.5, Open Question
// resolution).
func (c *Codec) EncodeDelta(oldData, newData []byte) []byte { return nil }

// ApplyDelta clears out: no partial update is possible for a non-linear
// transformation (spec §4.5, Open Question resolution).
func (c *Codec) ApplyDelta(in, out ecplugin.ShardMap) {
	for id := range out {
		delete(out, id)
	}
}

// SupportedOptimizations implements spec §4.6: exactly the two flags that
// make sense for an always-decode, non-partial codec.
func (c *Codec) SupportedOptimizations() ecplugin.OptimizationFlags {
	return ecplugin.FlagOptimizedSupported | ecplugin.FlagZeroPadding
}
