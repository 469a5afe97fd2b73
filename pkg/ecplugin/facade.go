package ecplugin

import (
	"go.uber.org/zap"
)

// Facade implements the full host plugin interface (spec §4.6, §6) over any
// Core: chunk counts, alignment, chunk size/mapping, rule creation, the
// deprecated dual (legacy int-keyed) signatures, and the optimization flags
// — every bit of plumbing that does not vary between SizeCeph and the XOR
// variant.
type Facade struct {
	core     Core
	profile  Profile
	chunkMap []ShardID
	ruleHost RuleHost
	log      *zap.Logger
}

// NewFacade wraps core, recording profile and building the identity chunk
// mapping (spec §3 "Chunk mapping"). ruleHost may be nil; CreateRule then
// returns NotSupported rather than panicking.
func NewFacade(core Core, profile Profile, ruleHost RuleHost, log *zap.Logger) *Facade {
	if log == nil {
		log = zap.NewNop()
	}
	n := core.ChunkCount()
	mapping := make([]ShardID, n)
	for i := 0; i < n; i++ {
		mapping[i] = ShardID(i)
	}
	return &Facade{core: core, profile: profile, chunkMap: mapping, ruleHost: ruleHost, log: log}
}

// Core exposes the wrapped codec, for callers that need codec-specific
// behavior beyond the facade surface.
func (f *Facade) Core() Core { return f.core }

// GetChunkCount, GetDataChunkCount, GetCodingChunkCount, GetSubChunkCount
// implement spec §4.6.
func (f *Facade) GetChunkCount() int       { return f.core.ChunkCount() }
func (f *Facade) GetDataChunkCount() int   { return f.core.DataChunkCount() }
func (f *Facade) GetCodingChunkCount() int { return f.core.CodingChunkCount() }
func (f *Facade) GetSubChunkCount() int    { return f.core.SubChunkCount() }

// GetAlignment and GetMinimumGranularity implement spec §4.6.
func (f *Facade) GetAlignment() int         { return f.core.Alignment() }
func (f *Facade) GetMinimumGranularity() int { return f.core.MinimumGranularity() }

// GetChunkSize implements spec §4.2's chunk-sizing identity, generically
// over any codec's (K, A): padded_stripe_width = round_up(stripe_width,
// K*A); chunk_size = padded_stripe_width / K. This is the same formula for
// SizeCeph (K=4, A=4) and the XOR variant (K=2, A=4) — property P2 holds
// for either.
func (f *Facade) GetChunkSize(stripeWidth int) int {
	k := f.core.DataChunkCount()
	a := f.core.Alignment()
	return RoundUp(stripeWidth, k*a) / k
}

// RoundUp rounds n up to the nearest multiple of multiple. multiple must be
// positive.
func RoundUp(n, multiple int) int {
	if n <= 0 {
		return 0
	}
	if r := n % multiple; r != 0 {
		return n + (multiple - r)
	}
	return n
}

// GetChunkMapping implements spec §4.6: the identity permutation [0..N-1].
func (f *Facade) GetChunkMapping() []ShardID { return f.chunkMap }

// CreateRule implements spec §4.6/§5's idempotent rule creation: if a rule
// named name already exists, its id is returned; otherwise a "default /
// host-level / indep / erasure-typed" rule is requested from the host.
func (f *Facade) CreateRule(name string) (int, error) {
	if f.ruleHost == nil {
		return 0, NewError(NotSupported, "no rule host configured")
	}
	if id, ok := f.ruleHost.RuleExists(name); ok {
		f.log.Debug("create_rule: rule already exists", zap.String("name", name), zap.Int("id", id))
		return id, nil
	}
	id, err := f.ruleHost.AddSimpleRule(name, "default", "host", "", "indep", PoolTypeErasure)
	if err != nil {
		return id, NewError(IO, "create_rule %q: %v", name, err)
	}
	f.log.Info("create_rule: created", zap.String("name", name), zap.Int("id", id))
	return id, nil
}

// GetSupportedOptimizations implements spec §4.6.
func (f *Facade) GetSupportedOptimizations() OptimizationFlags {
	return f.core.SupportedOptimizations()
}

// Encode implements the modern shard-id-keyed signature (spec §4.2).
func (f *Facade) Encode(want ShardSet, in []byte) (ShardMap, error) {
	return f.core.Encode(want, in)
}

// EncodeLegacy is the deprecated int-keyed shell over Encode (spec §9
// "Legacy integer-keyed signatures" — a thin bijective converter, no
// duplicated logic).
func (f *Facade) EncodeLegacy(want map[int]struct{}, in []byte) (map[int][]byte, error) {
	encoded, err := f.Encode(intSetToShardSet(want), in)
	if err != nil {
		return nil, err
	}
	return shardMapToIntMap(encoded), nil
}

// Decode implements the modern shard-id-keyed signature (spec §4.3).
func (f *Facade) Decode(want ShardSet, chunks ShardMap, chunkSize int) (ShardMap, error) {
	return f.core.Decode(want, chunks, chunkSize)
}

// DecodeLegacy is the deprecated int-keyed shell over Decode.
func (f *Facade) DecodeLegacy(want map[int]struct{}, chunks map[int][]byte, chunkSize int) (map[int][]byte, error) {
	decoded, err := f.Decode(intSetToShardSet(want), intMapToShardMap(chunks), chunkSize)
	if err != nil {
		return nil, err
	}
	return shardMapToIntMap(decoded), nil
}

// DecodeConcat implements spec §4.3's legacy concatenation semantics: run
// Decode, then append the resulting per-shard buffers in the caller's
// want_to_read iteration order (order, not ascending-id order, since the
// legacy signature's ordering carries upstream offset arithmetic);
// any requested shard missing from the decoded output is represented by
// chunkSize zero bytes.
func (f *Facade) DecodeConcat(wantOrder []ShardID, chunks ShardMap, chunkSize int) ([]byte, error) {
	want := make(ShardSet, len(wantOrder))
	for _, id := range wantOrder {
		want[id] = struct{}{}
	}
	decoded, err := f.Decode(want, chunks, chunkSize)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(wantOrder)*chunkSize)
	for _, id := range wantOrder {
		buf, ok := decoded[id]
		if !ok {
			out = append(out, make([]byte, chunkSize)...)
			continue
		}
		out = append(out, buf...)
	}
	return out, nil
}

// MinimumToDecode implements spec §4.4.
func (f *Facade) MinimumToDecode(want, available ShardSet) (ShardSet, error) {
	return f.core.MinimumToDecode(want, available)
}

// MinimumToDecodeWithCost implements spec §4.4's cost variant: costs are
// accepted and ignored, since the policy is set-determined, not
// cost-determined.
func (f *Facade) MinimumToDecodeWithCost(want ShardSet, available map[ShardID]int) (ShardSet, error) {
	availSet := make(ShardSet, len(available))
	for id := range available {
		availSet[id] = struct{}{}
	}
	return f.MinimumToDecode(want, availSet)
}

// MinimumToDecodeLegacy and MinimumToDecodeWithCostLegacy are the deprecated
// plain-integer shells (spec §4.4 "pure converters over the modern form").
func (f *Facade) MinimumToDecodeLegacy(want, available map[int]struct{}) (map[int]struct{}, error) {
	min, err := f.MinimumToDecode(intSetToShardSet(want), intSetToShardSet(available))
	if err != nil {
		return nil, err
	}
	return shardSetToIntSet(min), nil
}

func (f *Facade) MinimumToDecodeWithCostLegacy(want map[int]struct{}, available map[int]int) (map[int]struct{}, error) {
	availSet := make(map[ShardID]int, len(available))
	for id, cost := range available {
		availSet[ShardID(id)] = cost
	}
	min, err := f.MinimumToDecodeWithCost(intSetToShardSet(want), availSet)
	if err != nil {
		return nil, err
	}
	return shardSetToIntSet(min), nil
}

// EncodeChunks and DecodeChunks implement spec §4.5/§4.7, delegating
// entirely to the codec since support varies (SizeCeph: NotSupported; XOR:
// real shard-ptr logic).
func (f *Facade) EncodeChunks(in ShardMap) (ShardMap, error)          { return f.core.EncodeChunks(in) }
func (f *Facade) DecodeChunks(want ShardSet, in ShardMap) (ShardMap, error) {
	return f.core.DecodeChunks(want, in)
}

// EncodeDelta and ApplyDelta implement spec §4.5/§4.7.
func (f *Facade) EncodeDelta(oldData, newData []byte) []byte { return f.core.EncodeDelta(oldData, newData) }
func (f *Facade) ApplyDelta(in, out ShardMap)                { f.core.ApplyDelta(in, out) }

func intSetToShardSet(in map[int]struct{}) ShardSet {
	out := make(ShardSet, len(in))
	for id := range in {
		out[ShardID(id)] = struct{}{}
	}
	return out
}

func shardSetToIntSet(in ShardSet) map[int]struct{} {
	out := make(map[int]struct{}, len(in))
	for id := range in {
		out[int(id)] = struct{}{}
	}
	return out
}

func intMapToShardMap(in map[int][]byte) ShardMap {
	out := make(ShardMap, len(in))
	for id, buf := range in {
		out[ShardID(id)] = buf
	}
	return out
}

func shardMapToIntMap(in ShardMap) map[int][]byte {
	out := make(map[int][]byte, len(in))
	for id, buf := range in {
		out[int(id)] = buf
	}
	return out
}
