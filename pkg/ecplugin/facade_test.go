package ecplugin

import "testing"

// fakeCore is a minimal Core for exercising Facade's own plumbing in
// isolation from any real codec's algorithm.
type fakeCore struct {
	k, m, alignment int
}

func (c *fakeCore) Init(Profile) error         { return nil }
func (c *fakeCore) DataChunkCount() int         { return c.k }
func (c *fakeCore) CodingChunkCount() int       { return c.m }
func (c *fakeCore) ChunkCount() int             { return c.k + c.m }
func (c *fakeCore) SubChunkCount() int          { return 1 }
func (c *fakeCore) Alignment() int              { return c.alignment }
func (c *fakeCore) MinimumGranularity() int     { return c.alignment }
func (c *fakeCore) Encode(want ShardSet, in []byte) (ShardMap, error) {
	out := make(ShardMap, len(want))
	for id := range want {
		out[id] = in
	}
	return out, nil
}
func (c *fakeCore) Decode(want ShardSet, chunks ShardMap, chunkSize int) (ShardMap, error) {
	out := make(ShardMap, len(want))
	for id := range want {
		if buf, ok := chunks[id]; ok {
			out[id] = buf
		}
	}
	return out, nil
}
func (c *fakeCore) MinimumToDecode(want, available ShardSet) (ShardSet, error) { return available, nil }
func (c *fakeCore) EncodeChunks(in ShardMap) (ShardMap, error)                 { return in, nil }
func (c *fakeCore) DecodeChunks(want ShardSet, in ShardMap) (ShardMap, error)  { return in, nil }
func (c *fakeCore) EncodeDelta(oldData, newData []byte) []byte                 { return newData }
func (c *fakeCore) ApplyDelta(in, out ShardMap)                                {}
func (c *fakeCore) SupportedOptimizations() OptimizationFlags                  { return FlagOptimizedSupported }

type fakeRuleHost struct {
	existing map[string]int
	nextID   int
}

func (h *fakeRuleHost) RuleExists(name string) (int, bool) {
	id, ok := h.existing[name]
	return id, ok
}

func (h *fakeRuleHost) AddSimpleRule(name, root, failureDomain, deviceClass, mode string, poolType int) (int, error) {
	h.nextID++
	return h.nextID, nil
}

func TestGetChunkSizeGenericFormula(t *testing.T) {
	// spec scenario 2, generalized: K=4, A=4 -> stripe_width=20 -> chunk=8.
	f := NewFacade(&fakeCore{k: 4, m: 5, alignment: 4}, Profile{}, nil, nil)
	if got := f.GetChunkSize(20); got != 8 {
		t.Errorf("GetChunkSize(20) = %d, want 8", got)
	}

	// K=2, A=4 (the XOR shape) -> stripe_width=5 -> padded=8 -> chunk=4.
	fXOR := NewFacade(&fakeCore{k: 2, m: 1, alignment: 4}, Profile{}, nil, nil)
	if got := fXOR.GetChunkSize(5); got != 4 {
		t.Errorf("GetChunkSize(5) = %d, want 4", got)
	}
}

func TestChunkMappingIsIdentity(t *testing.T) {
	f := NewFacade(&fakeCore{k: 4, m: 5, alignment: 4}, Profile{}, nil, nil)
	mapping := f.GetChunkMapping()
	if len(mapping) != 9 {
		t.Fatalf("len(mapping) = %d, want 9", len(mapping))
	}
	for i, id := range mapping {
		if int(id) != i {
			t.Errorf("mapping[%d] = %d, want %d", i, id, i)
		}
	}
}

func TestCreateRuleIsIdempotent(t *testing.T) {
	host := &fakeRuleHost{existing: map[string]int{}}
	f := NewFacade(&fakeCore{k: 4, m: 5, alignment: 4}, Profile{}, host, nil)

	id1, err := f.CreateRule("erasure-default")
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	host.existing["erasure-default"] = id1

	id2, err := f.CreateRule("erasure-default")
	if err != nil {
		t.Fatalf("CreateRule (second call): %v", err)
	}
	if id1 != id2 {
		t.Errorf("CreateRule returned different ids on repeat calls: %d vs %d", id1, id2)
	}
}

func TestCreateRuleWithoutHost(t *testing.T) {
	f := NewFacade(&fakeCore{k: 4, m: 5, alignment: 4}, Profile{}, nil, nil)
	if _, err := f.CreateRule("x"); err == nil {
		t.Error("CreateRule with nil host should fail")
	}
}

func TestLegacySignaturesRoundTrip(t *testing.T) {
	f := NewFacade(&fakeCore{k: 4, m: 5, alignment: 4}, Profile{}, nil, nil)

	want := map[int]struct{}{0: {}, 1: {}}
	in := []byte{1, 2, 3, 4}
	encoded, err := f.EncodeLegacy(want, in)
	if err != nil {
		t.Fatalf("EncodeLegacy: %v", err)
	}
	if len(encoded) != 2 {
		t.Fatalf("len(encoded) = %d, want 2", len(encoded))
	}

	decoded, err := f.DecodeLegacy(want, encoded, 4)
	if err != nil {
		t.Fatalf("DecodeLegacy: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("len(decoded) = %d, want 2", len(decoded))
	}
}

func TestDecodeConcatZeroFillsMissingShards(t *testing.T) {
	f := NewFacade(&fakeCore{k: 2, m: 1, alignment: 4}, Profile{}, nil, nil)
	chunks := ShardMap{0: {1, 2, 3, 4}}
	out, err := f.DecodeConcat([]ShardID{0, 1}, chunks, 4)
	if err != nil {
		t.Fatalf("DecodeConcat: %v", err)
	}
	want := []byte{1, 2, 3, 4, 0, 0, 0, 0}
	if len(out) != len(want) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}
