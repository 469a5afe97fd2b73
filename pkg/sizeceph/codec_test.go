package sizeceph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dattu/sizeceph-plugin/pkg/ecplugin"
)

// fakeNative stands in for the cgo binding in tests: it performs a trivial,
// invertible transform (XOR every data byte with 0xFF, replicate into M
// parity slots) so Decode can recover the original bytes without a real
// sizeceph.so. It exists only to exercise Codec's own control flow.
type fakeNative struct {
	loaded      bool
	acquireErr  error
	splitErr    error
	restoreErr  error
	canRestore  bool
	canRestErr  error
	lastSplitIn []byte
}

func (f *fakeNative) Acquire() error {
	if f.acquireErr != nil {
		return f.acquireErr
	}
	f.loaded = true
	return nil
}

func (f *fakeNative) Release()     { f.loaded = false }
func (f *fakeNative) Loaded() bool { return f.loaded }

func (f *fakeNative) Split(out [][]byte, in []byte) error {
	if f.splitErr != nil {
		return f.splitErr
	}
	f.lastSplitIn = in
	chunkSize := len(out[0])
	for i := range out {
		for j := 0; j < chunkSize; j++ {
			srcIdx := (i*chunkSize + j) % len(in)
			out[i][j] = in[srcIdx] ^ 0xFF
		}
	}
	return nil
}

func (f *fakeNative) CanRestore(in [][]byte) (bool, error) {
	if f.canRestErr != nil {
		return false, f.canRestErr
	}
	return f.canRestore, nil
}

func (f *fakeNative) Restore(in [][]byte, outLen int) ([]byte, error) {
	if f.restoreErr != nil {
		return nil, f.restoreErr
	}
	out := make([]byte, outLen)
	// Inverse of Split's replication: the first K*chunkSize XORed bytes
	// reassemble the original input exactly, since Split wrote input[idx]^0xFF
	// at position idx (mod len(in)) for i<K.
	chunkSize := len(in[0])
	for i := 0; i < K && i*chunkSize < outLen; i++ {
		for j := 0; j < chunkSize; j++ {
			pos := i*chunkSize + j
			if pos >= outLen {
				break
			}
			out[pos] = in[i][j] ^ 0xFF
		}
	}
	return out, nil
}

func newTestCodec(t *testing.T, native *fakeNative) *Codec {
	t.Helper()
	c := New(nil)
	c.native = native
	require.NoError(t, c.Init(ecplugin.Profile{}))
	return c
}

func TestCodecInitRejectsWrongShape(t *testing.T) {
	c := New(nil)
	c.native = &fakeNative{}
	err := c.Init(ecplugin.Profile{"k": "3", "m": "5"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ecplugin.Sentinel(ecplugin.Invalid)))
}

func TestCodecInitAcceptsForceAllChunks(t *testing.T) {
	c := New(nil)
	c.native = &fakeNative{}
	err := c.Init(ecplugin.Profile{"force_all_chunks": "true", "k": "9", "m": "0"})
	require.NoError(t, err)
}

func TestCodecInitPropagatesNativeLoadFailure(t *testing.T) {
	c := New(nil)
	c.native = &fakeNative{acquireErr: errors.New("no library found")}
	err := c.Init(ecplugin.Profile{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ecplugin.Sentinel(ecplugin.NotFound)))
}

func TestCodecEncodeRejectsPartialWant(t *testing.T) {
	c := newTestCodec(t, &fakeNative{})
	_, err := c.Encode(ecplugin.NewShardSet(0, 1), []byte("ab"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ecplugin.Sentinel(ecplugin.Invalid)))
}

func TestCodecEncodeRejectsUnalignedInput(t *testing.T) {
	c := newTestCodec(t, &fakeNative{})
	_, err := c.Encode(ecplugin.RangeShardSet(N), []byte("abc"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ecplugin.Sentinel(ecplugin.Invalid)))
}

func TestCodecEncodeEmptyInputProducesEmptyShards(t *testing.T) {
	c := newTestCodec(t, &fakeNative{})
	out, err := c.Encode(ecplugin.RangeShardSet(N), nil)
	require.NoError(t, err)
	assert.Len(t, out, N)
	for _, buf := range out {
		assert.Empty(t, buf)
	}
}

func TestCodecEncodeProducesAllNShards(t *testing.T) {
	c := newTestCodec(t, &fakeNative{})
	in := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	out, err := c.Encode(ecplugin.RangeShardSet(N), in)
	require.NoError(t, err)
	assert.Len(t, out, N)
	for i := 0; i < N; i++ {
		assert.Contains(t, out, ecplugin.ShardID(i))
	}
}

func TestCodecDecodeRequiresAllNShards(t *testing.T) {
	c := newTestCodec(t, &fakeNative{canRestore: true})
	chunks := ecplugin.ShardMap{}
	for i := 0; i < N-1; i++ {
		chunks[ecplugin.ShardID(i)] = []byte{0, 0}
	}
	_, err := c.Decode(ecplugin.RangeShardSet(K), chunks, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ecplugin.Sentinel(ecplugin.NotFound)))
}

func TestCodecDecodeRoundTrip(t *testing.T) {
	native := &fakeNative{canRestore: true}
	c := newTestCodec(t, native)

	in := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	encoded, err := c.Encode(ecplugin.RangeShardSet(N), in)
	require.NoError(t, err)

	chunkSize := len(encoded[0])
	decoded, err := c.Decode(ecplugin.RangeShardSet(K), encoded, chunkSize)
	require.NoError(t, err)

	var out []byte
	for _, id := range ecplugin.RangeShardSet(K).Sorted() {
		out = append(out, decoded[id]...)
	}
	assert.Equal(t, in, out)
}

func TestCodecDecodeParityShardsAreEmpty(t *testing.T) {
	native := &fakeNative{canRestore: true}
	c := newTestCodec(t, native)

	in := []byte{0x01, 0x02, 0x03, 0x04}
	encoded, err := c.Encode(ecplugin.RangeShardSet(N), in)
	require.NoError(t, err)

	decoded, err := c.Decode(ecplugin.RangeShardSet(N), encoded, len(encoded[0]))
	require.NoError(t, err)
	for id := K; id < N; id++ {
		assert.Equal(t, []byte{}, decoded[ecplugin.ShardID(id)])
	}
}

func TestCodecDecodeUnrestorablePattern(t *testing.T) {
	native := &fakeNative{canRestore: false}
	c := newTestCodec(t, native)

	chunks := ecplugin.ShardMap{}
	for i := 0; i < N; i++ {
		chunks[ecplugin.ShardID(i)] = []byte{0, 0}
	}
	_, err := c.Decode(ecplugin.RangeShardSet(K), chunks, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ecplugin.Sentinel(ecplugin.NotSupported)))
}

func TestCodecMinimumToDecode(t *testing.T) {
	c := newTestCodec(t, &fakeNative{})

	full := ecplugin.RangeShardSet(N)
	got, err := c.MinimumToDecode(ecplugin.RangeShardSet(K), full)
	require.NoError(t, err)
	assert.True(t, got.Equal(full))

	partial := ecplugin.RangeShardSet(N - 1)
	_, err = c.MinimumToDecode(ecplugin.RangeShardSet(K), partial)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ecplugin.Sentinel(ecplugin.IO)))
}

func TestCodecEncodeChunksUnsupported(t *testing.T) {
	c := newTestCodec(t, &fakeNative{})
	_, err := c.EncodeChunks(ecplugin.ShardMap{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ecplugin.Sentinel(ecplugin.NotSupported)))
}

func TestCodecApplyDeltaClearsOutput(t *testing.T) {
	c := newTestCodec(t, &fakeNative{})
	out := ecplugin.ShardMap{0: {1, 2}, 1: {3, 4}}
	c.ApplyDelta(ecplugin.ShardMap{}, out)
	assert.Empty(t, out)
}

func TestCodecEncodeDeltaReturnsNil(t *testing.T) {
	c := newTestCodec(t, &fakeNative{})
	assert.Nil(t, c.EncodeDelta([]byte("a"), []byte("b")))
}

func TestCodecSupportedOptimizations(t *testing.T) {
	c := newTestCodec(t, &fakeNative{})
	flags := c.SupportedOptimizations()
	assert.True(t, flags.Has(ecplugin.FlagOptimizedSupported))
	assert.True(t, flags.Has(ecplugin.FlagZeroPadding))
	assert.False(t, flags.Has(ecplugin.FlagPartialRead))
}
