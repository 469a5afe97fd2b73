package sizeceph

import "github.com/dattu/sizeceph-plugin/pkg/ecplugin"

// PaddedLength rounds stripeWidth up to a multiple of K*Alignment, the
// smallest unit the native codec and the K-way host split both agree on
// (spec §4.2 "Chunk sizing and the host's stripe identity").
func PaddedLength(stripeWidth int) int {
	return ecplugin.RoundUp(stripeWidth, K*Alignment)
}

// ChunkSize implements get_chunk_size (spec §4.2): K * ChunkSize(w) ==
// PaddedLength(w) for every stripeWidth (property P2).
func ChunkSize(stripeWidth int) int {
	return PaddedLength(stripeWidth) / K
}

// PadInput zero-pads in to a multiple of Alignment, matching spec §4.2 step 1
// ("L = |input_bytes|"). Encode additionally requires L%Alignment==0 as a
// hard precondition rather than padding silently — PadInput exists for
// callers (e.g. the host's stripe-width path) that pad *before* calling
// Encode so the precondition already holds.
func PadInput(in []byte) []byte {
	padded := ecplugin.RoundUp(len(in), Alignment)
	if padded == len(in) {
		return in
	}
	out := make([]byte, padded)
	copy(out, in)
	return out
}
