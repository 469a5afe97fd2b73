// Package sizeceph implements the SizeCeph "always-decode" (k=4, m=5)
// erasure code: a data-transformation code, not a Reed-Solomon
// data-preservation code (spec §4.1). Every shard participates in every
// decode; there is no "≥K of N" recoverability rule — recoverability is
// delegated entirely to the native codec's validator.
package sizeceph

// Codec configuration constants (spec §3 "Codec configuration constants").
const (
	// K is the host-visible data shard count.
	K = 4
	// M is the host-visible parity shard count.
	M = 5
	// N is the total shard count, K+M.
	N = K + M
	// Alignment is the native codec's internal block size, in bytes.
	Alignment = 4
	// Granularity is the storage-alignment granularity, in bytes.
	Granularity = 512
)

// Technique is the profile "technique" value this codec answers to.
const Technique = "sizeceph"
