package ecplugin

import "strconv"

// Profile is a mapping from short string keys to string values, the
// construction-time dictionary the host hands to a codec's Init (spec §3
// "Profile"). Only k, m, technique, and force_all_chunks are recognized by
// the codecs in this module; all other keys are out of scope per spec §1
// and are preserved verbatim for the host's own use.
type Profile map[string]string

// Int parses key as a base-10 integer, returning ok=false if the key is
// absent so callers can fall back to a codec-specific default.
func (p Profile) Int(key string) (value int, ok bool, err error) {
	raw, present := p[key]
	if !present {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, err
	}
	return v, true, nil
}

// Bool reports whether key is present and set to the literal string "true",
// matching the C++ original's profile.find(...)->second == "true" check.
func (p Profile) Bool(key string) bool {
	return p[key] == "true"
}

// String returns key's value and whether it was present.
func (p Profile) String(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// Clone returns a defensive copy so a codec can store its own Profile
// without aliasing the caller's map (profile is per-instance, immutable
// after init, per spec §5).
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
