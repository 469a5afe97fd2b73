package binding

import "testing"

func TestSearchPathsDefaultsOnly(t *testing.T) {
	t.Setenv(EnvOverride, "")
	paths := searchPaths()
	if len(paths) != len(DefaultSearchPaths) {
		t.Fatalf("got %d paths, want %d", len(paths), len(DefaultSearchPaths))
	}
	for i, p := range DefaultSearchPaths {
		if paths[i] != p {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], p)
		}
	}
}

func TestSearchPathsOverrideTakesPriority(t *testing.T) {
	t.Setenv(EnvOverride, "/opt/custom/sizeceph.so")
	paths := searchPaths()
	if len(paths) != len(DefaultSearchPaths)+1 {
		t.Fatalf("got %d paths, want %d", len(paths), len(DefaultSearchPaths)+1)
	}
	if paths[0] != "/opt/custom/sizeceph.so" {
		t.Errorf("paths[0] = %q, want override first", paths[0])
	}
	for i, p := range DefaultSearchPaths {
		if paths[i+1] != p {
			t.Errorf("paths[%d] = %q, want %q", i+1, paths[i+1], p)
		}
	}
}

func TestRefCountStartsAtZero(t *testing.T) {
	if RefCount() != 0 {
		t.Skip("binding already acquired by another test in this process")
	}
	if Loaded() {
		t.Error("Loaded() true with zero refcount")
	}
}
