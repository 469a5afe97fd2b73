package ecplugin

import "testing"

func TestRangeShardSetIsRange(t *testing.T) {
	s := RangeShardSet(9)
	if !s.IsRange(9) {
		t.Error("RangeShardSet(9).IsRange(9) = false")
	}
	if s.IsRange(8) {
		t.Error("RangeShardSet(9).IsRange(8) = true")
	}
}

func TestSortedIsAscending(t *testing.T) {
	s := NewShardSet(3, 1, 2)
	sorted := s.Sorted()
	want := []ShardID{1, 2, 3}
	if len(sorted) != len(want) {
		t.Fatalf("len = %d, want %d", len(sorted), len(want))
	}
	for i := range want {
		if sorted[i] != want[i] {
			t.Errorf("sorted[%d] = %d, want %d", i, sorted[i], want[i])
		}
	}
}

func TestSuperset(t *testing.T) {
	full := RangeShardSet(9)
	if !full.Superset(NewShardSet(0, 4, 8)) {
		t.Error("full range should be superset of any subset")
	}
	if full.Superset(NewShardSet(9)) {
		t.Error("full range should not be superset of an out-of-range id")
	}
}

func TestEqual(t *testing.T) {
	a := NewShardSet(0, 1, 2)
	b := NewShardSet(2, 1, 0)
	if !a.Equal(b) {
		t.Error("sets with same members in different insertion order should be equal")
	}
	if a.Equal(NewShardSet(0, 1)) {
		t.Error("sets with different sizes should not be equal")
	}
}

func TestShardMapKeys(t *testing.T) {
	m := ShardMap{0: {1}, 1: {2}, 2: {3}}
	keys := m.Keys()
	if !keys.IsRange(3) {
		t.Errorf("keys = %v, want [0,3)", keys)
	}
}
