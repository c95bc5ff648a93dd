// Copyright 2026 The Andastra Authors. All rights reserved.

package bitvec

import "testing"

func TestSetUnset(t *testing.T) {
	var v V
	for _, i := range []int{0, 1, 63, 64, 200} {
		if v.IsSet(i) {
			t.Fatalf("IsSet(%d): true before Set", i)
		}
		v.Set(i)
		if !v.IsSet(i) {
			t.Fatalf("IsSet(%d): false after Set", i)
		}
	}
	if v.Len() != 5 {
		t.Fatalf("Len: %d, want 5", v.Len())
	}
	v.Set(63)
	if v.Len() != 5 {
		t.Fatalf("Len after redundant Set: %d, want 5", v.Len())
	}
	v.Unset(63)
	if v.IsSet(63) || v.Len() != 4 {
		t.Fatalf("Unset(63): IsSet=%v Len=%d", v.IsSet(63), v.Len())
	}
	v.Unset(63)
	if v.Len() != 4 {
		t.Fatalf("Len after redundant Unset: %d, want 4", v.Len())
	}
	v.Unset(100000)
}

func TestNextSet(t *testing.T) {
	var v V
	if i := v.NextSet(0); i != -1 {
		t.Fatalf("NextSet on empty set: %d, want -1", i)
	}
	v.Set(2)
	v.Set(70)
	cases := [][2]int{{0, 2}, {2, 2}, {3, 70}, {70, 70}, {71, -1}}
	for _, c := range cases {
		if i := v.NextSet(c[0]); i != c[1] {
			t.Fatalf("NextSet(%d): %d, want %d", c[0], i, c[1])
		}
	}
}

func TestClear(t *testing.T) {
	var v V
	v.Set(1)
	v.Set(500)
	v.Clear()
	if v.Len() != 0 || v.IsSet(1) || v.IsSet(500) {
		t.Fatal("Clear did not empty the set")
	}
	if v.Cap() == 0 {
		t.Fatal("Clear dropped storage")
	}
}
