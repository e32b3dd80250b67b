// span_test.go
package devin

import "testing"

func Test_PositionAt(t *testing.T) {
	src := "ab\ncd\nef"
	cases := []struct {
		offset int
		want   Position
	}{
		{0, Position{1, 1}},
		{1, Position{1, 2}},
		{3, Position{2, 1}},
		{4, Position{2, 2}},
		{6, Position{3, 1}},
		{8, Position{3, 3}},   // one past the end of the last line
		{100, Position{3, 3}}, // clamped
	}
	for _, c := range cases {
		if got := PositionAt(src, c.offset); got != c.want {
			t.Fatalf("PositionAt(%d): want %v, got %v", c.offset, c.want, got)
		}
	}
}

func Test_Span_Union(t *testing.T) {
	a := Span{Start: 3, End: 7}
	b := Span{Start: 5, End: 12}
	if got := a.Union(b); got != (Span{Start: 3, End: 12}) {
		t.Fatalf("union mismatch: %v", got)
	}
	if got := a.Union(Span{}); got != a {
		t.Fatalf("union with the empty span must be identity, got %v", got)
	}
}
