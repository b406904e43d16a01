package sliceutil

import (
	"reflect"
	"testing"
)

func TestIntersectionUint64(t *testing.T) {
	tests := []struct {
		a, b, want []uint64
	}{
		{[]uint64{2, 3, 5}, []uint64{3, 5}, []uint64{3, 5}},
		{[]uint64{2, 3, 5}, []uint64{5, 3, 2}, []uint64{2, 3, 5}},
		{[]uint64{2, 2, 3}, []uint64{3, 3}, []uint64{3}},
		{[]uint64{2, 3, 5}, []uint64{7}, []uint64{}},
		{[]uint64{}, []uint64{2, 3}, []uint64{}},
	}
	for _, tt := range tests {
		got := IntersectionUint64(tt.a, tt.b)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("IntersectionUint64(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestIsUint64Sorted(t *testing.T) {
	tests := []struct {
		a    []uint64
		want bool
	}{
		{[]uint64{}, true},
		{[]uint64{9}, true},
		{[]uint64{1, 2, 2, 3}, true},
		{[]uint64{3, 2}, false},
		{[]uint64{1, 5, 4}, false},
	}
	for _, tt := range tests {
		if got := IsUint64Sorted(tt.a); got != tt.want {
			t.Errorf("IsUint64Sorted(%v) = %v, want %v", tt.a, got, tt.want)
		}
	}
}
