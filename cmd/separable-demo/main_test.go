package main

import "testing"

func TestGenerateDataset(t *testing.T) {
	x, y := generateDataset(200)

	for k := 0; k < 200; k++ {
		x1, x2 := x.At2(k, 0), x.At2(k, 1)
		if x1 < 0 || x1 >= 1 || x2 < 0 || x2 >= 1 {
			t.Errorf("point %d (%v, %v) outside the unit square", k, x1, x2)
		}

		want := 0
		if x2 > x1 {
			want = 1
		}
		if y.At2(k, want) != 1 || y.At2(k, 1-want) != 0 {
			t.Errorf("point %d (%v, %v) has label row %v, want class %d", k, x1, x2, y.Row(k), want)
		}
	}
}
