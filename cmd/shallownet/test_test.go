package main

import (
	"testing"

	"github.com/ahmedtd/shallownet/shallownet"
)

func TestAccuracy(t *testing.T) {
	preds := []shallownet.Prediction{
		{Target: 1, Predicted: 1},
		{Target: 0, Predicted: 1},
		{Target: 2, Predicted: 2},
		{Target: 3, Predicted: 0},
	}
	if got := correct(preds); got != 2 {
		t.Errorf("Wrong correct count; got %d want 2", got)
	}
	if got := accuracy(preds); got != 0.5 {
		t.Errorf("Wrong accuracy; got %v want 0.5", got)
	}
	if got := accuracy(nil); got != 0 {
		t.Errorf("Wrong accuracy for no predictions; got %v want 0", got)
	}
}
