// Command separable-demo trains the classifier on points in the unit square
// labeled by which side of the line x2 = x1 they fall on, and reports how
// many it gets wrong.
package main

import (
	"flag"
	"log"
	"math/rand"

	"github.com/ahmedtd/shallownet/device"
	"github.com/ahmedtd/shallownet/shallownet"
	"github.com/ahmedtd/shallownet/toolbox"
)

func main() {
	batchSize := flag.Int("instances", 1000, "Number of generated points")
	hidden := flag.Int("hidden", 8, "Number of hidden units")
	epochs := flag.Int("epochs", 50, "Number of passes over the data set")
	learningRate := flag.Float64("learning-rate", 0.1, "Gradient descent step size")
	legacy := flag.Bool("legacy-hidden-gradient", false, "Scale the hidden error by the activation")
	flag.Parse()

	x, y := generateDataset(*batchSize)

	num0s, num1s := 0, 0
	for k := 0; k < *batchSize; k++ {
		if y.At2(k, 1) == 1 {
			num1s++
		} else {
			num0s++
		}
	}
	log.Printf("data set has %d 1s and %d 0s", num1s, num0s)

	hgrad := shallownet.SigmoidDerivative
	if *legacy {
		hgrad = shallownet.ActivationScaled
	}

	dev := device.New(device.DefaultConfig())
	m, err := shallownet.New(dev, shallownet.Sizes{Input: 2, Hidden: *hidden, Output: 2}, shallownet.Options{
		Seed:           12345,
		HiddenGradient: hgrad,
	})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer m.Close()

	if _, err := m.Train(x, y, shallownet.TrainConfig{Epochs: *epochs, LearningRate: float32(*learningRate)}); err != nil {
		log.Fatalf("Error: %v", err)
	}

	mispredictions := 0
	for k := 0; k < *batchSize; k++ {
		probs, err := m.Predict(x.Row(k))
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		predicted, _ := toolbox.ArgMax(probs)
		target, _ := toolbox.ArgMax(y.Row(k))
		if predicted != target {
			mispredictions++
		}
	}
	log.Printf("had %d mispredictions (%v%%) launches=%d", mispredictions, float32(mispredictions)/float32(*batchSize)*float32(100), dev.Launches())
}

// generateDataset returns m points with one-hot labels: class 1 above the
// line x2 = x1, class 0 on or below it.
func generateDataset(m int) (x, y *toolbox.AF32) {
	r := rand.New(rand.NewSource(12345))

	x = toolbox.MakeAF32(m, 2)
	y = toolbox.MakeAF32(m, 2)

	for i := 0; i < m; i++ {
		x1 := r.Float32()
		x2 := r.Float32()
		class := 0
		if x2 > x1 {
			class = 1
		}

		x.Set2(i, 0, x1)
		x.Set2(i, 1, x2)
		y.Set2(i, class, 1)
	}

	return x, y
}
