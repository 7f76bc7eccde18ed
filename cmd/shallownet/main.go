// Command shallownet trains and evaluates a single-hidden-layer classifier on
// arrays stored in a .npz file.
//
// To train: `go run ./cmd/shallownet train --data-file=mnist.npz --classes=10 --model-prefix=mnist`
//
// To test: `go run ./cmd/shallownet test --data-file=mnist.npz --classes=10 --model-prefix=mnist`
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	"github.com/ahmedtd/shallownet/device"
	"github.com/ahmedtd/shallownet/shallownet"
	"github.com/ahmedtd/shallownet/toolbox"
	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&TrainCommand{}, "")
	subcommands.Register(&TestCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

// dataFlags are shared by both subcommands.
type dataFlags struct {
	dataFile    string
	featuresKey string
	labelsKey   string
	classes     int
	hidden      int
	modelPrefix string
	seed        int64
	workers     int
}

func (d *dataFlags) register(f *flag.FlagSet, split string) {
	f.StringVar(&d.dataFile, "data-file", "data.npz", "Path to the .npz input file")
	f.StringVar(&d.featuresKey, "features-key", "x_"+split+".npy", "Name of the features array inside the data file")
	f.StringVar(&d.labelsKey, "labels-key", "y_"+split+".npy", "Name of the labels array inside the data file")
	f.IntVar(&d.classes, "classes", 10, "Number of output classes")
	f.IntVar(&d.hidden, "hidden", 64, "Number of hidden units")
	f.StringVar(&d.modelPrefix, "model-prefix", "model", "Weights are stored in <prefix>_w1.txt and <prefix>_w2.txt")
	f.Int64Var(&d.seed, "seed", 12345, "Random seed")
	f.IntVar(&d.workers, "workers", 0, "Goroutines per kernel launch (0 means one per CPU)")
}

func (d *dataFlags) load() (x, y *toolbox.AF32, err error) {
	x, y, err = toolbox.LoadNPZ(d.dataFile, d.featuresKey, d.labelsKey, d.classes)
	if err != nil {
		return nil, nil, fmt.Errorf("while loading data set: %w", err)
	}
	log.Printf("Loaded %d instances with %d features from %s", x.Shape[0], x.Shape[1], d.dataFile)
	return x, y, nil
}

func (d *dataFlags) deviceConfig(memoryLimit int64) device.Config {
	cfg := device.DefaultConfig()
	if d.workers > 0 {
		cfg.Workers = d.workers
	}
	cfg.MemoryLimit = memoryLimit
	return cfg
}

type TrainCommand struct {
	data dataFlags

	epochs               int
	learningRate         float64
	legacyHiddenGradient bool
	memoryLimit          int64

	cpuProfileFile string
}

var _ subcommands.Command = (*TrainCommand)(nil)

func (*TrainCommand) Name() string {
	return "train"
}

func (*TrainCommand) Synopsis() string {
	return "Train the model"
}

func (*TrainCommand) Usage() string {
	return ``
}

func (c *TrainCommand) SetFlags(f *flag.FlagSet) {
	c.data.register(f, "train")

	f.IntVar(&c.epochs, "epochs", 10, "Number of passes over the training set")
	f.Float64Var(&c.learningRate, "learning-rate", 0.1, "Gradient descent step size")
	f.BoolVar(&c.legacyHiddenGradient, "legacy-hidden-gradient", false, "Scale the hidden error by the activation instead of the sigmoid derivative, as older models were trained")
	f.Int64Var(&c.memoryLimit, "memory-limit", 0, "Device memory budget in bytes (0 means unlimited)")

	f.StringVar(&c.cpuProfileFile, "cpu-profile", "", "Write a CPU profile")
}

func (c *TrainCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *TrainCommand) executeErr(ctx context.Context) error {
	if c.cpuProfileFile != "" {
		f, err := os.Create(c.cpuProfileFile)
		if err != nil {
			return fmt.Errorf("while creating CPU profile file: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("while starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	x, y, err := c.data.load()
	if err != nil {
		return err
	}

	hgrad := shallownet.SigmoidDerivative
	if c.legacyHiddenGradient {
		hgrad = shallownet.ActivationScaled
	}

	dev := device.New(c.data.deviceConfig(c.memoryLimit))
	sizes := shallownet.Sizes{Input: x.Shape[1], Hidden: c.data.hidden, Output: c.data.classes}
	model, err := shallownet.New(dev, sizes, shallownet.Options{
		Seed:           c.data.seed,
		HiddenGradient: hgrad,
	})
	if err != nil {
		return fmt.Errorf("while initializing model: %w", err)
	}
	defer model.Close()

	stats, err := model.Train(x, y, shallownet.TrainConfig{
		Epochs:       c.epochs,
		LearningRate: float32(c.learningRate),
		ModelPrefix:  c.data.modelPrefix,
	})
	if err != nil {
		return fmt.Errorf("while training: %w", err)
	}

	if len(stats) > 0 && stats[len(stats)-1].Degenerate {
		log.Printf("Training finished with a non-finite loss; the saved weights are likely unusable")
	}
	w1, w2 := shallownet.WeightFiles(c.data.modelPrefix)
	log.Printf("Saved weights to %s and %s", w1, w2)

	return nil
}
