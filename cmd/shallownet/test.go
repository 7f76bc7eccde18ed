package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ahmedtd/shallownet/device"
	"github.com/ahmedtd/shallownet/shallownet"
	"github.com/google/subcommands"
)

type TestCommand struct {
	data dataFlags
}

var _ subcommands.Command = (*TestCommand)(nil)

func (*TestCommand) Name() string {
	return "test"
}

func (*TestCommand) Synopsis() string {
	return "Evaluate saved weights on a data set"
}

func (*TestCommand) Usage() string {
	return ``
}

func (c *TestCommand) SetFlags(f *flag.FlagSet) {
	c.data.register(f, "test")
}

func (c *TestCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *TestCommand) executeErr(ctx context.Context) error {
	x, y, err := c.data.load()
	if err != nil {
		return err
	}

	dev := device.New(c.data.deviceConfig(0))
	sizes := shallownet.Sizes{Input: x.Shape[1], Hidden: c.data.hidden, Output: c.data.classes}
	model, err := shallownet.New(dev, sizes, shallownet.Options{Seed: c.data.seed})
	if err != nil {
		return fmt.Errorf("while initializing model: %w", err)
	}
	defer model.Close()

	if err := model.LoadText(c.data.modelPrefix); err != nil {
		return fmt.Errorf("while loading weights: %w", err)
	}

	preds, err := model.Evaluate(x, y, c.data.seed)
	if err != nil {
		return fmt.Errorf("while evaluating: %w", err)
	}

	log.Printf("accuracy=%.1f%% (%d/%d)", accuracy(preds)*100, correct(preds), len(preds))
	return nil
}

func correct(preds []shallownet.Prediction) int {
	n := 0
	for _, p := range preds {
		if p.Predicted == p.Target {
			n++
		}
	}
	return n
}

func accuracy(preds []shallownet.Prediction) float32 {
	if len(preds) == 0 {
		return 0
	}
	return float32(correct(preds)) / float32(len(preds))
}
