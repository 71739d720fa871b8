package main

import (
	"context"
	"fmt"
	"time"

	"github.com/duskview/aidj/internal/fade"
	"github.com/duskview/aidj/internal/shared"
	"github.com/urfave/cli/v3"
)

// FadeSet jumps the crossfader to a position and prints the resulting
// deck gains.
func (r *Runner) FadeSet(ctx context.Context, cmd *cli.Command) error {
	pos := cmd.FloatArg("position")
	if pos < 0 || pos > 1 {
		return fmt.Errorf("%w: position must be in [0,1]", shared.ErrInvalidInput)
	}

	a, b := fade.Gains(pos)
	return r.writePlain("position %.2f  deck A %.4f  deck B %.4f\n", pos, a, b)
}

// FadeRamp sweeps the crossfader to a target over a duration, printing
// each frame's gains.
func (r *Runner) FadeRamp(ctx context.Context, cmd *cli.Command) error {
	target := cmd.FloatArg("target")
	if target < 0 || target > 1 {
		return fmt.Errorf("%w: target must be in [0,1]", shared.ErrInvalidInput)
	}

	duration := cmd.Duration("over")
	if duration <= 0 {
		duration = r.config.Fade.DefaultRamp()
	}

	var lastA float64
	sinkA := fade.SinkFunc(func(gain float64) { lastA = gain })
	sinkB := fade.SinkFunc(func(gain float64) {
		r.writePlain("deck A %.4f  deck B %.4f\n", lastA, gain)
	})

	fader := fade.NewFader(sinkA, sinkB, r.config.Fade.FrameInterval())
	defer fader.Close()

	fader.RampTo(target, duration)

	deadline := time.After(duration + time.Second)
	for fader.Position() != target {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w: ramp did not finish", shared.ErrTimeout)
		case <-time.After(r.config.Fade.FrameInterval()):
		}
	}
	return nil
}

// FadeCurve prints the equal-power gain curve in 5% steps.
func (r *Runner) FadeCurve(ctx context.Context, cmd *cli.Command) error {
	r.writePlain("position  deck A   deck B   power\n")
	for i := 0; i <= 20; i++ {
		pos := float64(i) / 20
		a, b := fade.Gains(pos)
		r.writePlain("  %.2f    %.4f   %.4f   %.4f\n", pos, a, b, a*a+b*b)
	}
	return nil
}
