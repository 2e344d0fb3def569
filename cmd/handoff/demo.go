package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/handoff/internal/clip"
	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/exchange"
	"go.klb.dev/handoff/internal/hub"
	"go.klb.dev/handoff/internal/world"
)

const (
	demoText  = "Copied Text"
	demoTimer = world.TimerID(1)
)

var errDemoMismatch = errors.New("demo: clipboard content mismatch")

func newDemoCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Copy to the general channel and paste it back, within one view",
		Long: `Runs a single headless view through a timer-driven sequence:

  tick 0  publish "Copied Text" and read it back
  tick 1  read it back again
  tick 2  request a paste; accept text/plain with the copy action
  data    check the delivered payload, then close

--verbose prints every event the view receives.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDemo(cmd, v) },
	}

	f := cmd.Flags()
	f.BoolP("verbose", "v", false, "print events")
	f.Duration("interval", time.Second/60, "timer interval")
	f.Duration("timeout", 10*time.Second, "give up after this long")
	f.Duration("exchange-timeout", world.DefaultExchangeTimeout, "fail the paste if it takes longer (0 = never)")
	f.Bool("system-clipboard", false, "also mirror the copied text to the system clipboard")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

// demo is the per-view state of the demo command.
type demo struct {
	out       io.Writer
	verbose   bool
	interval  time.Duration
	iteration int
	pasted    *content.Entry
	err       error
}

func (d *demo) fail(v *world.View[demo], err error) {
	if err != nil && d.err == nil {
		d.err = err
		v.RequestClose()
	}
}

func onDemoEvent(v *world.View[demo], ev world.Event) {
	d := v.Data()
	if d.verbose {
		fmt.Fprintf(d.out, "%-4d %s\n", d.iteration, world.Describe(ev))
	}
	switch e := ev.(type) {
	case world.ExposeEvent:
		d.fail(v, v.StartTimer(demoTimer, d.interval))
	case world.TimerEvent:
		d.tick(v)
	case world.OfferEvent:
		d.fail(v, v.AcceptOffer(e.Exchange, 0, exchange.ActionCopy, v.Frame()))
	case world.DataEvent:
		if err := checkGeneral(v); err != nil {
			d.fail(v, err)
			return
		}
		entry := e.Entry()
		d.pasted = &entry
		v.RequestClose()
	case world.FailedEvent:
		d.fail(v, e.Err)
	case world.CloseEvent:
		v.Close()
	}
}

func (d *demo) tick(v *world.View[demo]) {
	switch d.iteration {
	case 0:
		if err := v.Publish(content.General, content.NewCText(demoText)); err != nil {
			d.fail(v, err)
			return
		}
		d.fail(v, checkGeneral(v))
	case 1:
		d.fail(v, checkGeneral(v))
	case 2:
		if _, err := v.RequestPaste(content.General); err != nil {
			d.fail(v, err)
			return
		}
		d.fail(v, v.StopTimer(demoTimer))
	}
	d.iteration++
}

// checkGeneral verifies that the view's general channel holds exactly the
// demo text.
func checkGeneral(v *world.View[demo]) error {
	if n := v.TypeCount(content.General); n != 1 {
		return fmt.Errorf("%w: %d types", errDemoMismatch, n)
	}
	typ, err := v.TypeAt(content.General, 0)
	if err != nil {
		return err
	}
	if typ != content.TextPlain {
		return fmt.Errorf("%w: type %s", errDemoMismatch, typ)
	}
	e, err := v.Read(content.General, 0)
	if err != nil {
		return err
	}
	if e.Text() != demoText {
		return fmt.Errorf("%w: %q", errDemoMismatch, e.Text())
	}
	return nil
}

func runDemo(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(v)

	ctx, cancel := context.WithTimeout(context.Background(), v.GetDuration("timeout"))
	defer cancel()

	h := hub.New()
	if v.GetBool("system-clipboard") {
		backend := clip.New()
		defer backend.Close()
		go clip.NewSync(h, backend).Run(ctx)
	}

	w := world.New(h, worldConfig(v))
	defer w.Close()

	out := cmd.OutOrStdout()
	view := world.NewView(w, demo{
		out:      out,
		verbose:  v.GetBool("verbose"),
		interval: v.GetDuration("interval"),
	}, onDemoEvent)
	if err := view.Show(); err != nil {
		return err
	}

	if err := w.RunUntil(ctx, world.BlockUntilEvent, view.Closed); err != nil {
		return fmt.Errorf("demo: %w", err)
	}
	d := view.Data()
	if d.err != nil {
		return d.err
	}
	fmt.Fprintf(out, "pasted %s %q (%d bytes)\n", d.pasted.Type, d.pasted.Text(), d.pasted.Len())
	return nil
}
