package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/exchange"
	"go.klb.dev/handoff/internal/hub"
	"go.klb.dev/handoff/internal/remote"
	"go.klb.dev/handoff/internal/world"
)

func newPasteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Negotiate a paste and print it to stdout (like pbpaste)",
		Long: `Asks the owner of a channel what it offers, accepts --mime and writes the
delivered payload to stdout.

If the owner does not offer --mime nothing is printed (exit 0). To
retrieve an image:

  handoff paste --mime image/png > screenshot.png

--list prints the offered type labels instead and declines the offer.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runPaste(cmd, v) },
	}

	f := cmd.Flags()
	f.String("mime", content.TextPlain, "type to accept")
	f.String("channel", string(content.General), "channel to paste from: general|dnd")
	f.String("action", exchange.ActionCopy.String(), "requested action: copy|move|link|private")
	f.Bool("list", false, "print the offered types and decline")
	addClientFlags(cmd)

	return cmd
}

// paster is the per-view state of the paste command.
type paster struct {
	out    io.Writer
	mime   string
	action exchange.Action
	list   bool
	done   bool
	err    error
}

func onPasteEvent(v *world.View[paster], ev world.Event) {
	p := v.Data()
	switch e := ev.(type) {
	case world.OfferEvent:
		if p.list {
			for _, t := range e.Types {
				fmt.Fprintln(p.out, t)
			}
			p.done = true
			return
		}
		i := slices.Index(e.Types, p.mime)
		if i < 0 {
			// Requested type not offered: print nothing, like pbpaste.
			p.done = true
			return
		}
		if err := v.AcceptOffer(e.Exchange, i, p.action, v.Frame()); err != nil {
			p.err, p.done = err, true
		}
	case world.DataEvent:
		data := e.Data
		if e.Type == content.TextPlain {
			data = []byte(e.Entry().Text())
		}
		_, p.err = p.out.Write(data)
		p.done = true
	case world.FailedEvent:
		p.err, p.done = e.Err, true
	}
}

func runPaste(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(v)

	action, err := exchange.ParseAction(v.GetString("action"))
	if err != nil {
		return err
	}
	ch := channelOf(v)

	conn, name, err := dial(cmd, v)
	if err != nil {
		return err
	}
	defer conn.Close()

	h := hub.New()
	h.Claim(ch, remote.NewSource(name, conn))
	w := world.New(h, worldConfig(v))
	defer w.Close()

	view := world.NewView(w, paster{
		out:    cmd.OutOrStdout(),
		mime:   v.GetString("mime"),
		action: action,
		list:   v.GetBool("list"),
	}, onPasteEvent)
	if _, err := view.RequestPaste(ch); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := w.RunUntil(ctx, world.BlockUntilEvent, func() bool { return view.Data().done }); err != nil {
		return err
	}
	return view.Data().err
}
