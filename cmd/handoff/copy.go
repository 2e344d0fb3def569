package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/remote"
)

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Publish stdin on a channel (like pbcopy)",
		Long: `Reads stdin and publishes it on the server, which then owns the channel
on this host's behalf until something else is published.

If a local server is running it is reached over the IPC socket, otherwise
over --addr. Text is published as a NUL-terminated string.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runCopy(cmd, v) },
	}

	f := cmd.Flags()
	f.String("mime", content.TextPlain, "type label of the data being copied")
	f.String("channel", string(content.General), "channel to publish on: general|dnd")
	addClientFlags(cmd)

	return cmd
}

func runCopy(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(v)

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	entry := content.Entry{Type: v.GetString("mime"), Data: data}
	if entry.Type == content.TextPlain {
		entry = content.NewCText(string(data))
	}

	conn, name, err := dial(cmd, v)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(v))
	defer cancel()
	src := remote.NewSource(name, conn)
	if err := src.Client().Publish(ctx, channelOf(v), []content.Entry{entry}); err != nil {
		return err
	}
	content.LogEntries("content published", v.GetString("source"), channelOf(v), []content.Entry{entry})
	return nil
}
