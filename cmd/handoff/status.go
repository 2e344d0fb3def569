package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/grpcservice"
	"go.klb.dev/handoff/internal/remote"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show channel owners and what they offer",
		Long: `Lists every owned channel on the server, its owner and the type labels
the owner offers. Channels published from this host are marked with *.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd, v) },
	}

	cmd.Flags().Bool("json", false, "output JSON")
	addClientFlags(cmd)

	return cmd
}

// channelStatus is one row of the status output.
type channelStatus struct {
	Channel content.Channel `json:"channel"`
	Owner   string          `json:"owner"`
	Types   []string        `json:"types,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(v)

	conn, name, err := dial(cmd, v)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(v))
	defer cancel()
	client := remote.NewSource(name, conn).Client()
	owners, err := client.Owners(ctx)
	if err != nil {
		return err
	}

	rows := make([]channelStatus, 0, len(owners))
	for ch, owner := range owners {
		row := channelStatus{Channel: ch, Owner: owner}
		if row.Types, err = client.Offer(ctx, ch); err != nil {
			row.Error = err.Error()
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b channelStatus) int { return strings.Compare(string(a.Channel), string(b.Channel)) })

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	printStatus(out, rows, name, grpcservice.RemotePrefix+v.GetString("source"))
	return nil
}

func printStatus(out io.Writer, rows []channelStatus, server, mine string) {
	fmt.Fprintf(out, "Server: %s\n\n", server)
	if len(rows) == 0 {
		fmt.Fprintln(out, "No channel is owned.")
		return
	}

	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "\tCHANNEL\tOWNER\tTYPES\n")
	_, _ = fmt.Fprintf(tw, "\t-------\t-----\t-----\n")
	for _, r := range rows {
		marker := ""
		if r.Owner == mine {
			marker = "*"
		}
		types := strings.Join(r.Types, ",")
		if r.Error != "" {
			types = "(" + r.Error + ")"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", marker, r.Channel, r.Owner, types)
	}
	_ = tw.Flush()
}
