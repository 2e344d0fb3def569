package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/ipc"
	"go.klb.dev/handoff/internal/logging"
	"go.klb.dev/handoff/internal/remote"
	"go.klb.dev/handoff/internal/world"
)

const defaultAddr = "localhost:8753"

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and HANDOFF_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → HANDOFF_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("handoff")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/handoff/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "handoff"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("HANDOFF")
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addClientFlags adds the flags of commands that talk to a server.
func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("addr", defaultAddr, "server address (used when no local server is running)")
	f.String("token", "", "shared secret")
	f.Bool("tls", false, "use passphrase-derived TLS (the token is the passphrase)")
	f.String("source", defaultSource(), "name for this host in owner lists")
	f.Duration("exchange-timeout", world.DefaultExchangeTimeout, "give up on an unresponsive owner after this long (0 = never)")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	resolveLogging(interactive, v.GetString("log-format"), v.GetString("log-level"))
}

// worldConfig returns the world configuration selected by the flags.
func worldConfig(v *viper.Viper) world.Config {
	cfg := world.DefaultConfig()
	cfg.ExchangeTimeout = v.GetDuration("exchange-timeout")
	return cfg
}

// channelOf returns the --channel flag as a channel.
func channelOf(v *viper.Viper) content.Channel {
	if ch := v.GetString("channel"); ch != "" {
		return content.Channel(ch)
	}
	return content.General
}

// dial connects to the local server over the IPC socket when one is
// running and --addr was not given, otherwise to --addr. It returns the
// connection and the name of the server it reached.
func dial(cmd *cobra.Command, v *viper.Viper) (*grpc.ClientConn, string, error) {
	cfg := remote.DialConfig{
		Addr:   v.GetString("addr"),
		Token:  v.GetString("token"),
		Source: v.GetString("source"),
		TLS:    v.GetBool("tls"),
	}
	name := cfg.Addr
	if !cmd.Flags().Changed("addr") && ipc.IsRunning() {
		cfg = remote.DialConfig{Addr: ipc.Target(), Source: cfg.Source}
		name = "ipc"
	}
	conn, err := remote.Dial(cfg)
	if err != nil {
		return nil, "", err
	}
	return conn, name, nil
}

// requestTimeout bounds single calls made by CLI commands.
func requestTimeout(v *viper.Viper) time.Duration {
	if d := v.GetDuration("exchange-timeout"); d > 0 {
		return d
	}
	return world.DefaultExchangeTimeout
}

func isContainerID(s string) bool {
	if len(s) < 12 || len(s) > 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// defaultSource returns a human-readable identifier for this host.
func defaultSource() string {
	for _, env := range []string{
		"HANDOFF_SOURCE",
		"CONTAINER_NAME",
		"COMPOSE_SERVICE",
		"SERVICE_NAME",
	} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	if isContainerID(h) {
		return "container-" + h[:8]
	}
	return h
}
