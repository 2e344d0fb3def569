package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soheilhy/cmux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"go.klb.dev/handoff/internal/clip"
	"go.klb.dev/handoff/internal/grpcservice"
	"go.klb.dev/handoff/internal/hub"
	"go.klb.dev/handoff/internal/ipc"
	"go.klb.dev/handoff/internal/tlsconf"
)

func newServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Share the clipboard channels over gRPC and HTTP",
		Long: `Starts a hub that owns the general and drag-and-drop channels on behalf
of remote publishers. gRPC and the HTTP/JSON gateway share one port:

  GET /v1/channels/{channel}/types
  GET /v1/channels/{channel}/data?type=text/plain
  PUT /v1/channels/{channel}/data        (Content-Type is the type label)
  GET /v1/owners

With --system-clipboard the host clipboard takes part in the general
channel: it claims the channel when it changes and receives whatever other
owners publish.

Precedence (lowest → highest): defaults → config file → HANDOFF_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runServe(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.String("addr", "0.0.0.0:8753", "TCP listen address")
	f.String("token", "", "shared secret (empty = no auth)")
	f.Bool("tls", false, "serve passphrase-derived TLS (the token is the passphrase)")
	f.Bool("system-clipboard", true, "mirror the general channel to the system clipboard")
	f.Bool("ipc", true, "serve CLI tools on the local IPC socket")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runServe(ctx context.Context, v *viper.Viper) error {
	setupLogging(v)
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.New()
	if v.GetBool("system-clipboard") {
		backend := clip.New()
		defer backend.Close()
		go clip.NewSync(h, backend).Run(ctx)
	}

	srv, err := startServer(h, serverConfig{
		Addr:  v.GetString("addr"),
		Token: v.GetString("token"),
		TLS:   v.GetBool("tls"),
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	slog.Info("handoff server starting",
		"version", Version,
		"addr", srv.Addr(),
		"system_clipboard", v.GetBool("system-clipboard"),
		"tls", v.GetBool("tls"),
		"auth", v.GetString("token") != "",
	)

	if v.GetBool("ipc") {
		ipcLn, err := ipc.Listen()
		if err != nil {
			slog.Warn("IPC socket unavailable", "err", err)
		} else {
			ipcSrv := grpc.NewServer()
			grpcservice.Register(ipcSrv, grpcservice.New(h, ""))
			go func() { _ = ipcSrv.Serve(ipcLn) }()
			defer ipcSrv.Stop()
			slog.Info("IPC socket listening", "path", ipc.SocketPath())
		}
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		return nil
	case err := <-srv.errs:
		return err
	}
}

type serverConfig struct {
	Addr  string
	Token string
	TLS   bool
}

// server serves gRPC and the HTTP gateway on one listener.
type server struct {
	ln   net.Listener
	m    cmux.CMux
	grpc *grpc.Server
	http *http.Server
	errs chan error
}

func startServer(h *hub.Hub, cfg serverConfig) (*server, error) {
	svc := grpcservice.New(h, cfg.Token)
	gw, err := svc.Gateway()
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	if cfg.TLS {
		tc, err := tlsconf.New(cfg.Token)
		if err != nil {
			_ = ln.Close()
			return nil, err
		}
		ln = tls.NewListener(ln, tc.Server)
		slog.Info("TLS enabled", "fingerprint", tc.Fingerprint())
	}

	s := &server{
		ln: ln,
		m:  cmux.New(ln),
		grpc: grpc.NewServer(grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             20 * time.Second,
			PermitWithoutStream: true,
		})),
		http: &http.Server{Handler: gw, ReadHeaderTimeout: 10 * time.Second},
		errs: make(chan error, 3),
	}
	grpcservice.Register(s.grpc, svc)

	grpcL := s.m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := s.m.Match(cmux.HTTP1Fast(), cmux.Any())

	go s.serve("grpc", func() error { return s.grpc.Serve(grpcL) })
	go s.serve("http", func() error { return s.http.Serve(httpL) })
	go s.serve("cmux", s.m.Serve)
	return s, nil
}

func (s *server) serve(name string, run func() error) {
	err := run()
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, cmux.ErrListenerClosed) ||
		errors.Is(err, grpc.ErrServerStopped) || errors.Is(err, net.ErrClosed) {
		return
	}
	s.errs <- fmt.Errorf("%s: %w", name, err)
}

// Addr returns the listen address.
func (s *server) Addr() net.Addr { return s.ln.Addr() }

// Close stops serving and closes the listener.
func (s *server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.http.Shutdown(ctx)
	s.grpc.Stop()
	_ = s.ln.Close()
}
