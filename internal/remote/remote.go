// Package remote makes a handoff server's channels available as a hub
// source, so local views can paste content published elsewhere.
package remote

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/grpcservice"
	"go.klb.dev/handoff/internal/tlsconf"
)

// IDPrefix prefixes the owner id of a remote source.
const IDPrefix = "server:"

// DialConfig describes how to reach a server.
type DialConfig struct {
	// Addr is a host:port or any gRPC target, such as ipc.Target().
	Addr string
	// Token authenticates the caller and, with TLS, derives the keys.
	Token string
	// Source names this host to the server.
	Source string
	// TLS enables passphrase-derived TLS.
	TLS bool
}

// Dial opens a client connection to a server.
func Dial(cfg DialConfig) (*grpc.ClientConn, error) {
	opts, err := dialOpts(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := grpc.NewClient(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", cfg.Addr, err)
	}
	return conn, nil
}

func dialOpts(cfg DialConfig) ([]grpc.DialOption, error) {
	opts := []grpc.DialOption{
		// Keep idle connections open through NAT gateways.
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	if cfg.TLS {
		tc, err := tlsconf.New(cfg.Token)
		if err != nil {
			return nil, fmt.Errorf("remote: TLS credentials: %w", err)
		}
		opts = append(opts, grpc.WithTransportCredentials(tc.ClientCredentials()))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	if cfg.Token != "" || cfg.Source != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(&callerCreds{
			token:  cfg.Token,
			source: cfg.Source,
			secure: cfg.TLS,
		}))
	}
	return opts, nil
}

// callerCreds attaches the bearer token and the caller's name to each call.
type callerCreds struct {
	token  string
	source string
	secure bool
}

func (c *callerCreds) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	md := make(map[string]string, 2)
	if c.token != "" {
		md["authorization"] = "Bearer " + c.token
	}
	if c.source != "" {
		md[grpcservice.MetadataSource] = c.source
	}
	return md, nil
}

func (c *callerCreds) RequireTransportSecurity() bool { return c.secure }

// Source is a hub.Source answering from a server.
type Source struct {
	id     string
	client *grpcservice.Client
}

// NewSource returns a source named after addr that calls the server through
// cc.
func NewSource(addr string, cc grpc.ClientConnInterface) *Source {
	return &Source{id: IDPrefix + addr, client: grpcservice.NewClient(cc)}
}

func (s *Source) ID() string { return s.id }

// Client returns the underlying service client.
func (s *Source) Client() *grpcservice.Client { return s.client }

func (s *Source) Offer(ctx context.Context, ch content.Channel) ([]string, error) {
	types, err := s.client.Offer(ctx, ch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.id, err)
	}
	return types, nil
}

func (s *Source) Fetch(ctx context.Context, ch content.Channel, typ string) ([]byte, error) {
	data, err := s.client.Fetch(ctx, ch, typ)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.id, err)
	}
	return data, nil
}
