// Package grpcservice implements the exchange service: gRPC access to a hub
// for remote publishers and pasters, plus an HTTP/JSON gateway over it.
package grpcservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/exchange"
	"go.klb.dev/handoff/internal/hub"
)

// RemotePrefix prefixes the owner id of content published over the service.
const RemotePrefix = "remote:"

// Service implements ExchangeServer on top of a hub.
type Service struct {
	h        *hub.Hub
	token    string // empty = no auth
	channels map[content.Channel]bool

	mu         sync.Mutex
	publishers map[string]*hub.StaticSource
}

// New returns a Service backed by h serving the given channels. token may be
// empty to disable auth.
func New(h *hub.Hub, token string, channels ...content.Channel) *Service {
	if len(channels) == 0 {
		channels = []content.Channel{content.General, content.DragDrop}
	}
	s := &Service{
		h:          h,
		token:      token,
		channels:   make(map[content.Channel]bool, len(channels)),
		publishers: make(map[string]*hub.StaticSource),
	}
	for _, ch := range channels {
		s.channels[ch] = true
	}
	return s
}

// Offer implements ExchangeServer.Offer.
func (s *Service) Offer(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	ch, err := s.channel(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	types, err := s.h.Offer(ctx, ch)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &structpb.ListValue{Values: make([]*structpb.Value, len(types))}
	for i, t := range types {
		out.Values[i] = structpb.NewStringValue(t)
	}
	return out, nil
}

// Fetch implements ExchangeServer.Fetch.
func (s *Service) Fetch(ctx context.Context, req *structpb.Struct) (*httpbody.HttpBody, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	fields := req.GetFields()
	ch, err := s.channel(fields["channel"].GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}
	typ := fields["type"].GetStringValue()
	if typ == "" {
		return nil, status.Error(codes.InvalidArgument, "missing type")
	}
	data, err := s.h.Fetch(ctx, ch, typ)
	if err != nil {
		return nil, toStatus(err)
	}
	slog.Debug("fetch served", "caller", sourceFromCtx(ctx), "channel", ch, "type", typ, "len", len(data))
	return &httpbody.HttpBody{ContentType: typ, Data: data}, nil
}

// Publish implements ExchangeServer.Publish. The body is the first entry;
// further entries travel as HttpBody messages in its extensions.
func (s *Service) Publish(ctx context.Context, req *httpbody.HttpBody) (*emptypb.Empty, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	ch, err := s.channel(metadataValue(ctx, MetadataChannel))
	if err != nil {
		return nil, toStatus(err)
	}
	entries, err := bodyEntries(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	src := s.publisher(sourceFromCtx(ctx))
	content.LogEntries("content received", src.ID(), ch, entries)
	if err := src.Publish(s.h, ch, entries); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// Owners implements ExchangeServer.Owners.
func (s *Service) Owners(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value)}
	for ch, id := range s.h.Owners() {
		out.Fields[string(ch)] = structpb.NewStringValue(id)
	}
	return out, nil
}

// publisher returns the static source holding content published by caller.
func (s *Service) publisher(caller string) *hub.StaticSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.publishers[caller]
	if !ok {
		src = hub.NewStaticSource(RemotePrefix + caller)
		s.publishers[caller] = src
	}
	return src
}

func (s *Service) channel(name string) (content.Channel, error) {
	ch := content.Channel(name)
	if ch == "" {
		ch = content.General
	}
	if !s.channels[ch] {
		return "", fmt.Errorf("%w: channel %s", exchange.ErrUnsupported, ch)
	}
	return ch, nil
}

// auth validates the bearer token in ctx metadata. Skipped when s.token is empty.
func (s *Service) auth(ctx context.Context) error {
	if s.token == "" {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing authorization header")
	}
	if strings.TrimPrefix(vals[0], "Bearer ") != s.token {
		return status.Error(codes.Unauthenticated, "invalid token")
	}
	return nil
}

func bodyEntries(req *httpbody.HttpBody) ([]content.Entry, error) {
	entries := []content.Entry{{Type: req.GetContentType(), Data: req.GetData()}}
	for i, ext := range req.GetExtensions() {
		var more httpbody.HttpBody
		if err := ext.UnmarshalTo(&more); err != nil {
			return nil, fmt.Errorf("extension %d: %w", i, err)
		}
		entries = append(entries, content.Entry{Type: more.GetContentType(), Data: more.GetData()})
	}
	return entries, nil
}

func metadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(key); len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

func sourceFromCtx(ctx context.Context) string {
	if src := metadataValue(ctx, MetadataSource); src != "" {
		return src
	}
	return addrFromCtx(ctx)
}

func addrFromCtx(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	if fwd := metadataValue(ctx, "x-forwarded-for"); fwd != "" {
		return fwd
	}
	return "unknown"
}
