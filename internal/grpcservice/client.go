package grpcservice

import (
	"context"
	"fmt"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"go.klb.dev/handoff/internal/content"
)

// Client calls the exchange service. Errors carry both the gRPC status and
// the domain sentinel matching its code.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a client over cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Offer returns the type labels the owner of ch advertises.
func (c *Client) Offer(ctx context.Context, ch content.Channel, opts ...grpc.CallOption) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, fullMethod("Offer"), wrapperspb.String(string(ch)), out, opts...); err != nil {
		return nil, fromStatus("offer", err)
	}
	types := make([]string, len(out.GetValues()))
	for i, v := range out.GetValues() {
		types[i] = v.GetStringValue()
	}
	return types, nil
}

// Fetch returns the payload of typ on ch.
func (c *Client) Fetch(ctx context.Context, ch content.Channel, typ string, opts ...grpc.CallOption) ([]byte, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"channel": structpb.NewStringValue(string(ch)),
		"type":    structpb.NewStringValue(typ),
	}}
	out := new(httpbody.HttpBody)
	if err := c.cc.Invoke(ctx, fullMethod("Fetch"), in, out, opts...); err != nil {
		return nil, fromStatus("fetch", err)
	}
	if out.GetContentType() != typ {
		return nil, fmt.Errorf("fetch: got %s, asked for %s", out.GetContentType(), typ)
	}
	return out.GetData(), nil
}

// Publish replaces the server-side content of ch with entries, making the
// caller the owner of ch.
func (c *Client) Publish(ctx context.Context, ch content.Channel, entries []content.Entry, opts ...grpc.CallOption) error {
	if len(entries) == 0 {
		return fmt.Errorf("publish: %w: nothing to publish", content.ErrEmptyType)
	}
	in := &httpbody.HttpBody{ContentType: entries[0].Type, Data: entries[0].Data}
	for _, e := range entries[1:] {
		ext, err := anypb.New(&httpbody.HttpBody{ContentType: e.Type, Data: e.Data})
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		in.Extensions = append(in.Extensions, ext)
	}
	ctx = metadata.AppendToOutgoingContext(ctx, MetadataChannel, string(ch))
	if err := c.cc.Invoke(ctx, fullMethod("Publish"), in, new(emptypb.Empty), opts...); err != nil {
		return fromStatus("publish", err)
	}
	return nil
}

// Owners returns the owner id of every owned channel.
func (c *Client) Owners(ctx context.Context, opts ...grpc.CallOption) (map[content.Channel]string, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("Owners"), new(emptypb.Empty), out, opts...); err != nil {
		return nil, fromStatus("owners", err)
	}
	owners := make(map[content.Channel]string, len(out.GetFields()))
	for ch, v := range out.GetFields() {
		owners[content.Channel(ch)] = v.GetStringValue()
	}
	return owners, nil
}
