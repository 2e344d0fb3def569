package grpcservice

import (
	"context"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "handoff.v1.ExchangeService"

// Metadata keys understood by the service.
const (
	MetadataChannel = "x-handoff-channel"
	MetadataSource  = "x-handoff-source"
)

// ExchangeServer is the server API of the exchange service. Every message is
// a well-known protobuf type:
//
//	Offer(StringValue channel)       -> ListValue of type labels
//	Fetch(Struct{channel, type})     -> HttpBody{content_type, data}
//	Publish(HttpBody, extensions...) -> Empty; channel in x-handoff-channel
//	Owners(Empty)                    -> Struct{channel: owner id}
type ExchangeServer interface {
	Offer(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	Fetch(context.Context, *structpb.Struct) (*httpbody.HttpBody, error)
	Publish(context.Context, *httpbody.HttpBody) (*emptypb.Empty, error)
	Owners(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes ExchangeServer to grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExchangeServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Offer", ExchangeServer.Offer),
		unary("Fetch", ExchangeServer.Fetch),
		unary("Publish", ExchangeServer.Publish),
		unary("Owners", ExchangeServer.Owners),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "handoff/v1/exchange.proto",
}

// Register registers srv on s.
func Register(s grpc.ServiceRegistrar, srv ExchangeServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(ExchangeServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ExchangeServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(ExchangeServer), ctx, req.(*Req))
			})
		},
	}
}
