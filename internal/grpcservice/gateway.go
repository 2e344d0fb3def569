package grpcservice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// MaxBodyBytes bounds the payload accepted by the HTTP publish route.
const MaxBodyBytes = 32 << 20

// Gateway returns an HTTP/JSON mux calling s in process:
//
//	GET /v1/channels/{channel}/types       offered type labels
//	GET /v1/channels/{channel}/data?type=  raw payload, Content-Type = type
//	PUT /v1/channels/{channel}/data        publish the body as Content-Type
//	GET /v1/owners                         channel -> owner id
func (s *Service) Gateway() (*gwruntime.ServeMux, error) {
	mux := gwruntime.NewServeMux(gwruntime.WithIncomingHeaderMatcher(headerMatcher))
	routes := []struct {
		method, pattern string
		h               gwruntime.HandlerFunc
	}{
		{http.MethodGet, "/v1/channels/{channel}/types", s.httpTypes(mux)},
		{http.MethodGet, "/v1/channels/{channel}/data", s.httpFetch(mux)},
		{http.MethodPut, "/v1/channels/{channel}/data", s.httpPublish(mux)},
		{http.MethodGet, "/v1/owners", s.httpOwners(mux)},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, r.h); err != nil {
			return nil, fmt.Errorf("gateway route %s %s: %w", r.method, r.pattern, err)
		}
	}
	return mux, nil
}

// headerMatcher forwards X-Handoff-* headers as metadata on top of the
// gateway defaults.
func headerMatcher(key string) (string, bool) {
	if k := strings.ToLower(key); strings.HasPrefix(k, "x-handoff-") {
		return k, true
	}
	return gwruntime.DefaultHeaderMatcher(key)
}

// call adapts one unary method to an HTTP route.
func call(mux *gwruntime.ServeMux, method string, invoke func(ctx context.Context, r *http.Request, params map[string]string) (proto.Message, error)) gwruntime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		_, outbound := gwruntime.MarshalerForRequest(mux, r)
		ctx, err := gwruntime.AnnotateIncomingContext(r.Context(), mux, r, fullMethod(method))
		if err != nil {
			gwruntime.HTTPError(r.Context(), mux, outbound, w, r, err)
			return
		}
		resp, err := invoke(ctx, r, params)
		if err != nil {
			gwruntime.HTTPError(ctx, mux, outbound, w, r, err)
			return
		}
		gwruntime.ForwardResponseMessage(ctx, mux, outbound, w, r, resp)
	}
}

func (s *Service) httpTypes(mux *gwruntime.ServeMux) gwruntime.HandlerFunc {
	return call(mux, "Offer", func(ctx context.Context, _ *http.Request, params map[string]string) (proto.Message, error) {
		return s.Offer(ctx, wrapperspb.String(params["channel"]))
	})
}

func (s *Service) httpFetch(mux *gwruntime.ServeMux) gwruntime.HandlerFunc {
	return call(mux, "Fetch", func(ctx context.Context, r *http.Request, params map[string]string) (proto.Message, error) {
		return s.Fetch(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
			"channel": structpb.NewStringValue(params["channel"]),
			"type":    structpb.NewStringValue(r.URL.Query().Get("type")),
		}})
	})
}

func (s *Service) httpPublish(mux *gwruntime.ServeMux) gwruntime.HandlerFunc {
	return call(mux, "Publish", func(ctx context.Context, r *http.Request, params map[string]string) (proto.Message, error) {
		data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "read body: %v", err)
		}
		if len(data) > MaxBodyBytes {
			return nil, status.Errorf(codes.ResourceExhausted, "body exceeds %d bytes", MaxBodyBytes)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		md = md.Copy()
		md.Set(MetadataChannel, params["channel"])
		ctx = metadata.NewIncomingContext(ctx, md)
		return s.Publish(ctx, &httpbody.HttpBody{ContentType: r.Header.Get("Content-Type"), Data: data})
	})
}

func (s *Service) httpOwners(mux *gwruntime.ServeMux) gwruntime.HandlerFunc {
	return call(mux, "Owners", func(ctx context.Context, _ *http.Request, _ map[string]string) (proto.Message, error) {
		return s.Owners(ctx, &emptypb.Empty{})
	})
}
