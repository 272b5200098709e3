// Package relayerapi is the wire contract of the development relayer. The
// service is registered by hand with google.protobuf.Struct messages, so no
// generated code is needed on either side.
package relayerapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "moodkeeper.relayer.v1.Relayer"

const (
	PingMethod    = "/" + ServiceName + "/Ping"
	EncryptMethod = "/" + ServiceName + "/Encrypt"
	DecryptMethod = "/" + ServiceName + "/Decrypt"
)

// Server is implemented by the relayer.
type Server interface {
	Ping(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Encrypt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Decrypt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// RegisterServer attaches srv to s.
func RegisterServer(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unaryHandler(PingMethod, Server.Ping)},
		{MethodName: "Encrypt", Handler: unaryHandler(EncryptMethod, Server.Encrypt)},
		{MethodName: "Decrypt", Handler: unaryHandler(DecryptMethod, Server.Decrypt)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "moodkeeper/relayer/v1/relayer.proto",
}

type unaryMethod func(Server, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(Server), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(Server), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
