package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "accounts.v1.AccountService"

// AccountServiceServer is the gRPC mirror of the HTTP API. Requests and
// responses are google.protobuf.Struct values shaped like the JSON bodies.
type AccountServiceServer interface {
	Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RefreshToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Profile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RequestPasswordReset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ConfirmPasswordReset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

var AccountServiceDesc = gogrpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler("Register", AccountServiceServer.Register)},
		{MethodName: "Login", Handler: unaryHandler("Login", AccountServiceServer.Login)},
		{MethodName: "Logout", Handler: unaryHandler("Logout", AccountServiceServer.Logout)},
		{MethodName: "RefreshToken", Handler: unaryHandler("RefreshToken", AccountServiceServer.RefreshToken)},
		{MethodName: "Profile", Handler: unaryHandler("Profile", AccountServiceServer.Profile)},
		{MethodName: "RequestPasswordReset", Handler: unaryHandler("RequestPasswordReset", AccountServiceServer.RequestPasswordReset)},
		{MethodName: "ConfirmPasswordReset", Handler: unaryHandler("ConfirmPasswordReset", AccountServiceServer.ConfirmPasswordReset)},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "accounts/v1/accounts.proto",
}

func RegisterAccountServiceServer(s gogrpc.ServiceRegistrar, srv AccountServiceServer) {
	s.RegisterService(&AccountServiceDesc, srv)
}

type unaryCall func(AccountServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) func(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AccountServiceServer), ctx, in)
		}

		info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AccountServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
