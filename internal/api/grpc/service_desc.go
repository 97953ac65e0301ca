package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ParticipationServiceName = "outercircl.activities.v1.ParticipationService"

// ParticipationServiceServer is the server API for the participation service.
// Requests and responses are google.protobuf.Struct documents.
type ParticipationServiceServer interface {
	Join(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Cancel(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Moderate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRoster(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(srv ParticipationServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call structMethod) grpc.MethodHandler {
	fullMethod := "/" + ParticipationServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ParticipationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ParticipationServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ParticipationServiceDesc = grpc.ServiceDesc{
	ServiceName: ParticipationServiceName,
	HandlerType: (*ParticipationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Join", Handler: unaryHandler("Join", ParticipationServiceServer.Join)},
		{MethodName: "Cancel", Handler: unaryHandler("Cancel", ParticipationServiceServer.Cancel)},
		{MethodName: "Moderate", Handler: unaryHandler("Moderate", ParticipationServiceServer.Moderate)},
		{MethodName: "ListRoster", Handler: unaryHandler("ListRoster", ParticipationServiceServer.ListRoster)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "outercircl/activities/v1/participation.proto", // under api/proto
}

func RegisterParticipationServiceServer(s grpc.ServiceRegistrar, srv ParticipationServiceServer) {
	s.RegisterService(&ParticipationServiceDesc, srv)
}
