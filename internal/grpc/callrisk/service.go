// Package callrisk exposes call scoring over gRPC. Messages are
// google.protobuf.Struct so no generated code is needed.
package callrisk

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified gRPC service name
	ServiceName = "callguard.v1.RiskScoring"

	analyzeMethod = "/" + ServiceName + "/Analyze"
)

// RiskScoringServer is the server API for the RiskScoring service
type RiskScoringServer interface {
	Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RiskScoringServiceDesc describes the RiskScoring service
var RiskScoringServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RiskScoringServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Analyze",
			Handler:    analyzeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "callguard/v1/risk_scoring.proto",
}

// RegisterRiskScoringServer registers srv with s
func RegisterRiskScoringServer(s grpc.ServiceRegistrar, srv RiskScoringServer) {
	s.RegisterService(&RiskScoringServiceDesc, srv)
}

func analyzeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RiskScoringServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: analyzeMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RiskScoringServer).Analyze(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RiskScoringClient is the client API for the RiskScoring service
type RiskScoringClient interface {
	Analyze(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type riskScoringClient struct {
	cc grpc.ClientConnInterface
}

// NewRiskScoringClient creates a client on cc
func NewRiskScoringClient(cc grpc.ClientConnInterface) RiskScoringClient {
	return &riskScoringClient{cc: cc}
}

func (c *riskScoringClient) Analyze(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, analyzeMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
