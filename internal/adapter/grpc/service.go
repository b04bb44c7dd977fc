package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "escrow.v1.EscrowService"

// EscrowServiceServer is the server API for EscrowService
type EscrowServiceServer interface {
	OpenEscrow(context.Context, *OpenEscrowRequest) (*TransactionResponse, error)
	ReleaseEscrow(context.Context, *TransactionRequest) (*TransactionResponse, error)
	InitiatePayout(context.Context, *TransactionRequest) (*TransactionResponse, error)
	CompletePayout(context.Context, *TransactionRequest) (*TransactionResponse, error)
	FailPayout(context.Context, *FailPayoutRequest) (*TransactionResponse, error)
	GetTransaction(context.Context, *TransactionRequest) (*TransactionResponse, error)
	GetPayoutInstructions(context.Context, *TransactionRequest) (*PayoutInstructionsResponse, error)

	OpenDispute(context.Context, *OpenDisputeRequest) (*DisputeResponse, error)
	SubmitBusinessResponse(context.Context, *BusinessResponseRequest) (*DisputeResponse, error)
	SubmitEvidence(context.Context, *SubmitEvidenceRequest) (*DisputeResponse, error)
	AssignMediator(context.Context, *DisputeRequest) (*DisputeResponse, error)
	ResolveDispute(context.Context, *ResolveDisputeRequest) (*DisputeResponse, error)
	EscalateDispute(context.Context, *EscalateDisputeRequest) (*DisputeResponse, error)
	WithdrawDispute(context.Context, *DisputeRequest) (*DisputeResponse, error)
	GetDispute(context.Context, *DisputeRequest) (*DisputeResponse, error)
	GetTimeline(context.Context, *DisputeRequest) (*TimelineResponse, error)
	RecommendResolution(context.Context, *DisputeRequest) (*RecommendationResponse, error)
}

// unary builds a method descriptor that decodes Req and dispatches to call
func unary[Req, Resp any](name string, call func(EscrowServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EscrowServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(EscrowServiceServer), ctx, req.(*Req))
			})
		},
	}
}

// EscrowServiceDesc describes EscrowService for grpc.Server.RegisterService
var EscrowServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EscrowServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("OpenEscrow", EscrowServiceServer.OpenEscrow),
		unary("ReleaseEscrow", EscrowServiceServer.ReleaseEscrow),
		unary("InitiatePayout", EscrowServiceServer.InitiatePayout),
		unary("CompletePayout", EscrowServiceServer.CompletePayout),
		unary("FailPayout", EscrowServiceServer.FailPayout),
		unary("GetTransaction", EscrowServiceServer.GetTransaction),
		unary("GetPayoutInstructions", EscrowServiceServer.GetPayoutInstructions),
		unary("OpenDispute", EscrowServiceServer.OpenDispute),
		unary("SubmitBusinessResponse", EscrowServiceServer.SubmitBusinessResponse),
		unary("SubmitEvidence", EscrowServiceServer.SubmitEvidence),
		unary("AssignMediator", EscrowServiceServer.AssignMediator),
		unary("ResolveDispute", EscrowServiceServer.ResolveDispute),
		unary("EscalateDispute", EscrowServiceServer.EscalateDispute),
		unary("WithdrawDispute", EscrowServiceServer.WithdrawDispute),
		unary("GetDispute", EscrowServiceServer.GetDispute),
		unary("GetTimeline", EscrowServiceServer.GetTimeline),
		unary("RecommendResolution", EscrowServiceServer.RecommendResolution),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "escrow/v1/escrow.proto",
}

// RegisterEscrowServiceServer registers srv on s
func RegisterEscrowServiceServer(s grpc.ServiceRegistrar, srv EscrowServiceServer) {
	s.RegisterService(&EscrowServiceDesc, srv)
}

// Client calls EscrowService with the JSON codec
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) OpenEscrow(ctx context.Context, in *OpenEscrowRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[TransactionResponse](ctx, c.cc, "OpenEscrow", in, opts)
}

func (c *Client) ReleaseEscrow(ctx context.Context, in *TransactionRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[TransactionResponse](ctx, c.cc, "ReleaseEscrow", in, opts)
}

func (c *Client) InitiatePayout(ctx context.Context, in *TransactionRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[TransactionResponse](ctx, c.cc, "InitiatePayout", in, opts)
}

func (c *Client) CompletePayout(ctx context.Context, in *TransactionRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[TransactionResponse](ctx, c.cc, "CompletePayout", in, opts)
}

func (c *Client) FailPayout(ctx context.Context, in *FailPayoutRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[TransactionResponse](ctx, c.cc, "FailPayout", in, opts)
}

func (c *Client) GetTransaction(ctx context.Context, in *TransactionRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[TransactionResponse](ctx, c.cc, "GetTransaction", in, opts)
}

func (c *Client) GetPayoutInstructions(ctx context.Context, in *TransactionRequest, opts ...grpc.CallOption) (*PayoutInstructionsResponse, error) {
	return invoke[PayoutInstructionsResponse](ctx, c.cc, "GetPayoutInstructions", in, opts)
}

func (c *Client) OpenDispute(ctx context.Context, in *OpenDisputeRequest, opts ...grpc.CallOption) (*DisputeResponse, error) {
	return invoke[DisputeResponse](ctx, c.cc, "OpenDispute", in, opts)
}

func (c *Client) SubmitBusinessResponse(ctx context.Context, in *BusinessResponseRequest, opts ...grpc.CallOption) (*DisputeResponse, error) {
	return invoke[DisputeResponse](ctx, c.cc, "SubmitBusinessResponse", in, opts)
}

func (c *Client) SubmitEvidence(ctx context.Context, in *SubmitEvidenceRequest, opts ...grpc.CallOption) (*DisputeResponse, error) {
	return invoke[DisputeResponse](ctx, c.cc, "SubmitEvidence", in, opts)
}

func (c *Client) AssignMediator(ctx context.Context, in *DisputeRequest, opts ...grpc.CallOption) (*DisputeResponse, error) {
	return invoke[DisputeResponse](ctx, c.cc, "AssignMediator", in, opts)
}

func (c *Client) ResolveDispute(ctx context.Context, in *ResolveDisputeRequest, opts ...grpc.CallOption) (*DisputeResponse, error) {
	return invoke[DisputeResponse](ctx, c.cc, "ResolveDispute", in, opts)
}

func (c *Client) EscalateDispute(ctx context.Context, in *EscalateDisputeRequest, opts ...grpc.CallOption) (*DisputeResponse, error) {
	return invoke[DisputeResponse](ctx, c.cc, "EscalateDispute", in, opts)
}

func (c *Client) WithdrawDispute(ctx context.Context, in *DisputeRequest, opts ...grpc.CallOption) (*DisputeResponse, error) {
	return invoke[DisputeResponse](ctx, c.cc, "WithdrawDispute", in, opts)
}

func (c *Client) GetDispute(ctx context.Context, in *DisputeRequest, opts ...grpc.CallOption) (*DisputeResponse, error) {
	return invoke[DisputeResponse](ctx, c.cc, "GetDispute", in, opts)
}

func (c *Client) GetTimeline(ctx context.Context, in *DisputeRequest, opts ...grpc.CallOption) (*TimelineResponse, error) {
	return invoke[TimelineResponse](ctx, c.cc, "GetTimeline", in, opts)
}

func (c *Client) RecommendResolution(ctx context.Context, in *DisputeRequest, opts ...grpc.CallOption) (*RecommendationResponse, error) {
	return invoke[RecommendationResponse](ctx, c.cc, "RecommendResolution", in, opts)
}
