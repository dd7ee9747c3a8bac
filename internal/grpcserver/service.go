package grpcserver

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/patric-chuzhbe/essayshare/internal/logger"
	"github.com/patric-chuzhbe/essayshare/internal/models"
)

const serviceName = "essays.EssayService"

// Full method names, as seen by interceptors.
const (
	MethodRegister         = "/" + serviceName + "/Register"
	MethodLogin            = "/" + serviceName + "/Login"
	MethodListEssays       = "/" + serviceName + "/ListEssays"
	MethodCreateEssay      = "/" + serviceName + "/CreateEssay"
	MethodGetEssay         = "/" + serviceName + "/GetEssay"
	MethodUpdateEssay      = "/" + serviceName + "/UpdateEssay"
	MethodDeleteEssay      = "/" + serviceName + "/DeleteEssay"
	MethodPing             = "/" + serviceName + "/Ping"
	MethodGetInternalStats = "/" + serviceName + "/GetInternalStats"
)

type ListEssaysRequest struct {
	Type models.ListType `json:"type"`
}

type EssayIDRequest struct {
	ID int64 `json:"id"`
}

type UpdateEssayRequest struct {
	ID int64 `json:"id"`
	models.EssayRequest
}

type Empty struct{}

// EssayServiceServer is the server side of the essay service.
type EssayServiceServer interface {
	Register(ctx context.Context, req *models.CredentialsRequest) (*models.MessageResponse, error)
	Login(ctx context.Context, req *models.CredentialsRequest) (*models.LoginResponse, error)
	ListEssays(ctx context.Context, req *ListEssaysRequest) (*models.EssaysResponse, error)
	CreateEssay(ctx context.Context, req *models.EssayRequest) (*models.EssayResponse, error)
	GetEssay(ctx context.Context, req *EssayIDRequest) (*models.EssayResponse, error)
	UpdateEssay(ctx context.Context, req *UpdateEssayRequest) (*models.EssayResponse, error)
	DeleteEssay(ctx context.Context, req *EssayIDRequest) (*models.MessageResponse, error)
	Ping(ctx context.Context, req *Empty) (*Empty, error)
	GetInternalStats(ctx context.Context, req *Empty) (*models.InternalStatsResponse, error)
}

type methodHandler = func(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error)

// unary adapts a typed method to the wire, where every request and reply
// is a google.protobuf.Struct. Interceptors see the decoded request.
func unary[Req, Resp any](
	fullMethod string,
	call func(EssayServiceServer, context.Context, *Req) (*Resp, error),
) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		wire := &structpb.Struct{}
		if err := dec(wire); err != nil {
			return nil, err
		}

		in := new(Req)
		if err := fromStruct(wire, in); err != nil {
			logger.Log.Debugln("Error calling the `fromStruct()`: ", zap.Error(err))
			return nil, status.Error(codes.InvalidArgument, "invalid request body")
		}

		server := srv.(EssayServiceServer)
		handler := func(ctx context.Context, req any) (any, error) {
			out, err := call(server, ctx, req.(*Req))
			if err != nil {
				return nil, err
			}

			reply, err := toStruct(out)
			if err != nil {
				logger.Log.Errorln("Error calling the `toStruct()`: ", zap.Error(err))
				return nil, status.Error(codes.Internal, "internal server error")
			}
			return reply, nil
		}

		if interceptor == nil {
			return handler(ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		return interceptor(ctx, in, info, handler)
	}
}

var essayServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EssayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(MethodRegister, EssayServiceServer.Register)},
		{MethodName: "Login", Handler: unary(MethodLogin, EssayServiceServer.Login)},
		{MethodName: "ListEssays", Handler: unary(MethodListEssays, EssayServiceServer.ListEssays)},
		{MethodName: "CreateEssay", Handler: unary(MethodCreateEssay, EssayServiceServer.CreateEssay)},
		{MethodName: "GetEssay", Handler: unary(MethodGetEssay, EssayServiceServer.GetEssay)},
		{MethodName: "UpdateEssay", Handler: unary(MethodUpdateEssay, EssayServiceServer.UpdateEssay)},
		{MethodName: "DeleteEssay", Handler: unary(MethodDeleteEssay, EssayServiceServer.DeleteEssay)},
		{MethodName: "Ping", Handler: unary(MethodPing, EssayServiceServer.Ping)},
		{MethodName: "GetInternalStats", Handler: unary(MethodGetInternalStats, EssayServiceServer.GetInternalStats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/proto/essays.proto",
}

// RegisterEssayServiceServer attaches srv to server.
func RegisterEssayServiceServer(server grpc.ServiceRegistrar, srv EssayServiceServer) {
	server.RegisterService(&essayServiceDesc, srv)
}

// Client calls the essay service over conn.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in proto.Message, opts []grpc.CallOption) (*Resp, error) {
	reply := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, in, reply, opts...); err != nil {
		return nil, err
	}

	out := new(Resp)
	if err := fromStruct(reply, out); err != nil {
		return nil, err
	}
	return out, nil
}

func invokeWith[Resp any](ctx context.Context, c *Client, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	wire, err := toStruct(in)
	if err != nil {
		return nil, err
	}
	return invoke[Resp](ctx, c, method, wire, opts)
}

func (c *Client) Register(ctx context.Context, in *models.CredentialsRequest, opts ...grpc.CallOption) (*models.MessageResponse, error) {
	return invokeWith[models.MessageResponse](ctx, c, MethodRegister, in, opts)
}

func (c *Client) Login(ctx context.Context, in *models.CredentialsRequest, opts ...grpc.CallOption) (*models.LoginResponse, error) {
	return invokeWith[models.LoginResponse](ctx, c, MethodLogin, in, opts)
}

func (c *Client) ListEssays(ctx context.Context, in *ListEssaysRequest, opts ...grpc.CallOption) (*models.EssaysResponse, error) {
	return invokeWith[models.EssaysResponse](ctx, c, MethodListEssays, in, opts)
}

func (c *Client) CreateEssay(ctx context.Context, in *models.EssayRequest, opts ...grpc.CallOption) (*models.EssayResponse, error) {
	return invokeWith[models.EssayResponse](ctx, c, MethodCreateEssay, in, opts)
}

func (c *Client) GetEssay(ctx context.Context, in *EssayIDRequest, opts ...grpc.CallOption) (*models.EssayResponse, error) {
	return invokeWith[models.EssayResponse](ctx, c, MethodGetEssay, in, opts)
}

func (c *Client) UpdateEssay(ctx context.Context, in *UpdateEssayRequest, opts ...grpc.CallOption) (*models.EssayResponse, error) {
	return invokeWith[models.EssayResponse](ctx, c, MethodUpdateEssay, in, opts)
}

func (c *Client) DeleteEssay(ctx context.Context, in *EssayIDRequest, opts ...grpc.CallOption) (*models.MessageResponse, error) {
	return invokeWith[models.MessageResponse](ctx, c, MethodDeleteEssay, in, opts)
}

func (c *Client) Ping(ctx context.Context, opts ...grpc.CallOption) error {
	return c.conn.Invoke(ctx, MethodPing, &emptypb.Empty{}, &emptypb.Empty{}, opts...)
}

func (c *Client) GetInternalStats(ctx context.Context, opts ...grpc.CallOption) (*models.InternalStatsResponse, error) {
	return invoke[models.InternalStatsResponse](ctx, c, MethodGetInternalStats, &emptypb.Empty{}, opts)
}
