package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/stagcourt/stag-server/internal/config"
	"github.com/stagcourt/stag-server/internal/repository"
	"github.com/stagcourt/stag-server/internal/table"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "stag.v1.StagGame"

// StagGameServer is the gRPC surface of the table service. Requests and
// responses are JSON-shaped structs with the same fields as the HTTP API.
type StagGameServer interface {
	Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Join(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Start(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Act(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	View(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var stagGameServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StagGameServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Create", Handler: unaryHandler("Create", StagGameServer.Create)},
		{MethodName: "Join", Handler: unaryHandler("Join", StagGameServer.Join)},
		{MethodName: "Start", Handler: unaryHandler("Start", StagGameServer.Start)},
		{MethodName: "Act", Handler: unaryHandler("Act", StagGameServer.Act)},
		{MethodName: "View", Handler: unaryHandler("View", StagGameServer.View)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stag/v1/stag.proto",
}

type unaryMethod func(StagGameServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StagGameServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(StagGameServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterStagGameServer registers the service on a gRPC server.
func RegisterStagGameServer(s grpc.ServiceRegistrar, srv StagGameServer) {
	s.RegisterService(&stagGameServiceDesc, srv)
}

// NewGRPCServer builds the gRPC server with the interceptor chain, the game
// service and the standard health service.
func NewGRPCServer(cfg config.GRPCConfig, tables *table.Service, validator *PayloadValidator, logger *zap.Logger) (*grpc.Server, *health.Server) {
	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(ChainUnaryInterceptors(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	}
	if cfg.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(cfg.MaxConcurrentStreams)))
	}
	s := grpc.NewServer(opts...)

	RegisterStagGameServer(s, NewGameService(tables, validator, logger))

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	return s, hs
}

// gameService implements StagGameServer on top of the table service
type gameService struct {
	tables    *table.Service
	validator *PayloadValidator
	logger    *zap.Logger
}

// NewGameService creates the gRPC game service
func NewGameService(tables *table.Service, validator *PayloadValidator, logger *zap.Logger) StagGameServer {
	return &gameService{tables: tables, validator: validator, logger: logger}
}

// Create opens a lobby. Fields: playerName.
func (g *gameService) Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var body createRequest
	if err := g.decode(req, SchemaCreate, &body); err != nil {
		return nil, err
	}
	joined, err := g.tables.Create(ctx, body.PlayerName)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(joined)
}

// Join seats a player. Fields: gameId, playerName.
func (g *gameService) Join(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	joined, err := g.tables.Join(ctx, fields["gameId"].GetStringValue(), fields["playerName"].GetStringValue())
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(joined)
}

// Start deals the game. Fields: gameId, playerId.
func (g *gameService) Start(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	if err := g.tables.Start(ctx, fields["gameId"].GetStringValue(), fields["playerId"].GetStringValue()); err != nil {
		return nil, grpcError(err)
	}
	return toStruct(map[string]bool{"started": true})
}

// Act applies an engine action. Fields: gameId plus the action body of the HTTP API.
func (g *gameService) Act(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var body actionRequest
	if err := g.decode(req, SchemaAction, &body); err != nil {
		return nil, err
	}
	view, err := g.tables.Act(ctx, req.GetFields()["gameId"].GetStringValue(), body.PlayerID, body.Action, body.Payload)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(view)
}

// View returns the caller's view. Fields: gameId, playerId.
func (g *gameService) View(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	view, err := g.tables.View(ctx, fields["gameId"].GetStringValue(), fields["playerId"].GetStringValue())
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(view)
}

// decode validates a request struct and unmarshals it into dst.
func (g *gameService) decode(req *structpb.Struct, schema string, dst any) error {
	doc := req.AsMap()
	if err := g.validator.Validate(schema, doc); err != nil {
		return grpcError(err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

// toStruct converts any JSON-encodable value into a structpb.Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

// grpcError maps service errors to gRPC status errors
func grpcError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, table.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, ErrInvalidRequest), table.IsBadRequest(err):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// StagGameClient calls the service over a client connection.
type StagGameClient struct {
	cc grpc.ClientConnInterface
}

// NewStagGameClient wraps a client connection.
func NewStagGameClient(cc grpc.ClientConnInterface) *StagGameClient {
	return &StagGameClient{cc: cc}
}

// Call invokes a method by name, e.g. "Create".
func (c *StagGameClient) Call(ctx context.Context, method string, req map[string]interface{}, opts ...grpc.CallOption) (map[string]interface{}, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
