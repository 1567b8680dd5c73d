// Package roomsgrpc serves read access to collaboration rooms over gRPC.
//
// The service is described by hand and exchanges JSON messages, so callers
// must select ContentSubtype. The caller identity comes from a bearer token
// in the "authorization" metadata, verified the same way as the HTTP API.
// Domain errors are returned as-is and mapped to gRPC statuses by the shared
// server interceptor.
package roomsgrpc

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
	"github.com/louisbranch/classroom.space/internal/platform/requestctx"
	"github.com/louisbranch/classroom.space/internal/services/rooms/api/views"
	"github.com/louisbranch/classroom.space/internal/services/rooms/authz"
	"github.com/louisbranch/classroom.space/internal/services/rooms/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "classroom.rooms.v1.RoomService"

type ListRoomsRequest struct{}

type ListRoomsResponse struct {
	Rooms []views.Room `json:"rooms"`
}

type GetRoomRequest struct {
	RoomID string `json:"room_id"`
}

type GetRoomResponse struct {
	Room views.Room `json:"room"`
}

// ListMessagesRequest reads a page of history. A zero Limit uses the
// service default.
type ListMessagesRequest struct {
	RoomID string `json:"room_id"`
	Limit  int    `json:"limit,omitempty"`
}

type ListMessagesResponse struct {
	Messages []views.Message `json:"messages"`
}

type ListGroupsRequest struct {
	RoomID string `json:"room_id"`
}

type ListGroupsResponse struct {
	Groups []views.Group `json:"groups"`
}

// RoomServiceServer is the server API of the room service.
type RoomServiceServer interface {
	ListRooms(context.Context, *ListRoomsRequest) (*ListRoomsResponse, error)
	GetRoom(context.Context, *GetRoomRequest) (*GetRoomResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	ListGroups(context.Context, *ListGroupsRequest) (*ListGroupsResponse, error)
}

// TokenVerifier resolves a bearer token into a caller identity.
type TokenVerifier interface {
	Verify(token string) (requestctx.Identity, error)
}

// Server implements RoomServiceServer over the rooms service.
type Server struct {
	svc      *service.Service
	verifier TokenVerifier
}

// NewServer builds the gRPC room service.
func NewServer(svc *service.Service, verifier TokenVerifier) (*Server, error) {
	if svc == nil {
		return nil, errors.New("rooms service is required")
	}
	if verifier == nil {
		return nil, errors.New("token verifier is required")
	}
	return &Server{svc: svc, verifier: verifier}, nil
}

// Register adds the room service to registrar.
func Register(registrar grpc.ServiceRegistrar, server RoomServiceServer) {
	registrar.RegisterService(&serviceDesc, server)
}

// ListRooms returns every room snapshot.
func (s *Server) ListRooms(ctx context.Context, _ *ListRoomsRequest) (*ListRoomsResponse, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	snapshots, err := s.svc.Rooms.ListRooms(ctx, caller)
	if err != nil {
		return nil, err
	}
	return &ListRoomsResponse{Rooms: views.FromRoomViews(snapshots)}, nil
}

// GetRoom returns one room snapshot.
func (s *Server) GetRoom(ctx context.Context, in *GetRoomRequest) (*GetRoomResponse, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.svc.Rooms.GetRoom(ctx, caller, in.RoomID)
	if err != nil {
		return nil, err
	}
	return &GetRoomResponse{Room: views.FromRoomView(snapshot)}, nil
}

// ListMessages returns the latest messages of a room, oldest first.
func (s *Server) ListMessages(ctx context.Context, in *ListMessagesRequest) (*ListMessagesResponse, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if in.Limit < 0 {
		return nil, apperrors.WithMetadata(apperrors.CodeValidationOutOfRange,
			"limit must be a positive number", map[string]string{"Field": "limit"})
	}
	messages, err := s.svc.Messages.ListMessages(ctx, caller, in.RoomID, in.Limit)
	if err != nil {
		return nil, err
	}
	return &ListMessagesResponse{Messages: views.FromMessages(messages)}, nil
}

// ListGroups returns the breakout groups of a room.
func (s *Server) ListGroups(ctx context.Context, in *ListGroupsRequest) (*ListGroupsResponse, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.svc.Breakouts.ListGroups(ctx, caller, in.RoomID)
	if err != nil {
		return nil, err
	}
	return &ListGroupsResponse{Groups: views.FromGroups(groups)}, nil
}

func (s *Server) caller(ctx context.Context) (authz.CallerIdentity, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	token, ok := bearerToken(md.Get("authorization"))
	if !ok {
		return authz.CallerIdentity{}, apperrors.WithMetadata(apperrors.CodeUnauthenticated,
			"bearer token is required", map[string]string{"Field": "authorization"})
	}
	identity, err := s.verifier.Verify(token)
	if err != nil {
		return authz.CallerIdentity{}, err
	}
	return authz.FromContext(identity), nil
}

func bearerToken(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(values[0]), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RoomServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListRooms", RoomServiceServer.ListRooms),
		unary("GetRoom", RoomServiceServer.GetRoom),
		unary("ListMessages", RoomServiceServer.ListMessages),
		unary("ListGroups", RoomServiceServer.ListGroups),
	},
	Streams: []grpc.StreamDesc{},
}

// unary adapts a typed method to a grpc.MethodDesc, running the server's
// interceptor chain around it.
func unary[Req, Resp any](method string, call func(RoomServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(RoomServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*Req))
			})
		},
	}
}
