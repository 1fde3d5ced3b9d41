package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/survivors/internal/game/command"
	"github.com/cory-johannsen/survivors/internal/game/meta"
	"github.com/cory-johannsen/survivors/internal/game/session"
	"github.com/cory-johannsen/survivors/internal/game/sim"
)

// RunServiceName is the fully qualified gRPC service name.
const RunServiceName = "survivors.v1.RunService"

// RunServiceServer is the control plane of hosted runs. Requests and
// replies are free-form structs; every request carries "profile".
type RunServiceServer interface {
	// StartRun joins the profile if needed and starts a run.
	// Request: profile, character?, stage?. Reply: session, state.
	StartRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Command runs one text command. Request: profile, line. Reply: session, reply.
	Command(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Snapshot returns the session's snapshot. Request: profile.
	Snapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Purchase buys a meta upgrade. Request: profile, upgrade. Reply: cost, currency, level.
	Purchase(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// History lists recent runs. Request: profile, limit?. Reply: runs.
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RunService implements RunServiceServer over a Host.
type RunService struct {
	host   *Host
	logger *zap.Logger
}

// NewRunService creates a RunService.
//
// Precondition: host and logger must be non-nil.
func NewRunService(host *Host, logger *zap.Logger) *RunService {
	return &RunService{host: host, logger: logger}
}

// Register installs the service on srv.
func (s *RunService) Register(srv *grpc.Server) {
	srv.RegisterService(&RunServiceDesc, s)
}

func (s *RunService) join(ctx context.Context, req *structpb.Struct) (*session.Session, error) {
	profile := field(req, "profile")
	if profile == "" {
		return nil, status.Error(codes.InvalidArgument, "profile is required")
	}
	sess, err := s.host.Join(ctx, profile)
	if err != nil {
		return nil, toStatus(err)
	}
	return sess, nil
}

// StartRun implements RunServiceServer.
func (s *RunService) StartRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.join(ctx, req)
	if err != nil {
		return nil, err
	}
	t, err := s.host.Target(sess.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	character := field(req, "character")
	if character == "" {
		character = s.host.cfg.DefaultCharacter
	}
	stage := field(req, "stage")
	if stage == "" {
		stage = s.host.cfg.DefaultStage
	}
	if err := t.StartRun(character, stage); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("run started over rpc",
		zap.String("profile", sess.Profile),
		zap.String("character", character),
		zap.String("stage", stage),
	)
	return structpb.NewStruct(map[string]any{
		"session": sess.ID,
		"state":   string(sess.State()),
	})
}

// Command implements RunServiceServer.
func (s *RunService) Command(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.join(ctx, req)
	if err != nil {
		return nil, err
	}
	reply, err := s.host.Execute(sess.ID, field(req, "line"))
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"session": sess.ID,
		"reply":   reply,
	})
}

// Snapshot implements RunServiceServer.
func (s *RunService) Snapshot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.join(ctx, req)
	if err != nil {
		return nil, err
	}
	return SnapshotStruct(sess.Snapshot())
}

// Purchase implements RunServiceServer.
func (s *RunService) Purchase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.join(ctx, req)
	if err != nil {
		return nil, err
	}
	t, err := s.host.Target(sess.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	id := field(req, "upgrade")
	cost, err := t.Purchase(id)
	if err != nil {
		return nil, toStatus(err)
	}
	ms := sess.Meta()
	return structpb.NewStruct(map[string]any{
		"cost":     cost,
		"currency": ms.Currency,
		"level":    ms.Level(id),
	})
}

// History implements RunServiceServer.
func (s *RunService) History(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	profile := field(req, "profile")
	if profile == "" {
		return nil, status.Error(codes.InvalidArgument, "profile is required")
	}
	limit := 10
	if v, ok := req.GetFields()["limit"]; ok {
		limit = int(v.GetNumberValue())
	}
	runs, err := s.host.History(ctx, profile, limit)
	if err != nil {
		return nil, toStatus(err)
	}
	list := make([]any, 0, len(runs))
	for _, r := range runs {
		list = append(list, map[string]any{
			"character":   r.Character,
			"stage":       r.Stage,
			"survived_ms": r.Survived.Milliseconds(),
			"completed":   r.Completed,
			"level":       r.Level,
			"kills":       r.Kills,
			"currency":    r.Currency,
			"ended_at":    r.EndedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return structpb.NewStruct(map[string]any{"runs": list})
}

// SnapshotStruct converts a snapshot to its JSON-shaped struct.
func SnapshotStruct(snap sim.Snapshot) (*structpb.Struct, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding snapshot: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "converting snapshot: %v", err)
	}
	return out, nil
}

func field(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, command.ErrUnknownCommand),
		errors.Is(err, command.ErrUsage),
		errors.Is(err, sim.ErrBadChoice),
		errors.Is(err, meta.ErrUnknownUpgrade):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, sim.ErrNoRun),
		errors.Is(err, sim.ErrNoChoice),
		errors.Is(err, session.ErrRunInProgress),
		errors.Is(err, meta.ErrMaxLevel),
		errors.Is(err, meta.ErrInsufficientFunds):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

type structCall func(RunServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call structCall) grpc.MethodDesc {
	full := fmt.Sprintf("/%s/%s", RunServiceName, name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RunServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RunServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RunServiceDesc describes RunService for grpc.Server.RegisterService.
var RunServiceDesc = grpc.ServiceDesc{
	ServiceName: RunServiceName,
	HandlerType: (*RunServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("StartRun", RunServiceServer.StartRun),
		unaryMethod("Command", RunServiceServer.Command),
		unaryMethod("Snapshot", RunServiceServer.Snapshot),
		unaryMethod("Purchase", RunServiceServer.Purchase),
		unaryMethod("History", RunServiceServer.History),
	},
	Metadata: "survivors/v1/run.proto",
}

// RunServiceClient calls a remote RunService.
type RunServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewRunServiceClient wraps a client connection.
func NewRunServiceClient(cc grpc.ClientConnInterface) *RunServiceClient {
	return &RunServiceClient{cc: cc}
}

func (c *RunServiceClient) invoke(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fmt.Sprintf("/%s/%s", RunServiceName, method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// StartRun starts a run for profile.
func (c *RunServiceClient) StartRun(ctx context.Context, profile, character, stage string) (*structpb.Struct, error) {
	return c.invoke(ctx, "StartRun", map[string]any{"profile": profile, "character": character, "stage": stage})
}

// Command sends one text command.
func (c *RunServiceClient) Command(ctx context.Context, profile, line string) (*structpb.Struct, error) {
	return c.invoke(ctx, "Command", map[string]any{"profile": profile, "line": line})
}

// Snapshot fetches the current snapshot.
func (c *RunServiceClient) Snapshot(ctx context.Context, profile string) (*structpb.Struct, error) {
	return c.invoke(ctx, "Snapshot", map[string]any{"profile": profile})
}

// Purchase buys one level of upgrade.
func (c *RunServiceClient) Purchase(ctx context.Context, profile, upgrade string) (*structpb.Struct, error) {
	return c.invoke(ctx, "Purchase", map[string]any{"profile": profile, "upgrade": upgrade})
}

// History lists up to limit recent runs.
func (c *RunServiceClient) History(ctx context.Context, profile string, limit int) (*structpb.Struct, error) {
	return c.invoke(ctx, "History", map[string]any{"profile": profile, "limit": limit})
}
