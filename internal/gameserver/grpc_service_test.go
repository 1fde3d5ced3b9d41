package gameserver_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/cory-johannsen/survivors/internal/game/sim"
	"github.com/cory-johannsen/survivors/internal/gameserver"
)

func dialRunService(t *testing.T, f *hostFixture) *gameserver.RunServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	gameserver.NewRunService(f.host, zap.NewNop()).Register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return gameserver.NewRunServiceClient(conn)
}

func rpcCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunService_StartRunAndSnapshot(t *testing.T) {
	f := newHost(t, "")
	c := dialRunService(t, f)
	ctx := rpcCtx(t)

	out, err := c.StartRun(ctx, "alice", "", "")
	require.NoError(t, err)
	assert.Equal(t, string(sim.StateRunning), out.GetFields()["state"].GetStringValue())
	assert.NotEmpty(t, out.GetFields()["session"].GetStringValue())

	f.loop.Fire(100 * time.Millisecond)

	snap, err := c.Snapshot(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "running", snap.GetFields()["state"].GetStringValue())
	assert.Equal(t, "sprint", snap.GetFields()["stage"].GetStringValue())
	player := snap.GetFields()["player"].GetStructValue()
	require.NotNil(t, player)
	assert.Greater(t, player.GetFields()["health"].GetNumberValue(), 0.0)
}

func TestRunService_Command(t *testing.T) {
	f := newHost(t, "")
	c := dialRunService(t, f)
	ctx := rpcCtx(t)

	_, err := c.Command(ctx, "bob", "start")
	require.NoError(t, err)
	out, err := c.Command(ctx, "bob", "pause")
	require.NoError(t, err)
	assert.NotEmpty(t, out.GetFields()["reply"].GetStringValue())

	_, err = c.Command(ctx, "bob", "dance")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRunService_ErrorCodes(t *testing.T) {
	f := newHost(t, "")
	c := dialRunService(t, f)
	ctx := rpcCtx(t)

	_, err := c.Snapshot(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Command(ctx, "carol", "choose 1")
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = c.Purchase(ctx, "carol", "might")
	assert.Equal(t, codes.FailedPrecondition, status.Code(err), "no currency yet")

	_, err = c.Purchase(ctx, "carol", "nope")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRunService_PurchaseAndHistory(t *testing.T) {
	f := newHost(t, "")
	c := dialRunService(t, f)
	ctx := rpcCtx(t)
	require.NoError(t, f.store.Save(ctx, "dave", map[string]string{"currency": "250"}))

	out, err := c.Purchase(ctx, "dave", "might")
	require.NoError(t, err)
	assert.Equal(t, 100.0, out.GetFields()["cost"].GetNumberValue())
	assert.Equal(t, 150.0, out.GetFields()["currency"].GetNumberValue())
	assert.Equal(t, 1.0, out.GetFields()["level"].GetNumberValue())

	_, err = c.StartRun(ctx, "dave", "antonio", "sprint")
	require.NoError(t, err)
	f.playOut()

	hist, err := c.History(ctx, "dave", 5)
	require.NoError(t, err)
	runs := hist.GetFields()["runs"].GetListValue().GetValues()
	require.Len(t, runs, 1)
	assert.Equal(t, "sprint", runs[0].GetStructValue().GetFields()["stage"].GetStringValue())
}
