package redisstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/approval/redisstore"
)

var (
	testRedisClient    *redis.Client
	testRedisContainer testcontainers.Container
	skipIntegration    bool
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	var containerErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				containerErr = fmt.Errorf("docker not available: %v", r)
			}
		}()
		req := testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		}
		testRedisContainer, containerErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
	}()

	if containerErr != nil {
		fmt.Printf("Docker not available, integration tests will be skipped: %v\n", containerErr)
		skipIntegration = true
	} else {
		host, err := testRedisContainer.Host(ctx)
		if err != nil {
			skipIntegration = true
		} else {
			port, err := testRedisContainer.MappedPort(ctx, "6379")
			if err != nil {
				skipIntegration = true
			} else {
				testRedisClient = redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
				if err := testRedisClient.Ping(ctx).Err(); err != nil {
					skipIntegration = true
				}
			}
		}
	}

	code := m.Run()

	if testRedisClient != nil {
		_ = testRedisClient.Close()
	}
	if testRedisContainer != nil {
		_ = testRedisContainer.Terminate(ctx)
	}

	os.Exit(code)
}

func getRedis(t *testing.T) *redis.Client {
	t.Helper()
	if skipIntegration {
		t.Skip("Docker not available, skipping integration test")
	}
	if err := testRedisClient.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("failed to flush redis: %v", err)
	}
	return testRedisClient
}

func TestApprovalPendingUntilResolved(t *testing.T) {
	rdb := getRedis(t)
	store := redisstore.New(rdb)
	ctx := context.Background()
	runID := agent.RunID("run-1")

	require.NoError(t, store.PutApproval(ctx, runID, "call-1", time.Minute))

	_, ok, err := store.GetApproval(ctx, runID, "call-1")
	require.NoError(t, err)
	assert.False(t, ok, "no decision recorded yet")

	require.NoError(t, store.ResolveApproval(ctx, runID, "call-1", agent.ApprovalValue{
		Status: agent.ApprovalApproved,
	}))

	value, ok, err := store.GetApproval(ctx, runID, "call-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, agent.ApprovalApproved, value.Status)
}

func TestApprovalRejectionPreservesReason(t *testing.T) {
	rdb := getRedis(t)
	store := redisstore.New(rdb)
	ctx := context.Background()
	runID := agent.RunID("run-2")

	require.NoError(t, store.PutApproval(ctx, runID, "call-1", time.Minute))
	require.NoError(t, store.ResolveApproval(ctx, runID, "call-1", agent.ApprovalValue{
		Status:          agent.ApprovalRejected,
		RejectionReason: "user changed mind",
	}))

	value, ok, err := store.GetApproval(ctx, runID, "call-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, agent.ApprovalRejected, value.Status)
	assert.Equal(t, "user changed mind", value.RejectionReason)
}

func TestClarificationPendingUntilAnswered(t *testing.T) {
	rdb := getRedis(t)
	store := redisstore.New(rdb)
	ctx := context.Background()
	runID := agent.RunID("run-3")

	require.NoError(t, store.PutClarification(ctx, runID, "clar-1", time.Minute))

	_, ok, err := store.GetClarification(ctx, runID, "clar-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.ResolveClarification(ctx, runID, "clar-1", "JFK"))

	answer, ok, err := store.GetClarification(ctx, runID, "clar-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "JFK", answer)
}

func TestGetRunApprovalsReturnsOnlyResolved(t *testing.T) {
	rdb := getRedis(t)
	store := redisstore.New(rdb)
	ctx := context.Background()
	runID := agent.RunID("run-5")

	require.NoError(t, store.PutApproval(ctx, runID, "call-1", time.Minute))
	require.NoError(t, store.PutApproval(ctx, runID, "call-2", time.Minute))
	require.NoError(t, store.ResolveApproval(ctx, runID, "call-1", agent.ApprovalValue{
		Status: agent.ApprovalApproved,
	}))

	approvals, err := store.GetRunApprovals(ctx, runID)
	require.NoError(t, err)
	require.Len(t, approvals, 1)
	assert.Equal(t, agent.ApprovalApproved, approvals["call-1"].Status)
	_, stillPending := approvals["call-2"]
	assert.False(t, stillPending)
}

func TestApprovalUnknownCallIsNotResolved(t *testing.T) {
	rdb := getRedis(t)
	store := redisstore.New(rdb)
	ctx := context.Background()

	_, ok, err := store.GetApproval(ctx, "run-4", "never-put")
	require.NoError(t, err)
	assert.False(t, ok)
}
