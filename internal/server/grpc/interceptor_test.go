package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/fundkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type recordingLogger struct {
	logging.Nop
	msgs []string
	args [][]any
}

func (r *recordingLogger) Debug(_ context.Context, msg string, args ...any) {
	r.msgs = append(r.msgs, msg)
	r.args = append(r.args, args)
}

func (r *recordingLogger) With(...any) logging.Logger { return r }

func TestLoggingInterceptor(t *testing.T) {
	log := &recordingLogger{}
	s := NewHealthServer("", log, &fakePinger{}, time.Hour)
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	resp, err := s.loggingInterceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = s.loggingInterceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	})
	assert.Equal(t, codes.NotFound, status.Code(err))

	require.Len(t, log.args, 2)
	assert.Contains(t, log.args[0], "/grpc.health.v1.Health/Check")
	assert.Contains(t, log.args[0], codes.OK.String())
	assert.Contains(t, log.args[1], codes.NotFound.String())
}
