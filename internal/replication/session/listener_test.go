package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obarepl/internal/logging"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
)

func TestListener_ServeEcho(t *testing.T) {
	m := NewMetrics(nil)
	l, err := Listen("127.0.0.1:0", protocol.V8, func(protocol.StartEnvelope) (protocol.StartEnvelope, error) {
		return replServerStart(), nil
	}, logging.NewNop(), WithMetrics(m))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- l.Serve(ctx, func(ctx context.Context, s *Session, peer protocol.StartEnvelope) {
			for {
				msg, err := s.Receive()
				if err != nil {
					return
				}
				if err := s.Publish(msg); err != nil {
					return
				}
			}
		})
	}()

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	client, peer, err := Connect(context.Background(), conn, protocol.V8, serverStart(), WithMetrics(m))
	require.NoError(t, err)
	defer client.Close()

	assert.IsType(t, &protocol.ReplServerStartMsg{}, peer)
	assert.Equal(t, protocol.V8, client.Version())

	require.NoError(t, client.Publish(&protocol.WindowMsg{NumAck: 7}))
	msg, err := client.Receive()
	require.NoError(t, err)
	assert.Equal(t, &protocol.WindowMsg{NumAck: 7}, msg)

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}

	_, err = client.Receive()
	assert.Error(t, err)
}

func TestListener_FailedHandshakeKeepsServing(t *testing.T) {
	l, err := Listen("127.0.0.1:0", protocol.V8, func(protocol.StartEnvelope) (protocol.StartEnvelope, error) {
		return replServerStart(), nil
	}, nil, WithMetrics(NewMetrics(nil)))
	require.NoError(t, err)
	defer l.Close()

	handled := make(chan protocol.StartEnvelope, 1)
	go l.Serve(context.Background(), func(_ context.Context, _ *Session, peer protocol.StartEnvelope) {
		handled <- peer
	})

	bad, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	_, err = bad.Write([]byte("zzzzzzzz"))
	require.NoError(t, err)
	bad.Close()

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	client, _, err := Connect(context.Background(), conn, protocol.V8, serverStart(), WithMetrics(NewMetrics(nil)))
	require.NoError(t, err)
	defer client.Close()

	select {
	case peer := <-handled:
		assert.IsType(t, &protocol.ServerStartMsg{}, peer)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestListener_CloseStopsServe(t *testing.T) {
	l, err := Listen("127.0.0.1:0", protocol.V8, nil, nil)
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() {
		served <- l.Serve(context.Background(), func(context.Context, *Session, protocol.StartEnvelope) {})
	}()

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}
