package session

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
)

// Connect opens a session on conn: it publishes start at the version the
// local server speaks, reads the peer's start message and switches the
// session to the lower of both versions. The peer's start message is
// returned for the caller to check the base DN and generation ID.
func Connect(ctx context.Context, conn net.Conn, local protocol.Version, start protocol.StartEnvelope, opts ...Option) (*Session, protocol.StartEnvelope, error) {
	s, err := New(conn, local, opts...)
	if err != nil {
		return nil, nil, err
	}
	stop := watchDeadline(ctx, conn)
	defer stop()

	if err := s.Publish(start); err != nil {
		s.Close()
		return nil, nil, err
	}
	peer, err := receiveStart(ctx, s)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	if err := s.SetVersion(protocol.Negotiate(local, peer.Start().ProtocolVersion)); err != nil {
		s.Close()
		return nil, nil, err
	}
	s.logger.Info("replication session opened",
		"peerType", peer.Type(),
		"version", s.Version(),
		"generationID", peer.Start().GenerationID)
	return s, peer, nil
}

// Responder builds the start message answering a peer's.
type Responder func(peer protocol.StartEnvelope) (protocol.StartEnvelope, error)

// Accept is the server side of Connect: it reads the peer's start message,
// publishes the reply built by respond and negotiates the version. The
// reply is written at the negotiated version.
func Accept(ctx context.Context, conn net.Conn, local protocol.Version, respond Responder, opts ...Option) (*Session, protocol.StartEnvelope, error) {
	s, err := New(conn, local, opts...)
	if err != nil {
		return nil, nil, err
	}
	stop := watchDeadline(ctx, conn)
	defer stop()

	peer, err := receiveStart(ctx, s)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	if err := s.SetVersion(protocol.Negotiate(local, peer.Start().ProtocolVersion)); err != nil {
		s.Close()
		return nil, nil, err
	}
	reply, err := respond(peer)
	if err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if err := s.Publish(reply); err != nil {
		s.Close()
		return nil, nil, err
	}
	s.logger.Info("replication session accepted",
		"peerType", peer.Type(),
		"version", s.Version(),
		"generationID", peer.Start().GenerationID)
	return s, peer, nil
}

func receiveStart(ctx context.Context, s *Session) (protocol.StartEnvelope, error) {
	msg, err := s.Receive()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	start, ok := msg.(protocol.StartEnvelope)
	if !ok {
		return nil, fmt.Errorf("%w: expected a start message, got %s", ErrHandshake, msg.Type())
	}
	return start, nil
}

// watchDeadline applies the deadline of ctx to conn and unblocks conn when
// ctx is cancelled. The returned function clears both.
func watchDeadline(ctx context.Context, conn net.Conn) func() {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.SetDeadline(time.Now())
		case <-done:
		}
	}()
	return func() {
		close(done)
		conn.SetDeadline(time.Time{})
	}
}
