package siochannel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/batchgrid/internal/ctxlog"
	"github.com/vk/batchgrid/internal/mailbox"
	"github.com/vk/batchgrid/internal/message"
	"github.com/zishang520/socket.io/v2/socket"
)

// Path is where the socket.io handler is mounted.
const Path = "/socket.io/"

// maxFrameBytes bounds one message; a block of several thousand rows fits
// comfortably.
const maxFrameBytes = 64 << 20

var errClosed = errors.New("channel closed")

// Master is the rank 0 endpoint.
type Master struct {
	size     int
	token    string
	listener net.Listener
	httpSrv  *http.Server
	server   *socket.Server
	inbox    *mailbox.Mailbox[message.Message]

	mu      sync.Mutex
	peers   map[int]*socket.Socket
	joined  chan struct{}
	closing atomic.Bool
}

// Listen starts the socket.io server on addr for the given number of
// workers. Workers must present token to join.
func Listen(ctx context.Context, addr string, workers int, token string) (*Master, error) {
	logger := ctxlog.FromContext(ctx)
	if workers < 1 {
		return nil, errors.New("at least one worker is required")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	m := &Master{
		size:     workers + 1,
		token:    token,
		listener: ln,
		inbox:    mailbox.New[message.Message](),
		peers:    make(map[int]*socket.Socket),
		joined:   make(chan struct{}),
	}

	opts := socket.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(maxFrameBytes)
	m.server = socket.NewServer(nil, nil)
	m.server.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		m.accept(ctx, client)
	})

	mux := http.NewServeMux()
	mux.Handle(Path, m.server.ServeHandler(opts))
	m.httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := m.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Socket.io server stopped.", "error", err)
			m.inbox.Close(&message.TransportError{Rank: message.MasterRank, Op: "serve", Err: err})
		}
	}()

	logger.Info("Master listening.", "addr", ln.Addr().String(), "workers", workers)
	return m, nil
}

// URL is the address workers dial.
func (m *Master) URL() string {
	return "http://" + m.listener.Addr().String()
}

// accept authenticates a new connection and wires its events.
func (m *Master) accept(ctx context.Context, client *socket.Socket) {
	logger := ctxlog.FromContext(ctx)

	auth, _ := client.Handshake().Auth.(map[string]any)
	rank, token := readAuth(auth)
	m.mu.Lock()
	_, taken := m.peers[rank]
	valid := token == m.token && rank > message.MasterRank && rank < m.size && !taken
	if valid {
		m.peers[rank] = client
		if len(m.peers) == m.size-1 {
			close(m.joined)
		}
	}
	m.mu.Unlock()

	if !valid {
		logger.Warn("Rejected worker connection.", "rank", rank, "duplicate", taken)
		client.Disconnect(true)
		return
	}
	logger.Debug("Worker joined.", "worker", rank)

	deliver := func(tag message.Tag) func(...any) {
		return func(args ...any) {
			msg, err := decodeFrame(tag, args)
			if err == nil && msg.Source != rank {
				err = fmt.Errorf("rank %d sent a frame claiming source %d", rank, msg.Source)
			}
			if err != nil {
				m.inbox.Close(&message.TransportError{Rank: message.MasterRank, Op: "receive", Err: err})
				return
			}
			_ = m.inbox.Push(msg)
		}
	}
	client.On(eventHeader, deliver(message.TagHeader))
	client.On(eventBlockTodo, deliver(message.TagBlockTodo))
	client.On(eventBlockDone, deliver(message.TagBlockDone))
	client.On(eventTerminate, deliver(message.TagTerminate))
	client.On(eventAbort, func(args ...any) {
		cause := fmt.Errorf("rank %d aborted the run: %s", rank, abortReason(args))
		m.inbox.Close(&message.TransportError{Rank: message.MasterRank, Op: "receive", Err: cause})
	})
	client.On("disconnect", func(reason ...any) {
		if m.closing.Load() {
			return
		}
		logger.Debug("Worker disconnected.", "worker", rank, "reason", reason)
		m.inbox.Close(&message.TransportError{
			Rank: message.MasterRank,
			Op:   "receive",
			Err:  fmt.Errorf("rank %d disconnected: %v", rank, reason),
		})
	})
}

func readAuth(auth map[string]any) (int, string) {
	rank := -1
	switch v := auth["rank"].(type) {
	case float64:
		rank = int(v)
	case int:
		rank = v
	case int64:
		rank = int(v)
	}
	token, _ := auth["token"].(string)
	return rank, token
}

// WaitForWorkers blocks until every worker rank has joined or timeout
// passes.
func (m *Master) WaitForWorkers(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case <-m.joined:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		n := len(m.peers)
		m.mu.Unlock()
		return &message.TransportError{
			Rank: message.MasterRank,
			Op:   "connect",
			Err:  fmt.Errorf("%d of %d workers joined: %w", n, m.size-1, ctx.Err()),
		}
	}
}

// Rank implements message.Channel.
func (m *Master) Rank() int { return message.MasterRank }

// Size implements message.Channel.
func (m *Master) Size() int { return m.size }

// Send implements message.Channel.
func (m *Master) Send(ctx context.Context, target int, msg message.Message) error {
	fail := func(err error) error {
		return &message.TransportError{Rank: message.MasterRank, Op: "send", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if !msg.Tag.Valid() {
		return fail(fmt.Errorf("refusing to send %s", msg.Tag))
	}
	m.mu.Lock()
	peer, ok := m.peers[target]
	m.mu.Unlock()
	if !ok {
		return fail(fmt.Errorf("rank %d is not connected", target))
	}

	msg.Source = message.MasterRank
	body, err := encodeFrame(msg)
	if err != nil {
		return fail(err)
	}
	if err := peer.Emit(msg.Tag.String(), body); err != nil {
		return fail(err)
	}
	return nil
}

// Receive implements message.Channel.
func (m *Master) Receive(ctx context.Context) (message.Message, error) {
	msg, err := m.inbox.Pop(ctx)
	if err != nil {
		var transportErr *message.TransportError
		if errors.As(err, &transportErr) {
			return message.Message{}, err
		}
		return message.Message{}, &message.TransportError{Rank: message.MasterRank, Op: "receive", Err: err}
	}
	return msg, nil
}

// Abort tells every worker to stop and fails pending receives.
func (m *Master) Abort(cause error) {
	m.mu.Lock()
	peers := make([]*socket.Socket, 0, len(m.peers))
	for _, p := range m.peers {
		peers = append(peers, p)
	}
	m.mu.Unlock()

	for _, p := range peers {
		_ = p.Emit(eventAbort, cause.Error())
	}
	m.inbox.Close(fmt.Errorf("rank 0 aborted the run: %w", cause))
}

// Close shuts the server down.
func (m *Master) Close() error {
	if !m.closing.CompareAndSwap(false, true) {
		return nil
	}
	m.inbox.Close(errClosed)
	m.server.Close(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.httpSrv.Shutdown(ctx)
}
