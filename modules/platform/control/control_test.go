package control

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu   sync.Mutex
	msgs []Message
}

func (h *recordingHandler) HandleMessage(msg Message) {
	h.mu.Lock()
	h.msgs = append(h.msgs, msg)
	h.mu.Unlock()
}

func (h *recordingHandler) received() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.msgs...)
}

// socketDir returns a short directory; unix socket paths are length-limited
func socketDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "pt")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func startServer(t *testing.T, h Handler) *Server {
	t.Helper()
	s := NewServer(SocketPath(socketDir(t), "%1"), h)
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDecodeMessage(t *testing.T) {
	msg, ok := DecodeMessage([]byte(`{"type":"set_cwd","cwd":"/tmp/x"}` + "\n"))
	require.True(t, ok)
	assert.Equal(t, Message{Type: MsgSetCwd, Cwd: "/tmp/x"}, msg)

	_, ok = DecodeMessage([]byte(`{"type":"bogus"}`))
	assert.False(t, ok)
	_, ok = DecodeMessage([]byte(`not json`))
	assert.False(t, ok)
	_, ok = DecodeMessage([]byte(`{}`))
	assert.False(t, ok)
}

func TestEncodeOmitsEmptyCwd(t *testing.T) {
	data, err := Message{Type: MsgPing}.Encode()
	require.NoError(t, err)
	assert.Equal(t, "{\"type\":\"ping\"}\n", string(data))
}

func TestMessageDirections(t *testing.T) {
	for _, ty := range []MessageType{MsgClose, MsgPing, MsgRefresh, MsgSetCwd} {
		assert.True(t, ty.IsCommand(), ty)
		assert.False(t, ty.IsReply(), ty)
	}
	for _, ty := range []MessageType{MsgReady, MsgPong} {
		assert.True(t, ty.IsReply(), ty)
		assert.False(t, ty.IsCommand(), ty)
	}
}

func TestSocketPathSanitizesID(t *testing.T) {
	assert.Equal(t, filepath.Join("/run", "panetree-_12.sock"), SocketPath("/run", "%12"))
	assert.Equal(t, "a_b_c-d_e", Sanitize("a/b c-d.e"))
}

func TestPingPong(t *testing.T) {
	h := &recordingHandler{}
	s := startServer(t, h)

	reply, ok := SendCommand(context.Background(), s.Path(), Message{Type: MsgPing})
	require.True(t, ok)
	assert.Equal(t, MsgPong, reply.Type)
	assert.True(t, Ping(context.Background(), s.Path()))
	assert.Empty(t, h.received())
}

func TestBogusMessageGetsNoReply(t *testing.T) {
	s := startServer(t, &recordingHandler{})

	start := time.Now()
	_, ok := SendCommand(context.Background(), s.Path(), Message{Type: "bogus"})
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Second)

	// still serving
	assert.True(t, Ping(context.Background(), s.Path()))
}

func TestFragmentedAndBatchedLines(t *testing.T) {
	h := &recordingHandler{}
	s := startServer(t, h)

	conn, err := net.Dial("unix", s.Path())
	require.NoError(t, err)
	defer conn.Close()

	for _, part := range []string{`{"type":"ref`, `resh"}`, "\n", `garbage` + "\n" + `{"type":"set_cwd","cwd":"/a"}` + "\n" + `{"type":"close"}` + "\n"} {
		_, err := conn.Write([]byte(part))
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(h.received()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []Message{
		{Type: MsgRefresh},
		{Type: MsgSetCwd, Cwd: "/a"},
		{Type: MsgClose},
	}, h.received())
}

func TestStartRemovesStaleSocket(t *testing.T) {
	path := SocketPath(socketDir(t), "stale")
	require.NoError(t, os.WriteFile(path, []byte("left over"), 0600))

	s := NewServer(path, nil)
	require.NoError(t, s.Start())
	defer s.Close()

	assert.True(t, Ping(context.Background(), path))
}

func TestCloseIsIdempotentAndRemovesSocket(t *testing.T) {
	path := SocketPath(socketDir(t), "twice")
	s := NewServer(path, nil)
	require.NoError(t, s.Start())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.False(t, Ping(context.Background(), path))
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	s := startServer(t, nil)

	var readers []*bufio.Reader
	for i := 0; i < 3; i++ {
		conn, err := net.Dial("unix", s.Path())
		require.NoError(t, err)
		defer conn.Close()
		readers = append(readers, bufio.NewReader(conn))
	}
	require.Eventually(t, func() bool { return s.ClientCount() == 3 }, time.Second, 10*time.Millisecond)

	s.Broadcast(Message{Type: MsgReady})

	for _, r := range readers {
		line, err := r.ReadBytes('\n')
		require.NoError(t, err)
		msg, ok := DecodeMessage(line)
		require.True(t, ok)
		assert.Equal(t, MsgReady, msg.Type)
	}
}

func TestClientDisconnectIsForgotten(t *testing.T) {
	s := startServer(t, nil)

	conn, err := net.Dial("unix", s.Path())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return s.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestSendCommandWithoutServer(t *testing.T) {
	_, ok := SendCommand(context.Background(), filepath.Join(socketDir(t), "none.sock"), Message{Type: MsgPing})
	assert.False(t, ok)
	assert.False(t, Notify(context.Background(), filepath.Join(socketDir(t), "none.sock"), Message{Type: MsgClose}))
}

func TestNotifyDeliversCommand(t *testing.T) {
	h := &recordingHandler{}
	s := startServer(t, h)

	require.True(t, Notify(context.Background(), s.Path(), Message{Type: MsgSetCwd, Cwd: "/b"}))
	assert.Eventually(t, func() bool { return len(h.received()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestAwaitSkipsToWantedReply(t *testing.T) {
	var s *Server
	s = startServer(t, HandlerFunc(func(msg Message) {
		if msg.Type == MsgSetCwd {
			s.Broadcast(Message{Type: MsgPong})
			s.Broadcast(Message{Type: MsgReady})
		}
	}))

	sent, got := Await(context.Background(), s.Path(), Message{Type: MsgSetCwd, Cwd: "/a"}, MsgReady)
	assert.True(t, sent)
	assert.True(t, got)
}

func TestAwaitWithoutAnswer(t *testing.T) {
	s := startServer(t, &recordingHandler{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	sent, got := Await(ctx, s.Path(), Message{Type: MsgRefresh}, MsgReady)
	assert.True(t, sent)
	assert.False(t, got)

	sent, got = Await(context.Background(), filepath.Join(socketDir(t), "none.sock"), Message{Type: MsgRefresh}, MsgReady)
	assert.False(t, sent)
	assert.False(t, got)
}

// failingListener fails every Accept until closed
type failingListener struct {
	accepts atomic.Int32
	closed  atomic.Bool
}

func (l *failingListener) Accept() (net.Conn, error) {
	if l.closed.Load() {
		return nil, net.ErrClosed
	}
	l.accepts.Add(1)
	return nil, errors.New("accept: too many open files")
}

func (l *failingListener) Close() error {
	l.closed.Store(true)
	return nil
}

func (l *failingListener) Addr() net.Addr {
	return &net.UnixAddr{Name: "failing", Net: "unix"}
}

func TestAcceptErrorsBackOff(t *testing.T) {
	l := &failingListener{}
	s := NewServer(filepath.Join(socketDir(t), "f.sock"), nil)
	s.listener = l
	s.wg.Add(1)
	go s.acceptLoop()

	time.Sleep(200 * time.Millisecond)
	assert.Less(t, l.accepts.Load(), int32(20))

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on the backoff")
	}
}
