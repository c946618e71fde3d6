package control

import (
	"bufio"
	"context"
	"net"
	"time"
)

// SendCommand connects to the view at path, sends msg and waits for one reply
// line. Every failure, including a view that never answers, reports false.
func SendCommand(ctx context.Context, path string, msg Message) (Message, bool) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Message{}, false
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	conn.SetDeadline(deadline)

	data, err := msg.Encode()
	if err != nil {
		return Message{}, false
	}
	if _, err := conn.Write(data); err != nil {
		return Message{}, false
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return Message{}, false
	}
	return DecodeMessage(line)
}

// Notify sends msg without waiting for a reply
func Notify(ctx context.Context, path string, msg Message) bool {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return false
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(DefaultTimeout))

	data, err := msg.Encode()
	if err != nil {
		return false
	}
	_, err = conn.Write(data)
	return err == nil
}

// Await sends msg and reads lines until a message of type want arrives or the
// timeout passes. sent reports whether msg was written at all, so callers can
// tell a missing view from one that has not answered yet.
func Await(ctx context.Context, path string, msg Message, want MessageType) (sent, got bool) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return false, false
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	conn.SetDeadline(deadline)

	data, err := msg.Encode()
	if err != nil {
		return false, false
	}
	if _, err := conn.Write(data); err != nil {
		return false, false
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return true, false
		}
		if reply, ok := DecodeMessage(line); ok && reply.Type == want {
			return true, true
		}
	}
}

// Ping reports whether a live view answers at path
func Ping(ctx context.Context, path string) bool {
	reply, ok := SendCommand(ctx, path, Message{Type: MsgPing})
	return ok && reply.Type == MsgPong
}
