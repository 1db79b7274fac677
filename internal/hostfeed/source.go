package hostfeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const dialTimeout = 10 * time.Second

// Open opens a notification source:
//
//   - "-" or "stdin" reads the standard input;
//   - "tcp://host:port" connects to a line-oriented TCP feed;
//   - "ws://..." or "wss://..." connects to a websocket feed, one notification per message;
//   - anything else is a file path.
func Open(ctx context.Context, source string) (io.ReadCloser, error) {
	switch {
	case source == "-" || source == "stdin":
		return io.NopCloser(os.Stdin), nil

	case strings.HasPrefix(source, "tcp://"):
		d := net.Dialer{Timeout: dialTimeout}
		conn, err := d.DialContext(ctx, "tcp", strings.TrimPrefix(source, "tcp://"))
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", source, err)
		}
		return conn, nil

	case strings.HasPrefix(source, "ws://") || strings.HasPrefix(source, "wss://"):
		return DialWebsocket(ctx, source, nil)

	default:
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", source, err)
		}
		return f, nil
	}
}

// DialWebsocket connects to a websocket feed. The returned reader yields
// every text message followed by a newline.
func DialWebsocket(ctx context.Context, url string, header http.Header) (io.ReadCloser, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", url, err)
	}
	return &messageReader{conn: conn}, nil
}

type messageReader struct {
	conn *websocket.Conn
	cur  io.Reader
}

func (m *messageReader) Read(p []byte) (int, error) {
	for {
		if m.cur == nil {
			_, r, err := m.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			m.cur = io.MultiReader(r, strings.NewReader("\n"))
		}

		n, err := m.cur.Read(p)
		if errors.Is(err, io.EOF) {
			m.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (m *messageReader) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = m.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return m.conn.Close()
}
