package server

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/goceleris/rawhttp/internal/http1"
	"github.com/goceleris/rawhttp/internal/router"
)

// conn is the worker for one accepted connection. Its buffer only ever
// holds bytes that are not yet part of a completed request.
type conn struct {
	srv    *Server
	rwc    net.Conn
	id     string
	logger *slog.Logger
	buf    []byte
}

func newConn(srv *Server, rwc net.Conn) *conn {
	id := uuid.NewString()
	return &conn{
		srv: srv,
		rwc: rwc,
		id:  id,
		logger: srv.logger.With(
			"conn_id", id,
			"remote", rwc.RemoteAddr().String(),
		),
	}
}

// serve runs the read, frame, dispatch, encode, write loop until the
// connection is marked for close, the peer goes away, the idle timeout
// fires or something fails. Failures stay inside this connection.
func (c *conn) serve() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic while serving connection", "panic", r)
		}
		_ = c.rwc.Close()
	}()

	c.logger.Debug("connection opened")
	chunk := make([]byte, c.srv.cfg.ReadBufferSize)

	for {
		_ = c.rwc.SetReadDeadline(time.Now().Add(c.srv.cfg.IdleTimeout))
		n, err := c.rwc.Read(chunk)
		if n > 0 {
			c.buf = append(c.buf, chunk[:n]...)
			done, perr := c.drain()
			if perr != nil {
				c.logger.Warn("closing connection", "error", perr)
				return
			}
			if done {
				c.logger.Debug("connection closed by request")
				return
			}
		}
		if err != nil {
			c.readFailed(err)
			return
		}
	}
}

// drain answers every complete request in the buffer, in order. It
// reports done when a response asked for the connection to be closed.
func (c *conn) drain() (bool, error) {
	for {
		msg, rest, ok := http1.Extract(c.buf)
		if !ok {
			return false, nil
		}

		closeAfter, err := c.exchange(msg)
		c.buf = append(c.buf[:0], rest...)
		if err != nil || closeAfter {
			return closeAfter, err
		}
	}
}

// exchange handles one framed request and writes its response.
func (c *conn) exchange(msg []byte) (bool, error) {
	req := http1.ParseRequest(msg)
	req.ConnID = c.id

	resp := c.dispatch(req)

	wire, closeAfter, err := http1.Encode(req, resp)
	if err != nil {
		return false, err
	}

	c.logger.Debug("request served",
		"method", req.Method,
		"path", req.Path,
		"status", resp.Status,
		"bytes", len(wire))

	if _, err := c.rwc.Write(wire); err != nil {
		return false, err
	}
	return closeAfter, nil
}

func (c *conn) dispatch(req *http1.Request) http1.Response {
	if !req.Valid() {
		return http1.Text(http1.StatusBadRequest, "")
	}

	h, outcome := c.srv.routes.Route(req.Method, req.Path)
	if outcome == router.NotFound {
		return http1.Text(http1.StatusNotFound, "")
	}
	return h.Serve(req)
}

func (c *conn) readFailed(err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		c.logger.Debug("connection closed by peer")
	case errors.As(err, &netErr) && netErr.Timeout():
		c.logger.Debug("connection idle, closing", "timeout", c.srv.cfg.IdleTimeout)
	default:
		c.logger.Warn("read failed", "error", err)
	}
}
