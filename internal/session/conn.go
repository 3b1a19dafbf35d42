package session

import (
	"bufio"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// maxLineLength bounds a single client line.
const maxLineLength = 4096

// LineConn is a bidirectional line transport. ReadLine and WriteLine may be
// called concurrently with each other, but each from a single goroutine.
type LineConn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}

type tcpConn struct {
	conn         net.Conn
	scanner      *bufio.Scanner
	writer       *bufio.Writer
	writeTimeout time.Duration
}

// NewTCPConn wraps a stream connection. Lines are newline terminated; a
// trailing carriage return is stripped.
func NewTCPConn(conn net.Conn, writeTimeout time.Duration) LineConn {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 512), maxLineLength)
	return &tcpConn{
		conn:         conn,
		scanner:      scanner,
		writer:       bufio.NewWriter(conn),
		writeTimeout: writeTimeout,
	}
}

func (c *tcpConn) ReadLine() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", net.ErrClosed
	}
	return strings.TrimRight(c.scanner.Text(), "\r"), nil
}

func (c *tcpConn) WriteLine(line string) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	if _, err := c.writer.WriteString(line + "\n"); err != nil {
		return err
	}
	return c.writer.Flush()
}

func (c *tcpConn) Close() error       { return c.conn.Close() }
func (c *tcpConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }

type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

// NewWSConn speaks the same protocol over a websocket, one text frame per
// line.
func NewWSConn(conn *websocket.Conn, writeTimeout time.Duration) LineConn {
	conn.SetReadLimit(maxLineLength)
	return &wsConn{conn: conn, writeTimeout: writeTimeout}
}

func (c *wsConn) ReadLine() (string, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (c *wsConn) WriteLine(line string) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *wsConn) Close() error       { return c.conn.Close() }
func (c *wsConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }
