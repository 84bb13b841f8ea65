// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Thermoquad/thermoscope/pkg/config"
	"github.com/Thermoquad/thermoscope/pkg/ircam"
	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"golang.org/x/term"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

const (
	handshakeTimeout = 10 * time.Second
	dialTimeout      = 15 * time.Second
)

// ErrNoPort is returned when no port was given and none could be found
var ErrNoPort = errors.New("no serial port found, use --port or --url")

// WebSocketConnection carries the camera byte stream over a WebSocket bridge.
// Frames go out as binary messages. Incoming binary and text messages are
// both read through, since the camera answers in text.
type WebSocketConnection struct {
	conn *websocket.Conn
	msg  io.Reader
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	for {
		if w.msg == nil {
			_, r, err := w.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, ErrConnectionClosed
				}
				return 0, err
			}
			w.msg = r
		}

		n, err := w.msg.Read(p)
		if err == io.EOF {
			w.msg = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// OpenSerialConnection opens a serial port with the camera's fixed line
// settings
func OpenSerialConnection(portName string) (ircam.Port, error) {
	port, err := serial.Open(portName, ircam.SerialMode())
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	return port, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(ctx context.Context, wsURL, username, password string, skipSSLVerify bool) (ircam.Port, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	var headers http.Header
	if username != "" && password != "" {
		headers = http.Header{"Authorization": {"Basic " + basicAuth(username, password)}}
	}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	switch {
	case err == nil:
	case resp != nil:
		return nil, fmt.Errorf("bridge refused connection (HTTP %d): %w", resp.StatusCode, err)
	default:
		return nil, fmt.Errorf("cannot reach bridge: %w", err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("THERMOSCOPE_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Bridge password: ")
	defer fmt.Fprintln(os.Stderr)

	if term.IsTerminal(int(syscall.Stdin)) {
		pw, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// FindUSBPort returns the first USB serial port on the host
func FindUSBPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("cannot list serial ports: %w", err)
	}
	for _, p := range ports {
		if p.IsUSB {
			return p.Name, nil
		}
	}
	return "", ErrNoPort
}

// NewOpener resolves the configured transport into an opener that can be
// called again for reconnection. Credentials and port discovery happen
// once, here.
func NewOpener(c config.Serial) (ircam.Opener, string, error) {
	if c.URL != "" {
		password := ""
		if c.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		open := func(ctx context.Context) (ircam.Port, error) {
			return OpenWebSocketConnection(ctx, c.URL, c.Username, password, c.NoVerify)
		}
		return open, fmt.Sprintf("WebSocket: %s", c.URL), nil
	}

	portName := c.Port
	if portName == "" {
		var err error
		portName, err = FindUSBPort()
		if err != nil {
			return nil, "", err
		}
	}

	open := func(ctx context.Context) (ircam.Port, error) {
		return OpenSerialConnection(portName)
	}
	return open, fmt.Sprintf("Serial: %s @ %d baud", portName, ircam.BaudRate), nil
}
