// Package client talks to a running dcocal daemon over its unix socket.
package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
)

// Client is an HTTP client bound to the daemon's unix socket.
type Client struct {
	socketPath string
	httpClient *http.Client
}

// NewClient returns a client for the daemon at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
					conn, err := net.Dial("unix", socketPath)
					if err != nil {
						if os.IsNotExist(err) {
							return nil, ErrDaemonNotRunning
						}
						if os.IsPermission(err) {
							return nil, ErrPermissionDenied
						}
						logrus.Errorf("failed to connect to unix socket: %v", err)
						return nil, err
					}
					return conn, nil
				},
			},
		},
	}
}

// Get performs a GET against the daemon and returns the response body.
func (c *Client) Get(path string) (string, error) {
	logrus.WithFields(logrus.Fields{
		"path": path,
		"unix": c.socketPath,
	}).Debug("sending request")

	resp, err := c.httpClient.Get("http://unix" + path)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNotFound
	case resp.StatusCode >= http.StatusBadRequest:
		return "", fmt.Errorf("daemon returned %s: %s", resp.Status, string(body))
	}

	return string(body), nil
}
