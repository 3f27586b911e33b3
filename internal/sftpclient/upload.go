// Package sftpclient uploads files over SFTP with password authentication.
package sftpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// ErrMissingCredentials is returned when host, user or password is empty.
var ErrMissingCredentials = errors.New("sftp: host, user and password are required")

const dialTimeout = 20 * time.Second

// Config addresses the remote server. HostKey is an authorized_keys line;
// when empty the server key is not checked.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	RemoteDir string
	HostKey   string
}

// Upload copies localPath to RemoteDir/remoteName, creating RemoteDir if
// needed. It returns the remote path.
func Upload(ctx context.Context, cfg Config, localPath, remoteName string) (string, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Password == "" {
		return "", ErrMissingCredentials
	}
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = "."
	}

	hostKey, err := hostKeyCallback(cfg.HostKey)
	if err != nil {
		return "", err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("sftp: open local file: %w", err)
	}
	defer src.Close()

	client, err := dial(ctx, cfg, hostKey)
	if err != nil {
		return "", err
	}
	defer client.Close()

	sftpCli, err := sftp.NewClient(client)
	if err != nil {
		return "", fmt.Errorf("sftp: new client: %w", err)
	}
	defer sftpCli.Close()

	if err := sftpCli.MkdirAll(cfg.RemoteDir); err != nil {
		return "", fmt.Errorf("sftp: mkdir %s: %w", cfg.RemoteDir, err)
	}

	remotePath := path.Join(cfg.RemoteDir, remoteName)
	dst, err := sftpCli.Create(remotePath)
	if err != nil {
		return "", fmt.Errorf("sftp: create remote file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("sftp: upload copy: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("sftp: close remote file: %w", err)
	}
	return remotePath, nil
}

func hostKeyCallback(line string) (ssh.HostKeyCallback, error) {
	if line == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return nil, fmt.Errorf("sftp: parse host key: %w", err)
	}
	return ssh.FixedHostKey(key), nil
}

func dial(ctx context.Context, cfg Config, hostKey ssh.HostKeyCallback) (*ssh.Client, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("sftp: dial error: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: hostKey,
		Timeout:         dialTimeout,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sftp: handshake: %w", err)
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}
