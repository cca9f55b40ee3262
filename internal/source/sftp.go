package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"strconv"

	"github.com/Guizzs26/go-sync-hr/internal/config"
	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPSource reads extracts from the HR provider's SFTP drop. Each call opens
// its own session; runs are infrequent and the server drops idle links.
type SFTPSource struct {
	cfg    config.SFTPConfig
	logger *slog.Logger
}

func NewSFTPSource(cfg config.SFTPConfig, l *slog.Logger) *SFTPSource {
	return &SFTPSource{cfg: cfg, logger: l}
}

func (s *SFTPSource) ListFiles(ctx context.Context) ([]models.RemoteFile, error) {
	var files []models.RemoteFile
	err := s.withClient(ctx, func(c *sftp.Client) error {
		entries, err := c.ReadDir(s.cfg.Dir)
		if err != nil {
			return fmt.Errorf("read dir %q: %w", s.cfg.Dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			files = append(files, models.RemoteFile{
				Name:         e.Name(),
				Size:         e.Size(),
				LastModified: e.ModTime(),
			})
		}
		return nil
	})
	return files, err
}

func (s *SFTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.withClient(ctx, func(c *sftp.Client) error {
		f, err := c.Open(path.Join(s.cfg.Dir, path.Base(name)))
		if err != nil {
			return fmt.Errorf("open %q: %w", name, err)
		}
		defer f.Close()

		data, err = io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		return nil
	})
	return data, err
}

func (s *SFTPSource) withClient(ctx context.Context, fn func(*sftp.Client) error) error {
	sshCfg, err := s.clientConfig()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to reach sftp server %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake failed: %w", err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)
	defer sshClient.Close()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("failed to start sftp subsystem: %w", err)
	}
	defer client.Close()

	// Unblock in-flight reads when the run is cancelled.
	stop := context.AfterFunc(ctx, func() { sshClient.Close() })
	defer stop()

	s.logger.Debug("SFTP session opened", "addr", addr, "dir", s.cfg.Dir)
	return fn(client)
}

func (s *SFTPSource) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if s.cfg.KeyFile != "" {
		keyBytes, err := os.ReadFile(s.cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read sftp key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse sftp key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if s.cfg.Password != "" {
		auth = append(auth, ssh.Password(s.cfg.Password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("sftp credentials missing: set SFTP_PASSWORD or SFTP_KEY_FILE")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if s.cfg.HostKey != "" {
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(s.cfg.HostKey))
		if err != nil {
			return nil, fmt.Errorf("parse SFTP_HOST_KEY: %w", err)
		}
		hostKeyCallback = ssh.FixedHostKey(pub)
	} else {
		s.logger.Warn("SFTP host key verification disabled", "host", s.cfg.Host)
	}

	return &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         s.cfg.Timeout,
	}, nil
}
