package aptly

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/slok/tierd/internal/conventions"
	"github.com/slok/tierd/internal/log"
)

// S3Endpoint is the S3 storage the distributions are published to.
type S3Endpoint struct {
	Region          string `json:"region" yaml:"region"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	Bucket          string `json:"bucket" yaml:"bucket"`
	Prefix          string `json:"prefix" yaml:"prefix"`
	AccessKeyID     string `json:"awsAccessKeyID,omitempty" yaml:"access_key_id"`
	SecretAccessKey string `json:"awsSecretAccessKey,omitempty" yaml:"secret_access_key"`
}

// Configured returns true when the S3 endpoint is set, otherwise the
// distributions are published on the local filesystem.
func (e S3Endpoint) Configured() bool { return e.Bucket != "" }

// ServerConfig is the configuration for the aptly API server process.
type ServerConfig struct {
	// Binary is the aptly binary path, looked up on PATH by default.
	Binary string
	// RootDir is the aptly root directory (database and package pool).
	RootDir string
	// ConfigPath is where the generated aptly configuration is written.
	ConfigPath string
	// Listen is the API listen address.
	Listen string
	// PublishEndpoint is the publish endpoint name, must match the client one.
	PublishEndpoint string
	// S3 is the publish endpoint when configured, otherwise PublicDir is.
	S3 S3Endpoint
	// PublicDir is the filesystem publish directory, `<root>/public` by default.
	PublicDir    string
	Debug        bool
	ReadyTimeout time.Duration
	// Client is used for the readiness check. By default one on the listen address is created.
	Client *Client
	Logger log.Logger
}

func (c *ServerConfig) defaults() error {
	if c.RootDir == "" {
		return fmt.Errorf("root dir is required")
	}

	if c.Binary == "" {
		c.Binary = "aptly"
	}

	if c.ConfigPath == "" {
		c.ConfigPath = filepath.Join(c.RootDir, conventions.AptlyConfigFile)
	}

	if c.Listen == "" {
		c.Listen = fmt.Sprintf("127.0.0.1:%d", conventions.AptlyDefaultPort)
	}

	if c.PublishEndpoint == "" {
		c.PublishEndpoint = DefaultPublishEndpoint
	}

	if c.PublicDir == "" {
		c.PublicDir = filepath.Join(c.RootDir, "public")
	}

	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = 10 * time.Second
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "aptly.Server"})

	if c.Client == nil {
		cli, err := NewClient(ClientConfig{URL: "http://" + c.Listen, Logger: c.Logger})
		if err != nil {
			return fmt.Errorf("could not create client: %w", err)
		}
		c.Client = cli
	}

	return nil
}

// Server manages the `aptly api serve` subprocess.
type Server struct {
	cfg    ServerConfig
	logger log.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	outputs sync.WaitGroup
	exited  chan struct{}
	waitErr error
}

// NewServer returns a new aptly server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Server{cfg: cfg, logger: cfg.Logger}, nil
}

// Start writes the aptly configuration, spawns the API server and waits until it's ready.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return fmt.Errorf("aptly server already started")
	}

	if err := s.writeConfig(); err != nil {
		return err
	}

	cmd := exec.Command(s.cfg.Binary, "-config="+s.cfg.ConfigPath, "api", "serve", "-listen="+s.cfg.Listen)
	cmd.Env = []string{"PATH=" + os.Getenv("PATH"), "HOME=" + os.Getenv("HOME")}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("could not get stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("could not get stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start aptly: %w", err)
	}
	s.cmd = cmd
	s.exited = make(chan struct{})

	s.outputs.Add(2)
	go func() {
		defer s.outputs.Done()
		forwardOutput(stdout, func(line string) { s.logger.Infof("[APTLY] %s", line) })
	}()
	// Aptly logs debug messages to stderr.
	go func() {
		defer s.outputs.Done()
		forwardOutput(stderr, func(line string) {
			if strings.Contains(line, "DBG") {
				s.logger.Debugf("[APTLY] %s", line)
				return
			}
			s.logger.Errorf("[APTLY] %s", line)
		})
	}()

	go func() {
		s.outputs.Wait()
		s.waitErr = cmd.Wait()
		close(s.exited)
	}()

	s.logger.Debugf("Spawned aptly process: PID=%d, listen=%s", cmd.Process.Pid, s.cfg.Listen)

	readyCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.exited:
			cancel()
		case <-readyCtx.Done():
		}
	}()

	if err := s.cfg.Client.WaitReady(readyCtx, s.cfg.ReadyTimeout); err != nil {
		_ = cmd.Process.Kill()
		<-s.exited
		return fmt.Errorf("aptly API not ready: %w", err)
	}
	s.logger.Infof("Aptly API server listening on %s", s.cfg.Listen)

	return nil
}

// Wait blocks until the aptly process exits.
func (s *Server) Wait() error {
	s.mu.Lock()
	exited := s.exited
	s.mu.Unlock()

	if exited == nil {
		return fmt.Errorf("aptly server not started")
	}
	<-exited

	return s.waitErr
}

// Stop terminates the aptly process and waits for it.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	cmd, exited := s.cmd, s.exited
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}

	select {
	case <-exited:
		return nil
	default:
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		s.logger.Warningf("Could not send SIGTERM to aptly: %s", err)
	}

	select {
	case <-exited:
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-exited
	}
	s.logger.Infof("Aptly process stopped")

	return nil
}

type aptlyConfig struct {
	RootDir                    string                `json:"rootDir"`
	LogLevel                   string                `json:"logLevel"`
	GPGProvider                string                `json:"gpgProvider"`
	S3PublishEndpoints         map[string]S3Endpoint `json:"S3PublishEndpoints"`
	FileSystemPublishEndpoints map[string]fsEndpoint `json:"FileSystemPublishEndpoints"`
	SwiftPublishEndpoints      map[string]any        `json:"SwiftPublishEndpoints"`
	AzurePublishEndpoints      map[string]any        `json:"AzurePublishEndpoints"`
	PackagePoolStorage         map[string]any        `json:"packagePoolStorage"`
}

type fsEndpoint struct {
	RootDir    string `json:"rootDir"`
	LinkMethod string `json:"linkMethod"`
}

func (s *Server) writeConfig() error {
	level := "info"
	if s.cfg.Debug {
		level = "debug"
	}

	cfg := aptlyConfig{
		RootDir:                    filepath.Join(s.cfg.RootDir, "data"),
		LogLevel:                   level,
		GPGProvider:                "internal",
		S3PublishEndpoints:         map[string]S3Endpoint{},
		FileSystemPublishEndpoints: map[string]fsEndpoint{},
		PackagePoolStorage:         map[string]any{},
	}
	if s.cfg.S3.Configured() {
		cfg.S3PublishEndpoints[s.cfg.PublishEndpoint] = s.cfg.S3
	} else {
		cfg.FileSystemPublishEndpoints[s.cfg.PublishEndpoint] = fsEndpoint{RootDir: s.cfg.PublicDir, LinkMethod: "copy"}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal aptly config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.cfg.ConfigPath), 0755); err != nil {
		return fmt.Errorf("could not create aptly config directory: %w", err)
	}
	if err := os.MkdirAll(cfg.RootDir, 0755); err != nil {
		return fmt.Errorf("could not create aptly root directory: %w", err)
	}
	if err := os.WriteFile(s.cfg.ConfigPath, data, 0600); err != nil {
		return fmt.Errorf("could not write aptly config: %w", err)
	}

	return nil
}

// forwardOutput sends every line of the reader to the log function, the gin access logs are skipped.
func forwardOutput(r io.Reader, logFn func(line string)) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "[GIN]") {
			continue
		}
		logFn(line)
	}
}
