// Package docker runs the object-detection model inside Docker containers.
//
// The model image is pulled and the container pool is warmed lazily, on the
// first Detect call, so a server that never receives an image upload never
// touches the Docker daemon beyond creating a client.
package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/ecocycle/internal/detector"
	"github.com/sakif/ecocycle/internal/model"
)

// Detector implements detector.Detector using a pool of model containers.
type Detector struct {
	cli    client.APIClient
	config Config
	logger *slog.Logger
	pool   *Pool

	mu    sync.Mutex
	ready bool
}

var _ detector.Detector = (*Detector)(nil)

// New creates a Detector talking to the Docker daemon from the environment
// (DOCKER_HOST etc). The daemon is not contacted until the first Detect.
func New(cfg Config, logger *slog.Logger) (*Detector, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return NewWithClient(cli, cfg, logger), nil
}

// NewWithClient creates a Detector over an existing Docker API client.
func NewWithClient(cli client.APIClient, cfg Config, logger *slog.Logger) *Detector {
	return &Detector{
		cli:    cli,
		config: cfg,
		logger: logger,
		pool:   NewPool(cli, cfg, logger),
	}
}

// Close shuts down the pool and the Docker client.
func (d *Detector) Close() error {
	d.mu.Lock()
	started := d.ready
	d.mu.Unlock()

	if started {
		d.pool.Stop()
	}
	return d.cli.Close()
}

// ensureStarted pulls the image and starts the pool once. A failed pull is
// retried on the next call.
func (d *Detector) ensureStarted(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ready {
		return nil
	}

	if !d.config.SkipPull {
		d.logger.Info("pulling detector image", slog.String("image", d.config.Image))
		reader, err := d.cli.ImagePull(ctx, d.config.Image, image.PullOptions{})
		if err != nil {
			return fmt.Errorf("failed to pull image: %w", err)
		}
		// drain to block until the pull completes
		_, err = io.Copy(io.Discard, reader)
		reader.Close()
		if err != nil {
			return fmt.Errorf("failed to pull image: %w", err)
		}
		d.logger.Info("detector image is ready")
	}

	d.pool.Start()
	d.ready = true
	return nil
}

// Detect runs the model on one encoded image.
func (d *Detector) Detect(ctx context.Context, img []byte) ([]model.Detection, error) {
	if err := d.ensureStarted(ctx); err != nil {
		return nil, err
	}

	start := time.Now()

	detectCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	containerID, err := d.pool.GetContainer(detectCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container from pool: %w", err)
	}
	defer d.pool.removeContainer(containerID)

	execResp, err := d.cli.ContainerExecCreate(detectCtx, containerID, container.ExecOptions{
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          d.config.Command,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := d.cli.ContainerExecAttach(detectCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		done <- err
	}()

	if _, err := attachResp.Conn.Write(img); err != nil {
		return nil, fmt.Errorf("failed to send image: %w", err)
	}
	if err := attachResp.CloseWrite(); err != nil {
		return nil, fmt.Errorf("failed to close stdin: %w", err)
	}

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("failed to read detector output: %w", err)
		}
	case <-detectCtx.Done():
		return nil, fmt.Errorf("detection timed out after %s: %w", d.config.Timeout, detectCtx.Err())
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect exec: %w", err)
	}
	if inspect.ExitCode != 0 {
		return nil, fmt.Errorf("detector exited with code %d: %s", inspect.ExitCode, strings.TrimSpace(stderr.String()))
	}

	detections, err := parseDetections(stdout.Bytes())
	if err != nil {
		return nil, err
	}

	d.logger.Debug("detection finished",
		slog.Int("detections", len(detections)),
		slog.Duration("duration", time.Since(start)),
	)
	return detections, nil
}

// parseDetections decodes the model output. Some model wrappers print log
// lines before the JSON, so only the last non-empty line is parsed.
func parseDetections(out []byte) ([]model.Detection, error) {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return nil, nil
	}

	var detections []model.Detection
	if err := json.Unmarshal([]byte(last), &detections); err != nil {
		return nil, fmt.Errorf("failed to decode detector output: %w", err)
	}
	return detections, nil
}
