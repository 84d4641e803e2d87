package detector

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sakif/ecocycle/internal/model"
)

// FrameSource yields encoded frames, e.g. from a camera or a directory.
type FrameSource interface {
	Frame(ctx context.Context) ([]byte, error)
}

// ErrNoFrame is returned by a FrameSource that has nothing to offer yet.
// The loop treats it as a skipped tick rather than a failure.
var ErrNoFrame = errors.New("detector: no frame available")

// Loop samples frames at a fixed interval and runs detection on each one.
//
// RE-ENTRANCY:
// A detection can take longer than the interval. When a tick fires while the
// previous detection is still running, that tick is dropped, not queued.
// A single atomic flag guards this, so there is never more than one
// detection in flight and no backlog builds up.
type Loop struct {
	det      Detector
	src      FrameSource
	interval time.Duration
	logger   *slog.Logger
	onResult func(model.Detection)

	busy    atomic.Bool
	skipped atomic.Int64
	wg      sync.WaitGroup
}

// NewLoop creates a Loop. onResult is called from the detection goroutine
// with the best relevant detection of each frame that has one.
func NewLoop(det Detector, src FrameSource, interval time.Duration, logger *slog.Logger, onResult func(model.Detection)) *Loop {
	return &Loop{
		det:      det,
		src:      src,
		interval: interval,
		logger:   logger,
		onResult: onResult,
	}
}

// Run ticks until ctx is cancelled, then waits for any in-flight detection
// to return before returning ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("detection loop started", slog.Duration("interval", l.interval))
	defer l.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("detection loop stopped", slog.Int64("skipped", l.skipped.Load()))
			return ctx.Err()
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// Skipped returns how many ticks were dropped because a detection was
// still running.
func (l *Loop) Skipped() int64 {
	return l.skipped.Load()
}

// tick starts one detection unless another is in flight. It reports
// whether a detection was started.
func (l *Loop) tick(ctx context.Context) bool {
	if !l.busy.CompareAndSwap(false, true) {
		l.skipped.Add(1)
		return false
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.busy.Store(false)
		l.detectOnce(ctx)
	}()
	return true
}

func (l *Loop) detectOnce(ctx context.Context) {
	frame, err := l.src.Frame(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoFrame) && ctx.Err() == nil {
			l.logger.Warn("failed to read frame", slog.String("error", err.Error()))
		}
		return
	}

	detections, err := l.det.Detect(ctx, frame)
	if err != nil {
		// detection errors degrade to "nothing seen"
		if ctx.Err() == nil {
			l.logger.Warn("detection failed", slog.String("error", err.Error()))
		}
		return
	}

	if best, ok := Best(detections); ok && l.onResult != nil {
		l.onResult(best)
	}
}

// DirSource cycles through the image files of a directory in name order.
// It stands in for a camera when running the loop from the CLI.
type DirSource struct {
	mu    sync.Mutex
	files []string
	next  int
}

// NewDirSource lists .jpg, .jpeg and .png files under dir.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return &DirSource{files: files}, nil
}

func (s *DirSource) Frame(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if len(s.files) == 0 {
		s.mu.Unlock()
		return nil, ErrNoFrame
	}
	path := s.files[s.next%len(s.files)]
	s.next++
	s.mu.Unlock()

	return os.ReadFile(path)
}
