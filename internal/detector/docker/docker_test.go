package docker

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/ecocycle/internal/model"
)

func TestParseDetections(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    []model.Detection
		wantErr bool
	}{
		{
			name: "plain json",
			out:  `[{"class":"cell phone","score":0.92},{"class":"person","score":0.8}]`,
			want: []model.Detection{{Class: "cell phone", Score: 0.92}, {Class: "person", Score: 0.8}},
		},
		{
			name: "log lines before json",
			out:  "loading model...\nmodel loaded\n[{\"class\":\"laptop\",\"score\":0.7}]\n",
			want: []model.Detection{{Class: "laptop", Score: 0.7}},
		},
		{
			name: "empty output",
			out:  "",
			want: nil,
		},
		{
			name: "empty array",
			out:  "[]",
			want: []model.Detection{},
		},
		{
			name:    "garbage",
			out:     "Traceback (most recent call last):",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDetections([]byte(tt.out))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestDockerDetector needs a Docker daemon and the detector image. It is
// opt-in through ECOCYCLE_DOCKER_TESTS and a sample image path.
func TestDockerDetector(t *testing.T) {
	sample := os.Getenv("ECOCYCLE_DOCKER_TESTS")
	if sample == "" {
		t.Skip("set ECOCYCLE_DOCKER_TESTS to a sample JPEG to run docker tests")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := DefaultConfig()
	cfg.PoolSize = 1
	cfg.Timeout = 60 * time.Second

	det, err := New(cfg, logger)
	require.NoError(t, err)
	defer det.Close()

	img, err := os.ReadFile(sample)
	require.NoError(t, err)

	detections, err := det.Detect(context.Background(), img)
	require.NoError(t, err)
	for _, d := range detections {
		assert.NotEmpty(t, d.Class)
		assert.GreaterOrEqual(t, d.Score, 0.0)
		assert.LessOrEqual(t, d.Score, 1.0)
	}
}
