package docker

import (
	"time"
)

// Config holds the configuration for the containerised detection model.
type Config struct {
	// Image is the Docker image bundling the model and its runtime.
	Image string `mapstructure:"image"`
	// Command runs one detection. It reads an encoded image on stdin and
	// writes a JSON array of {"class","score"} objects to stdout.
	Command []string `mapstructure:"command"`
	// MemoryLimit is the maximum amount of memory a container can use (in bytes).
	MemoryLimit int64 `mapstructure:"memory_limit"`
	// CPULimit is the number of CPUs a container can use.
	CPULimit float64 `mapstructure:"cpu_limit"`
	// Timeout bounds a single detection.
	Timeout time.Duration `mapstructure:"timeout"`
	// PoolSize is the number of pre-warmed containers to maintain.
	PoolSize int `mapstructure:"pool_size"`
	// SkipPull uses a locally built image without contacting a registry.
	SkipPull bool `mapstructure:"skip_pull"`
}

// DefaultConfig provides defaults for a COCO-SSD style detector image.
func DefaultConfig() Config {
	return Config{
		Image:   "ghcr.io/sakif/ecocycle-detector:latest",
		Command: []string{"python", "/app/detect.py"},
		// models are heavier than a sandbox; 512 MB
		MemoryLimit: 512 * 1024 * 1024,
		CPULimit:    1,
		Timeout:     10 * time.Second,
		PoolSize:    2,
	}
}
