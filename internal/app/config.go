package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/batchgrid/internal/dispatcher"
	"github.com/vk/batchgrid/internal/message"
)

// Execution modes for the master.
const (
	ModeInProcess = "in-process"
	ModeSpawned   = "spawned"
)

// Process roles.
const (
	RoleMaster = "master"
	RoleWorker = "worker"
)

const (
	DefaultWorkers        = 2
	DefaultConnectTimeout = 30 * time.Second
	DefaultListenAddr     = "127.0.0.1:0"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PackageDir     string // directory searched for the definition
	DefinitionFile string

	Template bool
	Complex  bool

	InputPath  string // "" or "-" is stdin
	OutputPath string // "" or "-" is stdout

	RunTimeout time.Duration
	BlockSize  int
	Workers    int
	Mode       string
	Verbose    bool
	Warnings   bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	ConnectTimeout time.Duration
	ListenAddr     string

	// Worker role only.
	Role      string
	Rank      int
	MasterURL string
	Token     string
	RunID     string
}

// NewConfig fills in defaults and validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.DefinitionFile == "" {
		return nil, errors.New("a simulation definition file is required")
	}
	if cfg.Workers < 1 {
		return nil, dispatcher.ErrNoWorkers
	}
	if cfg.BlockSize == 0 {
		cfg.BlockSize = dispatcher.DefaultBlockSize
	}
	if cfg.BlockSize < 1 {
		return nil, fmt.Errorf("block size must be positive, got %d", cfg.BlockSize)
	}
	if cfg.RunTimeout < 0 {
		return nil, fmt.Errorf("simulation timeout must not be negative, got %s", cfg.RunTimeout)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	switch cfg.Mode {
	case "":
		cfg.Mode = ModeInProcess
	case ModeInProcess, ModeSpawned:
	default:
		return nil, fmt.Errorf("unknown mode %q: must be %q or %q", cfg.Mode, ModeInProcess, ModeSpawned)
	}

	switch cfg.Role {
	case "":
		cfg.Role = RoleMaster
	case RoleMaster:
	case RoleWorker:
		if cfg.Rank <= message.MasterRank || cfg.Rank > cfg.Workers {
			return nil, fmt.Errorf("worker rank %d outside [1,%d]", cfg.Rank, cfg.Workers)
		}
		if cfg.MasterURL == "" || cfg.Token == "" {
			return nil, errors.New("the worker role needs a master URL and a token")
		}
	default:
		return nil, fmt.Errorf("unknown role %q", cfg.Role)
	}

	return &cfg, nil
}
