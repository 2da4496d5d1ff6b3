package wazero

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/tetratelabs/wazero/api"
)

// Backend is the label this package reports in errors and metrics.
const Backend = "wazero"

const (
	// DefaultHostModuleName is the import module the engine links against.
	DefaultHostModuleName = "counter_host"

	// DefaultEngineModuleName is the instance name of the engine module.
	DefaultEngineModuleName = "counter_engine"

	// DefaultMaxLogMessageSize caps a single log record read from the engine.
	DefaultMaxLogMessageSize = 64 * 1024
)

var validate = validator.New()

// Config holds configuration for an Engine.
type Config struct {
	Logger *slog.Logger `validate:"required"`

	// HostModuleName is the host module name (default: "counter_host").
	HostModuleName string `validate:"required"`

	// EngineModuleName names the engine instance (default: "counter_engine").
	EngineModuleName string `validate:"required"`

	// EnginePath is a file holding the engine module. Ignored when
	// EngineWasm is set.
	EnginePath string `validate:"required_without=EngineWasm"`

	// CompilationCacheDir enables wazero's on-disk compilation cache.
	CompilationCacheDir string

	// EngineWasm is the engine module itself.
	EngineWasm []byte `validate:"required_without=EnginePath"`

	// CustomHandlers are additional functions exported by the host module.
	CustomHandlers []CustomHandler `validate:"dive"`

	// MaxLogMessageSize limits a log record read from engine memory.
	MaxLogMessageSize uint32 `validate:"min=1"`
}

// CustomHandler is an extra host function exported to the engine.
type CustomHandler struct {
	// Handler is the wazero GoModuleFunc implementation.
	Handler api.GoModuleFunc `validate:"required"`

	// Name is the exported function name.
	Name string `validate:"required"`

	// ParamTypes are the WASM parameter types.
	ParamTypes []api.ValueType

	// ResultTypes are the WASM result types.
	ResultTypes []api.ValueType
}

// Option configures an Engine.
type Option func(*Config)

// WithHostModuleName sets the host module name (default: "counter_host").
func WithHostModuleName(name string) Option {
	return func(c *Config) {
		c.HostModuleName = name
	}
}

// WithEngineModuleName sets the engine instance name.
func WithEngineModuleName(name string) Option {
	return func(c *Config) {
		c.EngineModuleName = name
	}
}

// WithEnginePath loads the engine module from path.
func WithEnginePath(path string) Option {
	return func(c *Config) {
		c.EnginePath = path
	}
}

// WithEngineWasm uses wasm as the engine module.
func WithEngineWasm(wasm []byte) Option {
	return func(c *Config) {
		c.EngineWasm = wasm
	}
}

// WithCompilationCacheDir caches compiled engine code under dir.
func WithCompilationCacheDir(dir string) Option {
	return func(c *Config) {
		c.CompilationCacheDir = dir
	}
}

// WithMaxLogMessageSize sets the maximum size of a log record from the engine.
func WithMaxLogMessageSize(size uint32) Option {
	return func(c *Config) {
		c.MaxLogMessageSize = size
	}
}

// WithLogger sets the host logger. Engine log records are re-emitted here.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithCustomHandler adds a function to the host module.
func WithCustomHandler(h CustomHandler) Option {
	return func(c *Config) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

// defaultConfig returns the default engine configuration.
func defaultConfig() Config {
	return Config{
		Logger:            slog.Default(),
		HostModuleName:    DefaultHostModuleName,
		EngineModuleName:  DefaultEngineModuleName,
		MaxLogMessageSize: DefaultMaxLogMessageSize,
	}
}
