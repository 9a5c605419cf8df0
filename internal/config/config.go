package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// MinDimension is the smallest accepted image width/height
	MinDimension = 256
	// MaxDimension is the largest accepted image width/height
	MaxDimension = 1536
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Queue    QueueConfig    `yaml:"queue"`
	ComfyUI  ComfyUIConfig  `yaml:"comfyui"`
	TextGen  TextGenConfig  `yaml:"textgen"`
	TTS      TTSConfig      `yaml:"tts"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// QueueConfig holds task queue admission settings
type QueueConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// ComfyUIConfig holds the workflow executor endpoint and workflow templates
type ComfyUIConfig struct {
	Endpoint    string          `yaml:"endpoint"` // host:port, no scheme
	ExecTimeout time.Duration   `yaml:"exec_timeout"`
	Workflows   WorkflowsConfig `yaml:"workflows"`
}

// WorkflowsConfig maps generation kinds to workflow template files
type WorkflowsConfig struct {
	Image         string `yaml:"image"`
	ImageEnhanced string `yaml:"image_enhanced"`
	Voice         string `yaml:"voice"`
	Music         string `yaml:"music"`
}

// TextGenConfig holds the text-completion backend settings
type TextGenConfig struct {
	Endpoint   string        `yaml:"endpoint"` // base URL
	ParamsFile string        `yaml:"params_file"`
	MaxLength  int           `yaml:"max_length"`
	Timeout    time.Duration `yaml:"timeout"`
}

// TTSConfig holds the speech-synthesis backend settings
type TTSConfig struct {
	Endpoint    string        `yaml:"endpoint"` // base URL
	MaleVoice   string        `yaml:"male_voice"`
	FemaleVoice string        `yaml:"female_voice"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RabbitMQConfig holds the indicator event bus configuration
type RabbitMQConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      BusQueueConfig   `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Durable bool   `yaml:"durable"`
}

// BusQueueConfig holds the indicator consumer queue configuration
type BusQueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

// applyDefaults fills in values the file may omit
func (c *Config) applyDefaults() {
	if c.Queue.MaxConcurrent == 0 {
		c.Queue.MaxConcurrent = 1
	}
	if c.ComfyUI.ExecTimeout == 0 {
		c.ComfyUI.ExecTimeout = 10 * time.Minute
	}
	if c.TextGen.MaxLength == 0 {
		c.TextGen.MaxLength = 320
	}
}

// ValidateBotConfig checks the fields the bot service needs
func (c *Config) ValidateBotConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Queue.MaxConcurrent <= 0 {
		return fmt.Errorf("queue max_concurrent must be greater than 0")
	}

	if c.ComfyUI.Endpoint == "" {
		return fmt.Errorf("comfyui endpoint is required")
	}

	if c.ComfyUI.ExecTimeout <= 0 {
		return fmt.Errorf("comfyui exec_timeout must be greater than 0")
	}

	if c.ComfyUI.Workflows.Image == "" {
		return fmt.Errorf("comfyui image workflow template is required")
	}

	if c.RabbitMQ.Enabled {
		if err := c.validateBus(false); err != nil {
			return err
		}
	}

	return nil
}

// ValidateIndicatorConfig checks the fields the indicator service needs
func (c *Config) ValidateIndicatorConfig() error {
	return c.validateBus(true)
}

func (c *Config) validateBus(needQueue bool) error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if needQueue && c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}
