package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Image     ImageConfig     `yaml:"image"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Storage   StorageConfig   `yaml:"storage"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Data      DataConfig      `yaml:"data"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

type DatabaseConfig struct {
	Type string `yaml:"type"` // sqlite, mysql
	DSN  string `yaml:"dsn"`
}

type LLMConfig struct {
	APIURL      string  `yaml:"api_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// ImageConfig 图像生成服务配置
type ImageConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// StageConfig 单个阶段的模型调用参数
type StageConfig struct {
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// PipelineConfig 配置生成流水线参数
type PipelineConfig struct {
	MaxIterations  int                    `yaml:"max_iterations"`
	EnableImage    bool                   `yaml:"enable_image"`
	MaxAttempts    int                    `yaml:"max_attempts"` // 单次模型调用的总尝试次数
	RetryBaseDelay time.Duration          `yaml:"retry_base_delay"`
	MaxConcurrent  int                    `yaml:"max_concurrent"` // 同时运行的异步任务数
	StuckTimeout   time.Duration          `yaml:"stuck_timeout"`
	Stages         map[string]StageConfig `yaml:"stages"`
}

// StorageConfig 生成图片的对象存储配置
type StorageConfig struct {
	Type          string `yaml:"type"` // local, nats
	Dir           string `yaml:"dir"`
	NATSURL       string `yaml:"nats_url"`
	Bucket        string `yaml:"bucket"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// KnowledgeConfig 知识库配置
type KnowledgeConfig struct {
	SeedFile     string `yaml:"seed_file"`
	SeedOnStart  bool   `yaml:"seed_on_start"`
	DefaultLimit int    `yaml:"default_limit"`
}

type DataConfig struct {
	Dir string `yaml:"dir"`
}

var (
	cfg  *Config
	once sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		cfg = loadConfig()
	})
	return cfg
}

// Default 返回未读取文件与环境变量的默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			DSN:  "./data/app.db",
		},
		LLM: LLMConfig{
			APIURL:      "https://api.openai.com/v1",
			Model:       "gpt-4o",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Image: ImageConfig{
			Model:   "gemini-2.0-flash-preview-image-generation",
			Timeout: 120 * time.Second,
		},
		Pipeline: PipelineConfig{
			MaxIterations:  3,
			EnableImage:    true,
			MaxAttempts:    3,
			RetryBaseDelay: 2 * time.Second,
			MaxConcurrent:  4,
			StuckTimeout:   30 * time.Minute,
			Stages: map[string]StageConfig{
				"planner":          {Temperature: 0.7, MaxTokens: 2048, Timeout: 60 * time.Second},
				"config_generator": {Temperature: 0.7, MaxTokens: 4096, Timeout: 120 * time.Second},
				"reviewer":         {Temperature: 0.3, MaxTokens: 2048, Timeout: 60 * time.Second},
				"optimizer":        {Temperature: 0.5, MaxTokens: 4096, Timeout: 120 * time.Second},
			},
		},
		Storage: StorageConfig{
			Type:          "local",
			Dir:           "./data/objects",
			Bucket:        "generated-images",
			PublicBaseURL: "/static",
		},
		Knowledge: KnowledgeConfig{
			SeedOnStart:  true,
			DefaultLimit: 10,
		},
		Data: DataConfig{
			Dir: "./data",
		},
	}
}

func loadConfig() *Config {
	// .env 仅用于本地开发，文件不存在时忽略
	_ = godotenv.Load()

	config := Default()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		yaml.Unmarshal(data, config)
	}

	// 环境变量优先级高于配置文件
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.APIURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL_NAME"); model != "" {
		config.LLM.Model = model
	}
	if apiKey := os.Getenv("IMAGE_API_KEY"); apiKey != "" {
		config.Image.APIKey = apiKey
	}
	if model := os.Getenv("IMAGE_MODEL_NAME"); model != "" {
		config.Image.Model = model
	}

	// 数据库环境变量
	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if dbDSN := os.Getenv("DB_DSN"); dbDSN != "" {
		config.Database.DSN = dbDSN
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		config.Data.Dir = dataDir
		config.Storage.Dir = filepath.Join(dataDir, "objects")
	}

	// 存储环境变量
	if storageType := os.Getenv("STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.Storage.NATSURL = natsURL
	}

	// 流水线环境变量
	if v := os.Getenv("PIPELINE_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Pipeline.MaxIterations = n
		}
	}
	if v := os.Getenv("PIPELINE_ENABLE_IMAGE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Pipeline.EnableImage = b
		}
	}

	if v := os.Getenv("PIPELINE_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Pipeline.MaxConcurrent = n
		}
	}

	if config.Storage.Dir == "" {
		config.Storage.Dir = filepath.Join(config.Data.Dir, "objects")
	}

	return config
}

// Stage 返回指定阶段的调用参数，未配置的字段使用 LLM 全局配置
func (c *Config) Stage(name string) StageConfig {
	sc := c.Pipeline.Stages[name]
	if sc.Temperature <= 0 {
		sc.Temperature = c.LLM.Temperature
	}
	if sc.MaxTokens <= 0 {
		sc.MaxTokens = c.LLM.MaxTokens
	}
	if sc.Timeout <= 0 {
		sc.Timeout = 60 * time.Second
	}
	return sc
}
