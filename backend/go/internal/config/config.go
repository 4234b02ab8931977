package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了 HTTP/WebSocket 服务的监听与跨域配置。
type ServerConfig struct {
	Address         string   `yaml:"address"`         // 监听地址 (例如: ":5000")
	AllowedOrigins  []string `yaml:"allowedOrigins"`  // 允许跨域的来源，包含 "*" 时放行所有来源
	WriteTimeout    string   `yaml:"writeTimeout"`    // 单帧 WebSocket 写超时 (例如: "10s")
	ShutdownTimeout string   `yaml:"shutdownTimeout"` // 优雅退出的最长等待时间
}

// AuthConfig 用于配置可选的 JWT 认证。JwtSecret 为空时不启用认证。
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // JWT 密钥
}

// AgentTimings 定义了每种 Agent 的模拟执行时长。
type AgentTimings struct {
	Planner    string `yaml:"planner"`
	Researcher string `yaml:"researcher"`
	Analyst    string `yaml:"analyst"`
	Writer     string `yaml:"writer"`
	Visualizer string `yaml:"visualizer"`
}

// SimulationConfig 定义了任务生命周期中各个模拟环节的时长。
type SimulationConfig struct {
	PlanningDelay    string       `yaml:"planningDelay"`    // 规划阶段的固定延迟
	AggregationDelay string       `yaml:"aggregationDelay"` // 汇总阶段的固定延迟
	ProgressInterval string       `yaml:"progressInterval"` // Agent 进度事件的间隔
	AgentDurations   AgentTimings `yaml:"agentDurations"`   // 每种 Agent 的执行时长
	SubmitRate       float64      `yaml:"submitRate"`       // 每个连接每秒允许提交的任务数
	SubmitBurst      int          `yaml:"submitBurst"`      // 每个连接的提交突发上限
}

// KafkaConfig 定义了 Kafka 事件镜像的连接配置。
type KafkaConfig struct {
	Enabled    bool     `yaml:"enabled"`    // 是否将任务事件镜像到 Kafka
	Brokers    []string `yaml:"brokers"`    // Kafka Broker 地址列表
	Topic      string   `yaml:"topic"`      // 任务事件主题
	QueueSize  int      `yaml:"queueSize"`  // 待发送事件的缓冲队列长度
	WriteLimit string   `yaml:"writeLimit"` // 单条事件写入的超时
}

// DatabaseConfigs 包含所有外部存储/消息系统的配置。
type DatabaseConfigs struct {
	Kafka KafkaConfig `yaml:"kafka"` // Kafka 消息队列配置
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了 HTTP 接口限流器的配置。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "fixedWindow", "tokenBucket"
	FixedWindow FixedWindowConfig `yaml:"fixedWindow"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// FixedWindowConfig 定义了固定窗口计数器算法的配置。
type FixedWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Server     ServerConfig     `yaml:"server"`     // 服务监听配置
	Auth       AuthConfig       `yaml:"auth"`       // 认证配置
	Simulation SimulationConfig `yaml:"simulation"` // 模拟时长配置
	Databases  DatabaseConfigs  `yaml:"databases"`  // 外部系统配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// Default 返回一份可以直接运行的配置，时长与演示程序保持一致。
func Default() *AppConfig {
	return &AppConfig{
		App: AppInfo{
			Name:        "agentdeck",
			Version:     "0.1.0",
			Environment: "development",
		},
		Logger: LoggerConfig{Level: "info"},
		Server: ServerConfig{
			Address:         ":5000",
			AllowedOrigins:  []string{"http://localhost:3000"},
			WriteTimeout:    "10s",
			ShutdownTimeout: "5s",
		},
		Simulation: SimulationConfig{
			PlanningDelay:    "1500ms",
			AggregationDelay: "1s",
			ProgressInterval: "500ms",
			AgentDurations: AgentTimings{
				Planner:    "2s",
				Researcher: "4s",
				Analyst:    "3s",
				Writer:     "2500ms",
				Visualizer: "3500ms",
			},
			SubmitRate:  1,
			SubmitBurst: 3,
		},
		Databases: DatabaseConfigs{
			Kafka: KafkaConfig{
				Enabled:    false,
				Brokers:    []string{"localhost:9092"},
				Topic:      "agentdeck_task_events",
				QueueSize:  256,
				WriteLimit: "2s",
			},
		},
		Middleware: MiddlewareConfig{
			RateLimiter: RateLimiterConfig{
				Enabled:     false,
				Algorithm:   "tokenBucket",
				TokenBucket: TokenBucketConfig{Rate: 20, Capacity: 40},
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          false,
				FailureThreshold: 5,
				SuccessThreshold: 2,
				Timeout:          "30s",
			},
		},
	}
}

// LoadConfig 函数从指定路径加载 YAML 配置文件，并覆盖在默认配置之上。
// path 为空时直接返回默认配置。环境变量 PORT 会覆盖监听端口。
func LoadConfig(path string) (*AppConfig, error) {
	cfg := Default()
	if path != "" {
		// 读取 YAML 文件内容。
		yamlFile, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
		}
		// 将 YAML 内容解析到默认配置之上，未出现的字段保留默认值。
		if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
			return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
		}
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return nil, fmt.Errorf("环境变量 PORT 无效 '%s': %w", port, err)
		}
		cfg.Server.Address = ":" + port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查所有时长字段是否可以解析，以及必要字段是否存在。
func (c *AppConfig) Validate() error {
	var errs []error
	check := func(name, value string) {
		if _, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	check("server.writeTimeout", c.Server.WriteTimeout)
	check("server.shutdownTimeout", c.Server.ShutdownTimeout)
	check("simulation.planningDelay", c.Simulation.PlanningDelay)
	check("simulation.aggregationDelay", c.Simulation.AggregationDelay)
	check("simulation.progressInterval", c.Simulation.ProgressInterval)
	d := c.Simulation.AgentDurations
	check("simulation.agentDurations.planner", d.Planner)
	check("simulation.agentDurations.researcher", d.Researcher)
	check("simulation.agentDurations.analyst", d.Analyst)
	check("simulation.agentDurations.writer", d.Writer)
	check("simulation.agentDurations.visualizer", d.Visualizer)
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address 不能为空"))
	}
	if c.Databases.Kafka.Enabled {
		check("databases.kafka.writeLimit", c.Databases.Kafka.WriteLimit)
		if len(c.Databases.Kafka.Brokers) == 0 || c.Databases.Kafka.Topic == "" {
			errs = append(errs, errors.New("启用 Kafka 时必须配置 brokers 和 topic"))
		}
	}
	if c.Middleware.CircuitBreaker.Enabled {
		check("middleware.circuitBreaker.timeout", c.Middleware.CircuitBreaker.Timeout)
	}
	if len(errs) > 0 {
		return fmt.Errorf("配置无效: %w", errors.Join(errs...))
	}
	return nil
}

// MustDuration 解析一个已经通过 Validate 校验的时长字段。
func MustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(fmt.Sprintf("config: invalid duration %q: %v", value, err))
	}
	return d
}
