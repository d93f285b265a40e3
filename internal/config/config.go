package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	LLM      *llmConfig
	Tools    *toolsConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"sqlite"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"coach.db"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string   `envconfig:"PITCH_COACH_ADDRESS" default:":8080"`
	MetricsAddress  string   `envconfig:"PITCH_COACH_METRICS_ADDRESS" default:":8090"`
	BaseUrl         string   `envconfig:"PITCH_COACH_BASE_URL" default:"http://localhost:8080"`
	LogLevel        string   `envconfig:"PITCH_COACH_LOG_LEVEL" default:"info"`
	AllowedOrigins  []string `envconfig:"PITCH_COACH_ALLOWED_ORIGINS" default:"*"`
	UploadsFolder   string   `envconfig:"PITCH_COACH_UPLOADS_FOLDER" default:"uploads"`
	ArtifactsFolder string   `envconfig:"PITCH_COACH_ARTIFACTS_FOLDER" default:"artifacts"`
	// Registry selects where job state lives: "memory" keeps it
	// process-local, "db" persists it through gorm.
	Registry string `envconfig:"PITCH_COACH_REGISTRY" default:"memory"`
	// Dedupe controls duplicate in-flight submissions for one session:
	// "reject" refuses them, "allow" runs them concurrently
	// (last-writer-wins on shared artifacts).
	Dedupe     string `envconfig:"PITCH_COACH_DEDUPE" default:"reject"`
	Workers    int    `envconfig:"PITCH_COACH_WORKERS" default:"2"`
	QueueDepth int    `envconfig:"PITCH_COACH_QUEUE_DEPTH" default:"16"`
	Kafka      kafkaConfig
}

type kafkaConfig struct {
	Brokers  []string `envconfig:"PITCH_COACH_KAFKA_BROKERS" default:""`
	Topic    string   `envconfig:"PITCH_COACH_KAFKA_TOPIC" default:""`
	ClientID string   `envconfig:"PITCH_COACH_KAFKA_CLIENT_ID" default:"pitch-coach"`
}

type llmConfig struct {
	BaseURL     string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	APIKey      string        `envconfig:"OPENAI_API_KEY" default:""`
	ChatModel   string        `envconfig:"PITCH_COACH_CHAT_MODEL" default:"gpt-4o-mini"`
	ASRModel    string        `envconfig:"PITCH_COACH_ASR_MODEL" default:"whisper-1"`
	Temperature float32       `envconfig:"PITCH_COACH_LLM_TEMPERATURE" default:"0"`
	Timeout     time.Duration `envconfig:"PITCH_COACH_LLM_TIMEOUT" default:"120s"`
	BatchSize   int           `envconfig:"PITCH_COACH_JUDGE_BATCH_SIZE" default:"3"`
}

type toolsConfig struct {
	Ffmpeg   string `envconfig:"PITCH_COACH_FFMPEG_BIN" default:"ffmpeg"`
	Soffice  string `envconfig:"PITCH_COACH_SOFFICE_BIN" default:"soffice"`
	Pdftoppm string `envconfig:"PITCH_COACH_PDFTOPPM_BIN" default:"pdftoppm"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a config populated with defaults only, ignoring the
// environment. Used by tests.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{Type: "sqlite", Name: ":memory:"},
		Service: &svcConfig{
			Address:         ":8080",
			MetricsAddress:  ":8090",
			LogLevel:        "info",
			AllowedOrigins:  []string{"*"},
			UploadsFolder:   "uploads",
			ArtifactsFolder: "artifacts",
			Registry:        "memory",
			Dedupe:          "reject",
			Workers:         2,
			QueueDepth:      16,
		},
		LLM: &llmConfig{
			BaseURL:   "https://api.openai.com/v1",
			ChatModel: "gpt-4o-mini",
			ASRModel:  "whisper-1",
			Timeout:   120 * time.Second,
			BatchSize: 3,
		},
		Tools: &toolsConfig{Ffmpeg: "ffmpeg", Soffice: "soffice", Pdftoppm: "pdftoppm"},
	}
}
