package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type STTConfig struct {
	Mode       string `yaml:"mode"` // mock, exec
	Command    string `yaml:"command"`
	ModelPath  string `yaml:"model_path"`
	Language   string `yaml:"language"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type LLMConfig struct {
	Mode        string  `yaml:"mode"` // mock, ollama, openai, exec
	Endpoint    string  `yaml:"endpoint"`
	APIKey      string  `yaml:"api_key"`
	Command     string  `yaml:"command"`
	Model       string  `yaml:"model"`
	System      string  `yaml:"system"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type TTSConfig struct {
	Mode       string `yaml:"mode"` // mock, exec
	Command    string `yaml:"command"`
	Voice      string `yaml:"voice"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxExchanges  int    `yaml:"max_exchanges"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type ClientConfig struct {
	ServerURL     string `yaml:"server_url"`
	AuthCookie    string `yaml:"auth_cookie"`
	RecordCommand string `yaml:"record_command"`
	SpeakerMode   string `yaml:"speaker_mode"` // off, exec, remote
	SpeakCommand  string `yaml:"speak_command"`
	PlayCommand   string `yaml:"play_command"`
	TimeoutMS     int    `yaml:"timeout_ms"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	CORS        CORSConfig      `yaml:"cors"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	STT         STTConfig       `yaml:"stt"`
	LLM         LLMConfig       `yaml:"llm"`
	TTS         TTSConfig       `yaml:"tts"`
	History     HistoryConfig   `yaml:"history"`
	Client      ClientConfig    `yaml:"client"`
}

func Default() Config {
	return Config{
		ServiceName: "mathvoice",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 5000,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		STT: STTConfig{
			Mode:       "mock",
			SampleRate: 16000,
			Channels:   1,
		},
		LLM: LLMConfig{
			Mode:        "mock",
			Endpoint:    "http://localhost:11434",
			Model:       "smol",
			MaxTokens:   256,
			Temperature: 0.7,
		},
		TTS: TTSConfig{
			Mode:       "mock",
			SampleRate: 22050,
			Channels:   1,
		},
		History: HistoryConfig{
			Path:          "./data/mathvoice-history.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxExchanges:  10000,
		},
		Client: ClientConfig{
			ServerURL:     "http://localhost:5000",
			RecordCommand: "arecord -q -f S16_LE -r 16000 -c 1 -t wav",
			SpeakerMode:   "off",
			TimeoutMS:     60000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "MATHVOICE_SERVICE_NAME")
	overrideString(&cfg.Environment, "MATHVOICE_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "MATHVOICE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "MATHVOICE_HTTP_PORT")
	overrideStringSlice(&cfg.CORS.AllowedOrigins, "MATHVOICE_CORS_ALLOWED_ORIGINS")
	overrideString(&cfg.Telemetry.LogLevel, "MATHVOICE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "MATHVOICE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "MATHVOICE_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Enabled, "MATHVOICE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "MATHVOICE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "MATHVOICE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "MATHVOICE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "MATHVOICE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "MATHVOICE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "MATHVOICE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "MATHVOICE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "MATHVOICE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.STT.Mode, "MATHVOICE_STT_MODE")
	overrideString(&cfg.STT.Command, "MATHVOICE_STT_COMMAND")
	overrideString(&cfg.STT.ModelPath, "MATHVOICE_STT_MODEL_PATH")
	overrideString(&cfg.STT.Language, "MATHVOICE_STT_LANGUAGE")
	overrideInt(&cfg.STT.SampleRate, "MATHVOICE_STT_SAMPLE_RATE")
	overrideInt(&cfg.STT.Channels, "MATHVOICE_STT_CHANNELS")
	overrideString(&cfg.LLM.Mode, "MATHVOICE_LLM_MODE")
	overrideString(&cfg.LLM.Endpoint, "MATHVOICE_LLM_ENDPOINT")
	overrideString(&cfg.LLM.APIKey, "MATHVOICE_LLM_API_KEY")
	overrideString(&cfg.LLM.Command, "MATHVOICE_LLM_COMMAND")
	overrideString(&cfg.LLM.Model, "MATHVOICE_LLM_MODEL")
	overrideString(&cfg.LLM.System, "MATHVOICE_LLM_SYSTEM")
	overrideInt(&cfg.LLM.MaxTokens, "MATHVOICE_LLM_MAX_TOKENS")
	overrideFloat(&cfg.LLM.Temperature, "MATHVOICE_LLM_TEMPERATURE")
	overrideString(&cfg.TTS.Mode, "MATHVOICE_TTS_MODE")
	overrideString(&cfg.TTS.Command, "MATHVOICE_TTS_COMMAND")
	overrideString(&cfg.TTS.Voice, "MATHVOICE_TTS_VOICE")
	overrideInt(&cfg.TTS.SampleRate, "MATHVOICE_TTS_SAMPLE_RATE")
	overrideInt(&cfg.TTS.Channels, "MATHVOICE_TTS_CHANNELS")
	overrideString(&cfg.History.Path, "MATHVOICE_HISTORY_PATH")
	overrideString(&cfg.History.RetentionMode, "MATHVOICE_HISTORY_RETENTION_MODE")
	overrideInt(&cfg.History.RetentionDays, "MATHVOICE_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxExchanges, "MATHVOICE_HISTORY_MAX_EXCHANGES")
	overrideBool(&cfg.History.VacuumOnStart, "MATHVOICE_HISTORY_VACUUM_ON_START")
	overrideString(&cfg.Client.ServerURL, "MATHVOICE_SERVER_URL")
	overrideString(&cfg.Client.AuthCookie, "MATHVOICE_AUTH_COOKIE")
	overrideString(&cfg.Client.RecordCommand, "MATHVOICE_RECORD_COMMAND")
	overrideString(&cfg.Client.SpeakerMode, "MATHVOICE_SPEAKER_MODE")
	overrideString(&cfg.Client.SpeakCommand, "MATHVOICE_SPEAK_COMMAND")
	overrideString(&cfg.Client.PlayCommand, "MATHVOICE_PLAY_COMMAND")
	overrideInt(&cfg.Client.TimeoutMS, "MATHVOICE_CLIENT_TIMEOUT_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	switch cfg.STT.Mode {
	case "mock", "exec":
	default:
		return errors.New("stt.mode must be one of mock|exec")
	}
	if cfg.STT.Mode == "exec" && cfg.STT.Command == "" {
		return errors.New("stt.command must be set when mode=exec")
	}
	if cfg.STT.SampleRate <= 0 {
		return errors.New("stt.sample_rate must be positive")
	}
	if cfg.STT.Channels <= 0 {
		return errors.New("stt.channels must be positive")
	}
	switch cfg.LLM.Mode {
	case "mock", "ollama", "openai", "exec":
	default:
		return errors.New("llm.mode must be one of mock|ollama|openai|exec")
	}
	if cfg.LLM.Mode == "ollama" && cfg.LLM.Endpoint == "" {
		return errors.New("llm.endpoint must be set when mode=ollama")
	}
	if cfg.LLM.Mode == "openai" && cfg.LLM.APIKey == "" {
		return errors.New("llm.api_key must be set when mode=openai")
	}
	if cfg.LLM.Mode == "exec" && cfg.LLM.Command == "" {
		return errors.New("llm.command must be set when mode=exec")
	}
	if cfg.LLM.MaxTokens < 0 {
		return errors.New("llm.max_tokens must be >= 0")
	}
	switch cfg.TTS.Mode {
	case "mock", "exec":
	default:
		return errors.New("tts.mode must be one of mock|exec")
	}
	if cfg.TTS.Mode == "exec" && cfg.TTS.Command == "" {
		return errors.New("tts.command must be set when mode=exec")
	}
	if cfg.TTS.SampleRate <= 0 {
		return errors.New("tts.sample_rate must be positive")
	}
	if cfg.TTS.Channels <= 0 {
		return errors.New("tts.channels must be positive")
	}
	switch cfg.History.RetentionMode {
	case "ephemeral", "session", "persistent":
	default:
		return errors.New("history.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.History.RetentionMode != "ephemeral" && cfg.History.Path == "" {
		return errors.New("history.path must not be empty")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	switch cfg.Client.SpeakerMode {
	case "off", "exec", "remote":
	default:
		return errors.New("client.speaker_mode must be one of off|exec|remote")
	}
	if cfg.Client.SpeakerMode == "exec" && cfg.Client.SpeakCommand == "" {
		return errors.New("client.speak_command must be set when speaker_mode=exec")
	}
	if cfg.Client.SpeakerMode == "remote" && cfg.Client.PlayCommand == "" {
		return errors.New("client.play_command must be set when speaker_mode=remote")
	}
	if cfg.Client.ServerURL == "" {
		return errors.New("client.server_url must not be empty")
	}
	return nil
}
