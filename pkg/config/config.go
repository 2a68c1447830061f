package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Debug    bool           `mapstructure:"debug"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	ResultTTL      time.Duration `mapstructure:"result_ttl"`
	MaxConcurrent  int64         `mapstructure:"max_concurrent"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// OCRConfig selects engines and tunes rasterization.
type OCRConfig struct {
	Engine              string           `mapstructure:"engine"`
	HandwrittenLanguage string           `mapstructure:"handwritten_language"`
	WorkDir             string           `mapstructure:"work_dir"`
	PDFDPI              int              `mapstructure:"pdf_dpi"`
	PdftoppmPath        string           `mapstructure:"pdftoppm_path"`
	DetectorURL         string           `mapstructure:"detector_url"`
	DetectorTimeout     time.Duration    `mapstructure:"detector_timeout"`
	DocumentAI          DocumentAIConfig `mapstructure:"documentai"`
}

// DocumentAIConfig points at a Google Document AI OCR processor.
type DocumentAIConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	Location        string `mapstructure:"location"`
	ProcessorID     string `mapstructure:"processor_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// DatabaseConfig is optional; history is disabled when DSN is empty.
type DatabaseConfig struct {
	DSN         string        `mapstructure:"dsn"`
	AutoMigrate bool          `mapstructure:"auto_migrate"`
	Retention   time.Duration `mapstructure:"retention"`
}

// AuthConfig guards the history endpoints.
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	JWTExpiry         time.Duration `mapstructure:"jwt_expiry"`
	AdminUser         string        `mapstructure:"admin_user"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`
}

// HandwrittenAuto makes the handwritten path follow the selected language.
const HandwrittenAuto = "auto"

var validEngines = map[string]bool{"tesseract": true, "documentai": true, "remote": true}

// legacyEnv keeps the variable names older deployments already export.
var legacyEnv = map[string]string{
	"database.dsn":          "DB_DSN",
	"database.auto_migrate": "DB_AUTO_MIGRATE",
	"auth.jwt_secret":       "JWT_SECRET",
	"ocr.work_dir":          "UPLOAD_BASE",
}

// Load reads configuration from defaults, an optional ocrtext.yaml, .env and
// the environment.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}
	return load(viper.New(), ".", "./config", "/etc/ocrtext")
}

func load(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName("ocrtext")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvPrefix("OCRTEXT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envName := "OCRTEXT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", legacy, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Info().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads environment variables from the first .env file found.
func loadEnvFile() error {
	for _, location := range []string{".env", ".env.local", "../.env"} {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Info().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}
	return fmt.Errorf("no .env file found")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8081")
	v.SetDefault("server.max_upload_bytes", 20<<20)
	v.SetDefault("server.result_ttl", "30m")
	v.SetDefault("server.max_concurrent", 1)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")

	v.SetDefault("ocr.engine", "tesseract")
	v.SetDefault("ocr.handwritten_language", "eng")
	v.SetDefault("ocr.work_dir", "")
	v.SetDefault("ocr.pdf_dpi", 200)
	v.SetDefault("ocr.pdftoppm_path", "")
	v.SetDefault("ocr.detector_url", "")
	v.SetDefault("ocr.detector_timeout", "60s")
	v.SetDefault("ocr.documentai.project_id", "")
	v.SetDefault("ocr.documentai.location", "us")
	v.SetDefault("ocr.documentai.processor_id", "")
	v.SetDefault("ocr.documentai.credentials_file", "")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("database.retention", "720h")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiry", "12h")
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.admin_password_hash", "")

	v.SetDefault("debug", false)
}

// Validate checks the configuration as a whole.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.OCR.Validate(); err != nil {
		return err
	}
	if c.Database.Retention < 0 {
		return fmt.Errorf("database retention cannot be negative")
	}
	if c.HistoryEnabled() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when a database is configured")
	}
	return nil
}

func (s ServerConfig) Validate() error {
	if s.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if s.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	if s.ResultTTL <= 0 {
		return fmt.Errorf("result_ttl must be positive")
	}
	if s.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1")
	}
	return nil
}

func (o OCRConfig) Validate() error {
	if !validEngines[o.Engine] {
		return fmt.Errorf("ocr engine must be 'tesseract', 'documentai' or 'remote', got %q", o.Engine)
	}
	if o.Engine == "remote" && o.DetectorURL == "" {
		return fmt.Errorf("ocr.detector_url is required for the remote engine")
	}
	if o.Engine == "documentai" {
		d := o.DocumentAI
		if d.ProjectID == "" || d.Location == "" || d.ProcessorID == "" {
			return fmt.Errorf("Document AI configuration is incomplete")
		}
	}
	if o.PDFDPI < 50 || o.PDFDPI > 600 {
		return fmt.Errorf("pdf_dpi must be between 50 and 600")
	}
	if strings.TrimSpace(o.HandwrittenLanguage) == "" {
		return fmt.Errorf("handwritten_language cannot be empty")
	}
	return nil
}

// HistoryEnabled reports whether extraction history is persisted.
func (c *Config) HistoryEnabled() bool { return c.Database.DSN != "" }

// HandwrittenLanguages returns the traineddata override for the handwritten
// path, or nil when it should follow the selected language.
func (o OCRConfig) HandwrittenLanguages() []string {
	if o.HandwrittenLanguage == HandwrittenAuto {
		return nil
	}
	return strings.Split(o.HandwrittenLanguage, "+")
}
