package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-viper/mapstructure/v2"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	configFileEnv     = "CONFIG_FILE"
	defaultConfigFile = "/config/bookdrop.yaml"
)

// Config is the single configuration value handed to every component. Nothing
// below cmd/ reads the process environment directly.
type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path"`

	ServerHost         string        `koanf:"server_host" default:"0.0.0.0"`
	ServerPort         int           `koanf:"server_port" default:"7770"`
	WorkerProcesses    int           `koanf:"worker_processes" default:"2"`
	WorkerPollInterval time.Duration `koanf:"worker_poll_interval" default:"5s"`
	MetricsEnabled     bool          `koanf:"metrics_enabled" default:"true"`

	// DataDir holds the books/ and covers/ buckets.
	DataDir string `koanf:"data_dir" default:"/data"`
	// WorkspaceDir is where temporary extraction workspaces are created.
	WorkspaceDir string `koanf:"workspace_dir" default:"/tmp"`
	// InboxDir is watched for dropped archives. Empty disables the watcher.
	InboxDir string `koanf:"inbox_dir"`

	MaxUploadBytes      int64    `koanf:"max_upload_bytes" default:"314572800"`
	MaxExtractedBytes   int64    `koanf:"max_extracted_bytes" default:"2147483648"`
	BookExtensions      []string `koanf:"book_extensions" default:"[\"pdf\",\"epub\"]"`
	ImageExtensions     []string `koanf:"image_extensions" default:"[\"jpg\",\"jpeg\",\"png\",\"webp\"]"`
	SupportedLanguages  []string `koanf:"supported_languages" default:"[\"ar\",\"bg\",\"ca\",\"cs\",\"da\",\"de\",\"el\",\"en\",\"es\",\"et\",\"fi\",\"fr\",\"he\",\"hi\",\"hr\",\"hu\",\"id\",\"it\",\"ja\",\"ko\",\"lt\",\"lv\",\"nl\",\"no\",\"pl\",\"pt\",\"ro\",\"ru\",\"sv\",\"th\",\"tr\",\"uk\",\"vi\",\"zh\",\"zh-cn\",\"zh-tw\"]"`
	DefaultLanguage     string   `koanf:"default_language" default:"en"`
	DefaultAuthor       string   `koanf:"default_author" default:"Unknown"`
	DefaultCategory     string   `koanf:"default_category" default:"General"`
	PDFTextExtraction   bool     `koanf:"pdf_text_extraction" default:"true"`
	LanguageMinChars    int      `koanf:"language_min_chars" default:"50"`
	LanguageSampleChars int      `koanf:"language_sample_chars" default:"500"`

	ImportWorkers     int           `koanf:"import_workers" default:"4"`
	ImportUnitTimeout time.Duration `koanf:"import_unit_timeout" default:"2m"`

	Hostname string `koanf:"-"`
}

// New loads the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if it exists), then environment variables.
func New() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	path := os.Getenv(configFileEnv)
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	known := knownKeys()
	err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if !known[key] {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			ZeroFields:       true,
		},
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if cfg.DatabaseFilePath == "" {
		return nil, missingRequired("DatabaseFilePath")
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.Hostname = hostname
	cfg.normalize()

	return cfg, nil
}

// NewDefault returns a config with every default applied and nothing else.
func NewDefault() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.normalize()
	return cfg
}

// NewForTest returns a config backed by an in-memory database with every
// default applied.
func NewForTest() *Config {
	cfg := NewDefault()
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.DataDir = os.TempDir()
	cfg.WorkspaceDir = os.TempDir()
	cfg.PDFTextExtraction = false
	cfg.MetricsEnabled = false
	cfg.normalize()
	return cfg
}

func (cfg *Config) BooksDir() string {
	return filepath.Join(cfg.DataDir, "books")
}

func (cfg *Config) CoversDir() string {
	return filepath.Join(cfg.DataDir, "covers")
}

// IsBookExtension reports whether ext (with or without the leading dot) is an
// accepted book extension.
func (cfg *Config) IsBookExtension(ext string) bool {
	return containsExt(cfg.BookExtensions, ext)
}

// IsImageExtension reports whether ext (with or without the leading dot) is an
// accepted cover image extension.
func (cfg *Config) IsImageExtension(ext string) bool {
	return containsExt(cfg.ImageExtensions, ext)
}

func (cfg *Config) normalize() {
	for i, ext := range cfg.BookExtensions {
		cfg.BookExtensions[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}
	for i, ext := range cfg.ImageExtensions {
		cfg.ImageExtensions[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}
	for i, code := range cfg.SupportedLanguages {
		cfg.SupportedLanguages[i] = strings.ToLower(strings.TrimSpace(code))
	}
	cfg.DefaultLanguage = strings.ToLower(strings.TrimSpace(cfg.DefaultLanguage))
	if cfg.ImportWorkers < 1 {
		cfg.ImportWorkers = 1
	}
	if cfg.WorkerPollInterval <= 0 {
		cfg.WorkerPollInterval = time.Second
	}
}

func containsExt(exts []string, ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

func missingRequired(field string) error {
	key := toSnakeCase(field)
	return errors.Errorf("missing required config: set %s env var or %s in the config file", strings.ToUpper(key), key)
}

func knownKeys() map[string]bool {
	keys := map[string]bool{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		keys[tag] = true
	}
	return keys
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
