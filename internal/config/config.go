// Package config loads the server configuration. Sources are applied in
// increasing priority: defaults, config file, environment, command line.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// ErrMissingJWTSecret is returned when no token signing secret is configured.
var ErrMissingJWTSecret = errors.New("a JWT signing secret is required: set JWT_SECRET or -j")

type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	GRPCAddr            string        `env:"GRPC_ADDRESS" validate:"omitempty,hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	SQLitePath          string        `env:"SQLITE_PATH" validate:"filepath"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" validate:"filepath"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gte=0"`
	JWTSecret           string        `env:"JWT_SECRET" validate:"required,min=16"`
	TokenTTL            time.Duration `env:"TOKEN_TTL" validate:"gt=0"`
	BcryptCost          int           `env:"BCRYPT_COST" validate:"min=4,max=31"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	EnableGzip          bool          `env:"ENABLE_GZIP"`
	ConfigFile          string        `env:"CONFIG"`
}

// fileConfig is the config file layout. Pointers tell absent keys from zero values.
type fileConfig struct {
	RunAddr             *string `json:"server_address" yaml:"server_address"`
	GRPCAddr            *string `json:"grpc_address" yaml:"grpc_address"`
	LogLevel            *string `json:"log_level" yaml:"log_level"`
	DatabaseDSN         *string `json:"database_dsn" yaml:"database_dsn"`
	SQLitePath          *string `json:"sqlite_path" yaml:"sqlite_path"`
	DBFileName          *string `json:"file_storage_path" yaml:"file_storage_path"`
	DBConnectionTimeout *string `json:"db_connection_timeout" yaml:"db_connection_timeout"`
	JWTSecret           *string `json:"jwt_secret" yaml:"jwt_secret"`
	TokenTTL            *string `json:"token_ttl" yaml:"token_ttl"`
	BcryptCost          *int    `json:"bcrypt_cost" yaml:"bcrypt_cost"`
	TrustedSubnet       *string `json:"trusted_subnet" yaml:"trusted_subnet"`
	EnableGzip          *bool   `json:"enable_gzip" yaml:"enable_gzip"`
}

var defaultConfig = Config{
	RunAddr:             ":3000",
	GRPCAddr:            "",
	LogLevel:            "info",
	DatabaseDSN:         "",
	SQLitePath:          "",
	DBFileName:          "",
	DBConnectionTimeout: 10 * time.Second,
	JWTSecret:           "",
	TokenTTL:            24 * time.Hour,
	BcryptCost:          10,
	TrustedSubnet:       "",
	EnableGzip:          false,
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing ignores the command line.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs parses args instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	_, err := zapcore.ParseLevel(fieldLevel.Field().String())
	return err == nil
}

func (values *Config) validate() error {
	if values.JWTSecret == "" {
		return ErrMissingJWTSecret
	}

	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(values)
}

// applyDefaults fills zero fields of values from defaults.
func applyDefaults(values *Config, defaults Config) {
	if values.RunAddr == "" {
		values.RunAddr = defaults.RunAddr
	}
	if values.LogLevel == "" {
		values.LogLevel = defaults.LogLevel
	}
	if values.DBConnectionTimeout == 0 {
		values.DBConnectionTimeout = defaults.DBConnectionTimeout
	}
	if values.TokenTTL == 0 {
		values.TokenTTL = defaults.TokenTTL
	}
	if values.BcryptCost == 0 {
		values.BcryptCost = defaults.BcryptCost
	}
}

type flagValues struct {
	set           map[string]bool
	RunAddr       string
	GRPCAddr      string
	LogLevel      string
	DatabaseDSN   string
	SQLitePath    string
	DBFileName    string
	JWTSecret     string
	TrustedSubnet string
	EnableGzip    bool
	ConfigFile    string
}

func parseFlags(args []string) (*flagValues, error) {
	values := &flagValues{set: map[string]bool{}}

	flagSet := flag.NewFlagSet(filepath.Base(os.Args[0]), flag.ContinueOnError)
	flagSet.StringVar(&values.RunAddr, "a", defaultConfig.RunAddr, "address and port to run server")
	flagSet.StringVar(&values.GRPCAddr, "r", "", "address and port of the gRPC server, empty disables it")
	flagSet.StringVar(&values.LogLevel, "l", defaultConfig.LogLevel, "logger level")
	flagSet.StringVar(&values.DatabaseDSN, "d", "", "PostgreSQL connection string")
	flagSet.StringVar(&values.SQLitePath, "s", "", "SQLite database file")
	flagSet.StringVar(&values.DBFileName, "f", "", "JSON file name with database")
	flagSet.StringVar(&values.JWTSecret, "j", "", "secret used to sign tokens")
	flagSet.StringVar(&values.TrustedSubnet, "t", "", "CIDR allowed to read internal stats")
	flagSet.BoolVar(&values.EnableGzip, "g", false, "enable gzip compression")
	flagSet.StringVar(&values.ConfigFile, "c", "", "JSON or YAML config file")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	flagSet.Visit(func(f *flag.Flag) {
		values.set[f.Name] = true
	})

	return values, nil
}

func (f *flagValues) apply(values *Config) {
	if f.set["a"] {
		values.RunAddr = f.RunAddr
	}
	if f.set["r"] {
		values.GRPCAddr = f.GRPCAddr
	}
	if f.set["l"] {
		values.LogLevel = f.LogLevel
	}
	if f.set["d"] {
		values.DatabaseDSN = f.DatabaseDSN
	}
	if f.set["s"] {
		values.SQLitePath = f.SQLitePath
	}
	if f.set["f"] {
		values.DBFileName = f.DBFileName
	}
	if f.set["j"] {
		values.JWTSecret = f.JWTSecret
	}
	if f.set["t"] {
		values.TrustedSubnet = f.TrustedSubnet
	}
	if f.set["g"] {
		values.EnableGzip = f.EnableGzip
	}
}

func loadFile(path string) (*fileConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/loadFile(): error while `os.ReadFile()` calling: %w", err)
	}

	result := &fileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, result)
	default:
		err = json.Unmarshal(content, result)
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/loadFile(): error while decoding %s: %w", path, err)
	}

	return result, nil
}

func (f *fileConfig) apply(values *Config) error {
	if f.RunAddr != nil {
		values.RunAddr = *f.RunAddr
	}
	if f.GRPCAddr != nil {
		values.GRPCAddr = *f.GRPCAddr
	}
	if f.LogLevel != nil {
		values.LogLevel = *f.LogLevel
	}
	if f.DatabaseDSN != nil {
		values.DatabaseDSN = *f.DatabaseDSN
	}
	if f.SQLitePath != nil {
		values.SQLitePath = *f.SQLitePath
	}
	if f.DBFileName != nil {
		values.DBFileName = *f.DBFileName
	}
	if f.JWTSecret != nil {
		values.JWTSecret = *f.JWTSecret
	}
	if f.BcryptCost != nil {
		values.BcryptCost = *f.BcryptCost
	}
	if f.TrustedSubnet != nil {
		values.TrustedSubnet = *f.TrustedSubnet
	}
	if f.EnableGzip != nil {
		values.EnableGzip = *f.EnableGzip
	}

	for _, duration := range []struct {
		raw    *string
		target *time.Duration
	}{
		{f.DBConnectionTimeout, &values.DBConnectionTimeout},
		{f.TokenTTL, &values.TokenTTL},
	} {
		if duration.raw == nil {
			continue
		}
		parsed, err := time.ParseDuration(*duration.raw)
		if err != nil {
			return fmt.Errorf("in internal/config/config.go/apply(): error while `time.ParseDuration()` calling: %w", err)
		}
		*duration.target = parsed
	}

	return nil
}

func applyEnv(values *Config) error {
	var valuesFromEnv Config
	if err := env.Parse(&valuesFromEnv); err != nil {
		return err
	}

	isSet := func(name string) bool {
		_, found := os.LookupEnv(name)
		return found
	}

	if isSet("SERVER_ADDRESS") {
		values.RunAddr = valuesFromEnv.RunAddr
	}
	if isSet("GRPC_ADDRESS") {
		values.GRPCAddr = valuesFromEnv.GRPCAddr
	}
	if isSet("LOG_LEVEL") {
		values.LogLevel = valuesFromEnv.LogLevel
	}
	if isSet("DATABASE_DSN") {
		values.DatabaseDSN = valuesFromEnv.DatabaseDSN
	}
	if isSet("SQLITE_PATH") {
		values.SQLitePath = valuesFromEnv.SQLitePath
	}
	if isSet("FILE_STORAGE_PATH") {
		values.DBFileName = valuesFromEnv.DBFileName
	}
	if isSet("DB_CONNECTION_TIMEOUT") {
		values.DBConnectionTimeout = valuesFromEnv.DBConnectionTimeout
	}
	if isSet("JWT_SECRET") {
		values.JWTSecret = valuesFromEnv.JWTSecret
	}
	if isSet("TOKEN_TTL") {
		values.TokenTTL = valuesFromEnv.TokenTTL
	}
	if isSet("BCRYPT_COST") {
		values.BcryptCost = valuesFromEnv.BcryptCost
	}
	if isSet("TRUSTED_SUBNET") {
		values.TrustedSubnet = valuesFromEnv.TrustedSubnet
	}
	if isSet("ENABLE_GZIP") {
		values.EnableGzip = valuesFromEnv.EnableGzip
	}

	return nil
}

// New builds the configuration from every source and validates it.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                nil,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `godotenv.Load()` calling: %w", err)
	}

	flags := &flagValues{set: map[string]bool{}}
	if !options.disableFlagsParsing {
		args := options.args
		if args == nil {
			args = os.Args[1:]
		}
		flags, err = parseFlags(args)
		if err != nil {
			return nil, fmt.Errorf("in internal/config/config.go/New(): error while `parseFlags()` calling: %w", err)
		}
	}

	values := defaultConfig

	values.ConfigFile = os.Getenv("CONFIG")
	if flags.set["c"] {
		values.ConfigFile = flags.ConfigFile
	}
	if values.ConfigFile != "" {
		fromFile, err := loadFile(values.ConfigFile)
		if err != nil {
			return nil, err
		}
		if err := fromFile.apply(&values); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `applyEnv()` calling: %w", err)
	}

	flags.apply(&values)
	applyDefaults(&values, defaultConfig)

	if err := values.validate(); err != nil {
		return nil, err
	}

	return &values, nil
}

