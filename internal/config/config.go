package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Spotify   SpotifyConfig
	S3        S3Config
	Model     ModelConfig
	Zitadel   ZitadelConfig
	Gateway   GatewayConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	PredictPerHour int
}

// SpotifyConfig holds catalog API credentials. Base and token URLs are
// overridable so tests can point the client at a local server.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
}

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	TracksPrefix    string
}

type ModelConfig struct {
	Name       string
	Class      string
	Neighbors  int
	Components int
}

type ZitadelConfig struct {
	Domain   string
	ClientID string
	Issuer   string
}

type GatewayConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("SPOTIFY_CLIENT_ID")
	readSecret("SPOTIFY_CLIENT_SECRET")
	readSecret("S3_ACCESS_KEY_ID")
	readSecret("S3_SECRET_ACCESS_KEY")
	readSecret("ZITADEL_CLIENT_ID")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("ratelimit.predict_per_hour", "RATELIMIT_PREDICT_PER_HOUR")
	_ = viper.BindEnv("spotify.client_id", "SPOTIFY_CLIENT_ID")
	_ = viper.BindEnv("spotify.client_secret", "SPOTIFY_CLIENT_SECRET")
	_ = viper.BindEnv("spotify.base_url", "SPOTIFY_BASE_URL")
	_ = viper.BindEnv("spotify.token_url", "SPOTIFY_TOKEN_URL")
	_ = viper.BindEnv("s3.endpoint", "S3_ENDPOINT_URL")
	_ = viper.BindEnv("s3.region", "S3_REGION")
	_ = viper.BindEnv("s3.access_key_id", "S3_ACCESS_KEY_ID")
	_ = viper.BindEnv("s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("s3.bucket_name", "S3_BUCKET_NAME")
	_ = viper.BindEnv("s3.tracks_prefix", "S3_TRACKS_PREFIX")
	_ = viper.BindEnv("model.name", "MODEL_NAME")
	_ = viper.BindEnv("model.class", "MODEL_CLASS")
	_ = viper.BindEnv("model.neighbors", "MODEL_NEIGHBORS")
	_ = viper.BindEnv("model.components", "MODEL_COMPONENTS")
	_ = viper.BindEnv("zitadel.domain", "ZITADEL_DOMAIN")
	_ = viper.BindEnv("zitadel.client_id", "ZITADEL_CLIENT_ID")
	_ = viper.BindEnv("zitadel.issuer", "ZITADEL_ISSUER")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.predict_per_hour", 10)

	// Spotify defaults
	viper.SetDefault("spotify.base_url", "https://api.spotify.com/v1")
	viper.SetDefault("spotify.token_url", "https://accounts.spotify.com/api/token")

	// S3 defaults
	viper.SetDefault("s3.region", "us-east-1")
	viper.SetDefault("s3.tracks_prefix", "tracks")

	// Model defaults
	viper.SetDefault("model.name", "knn-latest")
	viper.SetDefault("model.class", "knn")
	viper.SetDefault("model.neighbors", 5)
	viper.SetDefault("model.components", 141)

	// Gateway defaults
	viper.SetDefault("gateway.enabled", false)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			PredictPerHour: viper.GetInt("ratelimit.predict_per_hour"),
		},
		Spotify: SpotifyConfig{
			ClientID:     viper.GetString("spotify.client_id"),
			ClientSecret: viper.GetString("spotify.client_secret"),
			BaseURL:      viper.GetString("spotify.base_url"),
			TokenURL:     viper.GetString("spotify.token_url"),
		},
		S3: S3Config{
			Endpoint:        viper.GetString("s3.endpoint"),
			Region:          viper.GetString("s3.region"),
			AccessKeyID:     viper.GetString("s3.access_key_id"),
			SecretAccessKey: viper.GetString("s3.secret_access_key"),
			BucketName:      viper.GetString("s3.bucket_name"),
			TracksPrefix:    viper.GetString("s3.tracks_prefix"),
		},
		Model: ModelConfig{
			Name:       viper.GetString("model.name"),
			Class:      viper.GetString("model.class"),
			Neighbors:  viper.GetInt("model.neighbors"),
			Components: viper.GetInt("model.components"),
		},
		Zitadel: ZitadelConfig{
			Domain:   viper.GetString("zitadel.domain"),
			ClientID: viper.GetString("zitadel.client_id"),
			Issuer:   viper.GetString("zitadel.issuer"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
	}

	return cfg, nil
}
