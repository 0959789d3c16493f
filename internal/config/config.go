package config

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lusterd/internal/models"
)

// Load env vars from .env file directly
func init() {
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist (e.g. in production),
		// but we should log it just in case.
		// However, mostly we want to rely on environment variables being set.
		// If we are in local dev, this helps.
		log.Println("No .env file found or error loading it, using system environment variables")
	}
}

// Config holds every runtime tunable for the server, worker and migrate
// binaries. Fields are populated from environment variables with
// fallback defaults, following the teacher's getenv-with-default idiom.
type Config struct {
	DatabaseURL string
	Port        string

	ObjectStoreEndpoint string
	ObjectStoreRegion   string
	ObjectStoreBucket   string
	ObjectStoreKeyID    string
	ObjectStoreSecret   string

	ClerkSecretKey string

	LeaseDuration      time.Duration
	MaxRetries         int
	CreditsPerProduct  map[string]int
	PresignTTL         time.Duration
	ProviderDeadline   time.Duration
	WorkerPollInterval time.Duration
	SweepInterval      time.Duration
	WebhookSecret      string

	AllowedOrigins []string
}

// Load reads the process environment into a Config, applying the same
// defaults documented for each field.
func Load() *Config {
	lease := getDuration("LEASE_DURATION", 15*time.Minute)
	providerDeadline := getDuration("PROVIDER_DEADLINE", lease/2)

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        getString("PORT", "8080"),

		ObjectStoreEndpoint: os.Getenv("OBJECT_STORE_ENDPOINT"),
		ObjectStoreRegion:   getString("OBJECT_STORE_REGION", "auto"),
		ObjectStoreBucket:   os.Getenv("OBJECT_STORE_BUCKET"),
		ObjectStoreKeyID:    os.Getenv("OBJECT_STORE_ACCESS_KEY_ID"),
		ObjectStoreSecret:   os.Getenv("OBJECT_STORE_SECRET_ACCESS_KEY"),

		ClerkSecretKey: os.Getenv("CLERK_SECRET_KEY"),

		LeaseDuration:      lease,
		MaxRetries:         getInt("MAX_RETRIES", 3),
		CreditsPerProduct:  getCreditsPerProduct(),
		PresignTTL:         getDuration("PRESIGN_TTL_SECONDS", time.Hour),
		ProviderDeadline:   providerDeadline,
		WorkerPollInterval: getDuration("WORKER_POLL_INTERVAL", 5*time.Second),
		SweepInterval:      getDuration("SWEEP_INTERVAL", 60*time.Second),
		WebhookSecret:      os.Getenv("WEBHOOK_SECRET"),

		AllowedOrigins: GetAllowedOrigins(),
	}

	if cfg.WebhookSecret == "" {
		slog.Warn("WEBHOOK_SECRET not set; webhook signature verification is disabled and all deliveries will be accepted unverified")
	}

	return cfg
}

// GetAllowedOrigins returns a slice of allowed origins from the environment variable.
// It defaults to localhost:3000 if not set.
func GetAllowedOrigins() []string {
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr == "" {
		return []string{"http://localhost:3000"}
	}

	// Split by comma and trim spaces
	parts := strings.Split(originsStr, ",")
	var origins []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// getCreditsPerProduct parses CREDITS_PER_PRODUCT as a "sku:credits,sku:credits"
// CSV, mirroring GetAllowedOrigins' CSV-parsing idiom. The result always
// starts from the tier-based table, keyed by tier name; CSV entries are added
// on top of it (and replace a tier entry of the same name).
func getCreditsPerProduct() map[string]int {
	out := map[string]int{
		string(models.TierFree):    models.CreditsPerTier[models.TierFree],
		string(models.TierPremium): models.CreditsPerTier[models.TierPremium],
	}

	raw := os.Getenv("CREDITS_PER_PRODUCT")
	if raw == "" {
		return out
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, ":", 2)
		if len(kv) != 2 {
			continue
		}
		credits, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			log.Printf("config: ignoring malformed CREDITS_PER_PRODUCT entry %q: %v", pair, err)
			continue
		}
		out[strings.TrimSpace(kv[0])] = credits
	}
	return out
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: ignoring malformed %s=%q: %v", key, v, err)
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	// Bare integers are treated as seconds, matching the *_SECONDS naming
	// used for several of these knobs; anything else parses as a Go duration.
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: ignoring malformed %s=%q: %v", key, v, err)
		return def
	}
	return d
}
