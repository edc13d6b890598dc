package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort        string
	JWTSecret      string
	AllowedOrigins []string
	Timezone       string
	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Redis backs the rate limiter
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Rewards and game balance
	CheckinCoins       int
	CheckinXP          int
	RateLimitPerMinute int
	SquadMaxMembers    int
	BossBaseDamage     int
	BossStreakDamage   int
	BossCrystalDamage  int
	// Notifications
	CronSecret         string
	CronSecretHash     string
	FCMProjectID       string
	FCMCredentialsFile string
	PushRatePerSecond  int
	// Payments
	StripeSecretKey      string
	StripeWebhookSecret  string
	StripeSuccessURL     string
	StripeCancelURL      string
	PriceStreakFreezeCts int
	PricePremiumCts      int
	PriceRemoveAdsCts    int
	PaymentCurrency      string
	// AI coach
	OpenAIKey     string
	OpenAIModel   string
	CoachPersona  string
	CoachMaxTurns int
	// Analytics batching
	AnalyticsFlushSeconds int
	AnalyticsBatchSize    int
	// Admins
	AdminUserIDs []string
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("invalid config/config.json ignored: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()
	return Load()
}

// Set replaces the active configuration. Missing values are filled with defaults.
func Set(c AppConfig) {
	applyDefaults(&c)
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// Location returns the calendar timezone used for check-in dates.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsAdmin reports whether the given user id is configured as an admin.
func (c AppConfig) IsAdmin(userID string) bool {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false
	}
	for _, id := range c.AdminUserIDs {
		if strings.EqualFold(strings.TrimSpace(id), userID) {
			return true
		}
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads the grouped JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}
	applyJSONSections(raw, out)
	return nil
}

func applyJSONSections(raw map[string]any, out *AppConfig) {
	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.Timezone = getString(app, "Timezone")
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		if v := getString(app, "GinMode"); v != "" {
			out.GinMode = v
		}
		if v := getString(app, "GinPath"); v != "" {
			out.GinPath = v
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if rw, ok := raw["rewards"].(map[string]any); ok {
		out.CheckinCoins = getInt(rw, "CheckinCoins")
		out.CheckinXP = getInt(rw, "CheckinXP")
		out.RateLimitPerMinute = getInt(rw, "RateLimitPerMinute")
		out.SquadMaxMembers = getInt(rw, "SquadMaxMembers")
		out.BossBaseDamage = getInt(rw, "BossBaseDamage")
		out.BossStreakDamage = getInt(rw, "BossStreakDamage")
		out.BossCrystalDamage = getInt(rw, "BossCrystalDamage")
	}

	if nt, ok := raw["notifications"].(map[string]any); ok {
		out.CronSecret = getString(nt, "CronSecret")
		out.CronSecretHash = getString(nt, "CronSecretHash")
		out.FCMProjectID = getString(nt, "FCMProjectID")
		out.FCMCredentialsFile = getString(nt, "FCMCredentialsFile")
		out.PushRatePerSecond = getInt(nt, "PushRatePerSecond")
	}

	if pm, ok := raw["payments"].(map[string]any); ok {
		out.StripeSecretKey = getString(pm, "StripeSecretKey")
		out.StripeWebhookSecret = getString(pm, "StripeWebhookSecret")
		out.StripeSuccessURL = getString(pm, "SuccessURL")
		out.StripeCancelURL = getString(pm, "CancelURL")
		out.PriceStreakFreezeCts = getInt(pm, "PriceStreakFreezeCents")
		out.PricePremiumCts = getInt(pm, "PricePremiumCents")
		out.PriceRemoveAdsCts = getInt(pm, "PriceRemoveAdsCents")
		out.PaymentCurrency = getString(pm, "Currency")
	}

	if co, ok := raw["coach"].(map[string]any); ok {
		out.OpenAIKey = getString(co, "OpenAIKey")
		out.OpenAIModel = getString(co, "Model")
		out.CoachPersona = getString(co, "Persona")
		out.CoachMaxTurns = getInt(co, "MaxTurns")
	}

	if an, ok := raw["analytics"].(map[string]any); ok {
		out.AnalyticsFlushSeconds = getInt(an, "FlushSeconds")
		out.AnalyticsBatchSize = getInt(an, "BatchSize")
	}

	if adm, ok := raw["admin"].(map[string]any); ok {
		if list := getStringSlice(adm, "UserIDs"); len(list) > 0 {
			out.AdminUserIDs = list
		}
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "respira_livre"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.CheckinCoins == 0 {
		c.CheckinCoins = 10
	}
	if c.CheckinXP == 0 {
		c.CheckinXP = 5
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 100
	}
	if c.SquadMaxMembers == 0 {
		c.SquadMaxMembers = 10
	}
	if c.BossBaseDamage == 0 {
		c.BossBaseDamage = 20
	}
	if c.BossStreakDamage == 0 {
		c.BossStreakDamage = 5
	}
	if c.BossCrystalDamage == 0 {
		c.BossCrystalDamage = 10
	}
	if c.PushRatePerSecond == 0 {
		c.PushRatePerSecond = 50
	}
	if c.PriceStreakFreezeCts == 0 {
		c.PriceStreakFreezeCts = 490
	}
	if c.PricePremiumCts == 0 {
		c.PricePremiumCts = 1990
	}
	if c.PriceRemoveAdsCts == 0 {
		c.PriceRemoveAdsCts = 990
	}
	if c.PaymentCurrency == "" {
		c.PaymentCurrency = "brl"
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = "gpt-4o-mini"
	}
	if c.CoachPersona == "" {
		c.CoachPersona = "Você é o coach do Respira Livre. Ajude a pessoa a ficar sem fumar com respostas curtas, empáticas e práticas."
	}
	if c.CoachMaxTurns == 0 {
		c.CoachMaxTurns = 20
	}
	if c.AnalyticsFlushSeconds == 0 {
		c.AnalyticsFlushSeconds = 10
	}
	if c.AnalyticsBatchSize == 0 {
		c.AnalyticsBatchSize = 100
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	stringVars := map[string]*string{
		"APP_PORT":              &c.AppPort,
		"JWT_SECRET":            &c.JWTSecret,
		"APP_TIMEZONE":          &c.Timezone,
		"GIN_MODE":              &c.GinMode,
		"GIN_PATH":              &c.GinPath,
		"DATABASE_URI":          &c.DatabaseURI,
		"DB_HOST":               &c.DBHost,
		"DB_PORT":               &c.DBPort,
		"DB_USER":               &c.DBUser,
		"DB_PASSWORD":           &c.DBPassword,
		"DB_NAME":               &c.DBName,
		"REDIS_HOST":            &c.RedisHost,
		"REDIS_PASSWORD":        &c.RedisPassword,
		"LOG_LEVEL":             &c.LogLevel,
		"LOG_PATH":              &c.LogPath,
		"CRON_SECRET":           &c.CronSecret,
		"CRON_SECRET_HASH":      &c.CronSecretHash,
		"FCM_PROJECT_ID":        &c.FCMProjectID,
		"FCM_CREDENTIALS_FILE":  &c.FCMCredentialsFile,
		"STRIPE_SECRET_KEY":     &c.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": &c.StripeWebhookSecret,
		"STRIPE_SUCCESS_URL":    &c.StripeSuccessURL,
		"STRIPE_CANCEL_URL":     &c.StripeCancelURL,
		"PAYMENT_CURRENCY":      &c.PaymentCurrency,
		"OPENAI_API_KEY":        &c.OpenAIKey,
		"OPENAI_MODEL":          &c.OpenAIModel,
		"COACH_PERSONA":         &c.CoachPersona,
	}
	for key, dst := range stringVars {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	intVars := map[string]*int{
		"REDIS_PORT":              &c.RedisPort,
		"REDIS_DB":                &c.RedisDB,
		"LOG_MAX_SIZE_MB":         &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":         &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":        &c.LogMaxAgeDays,
		"CHECKIN_COINS":           &c.CheckinCoins,
		"CHECKIN_XP":              &c.CheckinXP,
		"RATE_LIMIT_PER_MINUTE":   &c.RateLimitPerMinute,
		"SQUAD_MAX_MEMBERS":       &c.SquadMaxMembers,
		"PUSH_RATE_PER_SECOND":    &c.PushRatePerSecond,
		"COACH_MAX_TURNS":         &c.CoachMaxTurns,
		"ANALYTICS_FLUSH_SECONDS": &c.AnalyticsFlushSeconds,
		"ANALYTICS_BATCH_SIZE":    &c.AnalyticsBatchSize,
	}
	for key, dst := range intVars {
		if v := getEnv(key, ""); v != "" {
			*dst = mustParseInt(v)
		}
	}

	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("ADMIN_USER_IDS", ""); v != "" {
		c.AdminUserIDs = readListEnv("ADMIN_USER_IDS", c.AdminUserIDs)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
