package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (default), TEST, QA, PROD
		Build    string
		AppName  string

		SecretKey        string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Tenancy  TenancyConfig
		Sync     SyncConfig
		Report   ReportConfig
	}

	ServerConfig struct {
		Host                       string
		Addr                       string
		DebugHost                  string
		ShutdownTimeout            time.Duration
		DeviceTokenExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	// TenancyConfig declares the set of known schools and, for schools running
	// a device-local replica, the path of their SQLite store. Schools without a
	// replica entry are served by the central cloud store.
	TenancyConfig struct {
		Schools  []int
		Replicas map[int]string
	}

	SyncConfig struct {
		// StrictConflict guards upserts with an updated_at comparison instead of
		// the source-compatible unconditional overwrite.
		StrictConflict bool
	}

	ReportConfig struct {
		Recipients []mail.Address
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// NewConfig loads the app configuration from the environment,
// with an optional config/.env.<env> dotenv file for local development.
func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "SmartSchool")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "+yfgb)o0a(=q9#fsm*&3-vq5e4@7u$z&0n^pym^zd$=!75t%yt")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddr", ":8000")
	conf.SetDefault("serverDebugHost", "localhost:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("deviceTokenExpirationDelta", 90*24*time.Hour)
	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbName", "smartschool")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbDisableTLS", true)
	conf.SetDefault("schools", "")
	conf.SetDefault("replicaStores", "")
	conf.SetDefault("syncStrictConflict", false)
	conf.SetDefault("reportRecipients", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	c := &Config{
		Debug:            conf.GetBool("debug"),
		TestMode:         env == "TEST",
		Env:              env,
		Build:            conf.GetString("build"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		DefaultFromEmail: mail.Address{Address: conf.GetString("defaultFromEmail")},
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                       conf.GetString("serverHost"),
			Addr:                       conf.GetString("serverAddr"),
			DebugHost:                  conf.GetString("serverDebugHost"),
			ShutdownTimeout:            conf.GetDuration("serverShutdownTimeout"),
			DeviceTokenExpirationDelta: conf.GetDuration("deviceTokenExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Tenancy: TenancyConfig{
			Schools:  parseSchools(conf.GetString("schools")),
			Replicas: parseReplicas(conf.GetString("replicaStores")),
		},
		Sync: SyncConfig{
			StrictConflict: conf.GetBool("syncStrictConflict"),
		},
		Report: ReportConfig{
			Recipients: parseRecipients(conf.GetString("reportRecipients")),
		},
	}

	if !(c.Debug || c.TestMode) {
		vala.BeginValidation().Validate(
			vala.StringNotEmpty(c.SecretKey, "secretKey"),
			vala.StringNotEmpty(c.Database.User, "dbUser"),
			vala.StringNotEmpty(c.SendgridApiKey, "sendgridApiKey"),
		).CheckAndPanic()
	}
	return c
}

// parseSchools parses "1,2,5" into school IDs.
func parseSchools(s string) []int {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			log.Fatalf("config.parseSchools(%q): %v", s, err)
		}
		ids = append(ids, id)
	}
	return ids
}

// parseReplicas parses "2=/data/school2.db;5=/data/school5.db".
func parseReplicas(s string) map[int]string {
	replicas := make(map[int]string)
	if s = strings.TrimSpace(s); s == "" {
		return replicas
	}
	for _, entry := range strings.Split(s, ";") {
		parts := strings.SplitN(strings.TrimSpace(entry), "=", 2)
		if len(parts) != 2 || parts[1] == "" {
			log.Fatalf("config.parseReplicas(%q): malformed entry %q", s, entry)
		}
		id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			log.Fatalf("config.parseReplicas(%q): %v", s, err)
		}
		replicas[id] = parts[1]
	}
	return replicas
}

func parseRecipients(s string) []mail.Address {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	addrs := make([]mail.Address, 0, len(parts))
	for _, p := range parts {
		addrs = append(addrs, mail.Address{Address: strings.TrimSpace(p)})
	}
	return addrs
}
