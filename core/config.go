package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Over-payment policies
const (
	OverpaymentAccept = "accept"
	OverpaymentCap    = "cap"
	OverpaymentReject = "reject"
)

type (
	Config struct {
		Debug           bool   `mapstructure:"debug"`
		TestMode        bool   `mapstructure:"testMode"`
		Env             string `mapstructure:"env"`
		Build           string `mapstructure:"build"`
		AppName         string `mapstructure:"appName"`
		SecretKey       string `mapstructure:"secretKey"`
		FrontendBaseURL string `mapstructure:"frontendBaseURL"`
		FromEmail       string `mapstructure:"defaultFromEmail"`
		SendgridAPIKey  string `mapstructure:"sendgridApiKey"`
		RollbarToken    string `mapstructure:"rollbarToken"`
		WorkDir         string `mapstructure:"-"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
		Billing  BillingConfig  `mapstructure:"billing"`
	}

	ServerConfig struct {
		Host                      string        `mapstructure:"host"`
		DebugHost                 string        `mapstructure:"debugHost"`
		ShutdownTimeout           time.Duration `mapstructure:"shutdownTimeout"`
		JWTExpirationDelta        time.Duration `mapstructure:"jwtExpirationDelta"`
		JWTRefreshExpirationDelta time.Duration `mapstructure:"jwtRefreshExpirationDelta"`
		PasswordResetTimeoutDelta time.Duration `mapstructure:"passwordResetTimeoutDelta"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"`
		Host          string `mapstructure:"host"`
		Port          int    `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
	}

	BillingConfig struct {
		// DedupeCustomGenerate makes custom generation skip existing (student, fee, month) invoices
		// the same way quick generation does. Off by default.
		DedupeCustomGenerate bool          `mapstructure:"dedupeCustomGenerate"`
		OverpaymentPolicy    string        `mapstructure:"overpaymentPolicy"`
		CacheTTL             time.Duration `mapstructure:"cacheTTL"`
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.FromEmail}
}

// NewConfig loads the app configuration from defaults, the optional `config/.env.<env>` file and
// the environment (prefixed with the uppercased env name, eg. `PROD_SECRETKEY`).
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Biilasha")
	v.SetDefault("secretKey", "k3m9-wq)zn7$+21=ds&oexh5(b!r)#*c8(#ug4h^$cegm2fee")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "biilasha")
	v.SetDefault("database.user", "biilasha")
	v.SetDefault("database.password", "biilasha")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("billing.dedupeCustomGenerate", false)
	v.SetDefault("billing.overpaymentPolicy", OverpaymentAccept)
	v.SetDefault("billing.cacheTTL", time.Minute)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.Set("env", env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about, which all have defaults above.
	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	conf.WorkDir = wd
	conf.Billing.OverpaymentPolicy = CleanString(conf.Billing.OverpaymentPolicy, true /* lower */)
	return conf
}

// NewTestConfig returns a config suitable for tests: no env/.env lookups, short deltas.
func NewTestConfig() *Config {
	return &Config{
		Debug:           false,
		TestMode:        true,
		Env:             "TEST",
		Build:           "test",
		AppName:         "Biilasha",
		SecretKey:       "secret",
		FrontendBaseURL: "http://localhost:3000",
		FromEmail:       "noreply@localhost",
		Server: ServerConfig{
			Host:                      ":8000",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		},
		Billing: BillingConfig{
			OverpaymentPolicy: OverpaymentAccept,
			CacheTTL:          time.Minute,
		},
	}
}
