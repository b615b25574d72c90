// Package config loads rentledger configuration.
//
// Resolution order: built-in defaults, then an optional YAML file (unknown
// keys rejected), then RENTLEDGER_* environment variables. The result is
// checked against the embedded CUE schema and the domain's own rules.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rentledger/internal/authz"
	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/events"
	"github.com/roach88/rentledger/internal/identity"
	"github.com/roach88/rentledger/internal/payment"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RENTLEDGER_"

type Config struct {
	Ledger   LedgerConfig   `yaml:"ledger" json:"ledger"`
	Authz    AuthzConfig    `yaml:"authz" json:"authz"`
	Contract ContractConfig `yaml:"contract" json:"contract"`
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`
	Events   EventsConfig   `yaml:"events" json:"events"`
	Gateway  GatewayConfig  `yaml:"gateway" json:"gateway"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

type LedgerConfig struct {
	Path string `yaml:"path" json:"path"`
}

type AuthzConfig struct {
	PrivilegedOrgs      []string `yaml:"privileged_orgs" json:"privileged_orgs"`
	PrivilegedRoles     []string `yaml:"privileged_roles" json:"privileged_roles"`
	RoleAttribute       string   `yaml:"role_attribute" json:"role_attribute"`
	EnrollmentAttribute string   `yaml:"enrollment_attribute" json:"enrollment_attribute"`
}

type ContractConfig struct {
	Currencies      []string `yaml:"currencies" json:"currencies"`
	DefaultCurrency string   `yaml:"default_currency" json:"default_currency"`
}

type ScheduleConfig struct {
	// Interval is "monthly" or a Go duration such as "720h".
	Interval string `yaml:"interval" json:"interval"`
}

type EventsConfig struct {
	Redis events.RedisOptions `yaml:"redis" json:"redis"`
	MQTT  events.MQTTOptions  `yaml:"mqtt" json:"mqtt"`
}

type GatewayConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	JWTSecret string `yaml:"jwt_secret" json:"jwt_secret"`

	// SweepCron schedules the overdue sweep; empty disables it.
	SweepCron string `yaml:"sweep_cron" json:"sweep_cron"`

	// SweeperOrg and SweeperID identify the sweep in audit records.
	SweeperOrg string `yaml:"sweeper_org" json:"sweeper_org"`
	SweeperID  string `yaml:"sweeper_id" json:"sweeper_id"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	guard := authz.DefaultGuard()
	currencies := domain.DefaultCurrencyPolicy()
	return &Config{
		Ledger: LedgerConfig{Path: "rentledger.db"},
		Authz: AuthzConfig{
			PrivilegedOrgs:      guard.PrivilegedOrgs,
			PrivilegedRoles:     guard.PrivilegedRoles,
			RoleAttribute:       guard.RoleAttribute,
			EnrollmentAttribute: identity.DefaultEnrollmentAttribute,
		},
		Contract: ContractConfig{
			Currencies:      currencies.Allowed,
			DefaultCurrency: currencies.Default,
		},
		Schedule: ScheduleConfig{Interval: "monthly"},
		Events: EventsConfig{
			Redis: events.RedisOptions{Stream: events.DefaultStream},
			MQTT:  events.MQTTOptions{ClientID: "rentledger", TopicPrefix: events.DefaultTopicPrefix, QoS: 1},
		},
		Gateway: GatewayConfig{
			Addr:       ":8080",
			SweepCron:  "@hourly",
			SweeperOrg: "OrgPropMSP",
			SweeperID:  "overdue-sweeper",
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load resolves the configuration. path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := cfg.Decode(f); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode overlays YAML from r onto c. Unknown keys are an error.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// ApplyEnv overlays the RENTLEDGER_* variables found through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(EnvPrefix + name)); v != "" {
			*dst = v
		}
	}
	set("DB", &c.Ledger.Path)
	set("LOG_LEVEL", &c.Log.Level)
	set("LOG_FORMAT", &c.Log.Format)
	set("INTERVAL", &c.Schedule.Interval)
	set("REDIS_ADDR", &c.Events.Redis.Addr)
	set("REDIS_PASSWORD", &c.Events.Redis.Password)
	set("MQTT_BROKER", &c.Events.MQTT.Broker)
	set("JWT_SECRET", &c.Gateway.JWTSecret)
	set("GATEWAY_ADDR", &c.Gateway.Addr)
}

// Validate checks c against the CUE schema, then the currency policy and
// the schedule interval.
func (c *Config) Validate() error {
	if err := c.validateSchema(); err != nil {
		return err
	}
	if err := c.Currencies().Validate(); err != nil {
		return fmt.Errorf("contract: %w", err)
	}
	if _, err := c.Interval(); err != nil {
		return fmt.Errorf("schedule.interval: %w", err)
	}
	return nil
}

func (c *Config) validateSchema() error {
	normalized := *c
	normalized.Authz.PrivilegedOrgs = nonNil(c.Authz.PrivilegedOrgs)
	normalized.Authz.PrivilegedRoles = nonNil(c.Authz.PrivilegedRoles)
	normalized.Contract.Currencies = nonNil(c.Contract.Currencies)

	data, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	value := ctx.CompileBytes(data, cue.Filename("config.json"))
	if err := value.Err(); err != nil {
		return fmt.Errorf("load config value: %w", err)
	}
	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Interval parses the schedule interval.
func (c *Config) Interval() (payment.Interval, error) {
	return payment.ParseInterval(c.Schedule.Interval)
}

// Guard builds the authorization policy.
func (c *Config) Guard() authz.Guard {
	return authz.Guard{
		Resolver:        identity.NewResolver(c.Authz.EnrollmentAttribute),
		PrivilegedOrgs:  c.Authz.PrivilegedOrgs,
		PrivilegedRoles: c.Authz.PrivilegedRoles,
		RoleAttribute:   c.Authz.RoleAttribute,
	}
}

// Currencies builds the currency policy.
func (c *Config) Currencies() domain.CurrencyPolicy {
	return domain.CurrencyPolicy{
		Allowed: c.Contract.Currencies,
		Default: c.Contract.DefaultCurrency,
	}
}

// Sweeper returns the identity the overdue sweep acts as.
func (c *Config) Sweeper() identity.Static {
	return identity.NewUser(c.Gateway.SweeperOrg, c.Gateway.SweeperID)
}

// String renders c as YAML with secrets masked.
func (c *Config) String() string {
	masked := *c
	if masked.Gateway.JWTSecret != "" {
		masked.Gateway.JWTSecret = "****"
	}
	if masked.Events.Redis.Password != "" {
		masked.Events.Redis.Password = "****"
	}
	if masked.Events.MQTT.Password != "" {
		masked.Events.MQTT.Password = "****"
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	_ = enc.Encode(masked)
	return buf.String()
}
