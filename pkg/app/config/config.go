// Package config provides a go-simpler.org/env configuration table and
// helpers for working with the list of key/value pairs stored in .env files.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"go-simpler.org/env"

	"meshrelay.dev/pkg/utils/apputil"
	"meshrelay.dev/pkg/utils/chk"
	"meshrelay.dev/pkg/utils/log"
	"meshrelay.dev/pkg/version"
)

// C holds application configuration settings loaded from environment
// variables and default values. It defines parameters for app behaviour,
// storage locations, logging, rate limiting, payment gating, moderation and
// cross-region replication used across the relay instance.
type C struct {
	AppName    string `env:"MESH_APP_NAME" default:"meshrelay"`
	Config     string `env:"MESH_CONFIG_DIR" usage:"location for configuration file, which has the name '.env'" default:"~/.config/meshrelay"`
	State      string `env:"MESH_STATE_DATA_DIR" usage:"storage location for state data (subscription/session persistence)" default:"~/.local/state/meshrelay"`
	DataDir    string `env:"MESH_DATA_DIR" usage:"storage location for the local event store" default:"~/.local/share/meshrelay"`
	Listen     string `env:"MESH_LISTEN" default:"0.0.0.0" usage:"network listen address"`
	Port       int    `env:"MESH_PORT" default:"3334" usage:"port to listen on"`
	LogLevel   string `env:"MESH_LOG_LEVEL" default:"info" usage:"log level: fatal error warn info debug trace"`
	DbLogLevel string `env:"MESH_DB_LOG_LEVEL" default:"info" usage:"log level for the local durable store: fatal error warn info debug trace"`
	Pprof      string `env:"MESH_PPROF" usage:"enable pprof on 127.0.0.1:6060" enum:"cpu,memory,allocation"`

	// Identity of this instance within the region/sibling set.
	InstanceName string `env:"MESH_INSTANCE_NAME" usage:"this instance's name, used as sourceDoId in sibling broadcasts and to exclude self from fan-out"`
	RegionLabel  string `env:"MESH_REGION" usage:"region label accepted as an upgrade query parameter"`
	ServiceURL   string `env:"MESH_SERVICE_URL" usage:"canonical wss:// URL of this instance, used to validate AUTH relay tags"`

	// Auth handshake (§4.8).
	AuthRequired  bool          `env:"MESH_AUTH_REQUIRED" default:"false" usage:"require authentication before publish and subscribe"`
	AuthTimeout   time.Duration `env:"MESH_AUTH_TIMEOUT" default:"10m" usage:"max skew between challenge response creation time and server clock"`
	PublicReadable bool         `env:"MESH_PUBLIC_READABLE" default:"true" usage:"not consulted: a REQ is refused with auth-required whenever MESH_AUTH_REQUIRED is set and the client has not authed"`

	// Rate limiting (§4.4, token buckets).
	PublishRateLimit    float64  `env:"MESH_PUBLISH_RATE_LIMIT" default:"1" usage:"publish bucket refill rate, tokens per second"`
	PublishBurst        int      `env:"MESH_PUBLISH_BURST" default:"10" usage:"publish bucket capacity"`
	SubscribeRateLimit  float64  `env:"MESH_SUBSCRIBE_RATE_LIMIT" default:"1" usage:"subscribe bucket refill rate, tokens per second"`
	SubscribeBurst      int      `env:"MESH_SUBSCRIBE_BURST" default:"10" usage:"subscribe bucket capacity"`
	ExcludedRateLimitKinds []int `env:"MESH_RATE_LIMIT_EXEMPT_KINDS" usage:"event kinds exempt from the publish token bucket (comma separated)"`

	// Payment gate (§4, Payment Cache).
	PayToRelayEnabled bool          `env:"MESH_PAY_TO_RELAY_ENABLED" default:"false" usage:"gate publish admission on the payment oracle"`
	PaymentCacheCap   int           `env:"MESH_PAYMENT_CACHE_CAP" default:"1000" usage:"max entries in the payment cache before oldest-first eviction"`
	PaymentCacheTTL   time.Duration `env:"MESH_PAYMENT_CACHE_TTL" default:"24h" usage:"TTL for a cached payment-status entry"`

	// Moderation (§4 step 7).
	Owners            []string `env:"MESH_OWNERS" usage:"pubkeys exempt from the author-blocklist check (not from the kind, content and tag checks, nor from rate limiting)"`
	Blocklist         []string `env:"MESH_BLOCKED_PUBKEYS" usage:"pubkeys refused at admission (comma separated)"`
	AllowedKinds      []int    `env:"MESH_ALLOWED_KINDS" usage:"if set, only these kinds are admitted (comma separated)"`
	BlockedSubstrings []string `env:"MESH_BLOCKED_CONTENT" usage:"content substrings that cause refusal (comma separated)"`
	AllowedTags       []string `env:"MESH_ALLOWED_TAGS" usage:"if set, only these tag names are admitted (comma separated)"`
	GiftWrapKind      int      `env:"MESH_GIFT_WRAP_KIND" default:"1059" usage:"kind exempted from the author-blocklist check"`
	ForbiddenSubscribeKinds []int `env:"MESH_FORBIDDEN_SUBSCRIBE_KINDS" usage:"kinds a REQ filter may not name (comma separated)"`

	// Cross-region broadcast fan-out (§4, Broadcast Fabric).
	RegionalEndpoints []string          `env:"MESH_REGIONAL_ENDPOINTS" usage:"sibling instance names participating in broadcast fan-out (comma separated)"`
	EndpointHints     map[string]string `env:"-" usage:"instance name -> placement hint, loaded from the .env file as MESH_ENDPOINT_HINT_<name>=<hint>"`
	BroadcastSecret   string            `env:"MESH_BROADCAST_SECRET" usage:"shared secret siblings use to authenticate /do-broadcast calls"`
	BroadcastTimeout  time.Duration     `env:"MESH_BROADCAST_TIMEOUT" default:"3s" usage:"per-sibling timeout for cross-region broadcast POSTs"`
	DedupBackend      string            `env:"MESH_DEDUP_BACKEND" default:"memory" enum:"memory,redis" usage:"where the dedup record (§3) lives: in-process memory, or a shared Redis instance"`
	RedisAddr         string            `env:"MESH_REDIS_ADDR" usage:"address of the shared Redis instance when MESH_DEDUP_BACKEND=redis"`

	// Historical-replay and cache caps (§4.9).
	HistoricalReplayLimit int           `env:"MESH_HISTORICAL_REPLAY_LIMIT" default:"500" usage:"hard clamp on events returned per filter during historical replay"`
	QueryCacheTTL         time.Duration `env:"MESH_QUERY_CACHE_TTL" default:"60s" usage:"freshness window for a cached query result"`
	QueryCacheSoftCap     int           `env:"MESH_QUERY_CACHE_SOFT_CAP" default:"100" usage:"soft cap on cached query entries before LFU eviction"`
	IdleTimeout           time.Duration `env:"MESH_IDLE_TIMEOUT" default:"5m" usage:"time with no attached sockets before the instance's in-memory caches are flushed"`
	DedupRetention        time.Duration `env:"MESH_DEDUP_RETENTION" default:"5m" usage:"how long a processed event id is remembered for duplicate suppression"`
	MaxMessageSize        int64         `env:"MESH_MAX_MESSAGE_SIZE" default:"65536" usage:"hard cap on inbound frame size in bytes"`
}

// New creates and initializes a new configuration object for the relay
// instance. It loads environment variables, applies derived defaults (XDG
// directories, auth-required-if-owners-set), and then, if a .env file
// exists in the configuration directory, loads it over the environment
// values and sets the global log level from the result.
func New() (cfg *C, err error) {
	cfg = &C{}
	if err = env.Load(cfg, &env.Options{SliceSep: ","}); chk.T(err) {
		return
	}
	if cfg.Config == "" || strings.Contains(cfg.Config, "~") {
		cfg.Config = filepath.Join(xdg.ConfigHome, cfg.AppName)
	}
	if cfg.DataDir == "" || strings.Contains(cfg.DataDir, "~") {
		cfg.DataDir = filepath.Join(xdg.DataHome, cfg.AppName)
	}
	if cfg.State == "" || strings.Contains(cfg.State, "~") {
		cfg.State = filepath.Join(xdg.StateHome, cfg.AppName)
	}
	if len(cfg.Owners) > 0 {
		cfg.AuthRequired = true
	}
	envPath := filepath.Join(cfg.Config, ".env")
	if apputil.FileExists(envPath) {
		var src map[string]string
		if src, err = readDotEnv(envPath); chk.T(err) {
			return
		}
		if err = env.Load(
			cfg, &env.Options{SliceSep: ",", Source: mapSource(src)},
		); chk.E(err) {
			return
		}
		cfg.EndpointHints = endpointHints(src)
		log.SetLevelByName(cfg.LogLevel)
		log.I.F("loaded configuration from %s", envPath)
	}
	return
}

// mapSource adapts a plain map[string]string to go-simpler.org/env's Source
// interface, which wants an os.Environ()-shaped slice of "KEY=VALUE" pairs.
type mapSource map[string]string

func (m mapSource) Environ() []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out
}

// readDotEnv parses a KEY=value<newline>... file. Lines beginning with '#'
// and blank lines are skipped; values are not further escaped, matching the
// simple format the relay itself writes via PrintEnv.
func readDotEnv(path string) (out map[string]string, err error) {
	var f *os.File
	if f, err = os.Open(path); chk.E(err) {
		return
	}
	defer f.Close()
	out = make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	err = sc.Err()
	return
}

// endpointHints extracts MESH_ENDPOINT_HINT_<name>=<hint> entries from a
// parsed .env map, since go-simpler.org/env has no native support for
// dynamically-named keys.
func endpointHints(src map[string]string) map[string]string {
	const prefix = "MESH_ENDPOINT_HINT_"
	out := make(map[string]string)
	for k, v := range src {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}

// HelpRequested reports whether the command line arguments indicate a
// request for help.
func HelpRequested() (help bool) {
	if len(os.Args) > 1 {
		switch strings.ToLower(os.Args[1]) {
		case "help", "-h", "--h", "-help", "--help", "?":
			help = true
		}
	}
	return
}

// GetEnv reports whether the first command line argument is "env", meaning
// the environment configuration should be printed.
func GetEnv() (requested bool) {
	if len(os.Args) > 1 {
		switch strings.ToLower(os.Args[1]) {
		case "env":
			requested = true
		}
	}
	return
}

// KV is a key/value pair.
type KV struct{ Key, Value string }

// KVSlice is a sortable slice of key/value pairs.
type KVSlice []KV

func (kv KVSlice) Len() int           { return len(kv) }
func (kv KVSlice) Less(i, j int) bool { return kv[i].Key < kv[j].Key }
func (kv KVSlice) Swap(i, j int)      { kv[i], kv[j] = kv[j], kv[i] }

// Compose merges two KVSlice instances into a new slice where key-value
// pairs from kv2 override any duplicate keys from the receiver.
func (kv KVSlice) Compose(kv2 KVSlice) (out KVSlice) {
	out = append(out, kv...)
out:
	for i, p := range kv2 {
		for j, q := range out {
			if p.Key == q.Key {
				out[j].Value = kv2[i].Value
				continue out
			}
		}
		out = append(out, p)
	}
	return
}

// EnvKV generates key/value pairs from a configuration object's struct tags.
func EnvKV(cfg any) (m KVSlice) {
	t := reflect.TypeOf(cfg)
	for i := 0; i < t.NumField(); i++ {
		k := t.Field(i).Tag.Get("env")
		if k == "" || k == "-" {
			continue
		}
		v := reflect.ValueOf(cfg).Field(i).Interface()
		var val string
		switch x := v.(type) {
		case string:
			val = x
		case int, bool, float64, time.Duration, int64:
			val = fmt.Sprint(x)
		case []string:
			if len(x) > 0 {
				val = strings.Join(x, ",")
			}
		case []int:
			parts := make([]string, len(x))
			for j, n := range x {
				parts[j] = fmt.Sprint(n)
			}
			val = strings.Join(parts, ",")
		}
		m = append(m, KV{k, val})
	}
	return
}

// PrintEnv outputs sorted environment key/value pairs from a configuration
// object to the provided writer, formatted as "key=value\n".
func PrintEnv(cfg *C, printer io.Writer) {
	kvs := EnvKV(*cfg)
	sort.Sort(kvs)
	for _, v := range kvs {
		_, _ = fmt.Fprintf(printer, "%s=%s\n", v.Key, v.Value)
	}
}

// PrintHelp prints application version, environment variable documentation,
// .env file handling notes, and the current configuration to the provided
// writer.
func PrintHelp(cfg *C, printer io.Writer) {
	_, _ = fmt.Fprintf(printer, "%s %s\n\n", cfg.AppName, version.V)
	_, _ = fmt.Fprintf(
		printer, "Environment variables that configure %s:\n\n", cfg.AppName,
	)
	env.Usage(cfg, printer, &env.Options{SliceSep: ","})
	_, _ = fmt.Fprintf(
		printer,
		"\nCLI parameter 'help' also prints this information\n"+
			"\n.env file found at the path %s will be automatically "+
			"loaded for configuration.\nits values override the environment and "+
			"you can also edit the file to set configuration options\n\n"+
			"use the parameter 'env' to print out the current configuration to the terminal\n\n"+
			"set the environment using\n\n\t%s env > %s/.env\n",
		cfg.Config, os.Args[0], cfg.Config,
	)
	_, _ = fmt.Fprintf(printer, "\ncurrent configuration:\n\n")
	PrintEnv(cfg, printer)
	_, _ = fmt.Fprintln(printer)
}
