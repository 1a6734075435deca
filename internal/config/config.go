// Package config loads and validates the tool's configuration from
// environment variables and an optional YAML file. Workflows receive
// immutable, already-validated structs; nothing downstream re-parses or
// re-validates.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dm/essnap-go/internal/client"
	"github.com/dm/essnap-go/internal/model"
)

// ClusterConfig describes one Elasticsearch cluster endpoint.
type ClusterConfig struct {
	Hosts       []string
	Username    string
	Password    string
	VerifyCerts bool
}

// Primary returns the first configured host. The client speaks to a single
// base URL; additional hosts are accepted for compatibility with the
// comma-separated environment convention.
func (c ClusterConfig) Primary() string {
	if len(c.Hosts) == 0 {
		return ""
	}
	return c.Hosts[0]
}

// S3Settings carries the object-store settings forwarded opaquely inside
// the repository registration request.
type S3Settings struct {
	Bucket          string
	BasePath        string
	Region          string
	Endpoint        string
	Protocol        string
	PathStyleAccess bool
}

// RepositoryConfig names the snapshot repository and its backing store.
// Repositories named with an "s3_" prefix default to S3 backing, everything
// else to a filesystem location on the cluster.
type RepositoryConfig struct {
	Name     string
	Type     string // "s3" or "fs"; derived from Name when empty
	S3       S3Settings
	Location string // fs only
}

// RetentionConfig holds the rotation defaults applied after a backup.
type RetentionConfig struct {
	Enabled            bool
	MaxSnapshots       int
	MaxAgeDays         int
	KeepSuccessfulOnly bool
}

// Config is the full validated configuration for one invocation.
type Config struct {
	Snapshot   ClusterConfig
	Restore    ClusterConfig
	Repository RepositoryConfig
	Indices    []string

	// SnapshotName overrides the generated name for backups.
	SnapshotName string

	RequestTimeout time.Duration
	WaitTimeout    time.Duration

	Retention RetentionConfig
}

// envBindings maps config keys to the environment variables the original
// deployment convention uses.
var envBindings = map[string]string{
	"snapshot.hosts":        "SNAPSHOT_HOSTS",
	"snapshot.username":     "SNAPSHOT_USERNAME",
	"snapshot.password":     "SNAPSHOT_PASSWORD",
	"snapshot.verify_certs": "SNAPSHOT_VERIFY_CERTS",

	"restore.hosts":        "RESTORE_HOSTS",
	"restore.username":     "RESTORE_USERNAME",
	"restore.password":     "RESTORE_PASSWORD",
	"restore.verify_certs": "RESTORE_VERIFY_CERTS",

	"repository.name": "ES_REPOSITORY_NAME",
	"snapshot_name":   "ES_SNAPSHOT_NAME",
	"indices":         "ES_INDICES",

	"s3.bucket":            "S3_BUCKET_NAME",
	"s3.base_path":         "S3_BASE_PATH",
	"s3.region":            "S3_REGION",
	"s3.endpoint":          "S3_ENDPOINT",
	"s3.protocol":          "S3_PROTOCOL",
	"s3.path_style_access": "S3_PATH_STYLE_ACCESS",

	"retention.enabled":              "ENABLE_ROTATION",
	"retention.max_snapshots":        "MAX_SNAPSHOTS",
	"retention.max_age_days":         "MAX_AGE_DAYS",
	"retention.keep_successful_only": "KEEP_SUCCESSFUL_ONLY",

	"request_timeout": "ES_REQUEST_TIMEOUT",
	"wait_timeout":    "ES_WAIT_TIMEOUT",
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("snapshot.verify_certs", true)
	v.SetDefault("restore.verify_certs", true)
	v.SetDefault("s3.base_path", "elasticsearch-snapshots")
	v.SetDefault("s3.protocol", "https")
	v.SetDefault("s3.path_style_access", true)
	v.SetDefault("retention.max_snapshots", 10)
	v.SetDefault("retention.max_age_days", 30)
	v.SetDefault("retention.keep_successful_only", true)
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("wait_timeout", "30m")

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

// Load reads configuration from the environment and, when path is
// non-empty, a YAML file whose values take precedence over defaults but not
// over explicit environment variables (standard viper ordering).
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Snapshot: ClusterConfig{
			Hosts:       splitList(v.GetString("snapshot.hosts")),
			Username:    v.GetString("snapshot.username"),
			Password:    v.GetString("snapshot.password"),
			VerifyCerts: v.GetBool("snapshot.verify_certs"),
		},
		Restore: ClusterConfig{
			Hosts:       splitList(v.GetString("restore.hosts")),
			Username:    v.GetString("restore.username"),
			Password:    v.GetString("restore.password"),
			VerifyCerts: v.GetBool("restore.verify_certs"),
		},
		Repository: RepositoryConfig{
			Name: v.GetString("repository.name"),
			Type: v.GetString("repository.type"),
			S3: S3Settings{
				Bucket:          v.GetString("s3.bucket"),
				BasePath:        v.GetString("s3.base_path"),
				Region:          v.GetString("s3.region"),
				Endpoint:        v.GetString("s3.endpoint"),
				Protocol:        v.GetString("s3.protocol"),
				PathStyleAccess: v.GetBool("s3.path_style_access"),
			},
			Location: v.GetString("repository.location"),
		},
		Indices:        splitList(v.GetString("indices")),
		SnapshotName:   v.GetString("snapshot_name"),
		RequestTimeout: v.GetDuration("request_timeout"),
		WaitTimeout:    v.GetDuration("wait_timeout"),
		Retention: RetentionConfig{
			Enabled:            v.GetBool("retention.enabled"),
			MaxSnapshots:       v.GetInt("retention.max_snapshots"),
			MaxAgeDays:         v.GetInt("retention.max_age_days"),
			KeepSuccessfulOnly: v.GetBool("retention.keep_successful_only"),
		},
	}

	if cfg.Repository.Type == "" {
		if strings.HasPrefix(cfg.Repository.Name, "s3_") {
			cfg.Repository.Type = "s3"
		} else {
			cfg.Repository.Type = "fs"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the cross-field constraints once, at the boundary.
func (c *Config) Validate() error {
	if len(c.Snapshot.Hosts) == 0 {
		return fmt.Errorf("snapshot hosts are required (SNAPSHOT_HOSTS)")
	}
	for _, h := range append(append([]string{}, c.Snapshot.Hosts...), c.Restore.Hosts...) {
		if err := validateHost(h); err != nil {
			return err
		}
	}
	if c.Repository.Name == "" {
		return fmt.Errorf("repository name is required (ES_REPOSITORY_NAME)")
	}
	switch c.Repository.Type {
	case "s3":
		if c.Repository.S3.Bucket == "" {
			return fmt.Errorf("s3 repository %q requires a bucket (S3_BUCKET_NAME)", c.Repository.Name)
		}
		if c.Repository.S3.Region == "" {
			return fmt.Errorf("s3 repository %q requires a region (S3_REGION)", c.Repository.Name)
		}
	case "fs":
	default:
		return fmt.Errorf("unsupported repository type %q", c.Repository.Type)
	}
	if len(c.Indices) == 0 {
		return fmt.Errorf("at least one index is required (ES_INDICES)")
	}
	if c.Retention.MaxSnapshots < 0 {
		return fmt.Errorf("retention.max_snapshots must not be negative")
	}
	if c.Retention.MaxAgeDays < 0 {
		return fmt.Errorf("retention.max_age_days must not be negative")
	}
	return nil
}

func validateHost(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid host %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid host %q: scheme must be http or https", raw)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("invalid host %q: hostname is required", raw)
	}
	return nil
}

// SnapshotClientConfig builds the client configuration for the snapshot
// cluster.
func (c *Config) SnapshotClientConfig() client.ClientConfig {
	return c.clientConfig(c.Snapshot)
}

// RestoreClientConfig builds the client configuration for the restore
// target. When no restore cluster is configured, the snapshot cluster is
// used.
func (c *Config) RestoreClientConfig() client.ClientConfig {
	cluster := c.Restore
	if len(cluster.Hosts) == 0 {
		cluster = c.Snapshot
	}
	return c.clientConfig(cluster)
}

func (c *Config) clientConfig(cluster ClusterConfig) client.ClientConfig {
	return client.ClientConfig{
		BaseURL:            cluster.Primary(),
		Username:           cluster.Username,
		Password:           cluster.Password,
		InsecureSkipVerify: !cluster.VerifyCerts,
		RequestTimeout:     c.RequestTimeout,
		RepositoryName:     c.Repository.Name,
		RepositorySettings: client.RepositorySettings{
			Type:            c.Repository.Type,
			Bucket:          c.Repository.S3.Bucket,
			BasePath:        c.Repository.S3.BasePath,
			Region:          c.Repository.S3.Region,
			Endpoint:        c.Repository.S3.Endpoint,
			Protocol:        c.Repository.S3.Protocol,
			PathStyleAccess: c.Repository.S3.PathStyleAccess,
			Location:        c.Repository.Location,
		},
	}
}

// RotationPolicy converts the retention defaults into a policy evaluated at
// the given time.
func (c *Config) RotationPolicy(now time.Time) model.RetentionPolicy {
	return model.RetentionPolicy{
		MaxSnapshots:       c.Retention.MaxSnapshots,
		OlderThan:          now.AddDate(0, 0, -c.Retention.MaxAgeDays),
		KeepSuccessfulOnly: c.Retention.KeepSuccessfulOnly,
	}
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
