package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// sampleFile mirrors the viper key layout so a generated file round-trips
// through Load unchanged.
type sampleFile struct {
	Snapshot sampleCluster `yaml:"snapshot"`
	Restore  sampleCluster `yaml:"restore"`

	Repository struct {
		Name     string `yaml:"name"`
		Type     string `yaml:"type"`
		Location string `yaml:"location,omitempty"`
	} `yaml:"repository"`

	S3 struct {
		Bucket          string `yaml:"bucket"`
		BasePath        string `yaml:"base_path"`
		Region          string `yaml:"region"`
		Endpoint        string `yaml:"endpoint,omitempty"`
		Protocol        string `yaml:"protocol"`
		PathStyleAccess bool   `yaml:"path_style_access"`
	} `yaml:"s3"`

	Indices      string `yaml:"indices"`
	SnapshotName string `yaml:"snapshot_name,omitempty"`

	Retention struct {
		Enabled            bool `yaml:"enabled"`
		MaxSnapshots       int  `yaml:"max_snapshots"`
		MaxAgeDays         int  `yaml:"max_age_days"`
		KeepSuccessfulOnly bool `yaml:"keep_successful_only"`
	} `yaml:"retention"`

	RequestTimeout string `yaml:"request_timeout"`
	WaitTimeout    string `yaml:"wait_timeout"`
}

type sampleCluster struct {
	Hosts       string `yaml:"hosts"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	VerifyCerts bool   `yaml:"verify_certs"`
}

// WriteSample writes a commented starter configuration to path. It refuses
// to overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing %s", path)
	}

	var s sampleFile
	s.Snapshot = sampleCluster{Hosts: "https://localhost:9200", Username: "elastic", Password: "changeme", VerifyCerts: true}
	s.Restore = sampleCluster{Hosts: "", Username: "", Password: "", VerifyCerts: true}
	s.Repository.Name = "s3_snapshots"
	s.Repository.Type = "s3"
	s.S3.Bucket = "my-snapshot-bucket"
	s.S3.BasePath = "elasticsearch-snapshots"
	s.S3.Region = "eu-west-1"
	s.S3.Protocol = "https"
	s.S3.PathStyleAccess = true
	s.Indices = "logs-*,metrics-*"
	s.Retention.Enabled = true
	s.Retention.MaxSnapshots = 10
	s.Retention.MaxAgeDays = 30
	s.Retention.KeepSuccessfulOnly = true
	s.RequestTimeout = "30s"
	s.WaitTimeout = "30m"

	out, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("marshal sample config: %w", err)
	}

	header := []byte("# essnap configuration. Every key can also be set through the\n# environment (SNAPSHOT_HOSTS, ES_REPOSITORY_NAME, ES_INDICES, ...).\n")
	return os.WriteFile(path, append(header, out...), 0o600)
}
