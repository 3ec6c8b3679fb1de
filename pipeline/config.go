// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/macro/db"
	"github.com/stockparfait/macro/load"
	"github.com/stockparfait/macro/message"
	"github.com/stockparfait/macro/source"

	toml "github.com/pelletier/go-toml/v2"
)

// Window splitting modes.
const (
	SplitMonthly = "monthly"
	SplitNone    = "none"
)

// SeriesConfig configures the acquisition of one series. Empty fields take the
// series defaults.
type SeriesConfig struct {
	EndpointURL        string            `toml:"endpoint_url"`
	Credential         string            `toml:"credential"`
	CredentialEnv      string            `toml:"credential_env"` // env var with the credential
	OutputPath         string            `toml:"output_path"`    // relative to output_dir
	PacingDelay        *time.Duration    `toml:"pacing_delay"`
	Timeout            time.Duration     `toml:"timeout"`
	Auth               string            `toml:"auth" choices:",none,header,bearer,query"`
	AuthParam          string            `toml:"auth_param"`
	Split              string            `toml:"split" choices:",monthly,none"`
	InsecureSkipVerify *bool             `toml:"insecure_skip_verify"`
	Params             map[string]string `toml:"params"`
	Destination        string            `toml:"destination"` // load destination name
}

var _ message.Message = &SeriesConfig{}

// InitMessage implements message.Message.
func (c *SeriesConfig) InitMessage(js any) error {
	return message.Init(c, js)
}

// withDefaults fills in the empty fields from d.
func (c SeriesConfig) withDefaults(d SeriesConfig) SeriesConfig {
	str := func(v *string, dv string) {
		if *v == "" {
			*v = dv
		}
	}
	str(&c.EndpointURL, d.EndpointURL)
	str(&c.CredentialEnv, d.CredentialEnv)
	str(&c.OutputPath, d.OutputPath)
	str(&c.Auth, d.Auth)
	str(&c.AuthParam, d.AuthParam)
	str(&c.Split, d.Split)
	str(&c.Destination, d.Destination)
	if c.PacingDelay == nil {
		c.PacingDelay = d.PacingDelay
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.InsecureSkipVerify == nil {
		c.InsecureSkipVerify = d.InsecureSkipVerify
	}
	if c.Params == nil {
		c.Params = d.Params
	}
	return c
}

// resolveCredential reads the credential from the environment unless it is
// given explicitly.
func (c *SeriesConfig) resolveCredential() {
	if c.Credential == "" && c.CredentialEnv != "" {
		c.Credential = os.Getenv(c.CredentialEnv)
	}
}

// Pacing delay between calls, 0 when unset.
func (c *SeriesConfig) Pacing() time.Duration {
	if c.PacingDelay == nil {
		return 0
	}
	return *c.PacingDelay
}

// endpoint builds the source endpoint with the series' request conventions.
func (c *SeriesConfig) endpoint(startParam, endParam, layout string) source.Endpoint {
	params := make(url.Values)
	for k, v := range c.Params {
		params.Set(k, v)
	}
	return source.Endpoint{
		URL:                c.EndpointURL,
		Credential:         c.Credential,
		Auth:               source.AuthKind(c.Auth),
		AuthParam:          c.AuthParam,
		Params:             params,
		StartParam:         startParam,
		EndParam:           endParam,
		DateLayout:         layout,
		Timeout:            c.Timeout,
		InsecureSkipVerify: c.InsecureSkipVerify != nil && *c.InsecureSkipVerify,
	}
}

// MergedConfig configures the merged CPI and interest table.
type MergedConfig struct {
	OutputPath  string `toml:"output_path" default:"cpi_int_data.csv"`
	Destination string `toml:"destination" default:"cpi_int_data"`
}

var _ message.Message = &MergedConfig{}

// InitMessage implements message.Message.
func (c *MergedConfig) InitMessage(js any) error {
	return message.Init(c, js)
}

// LoadConfig selects the bulk loader.
type LoadConfig struct {
	Kind     string               `toml:"kind" default:"none" choices:"none,dir,object,postgres,queue"`
	Dir      string               `toml:"dir"`
	Object   *load.ObjectConfig   `toml:"object"`
	Postgres *load.PostgresConfig `toml:"postgres"`
	Queue    *load.QueueConfig    `toml:"queue"`
}

var _ message.Message = &LoadConfig{}

// InitMessage implements message.Message.
func (c *LoadConfig) InitMessage(js any) error {
	if err := message.Init(c, js); err != nil {
		return err
	}
	switch {
	case c.Kind == "dir" && c.Dir == "":
		return errors.Reason("load kind 'dir' requires dir")
	case c.Kind == "object" && c.Object == nil:
		return errors.Reason("load kind 'object' requires [load.object]")
	case c.Kind == "postgres" && c.Postgres == nil:
		return errors.Reason("load kind 'postgres' requires [load.postgres]")
	case c.Kind == "queue" && c.Queue == nil:
		return errors.Reason("load kind 'queue' requires [load.queue]")
	}
	return nil
}

// Loader creates the configured loader, or nil for kind "none".
func (c *LoadConfig) Loader() (load.Loader, error) {
	switch c.Kind {
	case "dir":
		return &load.DirLoader{Dir: c.Dir}, nil
	case "object":
		return load.NewObjectLoader(*c.Object)
	case "postgres":
		return load.NewPostgresLoader(*c.Postgres)
	case "queue":
		return load.NewQueueLoader(*c.Queue)
	}
	return nil, nil
}

// Config of the pipeline.
type Config struct {
	Start       db.Date      `toml:"start" required:"true"`
	End         db.Date      `toml:"end" required:"true"`
	OutputDir   string       `toml:"output_dir" default:"."`
	MetricsPath string       `toml:"metrics_path"` // Prometheus textfile, if set
	FX          SeriesConfig `toml:"fx"`
	CPI         SeriesConfig `toml:"cpi"`
	Interest    SeriesConfig `toml:"interest"`
	Merged      MergedConfig `toml:"merged"`
	Load        LoadConfig   `toml:"load"`
}

var _ message.Message = &Config{}

// InitMessage implements message.Message. It applies the series defaults and
// validates the dates. Endpoints are checked when their series runs, so that a
// missing credential of one series doesn't block the others.
func (c *Config) InitMessage(js any) error {
	if err := message.Init(c, js); err != nil {
		return errors.Annotate(err, "failed to parse config")
	}
	if c.Start.IsZero() || c.End.IsZero() {
		return errors.Reason("start and end dates are required")
	}
	if c.End.Before(c.Start) {
		return errors.Reason("start %s is after end %s", c.Start, c.End)
	}
	c.FX = c.FX.withDefaults(DefaultFX)
	c.CPI = c.CPI.withDefaults(DefaultCPI)
	c.Interest = c.Interest.withDefaults(DefaultInterest)
	for _, s := range []*SeriesConfig{&c.FX, &c.CPI, &c.Interest} {
		s.resolveCredential()
	}
	return nil
}

// Path resolves a path relative to the output directory.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.OutputDir, p)
}

// SampleConfig is printed when the config file is missing.
const SampleConfig = `start = 2023-01-01
end = 2024-11-30
output_dir = "/var/lib/macro"
metrics_path = "/var/lib/node_exporter/macro.prom"

[fx]
credential_env = "BOT_API_KEY"

[cpi]

[interest]
credential_env = "BOT_API_KEY"
pacing_delay = "1s"

[load]
kind = "dir"
dir = "/var/lib/macro/warehouse"
`

// ParseConfig reads the TOML configuration file.
func ParseConfig(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Annotate(err,
				"config file '%s' does not exist.\nPlease create config file containing:\n%s",
				filePath, SampleConfig)
		}
		return nil, errors.Annotate(err,
			"cannot check config file for existence: '%s'", filePath)
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	var js map[string]any
	if err := toml.NewDecoder(f).Decode(&js); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	var c Config
	if err := c.InitMessage(js); err != nil {
		return nil, errors.Annotate(err, "invalid config file %s", filePath)
	}
	return &c, nil
}
