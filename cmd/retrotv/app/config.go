// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/spf13/pflag"

	"github.com/tvargenta/retrotv/pkg/logging"
)

type ServerConfig struct {
	LogFormat   string `json:"logformat"`
	LogLevel    string `json:"loglevel"`
	Port        int    `json:"port"`
	TimeoutS    int    `json:"timeoutS"`
	ContentRoot string `json:"contentroot"`
	TriggerPath string `json:"triggerpath"`
	// MaxRequests limits the number of API requests from a single IP
	// address per 24 hours. Zero means no limit.
	MaxRequests int `json:"maxrequests"`
	// Seed makes the planners deterministic when non-zero.
	Seed int64 `json:"seed"`
}

var DefaultConfig = ServerConfig{
	LogFormat:   "pretty",
	LogLevel:    "info",
	Port:        8000,
	TimeoutS:    60,
	ContentRoot: "./content",
	TriggerPath: "",
	MaxRequests: 0,
	Seed:        0,
}

// LoadConfig loads defaults, config file, command line, and finally applies environment variables
//
// ContentRoot is set relative to cwd by default.
func LoadConfig(args []string, cwd string) (*ServerConfig, error) {
	// First set default values
	k := koanf.New(".")
	defaults := DefaultConfig
	k.Load(structs.Provider(defaults, "json"), nil)

	f := pflag.NewFlagSet("retrotv", pflag.ContinueOnError)
	f.Usage = func() {
		parts := strings.Split(args[0], "/")
		name := parts[len(parts)-1]
		fmt.Fprintf(os.Stderr, "Run as %s [options]:\n", name)
		f.PrintDefaults()
	}
	// Path to one or more config files to load into koanf along with some config params.
	cfgFile := f.String("cfg", "", "path to a JSON config file")
	f.Int("port", k.Int("port"), "HTTP port")
	lf := strings.Join(logging.LogFormats, ", ")
	f.String("logformat", k.String("logformat"), fmt.Sprintf("log format [%s]", lf))
	ll := strings.Join(logging.LogLevels, ", ")
	f.String("loglevel", k.String("loglevel"), fmt.Sprintf("log level [%s]", ll))
	f.String("contentroot", k.String("contentroot"), "content root directory (metadata and videos)")
	f.String("triggerpath", k.String("triggerpath"), "hardware trigger file watched for button presses")
	f.Int("timeout", k.Int("timeoutS"), "timeout for all requests (seconds)")
	f.Int("maxrequests", k.Int("maxrequests"), "max API requests per IP address per 24 hours")
	f.Int64("seed", k.Int64("seed"), "deterministic planner seed (0 uses the clock)")
	if err := f.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("command line parse: %w", err)
	}

	// Load the config files provided in the commandline.
	if *cfgFile != "" {
		cf := file.Provider(*cfgFile)
		if err := k.Load(cf, json.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	// Possibly override config file with commandline parameters
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("parsing cli: %v", err)
	}

	// Overload with environment variables
	k.Load(env.Provider("RETROTV_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "RETROTV_")), "_", ".", -1)
	}), nil)

	// Make contentroot absolute in case it is not already
	contentRoot := k.String("contentroot")
	if contentRoot != "" && !path.IsAbs(contentRoot) {
		contentRoot = path.Join(cwd, contentRoot)
		k.Load(confmap.Provider(map[string]any{
			"contentroot": contentRoot,
		}, "."), nil)
	}

	// Unmarshal into cfg
	var cfg ServerConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
