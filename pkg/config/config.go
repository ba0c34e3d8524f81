// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

// Package config loads and saves the service configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"

	"github.com/taimurislamkhan/ushs-link/pkg/link"
)

// CfgFile is the default configuration file name.
const CfgFile = "ushs-link.toml"

type Values struct {
	Link         Link  `toml:"link"`
	API          API   `toml:"api"`
	Store        Store `toml:"store"`
	DebugLogging bool  `toml:"debug_logging"`
}

type Link struct {
	Port        string `toml:"port,omitempty"`
	Baud        int    `toml:"baud"`
	AutoConnect bool   `toml:"auto_connect"`
}

type API struct {
	Port int `toml:"port"`
}

type Store struct {
	Path string `toml:"path"`
}

var BaseDefaults = Values{
	Link: Link{
		Baud: link.DefaultBaud,
	},
	API: API{
		Port: 8080,
	},
	Store: Store{
		Path: "tip_states.json",
	},
}

// Instance is a loaded configuration. Values not present in the file keep
// their defaults. A missing file is created with the defaults.
type Instance struct {
	mu   sync.RWMutex
	path string
	vals Values
}

func New(path string) (*Instance, error) {
	cfg := &Instance{
		path: path,
		vals: BaseDefaults,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Info().Str("path", path).Msg("no config file, writing defaults")
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	} else if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	vals := BaseDefaults
	if err := toml.Unmarshal(data, &vals); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.vals = vals
	return cfg, nil
}

func (c *Instance) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", c.path, err)
	}
	return nil
}

func (c *Instance) LinkPort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Link.Port
}

func (c *Instance) LinkBaud() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Link.Baud
}

func (c *Instance) AutoConnect() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Link.AutoConnect
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API.Port
}

func (c *Instance) StorePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Store.Path
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

// SetLinkPort records the last used serial port so the next start can
// reconnect to it.
func (c *Instance) SetLinkPort(port string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Link.Port = port
}
