/*
 * Copyright (C) 2026 Simone Pezzano
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/jinzhu/copier"
	"github.com/spf13/viper"
	"github.com/theirish81/locmerge"
	"github.com/theirish81/locmerge/parsers"
	"github.com/theirish81/locmerge/util"
)

const defaultConfigFile = ".locmerge.yaml"
const envPrefix = "LOCMERGE"
const defaultOutput = "translations.json"

// Config is the content of .locmerge.yaml, overridable with LOCMERGE_* environment variables.
type Config struct {
	Workers       int                  `mapstructure:"workers" yaml:"workers"`
	EvalTimeout   time.Duration        `mapstructure:"eval_timeout" yaml:"eval_timeout"`
	WriteAttempts int                  `mapstructure:"write_attempts" yaml:"write_attempts"`
	Port          int                  `mapstructure:"port" yaml:"port"`
	Jobs          map[string]JobConfig `mapstructure:"jobs" yaml:"jobs,omitempty"`
}

// JobConfig is a merge declared in the configuration file. Field names mirror locmerge.Settings so that a job can be
// copied over.
type JobConfig struct {
	InputDir           string                `mapstructure:"input_dir" yaml:"input_dir" validate:"required"`
	Output             string                `mapstructure:"output" yaml:"output,omitempty"`
	OutputFormat       string                `mapstructure:"output_format" yaml:"output_format,omitempty" validate:"omitempty,oneof=json yaml md"`
	Format             string                `mapstructure:"format" yaml:"format,omitempty" validate:"omitempty,oneof=yaml json js auto"`
	Layout             string                `mapstructure:"layout" yaml:"layout,omitempty"`
	AllowScalars       bool                  `mapstructure:"allow_scalars" yaml:"allow_scalars,omitempty"`
	KeepGoing          bool                  `mapstructure:"keep_going" yaml:"keep_going,omitempty"`
	FailOnCollision    bool                  `mapstructure:"fail_on_collision" yaml:"fail_on_collision,omitempty"`
	CanonicalLanguages bool                  `mapstructure:"canonical_languages" yaml:"canonical_languages,omitempty"`
	DisableEval        bool                  `mapstructure:"disable_eval" yaml:"disable_eval,omitempty"`
	Filter             string                `mapstructure:"filter" yaml:"filter,omitempty"`
	Workers            int                   `mapstructure:"workers" yaml:"workers,omitempty"`
	Timeout            *string               `mapstructure:"eval_timeout" yaml:"eval_timeout,omitempty"`
	Transformers       locmerge.Transformers `mapstructure:"transformers" yaml:"transformers,omitempty"`
}

var cfg = defaultConfig()

var validate = validator.New()

func defaultConfig() Config {
	return Config{
		Workers:       4,
		EvalTimeout:   10 * time.Second,
		WriteAttempts: 3,
		Port:          8080,
		Jobs:          map[string]JobConfig{},
	}
}

// loadConfig reads the configuration file (if any) and the environment. A missing default configuration file is not
// an error, a missing explicit one is.
func loadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	c := defaultConfig()
	for _, key := range []string{"workers", "eval_timeout", "write_attempts", "port"} {
		_ = v.BindEnv(key)
	}
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		notFound := viper.ConfigFileNotFoundError{}
		if explicit || !(errors.As(err, &notFound) || isNotExist(err)) {
			return c, fmt.Errorf("cannot read %s: %w", path, err)
		}
	}
	err := v.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	return c, err
}

// toSettings validates a job and turns it into merge settings.
func (j JobConfig) toSettings(c Config) (locmerge.Settings, error) {
	if err := validate.Struct(j); err != nil {
		return locmerge.Settings{}, err
	}
	settings := locmerge.Settings{}
	if err := copier.Copy(&settings, &j); err != nil {
		return settings, err
	}
	if settings.Format == "" {
		settings.Format = parsers.FormatAuto
	}
	if settings.Workers == 0 {
		settings.Workers = c.Workers
	}
	settings.EvalTimeout = util.ParseDurationOrDefault(j.Timeout, c.EvalTimeout)
	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

func (j JobConfig) output() string {
	if j.Output == "" {
		return defaultOutput
	}
	return j.Output
}

func (j JobConfig) outputFormat() locmerge.OutputFormat {
	if j.OutputFormat == "" {
		return locmerge.OutputJSON
	}
	return locmerge.OutputFormat(j.OutputFormat)
}
