package alohareader

import (
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is a declarative reader setup, usually loaded from a JSON or YAML
// file. Stream and output entries apply once the file is open.
type Config struct {
	UserProvidedClock bool           `json:"userProvidedClock" yaml:"userProvidedClock"`
	Streams           []StreamConfig `json:"streams,omitempty" yaml:"streams,omitempty"`
	Outputs           []OutputConfig `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

type StreamConfig struct {
	Stream int `json:"stream" yaml:"stream"`

	// "on", "off" or "cleanpoint". Empty keeps the stream selected.
	Selection string `json:"selection,omitempty" yaml:"selection,omitempty"`

	Compressed bool `json:"compressed,omitempty" yaml:"compressed,omitempty"`
	Allocate   bool `json:"allocate,omitempty" yaml:"allocate,omitempty"`
}

type OutputConfig struct {
	Output int `json:"output" yaml:"output"`

	DedicatedDeliveryThread bool   `json:"dedicatedDeliveryThread,omitempty" yaml:"dedicatedDeliveryThread,omitempty"`
	EarlyDataDelivery       uint32 `json:"earlyDataDelivery,omitempty" yaml:"earlyDataDelivery,omitempty"`
	DeliverOnReceive        bool   `json:"deliverOnReceive,omitempty" yaml:"deliverOnReceive,omitempty"`

	// Video outputs only.
	VideoSampleDurations *bool `json:"videoSampleDurations,omitempty" yaml:"videoSampleDurations,omitempty"`

	Allocate bool `json:"allocate,omitempty" yaml:"allocate,omitempty"`
}

// ParseSelection parses a stream selection name.
func ParseSelection(s string) (Selection, error) {
	switch strings.ToLower(s) {
	case "on", "":
		return SelectionOn, nil
	case "off":
		return SelectionOff, nil
	case "cleanpoint", "cleanpointonly":
		return SelectionCleanPointOnly, nil
	default:
		return SelectionOff, errors.Wrapf(ErrInvalidArgument, "selection %q", s)
	}
}

// LoadConfig reads a configuration file. The format follows the extension:
// .json, .yaml or .yml.
func LoadConfig(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// ParseConfig decodes a "json" or "yaml" configuration.
func ParseConfig(data []byte, format string) (*Config, error) {
	c := new(Config)
	var err error
	switch strings.ToLower(format) {
	case "json":
		err = json.Unmarshal(data, c)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, c)
	default:
		return nil, errors.Wrapf(ErrInvalidArgument, "config format %q", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s config", format)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	for _, s := range c.Streams {
		if s.Stream < 1 {
			return errors.Wrapf(ErrInvalidArgument, "stream %d", s.Stream)
		}
		if _, err := ParseSelection(s.Selection); err != nil {
			return errors.Wrapf(err, "stream %d", s.Stream)
		}
	}
	for _, o := range c.Outputs {
		if o.Output < 0 {
			return errors.Wrapf(ErrInvalidArgument, "output %d", o.Output)
		}
	}
	return nil
}

// ApplyConfig configures the reader. The clock mode changes immediately; the
// rest waits for the file to open if it isn't yet.
func (r *Reader) ApplyConfig(c *Config) error {
	if c == nil {
		return ErrInvalidArgument
	}
	if err := c.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	if !r.opened {
		r.pending = c
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()
	return r.applyConfig(c)
}

func (r *Reader) applyConfig(c *Config) error {
	if err := r.SetUserProvidedClock(c.UserProvidedClock); err != nil {
		return errors.Wrap(err, "user provided clock")
	}
	for _, s := range c.Streams {
		sel, _ := ParseSelection(s.Selection)
		if err := r.SetStreamsSelected([]int{s.Stream}, []Selection{sel}); err != nil {
			return errors.Wrapf(err, "select stream %d", s.Stream)
		}
		if err := r.SetReceiveStreamSamples(s.Stream, s.Compressed); err != nil {
			return errors.Wrapf(err, "stream %d", s.Stream)
		}
		if err := r.SetAllocateForStream(s.Stream, s.Allocate); err != nil {
			return errors.Wrapf(err, "allocate for stream %d", s.Stream)
		}
	}

	for _, o := range c.Outputs {
		values := map[string]interface{}{
			SettingDedicatedDeliveryThread: o.DedicatedDeliveryThread,
			SettingEarlyDataDelivery:       o.EarlyDataDelivery,
			SettingDeliverOnReceive:        o.DeliverOnReceive,
		}
		if o.VideoSampleDurations != nil {
			values[SettingVideoSampleDurations] = *o.VideoSampleDurations
		}
		for name, value := range values {
			if err := r.SetOutputSetting(o.Output, name, value); err != nil {
				return errors.Wrapf(err, "output %d: %s", o.Output, name)
			}
		}
		if err := r.SetAllocateForOutput(o.Output, o.Allocate); err != nil {
			return errors.Wrapf(err, "allocate for output %d", o.Output)
		}
	}
	return nil
}
