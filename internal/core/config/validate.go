package config

import (
	"errors"
	"fmt"
	"maps"
	"net"
	"net/url"
	"os"
	"slices"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/lobby/internal/core/message"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration.
// Unlike Validate(), this also checks file access and alias collisions.
func (c *Config) ValidateDeep(configPath string) error {
	var errs criterio.FieldErrorsBuilder

	if err := c.Validate(); err != nil {
		var fieldErrs criterio.FieldErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = errs.Append(fe.Field, fe.Err)
		}
	}

	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil && info.IsDir() {
			errs = errs.Append("config", fmt.Errorf("%s is a directory, not a file", configPath))
		} else if err != nil && !os.IsNotExist(err) {
			errs = errs.Append("config", fmt.Errorf("cannot access %s: %w", configPath, err))
		}
	}

	if info, err := os.Stat(c.DataDir); err == nil && !info.IsDir() {
		errs = errs.Append("data_dir", fmt.Errorf("%s is not a directory", c.DataDir))
	}

	// Two aliases for one conversation make `ls` output ambiguous.
	seen := make(map[string]string, len(c.Aliases))
	for _, name := range slices.Sorted(maps.Keys(c.Aliases)) {
		id := c.Aliases[name]
		if prev, ok := seen[id]; ok {
			errs = errs.Append("aliases."+name, fmt.Errorf("points at the same conversation as %q", prev))
			continue
		}
		seen[id] = name
	}

	return errs.ToError()
}

// Warnings returns non-fatal issues with an otherwise valid configuration.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if u, err := url.Parse(c.Conductor.URL); err == nil && u.Scheme == "ws" && !isLoopback(u.Hostname()) {
		warnings = append(warnings, ValidationWarning{
			Category: "Conductor",
			Item:     "url",
			Message:  fmt.Sprintf("%s is not encrypted and not on this machine; use wss://", c.Conductor.URL),
		})
	}

	if pt := c.PayloadType(); pt != message.PayloadAll {
		warnings = append(warnings, ValidationWarning{
			Category: "Fetch",
			Item:     "payload_type",
			Message:  fmt.Sprintf("only %s messages are fetched by default", pt),
		})
	}

	return warnings
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
