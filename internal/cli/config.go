// Package cli holds the pieces shared by cmd/aislc and cmd/aislvm: the
// AISL_ERROR_FORMAT environment configuration and the diagnostic
// formatting spec.md §7 specifies, kept in one place so both binaries
// report errors identically. Flag parsing and the Stdio abstraction
// itself are github.com/mna/mainer, exactly as the teacher's
// cmd/nenuphar/main.go and internal/maincmd use it.
package cli

import "github.com/caarlos0/env/v6"

// Config is read once per process from the environment (spec.md §6).
type Config struct {
	// ErrorFormat selects the diagnostic rendering: "human" (default) or
	// "machine" (ERROR:<CODE>:<LINE>:<COL>:<MESSAGE>).
	ErrorFormat string `env:"AISL_ERROR_FORMAT" envDefault:"human"`
}

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
