package ciout

import (
	"fmt"
	"maps"
	"os"
	"sync"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
)

// OSEnvironment reads the process environment.
type OSEnvironment struct{}

var _ contract.Environment = OSEnvironment{}

// Lookup implements contract.Environment.
func (OSEnvironment) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// OSEnvironmentSink sets process environment variables. When EnvFile is set,
// each variable is also appended to it as KEY=VALUE, the way $GITHUB_ENV
// hands variables to later workflow steps.
type OSEnvironmentSink struct {
	EnvFile string
}

var _ contract.EnvironmentSink = OSEnvironmentSink{}

// NewOSEnvironmentSink creates a sink that also writes to $GITHUB_ENV when it is set.
func NewOSEnvironmentSink(env contract.Environment) OSEnvironmentSink {
	file, _ := env.Lookup("GITHUB_ENV")
	return OSEnvironmentSink{EnvFile: file}
}

// Set implements contract.EnvironmentSink.
func (s OSEnvironmentSink) Set(key, value string) error {
	if err := os.Setenv(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if s.EnvFile == "" {
		return nil
	}
	f, err := os.OpenFile(s.EnvFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open env file: %w", err)
	}
	defer func() { _ = f.Close() }()
	_, err = fmt.Fprintf(f, "%s=%s\n", key, value)
	return err
}

// MapEnvironment is an in-memory environment. It serves as both the
// Environment and the EnvironmentSink in tests and in the MCP server.
type MapEnvironment struct {
	mu   sync.RWMutex
	vars map[string]string
}

var (
	_ contract.Environment     = (*MapEnvironment)(nil)
	_ contract.EnvironmentSink = (*MapEnvironment)(nil)
)

// NewMapEnvironment creates an environment holding a copy of vars.
func NewMapEnvironment(vars map[string]string) *MapEnvironment {
	m := &MapEnvironment{vars: make(map[string]string, len(vars))}
	maps.Copy(m.vars, vars)
	return m
}

// Lookup implements contract.Environment.
func (m *MapEnvironment) Lookup(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vars[key]
	return v, ok
}

// Set implements contract.EnvironmentSink.
func (m *MapEnvironment) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vars[key] = value
	return nil
}

// Vars returns a copy of all variables.
func (m *MapEnvironment) Vars() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.vars)
}

// SetEnvironmentVariables exports the verdict of report under prefix.
func SetEnvironmentVariables(report *schema.GateReport, prefix string, sink contract.EnvironmentSink) error {
	for _, v := range reportVars(report) {
		if err := sink.Set(prefix+v.suffix, v.value); err != nil {
			return err
		}
	}
	return nil
}
