package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

type testConfig struct {
	Host    string `config_default:"localhost" config_description:"Server host interface"`
	Port    int    `config_default:"8080" config_description:"Server port"`
	Verbose bool   `config_default:"false" config_description:"Verbose logging"`
}

func TestParseDefaults(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)

	appConfig := &testConfig{}
	parse(appConfig, "test-app", flagSet, []string{})

	assert.Equal(t, "localhost", appConfig.Host)
	assert.Equal(t, 8080, appConfig.Port)
	assert.False(t, appConfig.Verbose)
}

func TestParseFlagsOverrideDefaults(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)

	appConfig := &testConfig{}
	parse(appConfig, "test-app", flagSet, []string{"--Host", "0.0.0.0", "--Port", "9090", "--Verbose"})

	assert.Equal(t, "0.0.0.0", appConfig.Host)
	assert.Equal(t, 9090, appConfig.Port)
	assert.True(t, appConfig.Verbose)
}

func TestParseEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("TEST_APP_PORT", "3000")

	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)

	appConfig := &testConfig{}
	parse(appConfig, "test-app", flagSet, []string{})

	assert.Equal(t, 3000, appConfig.Port)
	assert.Equal(t, "localhost", appConfig.Host)
}

func TestParseFlagBeatsEnvironment(t *testing.T) {
	t.Setenv("TEST_APP_PORT", "3000")

	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)

	appConfig := &testConfig{}
	parse(appConfig, "test-app", flagSet, []string{"--Port", "4000"})

	assert.Equal(t, 4000, appConfig.Port)
}
