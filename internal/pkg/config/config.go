package config

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const defaultTag = "config_default"
const descriptionTag = "config_description"

// Parse fills the given configuration struct from command-line flags and
// environment variables. Every exported string/int/bool field becomes a flag
// named after the field and an environment variable prefixed with the
// upper-cased application name (OLLAMA_WEBCHAT_PORT for field Port of
// application ollama-webchat). Defaults come from the config_default tag.
// Precedence: flag > environment > default.
func Parse(target any, applicationName string) {
	parse(target, applicationName, pflag.CommandLine, nil)
}

func parse(target any, applicationName string, flagSet *pflag.FlagSet, arguments []string) {
	targetValue := reflect.ValueOf(target).Elem()
	targetType := targetValue.Type()

	settings := viper.New()
	settings.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(applicationName, "-", "_")))
	settings.AutomaticEnv()

	for fieldIndex := 0; fieldIndex < targetType.NumField(); fieldIndex++ {
		field := targetType.Field(fieldIndex)
		defaultValue := field.Tag.Get(defaultTag)
		description := field.Tag.Get(descriptionTag)

		switch field.Type.Kind() {
		case reflect.String:
			flagSet.String(field.Name, defaultValue, description)
		case reflect.Int:
			flagSet.Int(field.Name, parseIntDefault(field.Name, defaultValue), description)
		case reflect.Bool:
			flagSet.Bool(field.Name, defaultValue == "true", description)
		default:
			log.Panic().Str("field", field.Name).Msg("unsupported configuration field type")
		}

		if err := settings.BindPFlag(field.Name, flagSet.Lookup(field.Name)); err != nil {
			log.Panic().Err(err).Str("field", field.Name).Msg("viper.BindPFlag() failed")
		}
	}

	if arguments == nil {
		pflag.Parse()
	} else {
		if err := flagSet.Parse(arguments); err != nil {
			log.Panic().Err(err).Msg("flagSet.Parse() failed")
		}
	}

	for fieldIndex := 0; fieldIndex < targetType.NumField(); fieldIndex++ {
		field := targetType.Field(fieldIndex)
		fieldValue := targetValue.Field(fieldIndex)

		switch field.Type.Kind() {
		case reflect.String:
			fieldValue.SetString(settings.GetString(field.Name))
		case reflect.Int:
			fieldValue.SetInt(int64(settings.GetInt(field.Name)))
		case reflect.Bool:
			fieldValue.SetBool(settings.GetBool(field.Name))
		}
	}
}

func parseIntDefault(fieldName string, defaultValue string) int {
	if defaultValue == "" {
		return 0
	}

	value, err := strconv.Atoi(defaultValue)
	if err != nil {
		log.Panic().Err(err).Str("field", fieldName).Str("default", defaultValue).Msg("invalid integer default")
	}
	return value
}
