package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const DefaultEnvFile = ".env"

// loadConfig reads the relay configuration from the process environment.
// Variables from the env file at path are loaded first without overriding
// anything already set. An empty path loads DefaultEnvFile when it exists.
//
// Parameters:
//   - path: The env file to load before reading the environment.
//
// Returns:
//   - Config: The loaded configuration struct.
//   - error: An error if the env file cannot be loaded or required values are missing.
//
// Possible errors:
//   - EnvFileNotFoundError: If an explicitly provided env file does not exist.
//   - InvalidConfigError: If one or more variables are missing or invalid.
func loadConfig(path string) (Config, error) {
	var config Config

	if err := loadEnvFile(path); err != nil {
		return config, err
	}

	// populate every field from the variable named in its env tag
	value := reflect.ValueOf(&config).Elem()
	for i := 0; i < value.NumField(); i++ {
		name := value.Type().Field(i).Tag.Get("env")
		value.Field(i).SetString(os.Getenv(name))
	}

	// validate configuration using validator package, reporting
	// fields by environment variable name
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("env")
	})
	if err := validate.Struct(config); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return config, err
		}

		invalid := InvalidConfigError{}
		for _, err := range validationErrors {
			log.Debug(fmt.Sprintf("config validation error: %+v", err))
			invalid.Missing = append(invalid.Missing, err.Field())
		}
		return config, invalid
	}
	return config, nil
}

func loadEnvFile(path string) error {
	explicit := len(path) > 0
	if !explicit {
		path = DefaultEnvFile
	}

	stat, err := os.Stat(path)
	if err != nil {
		if !explicit {
			return nil
		}
		log.Debug(fmt.Sprintf("cannot find env file at path %s: %+v", path, err))
		return EnvFileNotFoundError{
			Path: path,
		}
	} else if stat.IsDir() {
		log.Debug(fmt.Sprintf("cannot load env file %s: path is directory, expected file", path))
		return EnvFileNotFoundError{
			Path: path,
		}
	}

	log.Debug(fmt.Sprintf("loading environment from %s", path))
	return godotenv.Load(path)
}

// writeConfig writes the given configuration to an env file at path, creating
// any missing parent directories. Empty optional values are left out.
//
// Parameters:
//   - config: The configuration struct to be written to the file.
//   - path: The file path where the configuration should be written.
//
// Returns:
//   - error: An error if there is an issue creating directories or writing the file.
func writeConfig(config Config, path string) error {
	// create any directories that need to be created
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	env := map[string]string{}
	value := reflect.ValueOf(config)
	for i := 0; i < value.NumField(); i++ {
		if field := value.Field(i).String(); len(field) > 0 {
			env[value.Type().Field(i).Tag.Get("env")] = field
		}
	}

	content, err := godotenv.Marshal(env)
	if err != nil {
		return err
	}

	// env file holds the API key, it is never readable by others
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := file.Chmod(0600); err != nil {
		return err
	}
	if _, err := file.WriteString(content + "\n"); err != nil {
		return err
	}
	return file.Sync()
}
