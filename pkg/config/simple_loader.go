package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/refinery/pkg/errors"
)

// Load decodes a YAML file into v after substituting ${VAR} references
// with environment values. It is used for recipes and connector settings.
func Load(filePath string, v interface{}) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: File path is controlled by caller
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to read config file").WithDetail("path", filePath)
	}
	return Decode(data, v)
}

// Decode is Load for YAML already in memory.
func Decode(data []byte, v interface{}) error {
	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML")
	}
	return nil
}

// Save writes v to a YAML file
func Save(filePath string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write config file").WithDetail("path", filePath)
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		content = content[:start] + os.Getenv(varName) + content[end+1:]
	}
	return content
}
