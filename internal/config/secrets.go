package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret reads a secret value using the *_FILE convention.
// If envName+"_FILE" is set, the secret is read from that path and trimmed.
// Otherwise the value of envName is returned, or "" when neither is set.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if filePath := os.Getenv(fileEnv); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, filePath, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}

// Credentials are the broker and database secrets of one engine process.
type Credentials struct {
	PostgresPassword string
	MQTTURL          string
	MQTTUsername     string
	MQTTPassword     string
}

// ResolveCredentials resolves PGPASSWORD and the MQTT_* variables. PGPASSWORD
// is consulted when storage is enabled in cfg or openStore is set; the MQTT
// variables only when mqtt is enabled. A file that cannot be read is an
// error, an unset variable is not.
func ResolveCredentials(cfg *EngineConfig, openStore bool) (Credentials, error) {
	var creds Credentials
	var err error
	if cfg.Storage.Enabled || openStore {
		if creds.PostgresPassword, err = ResolveSecret("PGPASSWORD"); err != nil {
			return Credentials{}, err
		}
	}
	if cfg.MQTT.Enabled {
		creds.MQTTURL = os.Getenv("MQTT_URL")
		if creds.MQTTUsername, err = ResolveSecret("MQTT_USERNAME"); err != nil {
			return Credentials{}, err
		}
		if creds.MQTTPassword, err = ResolveSecret("MQTT_PASSWORD"); err != nil {
			return Credentials{}, err
		}
	}
	return creds, nil
}
