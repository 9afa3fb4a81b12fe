package native

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/wippyai/gmp-native/errors"
)

// ConfigSchema returns the JSON schema of a loader configuration file.
func ConfigSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Config{})
	schema.Title = "gmp-native loader configuration"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Cause(err).
			Detail("marshal config schema").
			Build()
	}
	return data, nil
}

// ParseConfig decodes a JSON configuration over DefaultConfig and
// validates the result. Unknown fields are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Cause(err).
			Detail("decode config").
			Build()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a JSON configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.New(errors.PhaseConfig, errors.KindNotFound).
			Path(path).
			Cause(err).
			Detail("read config").
			Build()
	}
	return ParseConfig(data)
}
