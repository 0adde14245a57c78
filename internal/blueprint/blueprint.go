// Package blueprint reads a pre-filled answers file so the installer can
// run without a terminal. YAML and TOML are accepted:
//
//	package_manager: pnpm
//	route: cms
//	aws:
//	  access_key_id: AKIA...
//	  secret_access_key: ...
//	  region: us-east-1
//	  bucket: my-site-bucket-cms
package blueprint

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Blueprint holds answers to the installer's questions. Empty fields fall
// back to the question's default.
type Blueprint struct {
	PackageManager string `yaml:"package_manager,omitempty" toml:"package_manager,omitempty"`
	Route          string `yaml:"route,omitempty" toml:"route,omitempty"`
	// SkipAWS leaves the AWS entries out of the env file.
	SkipAWS      bool   `yaml:"skip_aws,omitempty" toml:"skip_aws,omitempty"`
	AWS          AWS    `yaml:"aws,omitempty" toml:"aws,omitempty"`
	OpenAIAPIKey string `yaml:"openai_api_key,omitempty" toml:"openai_api_key,omitempty"`
}

// AWS groups the object storage answers.
type AWS struct {
	AccessKeyID     string `yaml:"access_key_id,omitempty" toml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" toml:"secret_access_key,omitempty"`
	Region          string `yaml:"region,omitempty" toml:"region,omitempty"`
	Bucket          string `yaml:"bucket,omitempty" toml:"bucket,omitempty"`
}

// ErrUnsupportedFormat is returned for files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported answers file format (use .yaml, .yml or .toml)")

// Read decodes the answers file at path, choosing the format by extension.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func Read(path string) (Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Blueprint{}, err
	}

	var bp Blueprint
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&bp); err != nil && !errors.Is(err, io.EOF) {
			return Blueprint{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &bp)
		if err != nil {
			return Blueprint{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Blueprint{}, fmt.Errorf("parsing %s: unknown keys %v", path, undecoded)
		}
	default:
		return Blueprint{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	return bp, nil
}
