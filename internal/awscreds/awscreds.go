// Package awscreds pre-fills the AWS answers from credentials the developer
// already has configured: environment variables first, then the shared
// credentials and config files.
package awscreds

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/johnpolacek/create-bucket-cms/internal/logging"
)

// DefaultProfile is used when AWS_PROFILE is unset.
const DefaultProfile = "default"

// Defaults are suggested answers. Empty fields have no suggestion.
type Defaults struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	// Source names where the credentials came from, for display.
	Source string
}

// HasCredentials reports whether both key parts were found.
func (d Defaults) HasCredentials() bool {
	return d.AccessKeyID != "" && d.SecretAccessKey != ""
}

// Options override the shared file locations, mostly for tests.
type Options struct {
	Profile          string
	CredentialsFiles []string
	ConfigFiles      []string
}

// Load resolves defaults from the process environment and shared files.
func Load(ctx context.Context) Defaults {
	return LoadWithOptions(ctx, Options{})
}

// LoadWithOptions is Load with explicit profile and file locations. Lookup
// failures are logged and leave the affected fields empty.
func LoadWithOptions(ctx context.Context, opts Options) Defaults {
	var d Defaults

	env, err := config.NewEnvConfig()
	if err != nil {
		logging.Debug("AWSCreds", "reading environment: %v", err)
	} else {
		if env.Credentials.HasKeys() {
			d.AccessKeyID = env.Credentials.AccessKeyID
			d.SecretAccessKey = env.Credentials.SecretAccessKey
			d.Source = "environment"
		}
		d.Region = env.Region
		if opts.Profile == "" {
			opts.Profile = env.SharedConfigProfile
		}
		if len(opts.CredentialsFiles) == 0 && env.SharedCredentialsFile != "" {
			opts.CredentialsFiles = []string{env.SharedCredentialsFile}
		}
		if len(opts.ConfigFiles) == 0 && env.SharedConfigFile != "" {
			opts.ConfigFiles = []string{env.SharedConfigFile}
		}
	}

	if d.HasCredentials() && d.Region != "" {
		return d
	}

	if opts.Profile == "" {
		opts.Profile = DefaultProfile
	}
	shared, err := config.LoadSharedConfigProfile(ctx, opts.Profile, func(o *config.LoadSharedConfigOptions) {
		if len(opts.CredentialsFiles) > 0 {
			o.CredentialsFiles = opts.CredentialsFiles
		}
		if len(opts.ConfigFiles) > 0 {
			o.ConfigFiles = opts.ConfigFiles
		}
	})
	if err != nil {
		logging.Debug("AWSCreds", "shared profile %q unavailable: %v", opts.Profile, err)
		return d
	}

	if !d.HasCredentials() && shared.Credentials.HasKeys() {
		d.AccessKeyID = shared.Credentials.AccessKeyID
		d.SecretAccessKey = shared.Credentials.SecretAccessKey
		d.Source = "profile " + opts.Profile
	}
	if d.Region == "" {
		d.Region = shared.Region
	}
	return d
}
