package answers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/minio/minio-go/v7/pkg/s3utils"

	"github.com/johnpolacek/create-bucket-cms/internal/awscreds"
	"github.com/johnpolacek/create-bucket-cms/internal/provisioner"
	"github.com/johnpolacek/create-bucket-cms/internal/secrets"
)

// Question keys, in the order they are asked.
const (
	KeyPackageManager  = "package_manager"
	KeyRoute           = "route"
	KeySkipAWS         = "skip_aws"
	KeyAccessKeyID     = "aws_access_key_id"
	KeySecretAccessKey = "aws_secret_access_key"
	KeyRegion          = "aws_region"
	KeyBucket          = "aws_s3_bucket_name"
	KeyOpenAIAPIKey    = "openai_api_key"
)

// Environment variable names written to the env file.
const (
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvRegion          = "AWS_REGION"
	EnvBucket          = "AWS_S3_BUCKET_NAME"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
)

// DefaultRegion is suggested when no AWS configuration is found.
const DefaultRegion = "us-east-1"

var (
	routeSegment = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	regionFormat = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d+$`)
)

// Install holds the answers needed before any file is touched.
type Install struct {
	PackageManager provisioner.PackageManager
	Route          string
}

// AskInstall asks for the package manager and mount route.
// The detected manager is the default, and its lock file is named in the
// question.
func AskInstall(ctx context.Context, p Provider, detected provisioner.PackageManagerInfo, defaultRoute string) (Install, error) {
	options := make([]string, 0, len(provisioner.Managers))
	for _, m := range provisioner.Managers {
		options = append(options, string(m))
	}

	description := "Used to install the CMS dependencies and start the dev server."
	if detected.LockFile != "" {
		description += fmt.Sprintf(" Found %s, so %s is preselected.", detected.LockFile, detected.Manager)
	}

	pm, err := p.Ask(ctx, Question{
		Key:         KeyPackageManager,
		Prompt:      "Which package manager do you use?",
		Description: description,
		Kind:        Select,
		Options:     options,
		Default:     string(detected.Manager),
	})
	if err != nil {
		return Install{}, err
	}
	manager, _ := provisioner.ParsePackageManager(pm)

	route, err := p.Ask(ctx, Question{
		Key:         KeyRoute,
		Prompt:      "Where should the CMS admin be mounted?",
		Description: "A route inside your app directory, e.g. cms or admin/content.",
		Default:     defaultRoute,
		Validate:    ValidateRoute,
	})
	if err != nil {
		return Install{}, err
	}

	return Install{PackageManager: manager, Route: NormalizeRoute(route)}, nil
}

// NormalizeRoute trims surrounding slashes and whitespace.
func NormalizeRoute(route string) string {
	return strings.Trim(strings.TrimSpace(route), "/")
}

// ValidateRoute accepts slash separated segments of letters, digits, '-'
// and '_'. The api segment is reserved for the CMS API routes.
func ValidateRoute(route string) error {
	route = NormalizeRoute(route)
	if route == "" {
		return errors.New("route must not be empty")
	}
	segments := strings.Split(route, "/")
	for _, seg := range segments {
		if !routeSegment.MatchString(seg) {
			return fmt.Errorf("invalid route segment %q", seg)
		}
	}
	if segments[0] == "api" {
		return errors.New("routes under api/ are reserved")
	}
	return nil
}

// ValidateRegion checks the AWS region shape, e.g. us-east-1.
func ValidateRegion(region string) error {
	if !regionFormat.MatchString(region) {
		return fmt.Errorf("%q does not look like an AWS region (e.g. %s)", region, DefaultRegion)
	}
	return nil
}

// ValidateBucket applies the S3 bucket naming rules.
func ValidateBucket(name string) error {
	return s3utils.CheckValidBucketNameStrict(name)
}

func validateKeyID(id string) error {
	if strings.ContainsAny(id, " \t") {
		return errors.New("access key id must not contain spaces")
	}
	return nil
}

// AskEnvironment collects the env entries in prompt order. Skipping AWS
// leaves its four entries out; the OpenAI key is added only when given.
func AskEnvironment(ctx context.Context, p Provider, defaults awscreds.Defaults, defaultBucket string) ([]secrets.Entry, error) {
	var entries []secrets.Entry

	skip, err := p.Ask(ctx, Question{
		Key:         KeySkipAWS,
		Prompt:      "Skip AWS configuration for now?",
		Description: "Bucket CMS stores content in S3. You can add the keys to .env.local later.",
		Kind:        Confirm,
		Default:     No,
	})
	if err != nil {
		return nil, err
	}

	if !IsYes(skip) {
		region := defaults.Region
		if region == "" {
			region = DefaultRegion
		}
		questions := []struct {
			env string
			q   Question
		}{
			{EnvAccessKeyID, Question{
				Key:      KeyAccessKeyID,
				Prompt:   "AWS access key ID",
				Default:  defaults.AccessKeyID,
				Validate: validateKeyID,
			}},
			{EnvSecretAccessKey, Question{
				Key:     KeySecretAccessKey,
				Prompt:  "AWS secret access key",
				Kind:    Secret,
				Default: defaults.SecretAccessKey,
			}},
			{EnvRegion, Question{
				Key:      KeyRegion,
				Prompt:   "AWS region",
				Default:  region,
				Validate: ValidateRegion,
			}},
			{EnvBucket, Question{
				Key:      KeyBucket,
				Prompt:   "S3 bucket name",
				Default:  defaultBucket,
				Validate: ValidateBucket,
			}},
		}
		if defaults.Source != "" {
			questions[0].q.Description = "Found credentials in " + defaults.Source + "."
		}

		for _, item := range questions {
			value, err := p.Ask(ctx, item.q)
			if err != nil {
				return nil, err
			}
			entries = append(entries, secrets.Entry{Key: item.env, Value: value, Secret: item.q.Kind == Secret})
		}
	}

	openAI, err := p.Ask(ctx, Question{
		Key:         KeyOpenAIAPIKey,
		Prompt:      "OpenAI API key (optional)",
		Description: "Enables AI-assisted content. Leave empty to skip.",
		Kind:        Secret,
		Optional:    true,
	})
	if err != nil {
		return nil, err
	}
	if openAI != "" {
		entries = append(entries, secrets.Entry{Key: EnvOpenAIAPIKey, Value: openAI, Secret: true})
	}

	return entries, nil
}
