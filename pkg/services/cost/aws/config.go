package aws

import (
	"context"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
)

const (
	DefaultRegion = "us-east-1" // Cost Explorer is served from us-east-1
)

// LoadConfig builds an SDK config from static access keys.
func LoadConfig(ctx context.Context, creds domain.AWSCredentials) (*awssdk.Config, error) {
	if !creds.Configured() {
		return nil, fmt.Errorf("AWS credentials missing (key or secret is empty)")
	}

	region := strings.TrimSpace(creds.Region)
	if region == "" {
		region = DefaultRegion
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			strings.TrimSpace(creds.AccessKeyID),
			strings.TrimSpace(creds.SecretAccessKey),
			strings.TrimSpace(creds.SessionToken),
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	return &awsCfg, nil
}
