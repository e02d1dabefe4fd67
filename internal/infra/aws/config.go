package aws

import (
	"context"
	"fmt"

	"smartplant/internal/config"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// LoadConfig はAWS設定を読む。認証情報は環境変数/共有設定から。
// AWS_ENDPOINT（LocalStackなど）はクライアント側でBaseEndpointとして使う
func LoadConfig(ctx context.Context, cfg config.Config) (sdkaws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return sdkaws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	return awsCfg, nil
}
