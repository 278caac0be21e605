package config

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// TokenResolver resolves the broker access token for an account.
// The REST client calls it per request so tokens are never cached
// in process-wide mutable state.
type TokenResolver interface {
	Token(ctx context.Context, accountID string) (string, error)
}

// StaticTokenResolver serves tokens from the config file. Dev only.
type StaticTokenResolver struct {
	tokens map[string]string
}

func NewStaticTokenResolver(tokens map[string]string) *StaticTokenResolver {
	return &StaticTokenResolver{tokens: tokens}
}

func (r *StaticTokenResolver) Token(_ context.Context, accountID string) (string, error) {
	tok, ok := r.tokens[accountID]
	if !ok || tok == "" {
		return "", fmt.Errorf("no token configured for account %s", accountID)
	}
	return tok, nil
}

// SSMTokenResolver reads broker access tokens from AWS SSM Parameter Store,
// one encrypted parameter per account.
type SSMTokenResolver struct {
	prefix string
}

func NewSSMTokenResolver(prefix string) *SSMTokenResolver {
	if prefix == "" {
		prefix = "COPYTRADER_TOKEN_"
	}
	return &SSMTokenResolver{prefix: prefix}
}

func (r *SSMTokenResolver) Token(ctx context.Context, accountID string) (string, error) {
	tok := getParameterStoreValue(r.prefix+accountID, true)
	if tok == "" {
		return "", fmt.Errorf("no token in parameter store for account %s", accountID)
	}
	return tok, nil
}

// NewTokenResolver picks the resolver for the given environment.
func NewTokenResolver(env string, broker BrokerConfig) TokenResolver {
	if env == "prod" {
		return NewSSMTokenResolver("")
	}
	return NewStaticTokenResolver(broker.Tokens)
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	baseCtx := context.Background()
	ctxWithTimeout, cancel := context.WithTimeout(baseCtx, 5*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return ""
	}

	if result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
