package config

import (
	"context"
	"fmt"
	"log/slog"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// secretNames maps Secret Manager secret ids to the config field they fill.
func secretNames(cfg *Config) map[string]*string {
	return map[string]*string{
		"GROQ_API_KEY":   &cfg.GroqAPIKey,
		"OPENAI_API_KEY": &cfg.OpenAIAPIKey,
		"KIE_API_KEY":    &cfg.KieAPIKey,
		"MONGO_URL":      &cfg.MongoURL,
	}
}

type secretAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

type secretClient struct {
	client *secretmanager.Client
}

func (c *secretClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return c.client.AccessSecretVersion(ctx, req)
}

func missingSecrets(cfg *Config) []string {
	var missing []string
	for name, field := range secretNames(cfg) {
		if *field == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// resolveSecrets fills empty keys from Secret Manager. Lookup failures leave the field empty.
func resolveSecrets(ctx context.Context, cfg *Config) {
	if len(missingSecrets(cfg)) == 0 {
		return
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		slog.Warn("Secret Manager unavailable, relying on environment variables", "error", err)
		return
	}
	defer func() { _ = client.Close() }()

	fillSecrets(ctx, &secretClient{client: client}, cfg)
}

func fillSecrets(ctx context.Context, accessor secretAccessor, cfg *Config) {
	for name, field := range secretNames(cfg) {
		if *field != "" {
			continue
		}

		resp, err := accessor.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
			Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", cfg.GCPProject, name),
		})
		if err != nil {
			slog.Debug("Secret not resolved", "secret", name, "error", err)
			continue
		}

		*field = string(resp.GetPayload().GetData())
		slog.Debug("Secret resolved from Secret Manager", "secret", name)
	}
}
