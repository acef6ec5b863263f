package secrets

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const dopplerBaseURL = "https://api.doppler.com/v3"

// DopplerClient bulk-fetches a project config's secrets from the Doppler API.
// It implements Fetcher for the cache.
type DopplerClient struct {
	client  *resty.Client
	project string
	config  string
	logger  *zap.Logger
}

func NewDopplerClient(apiKey, project, config string, logger *zap.Logger) *DopplerClient {
	client := resty.New().
		SetBaseURL(dopplerBaseURL).
		SetAuthToken(apiKey).
		SetHeader("Accept", "application/json")
	return &DopplerClient{
		client:  client,
		project: project,
		config:  config,
		logger:  logger,
	}
}

// FetchSecrets downloads the full secret set for the configured project and
// config in one request.
func (d *DopplerClient) FetchSecrets(ctx context.Context) (map[string]string, error) {
	if d.project == "" {
		return nil, fmt.Errorf("doppler project is not configured")
	}

	secrets := map[string]string{}
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"project": d.project,
			"config":  d.config,
			"format":  "json",
		}).
		SetResult(&secrets).
		Get("/configs/config/secrets/download")
	if err != nil {
		return nil, fmt.Errorf("fetching secrets from doppler: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("doppler returned status %d", resp.StatusCode())
	}

	d.logger.Debug("fetched secrets from doppler",
		zap.String("project", d.project),
		zap.String("config", d.config),
		zap.Int("count", len(secrets)))
	return secrets, nil
}
