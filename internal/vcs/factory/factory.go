// Package factory selects and constructs the correct VCS connector variant
// from a named instance configuration.
package factory

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/internal/config"
	"github.com/scanhound/scanhound/internal/config/credentials"
	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/internal/vcs"
	"github.com/scanhound/scanhound/internal/vcs/azuredevops"
	"github.com/scanhound/scanhound/internal/vcs/bitbucket"
	"github.com/scanhound/scanhound/internal/vcs/github"
	"github.com/scanhound/scanhound/pkg/common/logger"
)

// New constructs the connector variant for the instance's provider type.
// It is stateless and called once per collection run. An unregistered
// provider type fails with repository.ErrUnsupportedProvider.
func New(
	inst config.VCSInstance,
	creds *credentials.Credentials,
	httpClient *http.Client,
	log *logger.Logger,
	tracer trace.Tracer,
) (vcs.Connector, error) {
	switch inst.ProviderType {
	case config.ProviderTypeBitbucket:
		return bitbucket.NewConnector(inst, creds, httpClient, log, tracer), nil
	case config.ProviderTypeAzureDevOps:
		return azuredevops.NewConnector(inst, creds, httpClient, log, tracer), nil
	case config.ProviderTypeGitHub:
		return github.NewConnector(inst, creds, httpClient, log, tracer), nil
	default:
		return nil, fmt.Errorf("%w: %s", repository.ErrUnsupportedProvider, inst.ProviderType)
	}
}
