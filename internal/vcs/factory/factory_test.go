package factory

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/scanhound/scanhound/internal/config"
	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/internal/vcs/azuredevops"
	"github.com/scanhound/scanhound/internal/vcs/bitbucket"
	"github.com/scanhound/scanhound/internal/vcs/github"
	"github.com/scanhound/scanhound/pkg/common/logger"
)

func TestNewSelectsProviderVariant(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")

	tests := []struct {
		name         string
		providerType config.ProviderType
		wantType     any
	}{
		{"bitbucket", config.ProviderTypeBitbucket, &bitbucket.Connector{}},
		{"azure devops", config.ProviderTypeAzureDevOps, &azuredevops.Connector{}},
		{"github", config.ProviderTypeGitHub, &github.Connector{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := config.VCSInstance{
				Name:         "inst",
				ProviderType: tt.providerType,
				Scheme:       "https",
				Hostname:     "vcs.example.com",
			}
			conn, err := New(inst, nil, http.DefaultClient, logger.Noop(), tracer)
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, conn)
		})
	}
}

func TestNewUnsupportedProvider(t *testing.T) {
	inst := config.VCSInstance{Name: "inst", ProviderType: "GITLAB"}
	_, err := New(inst, nil, http.DefaultClient, logger.Noop(), noop.NewTracerProvider().Tracer("test"))

	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrUnsupportedProvider)
}
