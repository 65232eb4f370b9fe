package publisher

import (
	"context"
	"os"
	"strings"

	"github.com/postpilot/postpilot/publisher/domain"
	schedulerDomain "github.com/postpilot/postpilot/scheduler/domain"
)

// StoreCredentialSource resolves platform credentials from the persistent
// store, falling back to environment variables (DEVTO_TOKEN, DEVTO_SECRET,
// DEVTO_EXTRA and so on) when nothing is stored.
type StoreCredentialSource struct {
	repo   schedulerDomain.ISchedulerRepository
	userID string
}

func NewStoreCredentialSource(repo schedulerDomain.ISchedulerRepository, userID string) *StoreCredentialSource {
	return &StoreCredentialSource{repo: repo, userID: userID}
}

func (s *StoreCredentialSource) Credential(ctx context.Context, platform string) (domain.Credential, error) {
	cred, err := s.repo.GetCredential(ctx, s.userID, platform)
	if err == nil {
		return domain.Credential{
			Token:  cred.Token,
			Secret: cred.Secret,
			Extra:  cred.Extra,
		}, nil
	}
	if err != schedulerDomain.ErrCredentialNotFound {
		return domain.Credential{}, err
	}

	prefix := strings.ToUpper(platform)
	if token := os.Getenv(prefix + "_TOKEN"); token != "" {
		return domain.Credential{
			Token:  token,
			Secret: os.Getenv(prefix + "_SECRET"),
			Extra:  os.Getenv(prefix + "_EXTRA"),
		}, nil
	}

	return domain.Credential{}, schedulerDomain.ErrCredentialNotFound
}
