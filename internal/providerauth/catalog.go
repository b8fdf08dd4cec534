// Package providerauth resolves short-lived provider credentials for
// provider-gated draft operations. Tokens are built per call and never
// persisted; the session cache only memoizes live sessions.
package providerauth

import "draftshare/internal/model"

// Integration is static metadata about one code-hosting integration.
type Integration struct {
	ID       string
	Provider string
	Domain   string
	Scopes   []string
}

var catalog = map[string]Integration{
	"github": {
		ID:       "github",
		Provider: "github",
		Domain:   "github.com",
		Scopes:   []string{"repo", "read:org"},
	},
	"gitlab": {
		ID:       "gitlab",
		Provider: "gitlab",
		Domain:   "gitlab.com",
		Scopes:   []string{"api"},
	},
	"bitbucket": {
		ID:       "bitbucket",
		Provider: "bitbucket",
		Domain:   "bitbucket.org",
		Scopes:   []string{"repository"},
	},
}

func LookupIntegration(id string) (Integration, bool) {
	integration, ok := catalog[id]
	return integration, ok
}

// IntegrationForRemote maps a provider-recognized remote to its integration.
func IntegrationForRemote(remote *model.Remote) (Integration, bool) {
	if remote == nil || remote.Provider == nil {
		return Integration{}, false
	}
	return LookupIntegration(remote.Provider.ID)
}
