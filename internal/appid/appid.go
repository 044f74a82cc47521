package appid

import (
	"context"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/portalgate/portalgate/internal/assets/appidentity"
)

func init() {
	// Explicit identity overrides stay authoritative; the embedded copy
	// covers standalone binaries with no discoverable `.fulmen/app.yaml`.
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}
