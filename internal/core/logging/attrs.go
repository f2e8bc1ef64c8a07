package logging

import (
	"errors"

	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

func providerAttrs(err error) []any {
	var perr *agentsessions.ProviderError
	if errors.As(err, &perr) {
		return []any{"provider", perr.Provider, "error", perr.Err}
	}
	return []any{"error", err}
}
