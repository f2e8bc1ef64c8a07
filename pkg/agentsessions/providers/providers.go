// Package providers assembles the built-in transcript providers.
package providers

import (
	"strings"

	"github.com/neilberkman/agentrider/pkg/agentsessions"
	"github.com/neilberkman/agentrider/pkg/agentsessions/claude"
	"github.com/neilberkman/agentrider/pkg/agentsessions/codex"
	"github.com/neilberkman/agentrider/pkg/agentsessions/kimi"
)

// Options overrides provider roots. Empty fields select each provider's
// default location.
type Options struct {
	ClaudeRoot string
	CodexRoot  string
	KimiRoot   string
	KimiConfig string

	// Disabled lists provider names to leave out.
	Disabled []string
}

// Names lists the built-in providers in registry order.
func Names() []string {
	return []string{claude.Name, codex.Name, kimi.Name}
}

// Default returns a registry with Claude, Codex and Kimi, in that order,
// minus any disabled ones.
func Default(opts Options) *agentsessions.Registry {
	disabled := make(map[string]bool, len(opts.Disabled))
	for _, name := range opts.Disabled {
		disabled[strings.ToLower(strings.TrimSpace(name))] = true
	}

	var list []agentsessions.Provider
	if !disabled[claude.Name] {
		list = append(list, claude.New(opts.ClaudeRoot))
	}
	if !disabled[codex.Name] {
		list = append(list, codex.New(opts.CodexRoot))
	}
	if !disabled[kimi.Name] {
		list = append(list, kimi.New(opts.KimiRoot, opts.KimiConfig))
	}
	return agentsessions.NewRegistry(list...)
}

// Roots maps each enabled provider to the directory it scans.
func Roots(reg *agentsessions.Registry) map[string]string {
	roots := make(map[string]string)
	for _, p := range reg.Providers() {
		if r, ok := p.(interface{ Root() string }); ok {
			roots[p.Name()] = r.Root()
		}
	}
	return roots
}
