package agentsessions

import (
	"fmt"
	"strings"
)

// Provider reads the transcripts of one agent.
//
// ListSessions returns a record for every valid transcript, reusing cached
// records for unchanged files. LoadSessionEvents replays the file behind rec.
type Provider interface {
	Name() string
	ListSessions() ([]SessionRecord, error)
	LoadSessionEvents(rec SessionRecord, includeRaw bool) ([]SessionEvent, error)
}

// LoadMode selects how much of a session LoadEvents returns.
type LoadMode int

const (
	// LoadFull returns every event.
	LoadFull LoadMode = iota
	// LoadConversation keeps plain user and assistant turns.
	LoadConversation
	// LoadUserOnly returns the record's user messages without reading the file.
	LoadUserOnly
)

func (m LoadMode) String() string {
	switch m {
	case LoadFull:
		return "full"
	case LoadConversation:
		return "conversation"
	case LoadUserOnly:
		return "user"
	default:
		return fmt.Sprintf("LoadMode(%d)", int(m))
	}
}

// ParseLoadMode parses a mode name as accepted on the command line.
func ParseLoadMode(s string) (LoadMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full", "all":
		return LoadFull, nil
	case "conversation", "conversation-only":
		return LoadConversation, nil
	case "user", "user-only":
		return LoadUserOnly, nil
	default:
		return LoadFull, fmt.Errorf("unknown load mode %q (want full, conversation or user)", s)
	}
}

// LoadEvents loads rec's events from p at the requested fidelity.
func LoadEvents(p Provider, rec SessionRecord, mode LoadMode, includeRaw bool) ([]SessionEvent, error) {
	switch mode {
	case LoadUserOnly:
		events := make([]SessionEvent, 0, len(rec.UserMessages))
		for _, msg := range rec.UserMessages {
			events = append(events, SessionEvent{
				Actor:       ActorUser,
				Category:    CategoryUserMessage,
				Label:       "User",
				Text:        msg,
				SummaryText: msg,
			})
		}
		return events, nil
	case LoadConversation:
		events, err := p.LoadSessionEvents(rec, includeRaw)
		if err != nil {
			return nil, err
		}
		kept := events[:0]
		for _, ev := range events {
			if ev.IsConversation() {
				kept = append(kept, ev)
			}
		}
		return kept, nil
	default:
		return p.LoadSessionEvents(rec, includeRaw)
	}
}
