package agentsessions

import "time"

// Aggregator folds the observations of one transcript, oldest first, into a
// SessionRecord.
type Aggregator struct {
	workingDir    string
	sessionID     string
	originator    string
	instructions  string
	userMessages  []string
	lastTimestamp time.Time
}

// Observe records one line's contribution.
func (a *Aggregator) Observe(obs Observation) {
	if a.workingDir == "" && obs.WorkingDir != "" {
		a.workingDir = CanonicalOrSelf(obs.WorkingDir)
	}
	if a.sessionID == "" && obs.SessionID != "" {
		a.sessionID = obs.SessionID
	}
	if a.originator == "" && obs.Originator != "" {
		a.originator = obs.Originator
	}
	if !obs.Timestamp.IsZero() {
		a.lastTimestamp = obs.Timestamp
	}

	ev := obs.Event
	if ev == nil {
		return
	}
	if a.instructions == "" && ev.Category == CategorySystem && ev.Tool == nil {
		a.instructions = ev.Text
	}
	if ev.SummaryText != "" {
		a.userMessages = append(a.userMessages, ev.SummaryText)
	}
}

// Record builds the summary. It reports false when the transcript contained no
// qualifying user message; such files carry nothing worth listing.
// fallbackID is used when no line named the session.
func (a *Aggregator) Record(provider, path, fallbackID string) (SessionRecord, bool) {
	if len(a.userMessages) == 0 {
		return SessionRecord{}, false
	}
	id := a.sessionID
	if id == "" {
		id = fallbackID
	}
	messages := make([]string, len(a.userMessages))
	copy(messages, a.userMessages)

	return SessionRecord{
		Provider:         provider,
		ID:               id,
		WorkingDir:       a.workingDir,
		Originator:       a.originator,
		Instructions:     a.instructions,
		FirstUserMessage: messages[0],
		LastUserMessage:  messages[len(messages)-1],
		LastTimestamp:    a.lastTimestamp,
		FilePath:         path,
		UserMessages:     messages,
	}, true
}
