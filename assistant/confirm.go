package assistant

import (
	"strings"
	"sync"
	"time"

	"github.com/clinicdesk/clinic-assistant/types"
)

// Pending booking state, keyed by session. At most one live pending action
// per session; a new booking request supersedes the old one.

type pendingStage string

const (
	stageAwaitConfirm pendingStage = "await_confirm"
	stageNeedName     pendingStage = "need_name"
)

type pendingAppt struct {
	Stage     pendingStage
	Appt      types.Appointment
	Pretty    string // pretty date for the confirmation question
	Asked     int    // name re-prompts issued so far
	UpdatedAt time.Time
}

type pendingStore struct {
	mu sync.Mutex
	m  map[string]*pendingAppt
}

func newPendingStore() *pendingStore {
	return &pendingStore{m: make(map[string]*pendingAppt)}
}

func (s *pendingStore) get(sessionID string) (*pendingAppt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[sessionID]
	return p, ok
}

func (s *pendingStore) set(sessionID string, p *pendingAppt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = time.Now()
	s.m[sessionID] = p
}

func (s *pendingStore) clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, sessionID)
}

var (
	affirmativeTokens = map[string]bool{
		"yes": true, "y": true, "ok": true, "okay": true, "confirm": true, "sure": true,
	}
	negativeTokens = map[string]bool{
		"no": true, "n": true, "cancel": true, "stop": true,
	}
)

// parseYesNo reads a confirmation reply. Both false means the reply is
// neither — the pending action is then cancelled and the turn re-routed.
func parseYesNo(s string) (yes, no bool) {
	t := strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(s), ".!")))
	if affirmativeTokens[t] {
		return true, false
	}
	if negativeTokens[t] {
		return false, true
	}
	return false, false
}

// looksLikeName accepts a short run of word tokens as a name answer.
// Confirmation tokens never qualify; "yes" is not a patient.
func looksLikeName(s string) bool {
	if yes, no := parseYesNo(s); yes || no {
		return false
	}
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 || len(fields) > 4 {
		return false
	}
	for _, f := range fields {
		for _, r := range f {
			if !(r == '\'' || r == '-' || r == '.' ||
				(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
				return false
			}
		}
	}
	return true
}
