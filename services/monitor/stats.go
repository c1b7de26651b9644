package monitor

// State tracks where the orchestrator is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateAuthenticating
	StateMonitoring
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateMonitoring:
		return "monitoring"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// CycleStats aggregates the outcome of one full pass over the
// monitored accounts.
type CycleStats struct {
	AccountsChecked    int `json:"accounts_checked"`
	NewPostsFound      int `json:"new_posts_found"`
	SuccessfulComments int `json:"successful_comments"`
	FailedComments     int `json:"failed_comments"`
}
