package model

// Task kinds for the best-effort pipeline.
const (
	TaskReposition = "reposition"
	TaskActivity   = "activity"
)

// Task is a post-commit unit of work processed asynchronously after a duel.
// Task failures degrade freshness (stale positions, missing feed entries) but
// never fail or roll back the submission that produced them.
type Task struct {
	Kind     string
	UserID   string
	Activity Activity // populated for TaskActivity
}
