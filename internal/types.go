package internal

import "time"

// Run statuses recorded in the store.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run describes one translation run of an input file. Its ID is used with
// --resume to continue an interrupted run.
type Run struct {
	ID         string    `json:"id"`
	InputFile  string    `json:"input_file"`
	OutputFile string    `json:"output_file"`
	InputHash  string    `json:"input_hash"`
	TotalLines int       `json:"total_lines"`
	Backend    string    `json:"backend"`
	Model      string    `json:"model"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
