package models

import (
	"math"
	"strconv"
)

// Status represents the lifecycle status of a result row.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// ErrorStatusPrefix starts every terminal error status value.
const ErrorStatusPrefix = "error: "

// ResultRecord is one output row keyed by column name. Columns not present
// in the store header are dropped on write; columns with no value are
// written as empty cells, which is how "not graded due to error" stays
// distinguishable from "graded with score 0".
type ResultRecord map[string]string

// NewResultRecord creates a record in the pending state.
func NewResultRecord(taskID, domain string) ResultRecord {
	return ResultRecord{
		"task_id": taskID,
		"domain":  domain,
		"status":  string(StatusPending),
	}
}

func (r ResultRecord) TaskID() string { return r["task_id"] }

func (r ResultRecord) Status() string { return r["status"] }

func (r ResultRecord) SetStatus(s Status) { r["status"] = string(s) }

// SetErrorStatus marks the row terminally failed, keeping the first 100
// characters of the message.
func (r ResultRecord) SetErrorStatus(msg string) {
	r["status"] = ErrorStatusPrefix + TruncateMessage(msg, 100)
}

// TruncateMessage shortens msg to at most n characters, counting by code
// points so multi-byte text is never split.
func TruncateMessage(msg string, n int) string {
	runes := []rune(msg)
	if len(runes) <= n {
		return msg
	}
	return string(runes[:n])
}

// FormatScore renders a score cell. Integral values keep a trailing ".0"
// so rows written by earlier pipeline versions diff cleanly.
func FormatScore(score float64) string {
	if score == math.Trunc(score) && !math.IsInf(score, 0) {
		return strconv.FormatFloat(score, 'f', 1, 64)
	}
	return strconv.FormatFloat(score, 'f', -1, 64)
}
