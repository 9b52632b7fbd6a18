package models

import "strings"

// Task is one evaluation item read from the task source. All fields are
// opaque to the pipeline; RubricJSON may be blank, in which case grading is
// skipped for every (model, run) pair of this task.
type Task struct {
	TaskID          string `json:"task_id"`
	Domain          string `json:"domain"`
	Prompt          string `json:"prompt"`
	FileAttachments string `json:"file_attachments,omitempty"`
	RubricJSON      string `json:"rubric_json,omitempty"`
}

// HasRubric reports whether the task carries a non-blank rubric payload.
func (t *Task) HasRubric() bool {
	return strings.TrimSpace(t.RubricJSON) != ""
}

// Attachment is a resolved file reference handed to the generation engine.
// Created per task, never persisted.
type Attachment struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}
