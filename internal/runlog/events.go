package runlog

import "time"

// EventType identifies the kind of run event.
type EventType string

const (
	EventRunStart     EventType = "run_start"
	EventRunEnd       EventType = "run_complete"
	EventTaskStart    EventType = "task_start"
	EventTaskSkipped  EventType = "task_skipped"
	EventTaskComplete EventType = "task_complete"
	EventGeneration   EventType = "generation_complete"
	EventGrading      EventType = "grading_complete"
	EventError        EventType = "error"
)

// Event is a single timestamped entry in a run log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

// RunStartData returns event data for a run start.
func RunStartData(specName, outputPath string, taskCount int, resume bool) map[string]any {
	return map[string]any{
		"spec_name":   specName,
		"output_path": outputPath,
		"task_count":  taskCount,
		"resume":      resume,
	}
}

// RunCompleteData returns event data for a run end.
func RunCompleteData(processed, skipped, failed int, durationMs int64) map[string]any {
	return map[string]any{
		"processed":   processed,
		"skipped":     skipped,
		"failed":      failed,
		"duration_ms": durationMs,
	}
}

// TaskStartData returns event data for a task start.
func TaskStartData(taskID string, taskNum, totalTasks int) map[string]any {
	return map[string]any{
		"task_id":     taskID,
		"task_num":    taskNum,
		"total_tasks": totalTasks,
	}
}

// TaskSkippedData returns event data for a task skipped on resume.
func TaskSkippedData(taskID string) map[string]any {
	return map[string]any{
		"task_id": taskID,
	}
}

// TaskCompleteData returns event data for a task completion.
func TaskCompleteData(taskID, status string, durationMs int64) map[string]any {
	return map[string]any{
		"task_id":     taskID,
		"status":      status,
		"duration_ms": durationMs,
	}
}

// GenerationData returns event data for one generation attempt.
func GenerationData(taskID, model string, run int, ok bool, fromCache bool, durationMs int64) map[string]any {
	return map[string]any{
		"task_id":     taskID,
		"model":       model,
		"run":         run,
		"ok":          ok,
		"from_cache":  fromCache,
		"duration_ms": durationMs,
	}
}

// GradingData returns event data for one graded response.
func GradingData(taskID, model string, run int, score float64) map[string]any {
	return map[string]any{
		"task_id": taskID,
		"model":   model,
		"run":     run,
		"score":   score,
	}
}

// ErrorData returns event data for an error.
func ErrorData(message string, details map[string]any) map[string]any {
	d := map[string]any{
		"message": message,
	}
	for k, v := range details {
		d[k] = v
	}
	return d
}
