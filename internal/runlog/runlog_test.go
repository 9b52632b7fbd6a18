package runlog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewEvent(t *testing.T) {
	data := map[string]any{"key": "value"}
	ev := NewEvent(EventRunStart, data)

	if ev.Type != EventRunStart {
		t.Errorf("Type = %q, want %q", ev.Type, EventRunStart)
	}
	if ev.Data["key"] != "value" {
		t.Errorf("Data[key] = %v, want %q", ev.Data["key"], "value")
	}
	if ev.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
}

func TestEventJSON(t *testing.T) {
	ts := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
	ev := Event{
		Timestamp: ts,
		Type:      EventTaskStart,
		Data:      TaskStartData("task-001", 1, 3),
	}

	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Type != EventTaskStart {
		t.Errorf("decoded.Type = %q, want %q", decoded.Type, EventTaskStart)
	}
	if !decoded.Timestamp.Equal(ts) {
		t.Errorf("decoded.Timestamp = %v, want %v", decoded.Timestamp, ts)
	}
	if decoded.Data["task_id"] != "task-001" {
		t.Errorf("task_id = %v, want %q", decoded.Data["task_id"], "task-001")
	}
}

func TestRunStartData(t *testing.T) {
	d := RunStartData("coding-evals", "results.csv", 5, true)
	if d["spec_name"] != "coding-evals" {
		t.Errorf("spec_name = %v", d["spec_name"])
	}
	if d["task_count"] != 5 {
		t.Errorf("task_count = %v", d["task_count"])
	}
	if d["resume"] != true {
		t.Errorf("resume = %v", d["resume"])
	}
}

func TestGenerationData(t *testing.T) {
	d := GenerationData("task-001", "gpt-5", 2, true, false, 1200)
	if d["model"] != "gpt-5" {
		t.Errorf("model = %v", d["model"])
	}
	if d["run"] != 2 {
		t.Errorf("run = %v", d["run"])
	}
	if d["ok"] != true {
		t.Errorf("ok = %v", d["ok"])
	}
}

func TestErrorData(t *testing.T) {
	d := ErrorData("timeout exceeded", map[string]any{"task_id": "task-001"})
	if d["message"] != "timeout exceeded" {
		t.Errorf("message = %v", d["message"])
	}
	if d["task_id"] != "task-001" {
		t.Errorf("task_id = %v", d["task_id"])
	}
}

func TestJSONLogger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-run.jsonl")

	logger, err := NewJSONLogger(path)
	if err != nil {
		t.Fatalf("NewJSONLogger: %v", err)
	}

	events := []Event{
		NewEvent(EventRunStart, RunStartData("eval.yaml", "results.csv", 2, false)),
		NewEvent(EventTaskStart, TaskStartData("task-001", 1, 2)),
		NewEvent(EventTaskComplete, TaskCompleteData("task-001", "completed", 500)),
		NewEvent(EventRunEnd, RunCompleteData(2, 0, 0, 1000)),
	}

	for _, ev := range events {
		if err := logger.Log(ev); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Verify the file was written with one JSON object per line
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}

	var first Event
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatalf("Unmarshal line 0: %v", err)
	}
	if first.Type != EventRunStart {
		t.Errorf("first event type = %q, want %q", first.Type, EventRunStart)
	}
}

func TestJSONLoggerPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "test.jsonl")

	logger, err := NewJSONLogger(path)
	if err != nil {
		t.Fatalf("NewJSONLogger with subdirectory: %v", err)
	}
	defer logger.Close() //nolint:errcheck

	if logger.Path() != path {
		t.Errorf("Path() = %q, want %q", logger.Path(), path)
	}
}

func TestNopLogger(t *testing.T) {
	var logger Logger = NopLogger{}
	if err := logger.Log(NewEvent(EventRunStart, nil)); err != nil {
		t.Errorf("NopLogger.Log should not error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("NopLogger.Close should not error: %v", err)
	}
}

func TestDefaultLogPath(t *testing.T) {
	p := DefaultLogPath("/tmp/runs")
	if filepath.Dir(p) != "/tmp/runs" {
		t.Errorf("dir = %q, want /tmp/runs", filepath.Dir(p))
	}
	if ext := filepath.Ext(p); ext != ".jsonl" {
		t.Errorf("ext = %q, want .jsonl", ext)
	}
}

func TestListLogs(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{
		"20260815T100000Z-run.jsonl",
		"20260816T100000Z-run.jsonl",
		"not-a-run.txt",
	} {
		os.WriteFile(filepath.Join(dir, name), []byte("{}\n"), 0644) //nolint:errcheck
	}

	files, err := ListLogs(dir)
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
}

func TestListLogsEmptyDir(t *testing.T) {
	dir := t.TempDir()
	files, err := ListLogs(dir)
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("got %d files, want 0", len(files))
	}
}

func TestListLogsNoDir(t *testing.T) {
	_, err := ListLogs("/nonexistent/dir")
	if err == nil {
		t.Error("expected error for nonexistent directory")
	}
}

func TestReadEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-run.jsonl")

	logger, err := NewJSONLogger(path)
	if err != nil {
		t.Fatalf("NewJSONLogger: %v", err)
	}
	for _, ev := range []Event{
		NewEvent(EventRunStart, RunStartData("e.yaml", "out.csv", 1, false)),
		NewEvent(EventTaskStart, TaskStartData("t1", 1, 1)),
		NewEvent(EventGeneration, GenerationData("t1", "gpt-5", 1, true, false, 900)),
		NewEvent(EventGrading, GradingData("t1", "gpt-5", 1, 87.5)),
		NewEvent(EventTaskComplete, TaskCompleteData("t1", "completed", 100)),
		NewEvent(EventRunEnd, RunCompleteData(1, 0, 0, 100)),
	} {
		logger.Log(ev) //nolint:errcheck
	}
	logger.Close() //nolint:errcheck

	events, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 6 {
		t.Fatalf("got %d events, want 6", len(events))
	}
	if events[0].Type != EventRunStart {
		t.Errorf("events[0].Type = %q", events[0].Type)
	}
	if events[5].Type != EventRunEnd {
		t.Errorf("events[5].Type = %q", events[5].Type)
	}
}

func TestReadEventsSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-run.jsonl")

	content := `{"timestamp":"2026-08-15T10:00:00Z","type":"run_start","data":{}}
not valid json
{"timestamp":"2026-08-15T10:00:01Z","type":"run_complete","data":{}}
`
	os.WriteFile(path, []byte(content), 0644) //nolint:errcheck

	events, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (malformed line skipped)", len(events))
	}
}

func TestRenderTimeline(t *testing.T) {
	base := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, Type: EventRunStart, Data: RunStartData("e.yaml", "out.csv", 2, false)},
		{Timestamp: base.Add(100 * time.Millisecond), Type: EventTaskStart, Data: TaskStartData("task-001", 1, 2)},
		{Timestamp: base.Add(200 * time.Millisecond), Type: EventGeneration, Data: GenerationData("task-001", "gpt-5", 1, true, false, 100)},
		{Timestamp: base.Add(300 * time.Millisecond), Type: EventGrading, Data: GradingData("task-001", "gpt-5", 1, 92.0)},
		{Timestamp: base.Add(400 * time.Millisecond), Type: EventTaskComplete, Data: TaskCompleteData("task-001", "completed", 300)},
		{Timestamp: base.Add(500 * time.Millisecond), Type: EventError, Data: ErrorData("something broke", nil)},
		{Timestamp: base.Add(600 * time.Millisecond), Type: EventRunEnd, Data: RunCompleteData(2, 0, 1, 600)},
	}

	var buf bytes.Buffer
	RenderTimeline(&buf, events)

	output := buf.String()
	if !bytes.Contains([]byte(output), []byte("RUN TIMELINE")) {
		t.Error("output should contain RUN TIMELINE header")
	}
	if !bytes.Contains([]byte(output), []byte("task-001")) {
		t.Error("output should contain task id")
	}
	if !bytes.Contains([]byte(output), []byte("gpt-5")) {
		t.Error("output should contain model name")
	}
	if !bytes.Contains([]byte(output), []byte("something broke")) {
		t.Error("output should contain error message")
	}
}

func TestRenderTimelineEmpty(t *testing.T) {
	var buf bytes.Buffer
	RenderTimeline(&buf, nil)
	if !bytes.Contains(buf.Bytes(), []byte("No events found.")) {
		t.Error("empty events should print 'No events found.'")
	}
}
