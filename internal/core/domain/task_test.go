package domain

import "testing"

func TestGenerateID(t *testing.T) {
	id1 := GenerateID()
	id2 := GenerateID()

	if id1 == "" || id2 == "" {
		t.Error("expected non-empty IDs")
	}
	if id1 == id2 {
		t.Error("expected unique IDs")
	}
	if len(id1) != 36 {
		t.Errorf("expected UUID length 36, got %d", len(id1))
	}
}

func TestNewIngestTask(t *testing.T) {
	task := NewIngestTask("/uploads/ww1.pdf", "history", "Beginning of World War 1", "easy")

	if task.Type != TaskTypeIngestDocument {
		t.Errorf("expected type %s, got %s", TaskTypeIngestDocument, task.Type)
	}
	if task.Status != TaskStatusPending {
		t.Errorf("expected status %s, got %s", TaskStatusPending, task.Status)
	}
	if task.MaxAttempts != 3 {
		t.Errorf("expected max attempts 3, got %d", task.MaxAttempts)
	}
	if task.PayloadValue("subject") != "history" {
		t.Errorf("expected subject history, got %q", task.PayloadValue("subject"))
	}
	if task.PayloadValue("missing") != "" {
		t.Error("expected empty value for missing key")
	}
}

func TestTaskLifecycle(t *testing.T) {
	task := NewIngestTask("/a.txt", "history", "", "")

	task.MarkProcessing()
	if task.Status != TaskStatusProcessing {
		t.Errorf("expected processing, got %s", task.Status)
	}
	if task.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", task.Attempts)
	}
	if task.StartedAt == nil {
		t.Error("expected StartedAt to be set")
	}
	if !task.CanRetry() {
		t.Error("expected task to be retryable after one attempt")
	}

	task.Retry("index unavailable")
	if task.Status != TaskStatusPending || task.Error != "index unavailable" {
		t.Errorf("unexpected retry state: %s %q", task.Status, task.Error)
	}

	task.MarkProcessing()
	task.MarkCompleted(map[string]string{"chunks": "4"})
	if task.Status != TaskStatusCompleted {
		t.Errorf("expected completed, got %s", task.Status)
	}
	if task.Error != "" {
		t.Error("expected error to be cleared")
	}
	if task.Result["chunks"] != "4" {
		t.Error("expected result to be recorded")
	}
}

func TestTaskCannotRetryAfterMaxAttempts(t *testing.T) {
	task := NewIngestTask("/a.txt", "history", "", "")
	for i := 0; i < task.MaxAttempts; i++ {
		task.MarkProcessing()
	}
	if task.CanRetry() {
		t.Error("expected no retry after max attempts")
	}
	task.MarkFailed("boom")
	if task.Status != TaskStatusFailed {
		t.Errorf("expected failed, got %s", task.Status)
	}
}
