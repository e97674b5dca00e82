package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewProjectValidation(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := NewProject(ProjectInput{ProjectTypeID: "pt-1", Name: "Acme Year End", CurrentStatus: "drafting"}, now)
	if !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}

	_, err = NewProject(ProjectInput{ID: "p-1", ProjectTypeID: "pt-1", Name: "Acme Year End"}, now)
	if !errors.Is(err, ErrInvalidStageName) {
		t.Fatalf("expected ErrInvalidStageName, got %v", err)
	}

	project, err := NewProject(ProjectInput{
		ID:            " p-1 ",
		ProjectTypeID: "pt-1",
		Name:          "  Acme Year End ",
		ClientName:    "Acme Ltd",
		CurrentStatus: "drafting",
	}, now)
	if err != nil {
		t.Fatalf("NewProject: %v", err)
	}
	if project.ID != "p-1" || project.Name != "Acme Year End" {
		t.Fatalf("inputs not trimmed: %+v", project)
	}
	if project.ReadOnly() {
		t.Fatal("fresh project must not be read-only")
	}
}

func TestProjectSetStatusRejectsCompleted(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	project, err := NewProject(ProjectInput{
		ID:            "p-1",
		ProjectTypeID: "pt-1",
		Name:          "Acme Year End",
		CurrentStatus: "review",
	}, now)
	if err != nil {
		t.Fatalf("NewProject: %v", err)
	}

	if err := project.Complete(CompletionSuccess, now.Add(time.Hour)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !project.ReadOnly() {
		t.Fatal("completed project must be read-only")
	}
	if err := project.SetStatus("approved", now.Add(2*time.Hour)); !errors.Is(err, ErrProjectCompleted) {
		t.Fatalf("expected ErrProjectCompleted, got %v", err)
	}
	if project.CurrentStatus != "review" {
		t.Fatalf("status changed on rejected move: %q", project.CurrentStatus)
	}

	project.Reopen(now.Add(3 * time.Hour))
	if err := project.SetStatus("approved", now.Add(4*time.Hour)); err != nil {
		t.Fatalf("SetStatus after reopen: %v", err)
	}
}

func TestProjectCompleteValidation(t *testing.T) {
	now := time.Now()
	project := Project{ID: "p-1", CurrentStatus: "review"}
	if err := project.Complete(CompletionNone, now); !errors.Is(err, ErrInvalidCompletion) {
		t.Fatalf("expected ErrInvalidCompletion, got %v", err)
	}
}

func TestParseCompletionStatus(t *testing.T) {
	cases := []struct {
		raw     string
		want    CompletionStatus
		wantErr bool
	}{
		{"", CompletionNone, false},
		{"success", CompletionSuccess, false},
		{" FAILURE ", CompletionFailure, false},
		{"done", CompletionNone, true},
	}
	for _, tc := range cases {
		got, err := ParseCompletionStatus(tc.raw)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidCompletion) {
				t.Fatalf("%q: expected ErrInvalidCompletion, got %v", tc.raw, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %q want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNewStageDefinition(t *testing.T) {
	if _, err := NewStageDefinition("  ", 0, "", ""); !errors.Is(err, ErrInvalidStageName) {
		t.Fatalf("expected ErrInvalidStageName, got %v", err)
	}
	if _, err := NewStageDefinition("drafting", -1, "", ""); !errors.Is(err, ErrInvalidStageOrder) {
		t.Fatalf("expected ErrInvalidStageOrder, got %v", err)
	}
	stage, err := NewStageDefinition(" drafting ", 2, " 62 ", " bookkeeper ")
	if err != nil {
		t.Fatalf("NewStageDefinition: %v", err)
	}
	if stage.Name != "drafting" || stage.Color != "62" || stage.AssignedRole != "bookkeeper" {
		t.Fatalf("inputs not trimmed: %+v", stage)
	}
}

func TestAppendNote(t *testing.T) {
	now := time.Now()
	project := Project{ID: "p-1"}
	project.AppendNote("first", now)
	project.AppendNote("  ", now)
	project.AppendNote("second", now)
	if project.Notes != "first\nsecond" {
		t.Fatalf("notes: %q", project.Notes)
	}
}
