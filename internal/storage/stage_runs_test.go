package storage

import (
	"fmt"
	"testing"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// TestRunFilter verifies WHERE clause construction and bind order.
func TestRunFilter(t *testing.T) {
	tests := []struct {
		name      string
		q         models.StageRunQuery
		wantWhere string
		wantArgs  int
	}{
		{"empty", models.StageRunQuery{}, "", 0},
		{"session", models.StageRunQuery{SessionID: "s"}, " WHERE session_id = $1", 1},
		{"all", models.StageRunQuery{SessionID: "s", Stage: "pre_analysis", Status: models.RunFailed},
			" WHERE session_id = $1 AND stage = $2 AND status = $3", 3},
		{"stage and status", models.StageRunQuery{Stage: "deep_analysis", Status: models.RunSucceeded},
			" WHERE stage = $1 AND status = $2", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := runFilter(tt.q, dollar)
			if where != tt.wantWhere {
				t.Errorf("where = %q, want %q", where, tt.wantWhere)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("len(args) = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}

// TestRunFilterStatusArg verifies status binds as a plain string.
func TestRunFilterStatusArg(t *testing.T) {
	_, args := runFilter(models.StageRunQuery{Status: models.RunDiscarded}, dollar)
	if s, ok := args[0].(string); !ok || s != "discarded" {
		t.Errorf("args[0] = %#v, want %q", args[0], "discarded")
	}
}

// TestRunLimit verifies the default and the cap.
func TestRunLimit(t *testing.T) {
	for _, tt := range []struct{ in, want int }{
		{0, DefaultRunLimit}, {-1, DefaultRunLimit}, {10, 10}, {500, 500}, {501, DefaultRunLimit},
	} {
		if got := runLimit(models.StageRunQuery{Limit: tt.in}); got != tt.want {
			t.Errorf("runLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestNullable verifies empty strings map to SQL NULL.
func TestNullable(t *testing.T) {
	if nullable("") != nil {
		t.Error("nullable(\"\") != nil")
	}
	if p := nullable("x"); p == nil || *p != "x" {
		t.Errorf("nullable(\"x\") = %v", p)
	}
}
