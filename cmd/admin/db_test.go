package main

import (
	"database/sql"
	"path/filepath"
	"testing"

	"leader.gg/internal/persistence/indexdb"
	"leader.gg/internal/sim/visibility"
)

func seedIndex(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "world.sqlite")
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = idx.RecordSession(visibility.SessionEvent{Tick: 1, Observer: 1, Kind: visibility.SessionEnabled, Distance: 200})
	_ = idx.RecordTransition(visibility.Transition{Tick: 1, Target: 2, Observer: 1, Cause: visibility.CauseEnteredRange})
	_ = idx.RecordTransition(visibility.Transition{Tick: 1, Target: 3, Observer: 1, Cause: visibility.CauseEnteredRange})
	_ = idx.RecordTransition(visibility.Transition{Tick: 1, Target: 1, Observer: 4, Cause: visibility.CauseEnteredRange})
	_ = idx.RecordTransition(visibility.Transition{Tick: 8, Target: 2, Observer: 1, Visible: true, Cause: visibility.CauseRestore, Err: "entity gone"})
	_ = idx.RecordSession(visibility.SessionEvent{Tick: 8, Observer: 1, Kind: visibility.SessionDisabled, Reason: "disconnect"})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func TestQueryTransitions_Filters(t *testing.T) {
	db, err := sql.Open("sqlite", seedIndex(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	all, err := queryTransitions(db, rowFilter{})
	if err != nil || len(all) != 4 {
		t.Fatalf("all=%v err=%v", all, err)
	}
	if all[0].Tick != 8 || !all[0].Visible || all[0].Err != "entity gone" {
		t.Fatalf("newest=%+v", all[0])
	}

	obs, err := queryTransitions(db, rowFilter{Observer: 1, Target: 2})
	if err != nil || len(obs) != 2 {
		t.Fatalf("observer/target rows=%v err=%v", obs, err)
	}

	recent, err := queryTransitions(db, rowFilter{Since: 2, Limit: 10})
	if err != nil || len(recent) != 1 {
		t.Fatalf("since rows=%v err=%v", recent, err)
	}

	limited, err := queryTransitions(db, rowFilter{Limit: 2})
	if err != nil || len(limited) != 2 {
		t.Fatalf("limited rows=%v err=%v", limited, err)
	}
}

func TestQuerySessions(t *testing.T) {
	db, err := sql.Open("sqlite", seedIndex(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	rows, err := querySessions(db, rowFilter{Observer: 1})
	if err != nil || len(rows) != 2 {
		t.Fatalf("rows=%v err=%v", rows, err)
	}
	if rows[0].Kind != string(visibility.SessionDisabled) || rows[0].Reason != "disconnect" {
		t.Fatalf("newest=%+v", rows[0])
	}
	if rows[1].Distance != 200 || rows[1].Reason != "" {
		t.Fatalf("oldest=%+v", rows[1])
	}

	none, err := querySessions(db, rowFilter{Observer: 9})
	if err != nil || len(none) != 0 {
		t.Fatalf("none=%v err=%v", none, err)
	}
}
