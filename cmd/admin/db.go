package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type transitionRow struct {
	Tick     uint64 `json:"tick"`
	Target   uint32 `json:"target"`
	Observer uint32 `json:"observer"`
	Visible  bool   `json:"visible"`
	Cause    string `json:"cause"`
	Err      string `json:"err,omitempty"`
}

type sessionRow struct {
	Tick     uint64  `json:"tick"`
	Observer uint32  `json:"observer"`
	Kind     string  `json:"kind"`
	Distance float64 `json:"distance"`
	Reason   string  `json:"reason,omitempty"`
}

type rowFilter struct {
	Observer uint32
	Target   uint32
	Since    uint64
	Limit    int
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	observer := fs.Uint("observer", 0, "observer id filter")
	target := fs.Uint("target", 0, "target id filter (transitions)")
	since := fs.Uint64("since_tick", 0, "only rows at or after tick")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "transitions"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	f := rowFilter{Observer: uint32(*observer), Target: uint32(*target), Since: *since, Limit: *limit}

	switch q {
	case "transitions":
		rows, err := queryTransitions(db, f)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "sessions":
		rows, err := querySessions(db, f)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "tuning":
		var r struct {
			Digest    string          `json:"digest"`
			UpdatedAt string          `json:"updated_at"`
			Tuning    json.RawMessage `json:"tuning"`
		}
		var raw string
		if err := db.QueryRow(`SELECT digest,updated_at,json FROM config WHERE name='tuning'`).Scan(&r.Digest, &r.UpdatedAt, &raw); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		r.Tuning = json.RawMessage(raw)
		printJSON(r)

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-world WORLD|-db PATH] [-observer ID] [-target ID] [-since_tick T] transitions|sessions|tuning")
		os.Exit(2)
	}
}

// queryTransitions returns the newest matching rows first.
func queryTransitions(db *sql.DB, f rowFilter) ([]transitionRow, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	rows, err := db.Query(`SELECT tick,target,observer,visible,cause,COALESCE(err,'') FROM transitions
		WHERE (?=0 OR observer=?) AND (?=0 OR target=?) AND tick>=?
		ORDER BY id DESC LIMIT ?`,
		f.Observer, f.Observer, f.Target, f.Target, f.Since, f.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []transitionRow
	for rows.Next() {
		var r transitionRow
		var visible int
		if err := rows.Scan(&r.Tick, &r.Target, &r.Observer, &visible, &r.Cause, &r.Err); err != nil {
			return nil, err
		}
		r.Visible = visible != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func querySessions(db *sql.DB, f rowFilter) ([]sessionRow, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	rows, err := db.Query(`SELECT tick,observer,kind,distance,COALESCE(reason,'') FROM sessions
		WHERE (?=0 OR observer=?) AND tick>=?
		ORDER BY id DESC LIMIT ?`,
		f.Observer, f.Observer, f.Since, f.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []sessionRow
	for rows.Next() {
		var r sessionRow
		if err := rows.Scan(&r.Tick, &r.Observer, &r.Kind, &r.Distance, &r.Reason); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
