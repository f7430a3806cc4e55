package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pkg/errors"

	"github.com/esonde/galisondaggi/internal/core"
	"github.com/esonde/galisondaggi/internal/httpapi"
)

// The archive is a derived sqlite mirror of the merged corpus, kept for
// filterable dashboard queries. The JSON artifacts stay canonical; the
// archive can be rebuilt from them at any time.
const schema = `CREATE TABLE IF NOT EXISTS messages (
  ts TEXT NOT NULL,
  author TEXT NOT NULL,
  text TEXT NOT NULL,
  PRIMARY KEY (ts, author, text)
);
CREATE TABLE IF NOT EXISTS polls (
  ts TEXT NOT NULL,
  author TEXT NOT NULL,
  question TEXT NOT NULL,
  options_json TEXT NOT NULL DEFAULT '{}',
  total_votes INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (ts, author, question)
);`

type Archive struct {
	db *sql.DB
}

const defaultListLimit = 100

func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}
	if _, err := db.Exec(`PRAGMA journal_mode=wal;`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "set WAL")
	}
	ApplyPragmas(context.Background(), db)
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error { return a.db.Close() }

func (a *Archive) Ping() error { return a.db.Ping() }

func (a *Archive) String() string { return fmt.Sprintf("Archive{%p}", a.db) }

// DB exposes the handle for migrations.
func (a *Archive) DB() *sql.DB { return a.db }

// WriteMessage inserts one message; a re-observed message is a no-op,
// matching the append-only corpus semantics.
func (a *Archive) WriteMessage(msg core.Message) error {
	const q = `INSERT INTO messages (ts, author, text) VALUES (?, ?, ?)
ON CONFLICT(ts, author, text) DO NOTHING;`
	ts := msg.Timestamp.UTC().Format(time.RFC3339Nano)
	_, err := a.db.Exec(q, ts, msg.Author, msg.Text)
	return errors.Wrap(err, "insert message")
}

// WritePoll upserts one poll keyed by its identity triple. A re-observed
// poll overwrites the stored option tallies, mirroring the merge engine's
// key-wise union after the union has been computed.
func (a *Archive) WritePoll(poll core.Poll) error {
	const q = `INSERT INTO polls (ts, author, question, options_json, total_votes)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(ts, author, question) DO UPDATE SET
  options_json = excluded.options_json,
  total_votes = excluded.total_votes;`
	optionsJSON, err := json.Marshal(poll.Options)
	if err != nil {
		return errors.Wrap(err, "encode options")
	}
	ts := poll.Timestamp.UTC().Format(time.RFC3339Nano)
	_, err = a.db.Exec(q, ts, poll.Author, poll.Question, string(optionsJSON), poll.TotalVotes)
	return errors.Wrap(err, "upsert poll")
}

// Reset clears the mirror before a rebuild. Pseudonyms are redrawn on
// every run, so stale rows from a previous run's mapping must not linger.
func (a *Archive) Reset(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM messages;`); err != nil {
		return errors.Wrap(err, "reset messages")
	}
	if _, err := a.db.ExecContext(ctx, `DELETE FROM polls;`); err != nil {
		return errors.Wrap(err, "reset polls")
	}
	return nil
}

func (a *Archive) CountMessages(ctx context.Context, filters httpapi.Filters) (int64, error) {
	query, args := buildMessageQuery(filters, true)
	var n int64
	if err := a.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count")
	}
	return n, nil
}

func (a *Archive) ListMessages(ctx context.Context, filters httpapi.Filters) ([]core.Message, error) {
	query, args := buildMessageQuery(filters, false)
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}
	defer rows.Close()

	var out []core.Message
	for rows.Next() {
		var (
			msg core.Message
			ts  string
		)
		if err := rows.Scan(&ts, &msg.Author, &msg.Text); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			msg.Timestamp = t
		}
		out = append(out, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate messages")
	}
	return out, nil
}

func (a *Archive) ListPolls(ctx context.Context, filters httpapi.Filters) ([]core.Poll, error) {
	query, args := buildPollQuery(filters)
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list polls")
	}
	defer rows.Close()

	var out []core.Poll
	for rows.Next() {
		var (
			poll        core.Poll
			ts          string
			optionsJSON string
		)
		if err := rows.Scan(&ts, &poll.Author, &poll.Question, &optionsJSON, &poll.TotalVotes); err != nil {
			return nil, errors.Wrap(err, "scan poll")
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			poll.Timestamp = t
		}
		if err := json.Unmarshal([]byte(optionsJSON), &poll.Options); err != nil {
			return nil, errors.Wrap(err, "decode options")
		}
		out = append(out, poll)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate polls")
	}
	return out, nil
}

func buildMessageQuery(filters httpapi.Filters, count bool) (string, []any) {
	var builder strings.Builder
	if count {
		builder.WriteString("SELECT COUNT(*) FROM messages")
	} else {
		builder.WriteString("SELECT ts, author, text FROM messages")
	}

	conditions, args := filterConditions(filters)
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	if !count {
		appendOrderLimit(&builder, &args, filters)
	}

	builder.WriteString(";")
	return builder.String(), args
}

func buildPollQuery(filters httpapi.Filters) (string, []any) {
	var builder strings.Builder
	builder.WriteString("SELECT ts, author, question, options_json, total_votes FROM polls")

	conditions, args := filterConditions(filters)
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	appendOrderLimit(&builder, &args, filters)

	builder.WriteString(";")
	return builder.String(), args
}

func filterConditions(filters httpapi.Filters) ([]string, []any) {
	var (
		conditions []string
		args       []any
	)

	if len(filters.Authors) > 0 {
		ors := make([]string, 0, len(filters.Authors))
		for _, a := range filters.Authors {
			ors = append(ors, "LOWER(author) LIKE '%' || ? || '%'")
			args = append(args, a)
		}
		conditions = append(conditions, fmt.Sprintf("(%s)", strings.Join(ors, " OR ")))
	}

	if filters.Since != nil {
		conditions = append(conditions, "ts >= ?")
		args = append(args, filters.Since.UTC().Format(time.RFC3339Nano))
	}

	return conditions, args
}

func appendOrderLimit(builder *strings.Builder, args *[]any, filters httpapi.Filters) {
	order := "DESC"
	if filters.Order == httpapi.OrderAsc {
		order = "ASC"
	}
	builder.WriteString(" ORDER BY ts ")
	builder.WriteString(order)
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	builder.WriteString(" LIMIT ?")
	*args = append(*args, limit)
}
