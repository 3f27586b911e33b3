package sqlite

// Schema DDL. The events table is keyed by (kind, entity_id); body holds the
// JSON snapshot and schema_version its version for future migrations.
const (
	createEvents = `CREATE TABLE IF NOT EXISTS events (
    kind TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    schema_version INTEGER NOT NULL,
    title TEXT NOT NULL,
    course_id TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (kind, entity_id)
);`

	idxEventsCourse = `CREATE INDEX IF NOT EXISTS idx_events_course ON events(kind, course_id);`
)

// schemaDDL lists all statements run on Attach, in order.
var schemaDDL = []string{
	createEvents,
	idxEventsCourse,
}

// upsertEvent writes a snapshot row. The row is left untouched when the body
// is unchanged so that repeated identical writes keep updated_at stable.
const upsertEvent = `INSERT INTO events (kind, entity_id, schema_version, title, course_id, body, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (kind, entity_id) DO UPDATE SET
    schema_version = excluded.schema_version,
    title = excluded.title,
    course_id = excluded.course_id,
    body = excluded.body,
    updated_at = excluded.updated_at
WHERE events.body != excluded.body`
