// Package schema owns the archive's SQLite DDL: the abstract schema of
// spec.md §6 (a latest/previous snapshot table pair per versioned object
// kind, plus the auxiliary tables) rendered as concrete CREATE TABLE
// statements. Adapted from the teacher's InitDB/GetSchemaVersion
// user-version-pragma bootstrap idiom.
package schema

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
)

// CurrentVersion is the schema version installed by InitDB. It is compared
// against the database's schema_version table so InitDB only runs its DDL
// install once per database file, per spec.md §6 ("user-version pragma...
// to trigger one-time schema install from a bundled DDL on empty
// databases").
const CurrentVersion = 1

// versionedKinds is an alias for codec.VersionedKinds (spec.md §3: every
// kind except member, attachment and sticker, which have their own table
// shapes below) kept local so the DDL-generating code below reads the same
// as before; codec.Kind.Versioned() is a membership test against the same
// slice, so the two can never drift apart.
var versionedKinds = codec.VersionedKinds

// InitDB installs the full schema inside one transaction, idempotently: if
// the database already reports CurrentVersion it does nothing.
func InitDB(db *sql.DB) error {
	version, err := GetSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("schema: read version: %w", err)
	}
	if version == CurrentVersion {
		return nil
	}
	if version != 0 {
		return fmt.Errorf("schema: database has unsupported schema version %d (want 0 or %d); schema evolution tooling is out of scope", version, CurrentVersion)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("schema: begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := createVersionTable(tx); err != nil {
		return fmt.Errorf("schema: create version table: %w", err)
	}
	if err := createVersionedTables(tx); err != nil {
		return fmt.Errorf("schema: create versioned tables: %w", err)
	}
	if err := createAuxiliaryTables(tx); err != nil {
		return fmt.Errorf("schema: create auxiliary tables: %w", err)
	}
	if err := createIndexes(tx); err != nil {
		return fmt.Errorf("schema: create indexes: %w", err)
	}
	if err := setSchemaVersion(tx, CurrentVersion); err != nil {
		return fmt.Errorf("schema: set version: %w", err)
	}

	return tx.Commit()
}

// GetSchemaVersion returns the installed schema version, or 0 for a
// database that has never been initialized.
func GetSchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		// schema_version table doesn't exist yet on a brand new database.
		if strings.Contains(err.Error(), "no such table") {
			return 0, nil
		}
		return 0, fmt.Errorf("query schema version: %w", err)
	}
	return version, nil
}

func createVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, version)
	return err
}

// createVersionedTables renders the latest/previous pair for every kind in
// versionedKinds, deriving the column list straight from the codec schema
// registry so the DDL can never drift out of sync with the codec.
func createVersionedTables(tx *sql.Tx) error {
	for _, kind := range versionedKinds {
		fields := codec.Schemas[kind]
		immutable := codec.ImmutableColumns(fields)
		mutable := codec.MutableColumns(fields)

		var latestCols []string
		latestCols = append(latestCols, "id INTEGER PRIMARY KEY")
		latestCols = append(latestCols, "_timestamp INTEGER NOT NULL")
		latestCols = append(latestCols, "_deleted INTEGER")
		for _, c := range immutable {
			latestCols = append(latestCols, quoteCol(c))
		}
		for _, c := range mutable {
			latestCols = append(latestCols, quoteCol(c))
		}
		latestCols = append(latestCols, "_extra TEXT")

		ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS latest_%s_snapshots (\n\t%s\n)", kind, strings.Join(latestCols, ",\n\t"))
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("latest_%s_snapshots: %w", kind, err)
		}

		var prevCols []string
		prevCols = append(prevCols, "id INTEGER NOT NULL")
		prevCols = append(prevCols, "_timestamp INTEGER NOT NULL")
		for _, c := range mutable {
			prevCols = append(prevCols, quoteCol(c))
		}
		prevCols = append(prevCols, "_extra TEXT")
		prevCols = append(prevCols, "PRIMARY KEY (id, _timestamp)")

		ddl = fmt.Sprintf("CREATE TABLE IF NOT EXISTS previous_%s_snapshots (\n\t%s\n)", kind, strings.Join(prevCols, ",\n\t"))
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("previous_%s_snapshots: %w", kind, err)
		}
	}
	return nil
}

func createAuxiliaryTables(tx *sql.Tx) error {
	memberCols := codec.MutableColumns(codec.Schemas[codec.KindMember])
	var memberDDL []string
	memberDDL = append(memberDDL, "_guild_id INTEGER NOT NULL", "_user_id INTEGER NOT NULL", "_timestamp INTEGER NOT NULL", "_deleted INTEGER")
	for _, c := range memberCols {
		memberDDL = append(memberDDL, quoteCol(c))
	}
	memberDDL = append(memberDDL, "_extra TEXT", "PRIMARY KEY (_guild_id, _user_id)")

	attCols := codec.ImmutableColumns(codec.Schemas[codec.KindAttachment])
	var attDDL []string
	attDDL = append(attDDL, "id INTEGER PRIMARY KEY", "message_id INTEGER NOT NULL")
	for _, c := range attCols {
		attDDL = append(attDDL, quoteCol(c))
	}
	attDDL = append(attDDL, "_extra TEXT")

	stickerCols := append(codec.ImmutableColumns(codec.Schemas[codec.KindSticker]), codec.MutableColumns(codec.Schemas[codec.KindSticker])...)
	var stickerDDL []string
	stickerDDL = append(stickerDDL, "id INTEGER PRIMARY KEY", "server_id INTEGER NOT NULL")
	for _, c := range stickerCols {
		stickerDDL = append(stickerDDL, quoteCol(c))
	}
	stickerDDL = append(stickerDDL, "_extra TEXT")

	tables := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS member_snapshots (\n\t%s\n)", strings.Join(memberDDL, ",\n\t")),

		fmt.Sprintf("CREATE TABLE IF NOT EXISTS attachments (\n\t%s\n)", strings.Join(attDDL, ",\n\t")),

		fmt.Sprintf("CREATE TABLE IF NOT EXISTS stickers (\n\t%s\n)", strings.Join(stickerDDL, ",\n\t")),

		`CREATE TABLE IF NOT EXISTS reaction_emojis (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			animated INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS reactions (
			message_id   INTEGER NOT NULL,
			emoji_id     INTEGER,
			emoji_name   TEXT,
			reaction_type INTEGER NOT NULL,
			user_id      INTEGER NOT NULL,
			start        INTEGER NOT NULL,
			end          INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS webhook_users (
			id          INTEGER PRIMARY KEY,
			webhook_id  INTEGER NOT NULL,
			username    TEXT NOT NULL,
			avatar_hash TEXT,
			UNIQUE (webhook_id, username, avatar_hash)
		)`,

		`CREATE TABLE IF NOT EXISTS files (
			url          TEXT PRIMARY KEY,
			content_hash TEXT,
			error_code   INTEGER
		)`,

		// message_fts_index carries both channel_id and thread_parent_id so
		// a search scoped to a channel also matches messages posted in its
		// threads (spec.md §9 Open Question, resolved per DESIGN.md).
		`CREATE VIRTUAL TABLE IF NOT EXISTS message_fts_index USING fts5(
			content,
			message_id UNINDEXED,
			channel_id UNINDEXED,
			thread_parent_id UNINDEXED
		)`,
	}

	for _, ddl := range tables {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(ddl), err)
		}
	}
	return nil
}

func createIndexes(tx *sql.Tx) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_previous_channel_snapshots_id ON previous_channel_snapshots(id)`,
		`CREATE INDEX IF NOT EXISTS idx_previous_message_snapshots_id ON previous_message_snapshots(id)`,
		`CREATE INDEX IF NOT EXISTS idx_latest_message_snapshots_channel ON latest_message_snapshots(channel_id)`,
		`CREATE INDEX IF NOT EXISTS idx_latest_thread_snapshots_parent ON latest_thread_snapshots(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_latest_channel_snapshots_parent ON latest_channel_snapshots(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attachments_message ON attachments(message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reactions_message ON reactions(message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_member_snapshots_guild ON member_snapshots(_guild_id)`,
		`CREATE INDEX IF NOT EXISTS idx_latest_role_snapshots_server ON latest_role_snapshots(id)`,
	}
	for _, ddl := range indexes {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("exec %q: %w", ddl, err)
		}
	}
	return nil
}

// OpenDB opens the archive's SQLite file with WAL journaling enabled (the
// request bus's single-writer worker needs WAL so readers on other
// connections are never blocked by the in-progress write), installs the
// schema if needed, and returns the handle.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("schema: open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema: set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema: enable foreign keys: %w", err)
	}
	if err := InitDB(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func quoteCol(name string) string {
	return "\"" + name + "\""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
