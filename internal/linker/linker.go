// Package linker implements the read-only hardlink utility described in
// spec.md §6: "a read-only utility that iterates files and creates
// human-named hard links in a sibling directory (platform-forbidden
// characters replaced with underscore; hash prefix appended before
// extension for collision avoidance)." It never mutates the archive
// database or the blob store — only the output directory.
package linker

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/duarte-pardal/discord-archiver/internal/filestore"
)

// Result summarizes one Link pass.
type Result struct {
	Linked  int
	Skipped int // files rows with no committed blob (pending or permanently failed)
}

// forbiddenChars is the union of characters Windows and POSIX filesystems
// disallow or treat specially, so a linked name stays portable if the
// archive is ever moved between machines.
const forbiddenChars = `\/:*?"<>|`

// Link iterates the files table and creates a human-named hard link for
// every committed blob under outDir. Grounded on thrum's
// internal/backup/local_export.go (dynamic row iteration, atomic-rename
// discipline) for the export shape, and internal/daemon/rpc/user.go's
// sanitizeUsername (character-class filtering) for the name-cleaning
// rule, generalized here to preserve a file extension.
func Link(ctx context.Context, db *sql.DB, store *filestore.Store, outDir string) (Result, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("linker: create output dir: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT f.url, f.content_hash, a.filename
		FROM files f
		LEFT JOIN attachments a ON a.url = f.url
		ORDER BY f.url`)
	if err != nil {
		return Result{}, fmt.Errorf("linker: query files: %w", err)
	}
	defer rows.Close()

	var result Result
	for rows.Next() {
		var url string
		var hash, filename sql.NullString
		if err := rows.Scan(&url, &hash, &filename); err != nil {
			return result, fmt.Errorf("linker: scan row: %w", err)
		}
		if !hash.Valid {
			result.Skipped++
			continue
		}

		name := filename.String
		if name == "" {
			name = path.Base(url)
		}

		src := store.BlobPath(hash.String)
		dst := filepath.Join(outDir, sanitizeLinkName(name, hash.String))
		if err := relink(src, dst); err != nil {
			return result, fmt.Errorf("linker: link %q: %w", url, err)
		}
		result.Linked++
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("linker: iterate rows: %w", err)
	}
	return result, nil
}

// relink creates dst as a hard link to src, replacing any link left over
// from a previous run so repeated Link calls stay idempotent.
func relink(src, dst string) error {
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Link(src, dst)
}

// sanitizeLinkName replaces filesystem-forbidden characters with
// underscores and appends an 8-character hash prefix before the
// extension, so two blobs that sanitize to the same display name never
// collide on disk.
func sanitizeLinkName(name, hash string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	var b strings.Builder
	for _, r := range base {
		if strings.ContainsRune(forbiddenChars, r) || r < 0x20 {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	base = strings.TrimSpace(b.String())
	if base == "" {
		base = "file"
	}

	prefix := hash
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("%s-%s%s", base, prefix, ext)
}
