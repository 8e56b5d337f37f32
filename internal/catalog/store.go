package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AntAci/AstraGuard/internal/db"
	"github.com/AntAci/AstraGuard/internal/monitoring"
)

// Store reads and writes TLE records in the catalog database.
type Store struct {
	db *db.DB
}

func NewStore(d *db.DB) *Store {
	return &Store{db: d}
}

// SaveGroup records one fetched batch of element sets for a source group.
// All rows in a batch share the same fetched_at so the loader can select
// whole fetches atomically.
func (s *Store) SaveGroup(ctx context.Context, objects []Object, line1, line2 func(i int) string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO tles
			(norad_id, name, source_group, line1, line2, epoch, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, obj := range objects {
		if _, err := stmt.ExecContext(ctx,
			obj.NoradID, obj.Name, obj.SourceGroup,
			line1(i), line2(i),
			obj.Epoch.UTC(), obj.FetchedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert object %d: %w", obj.NoradID, err)
		}
	}
	return tx.Commit()
}

// SaveRaw stores raw TLE text for one group fetch: it parses, stamps, and
// persists the records, returning the parsed objects.
func (s *Store) SaveRaw(ctx context.Context, raw, sourceGroup string, fetchedAt time.Time) ([]Object, error) {
	objects, err := ParseGroup(strings.NewReader(raw), sourceGroup, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("parse group %s: %w", sourceGroup, err)
	}
	lines := tleLines(raw)
	if len(lines)/2 != len(objects) {
		return nil, fmt.Errorf("group %s: %d data lines for %d objects", sourceGroup, len(lines), len(objects))
	}
	err = s.SaveGroup(ctx, objects,
		func(i int) string { return lines[2*i] },
		func(i int) string { return lines[2*i+1] },
	)
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// tleLines extracts just the data lines of a TLE stream, in order.
func tleLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r ")
		if strings.HasPrefix(line, "1 ") || strings.HasPrefix(line, "2 ") {
			out = append(out, line)
		}
	}
	return out
}

// LoadLatest returns the screening object set: the most recent fetch of each
// requested group, parsed, deduplicated across groups by catalog number
// (newest epoch wins, then newest fetch), sorted by catalog number, and
// capped at maxObjects (0 means no cap).
func (s *Store) LoadLatest(ctx context.Context, groups []string, maxObjects int) ([]Object, error) {
	groups = NormalizeGroups(groups)
	if len(groups) == 0 {
		return nil, fmt.Errorf("no source groups requested")
	}

	placeholders := strings.Repeat("?,", len(groups))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, 0, len(groups)*2)
	for _, g := range groups {
		args = append(args, g)
	}
	for _, g := range groups {
		args = append(args, g)
	}

	// Latest fetch per group, then every row of those fetches.
	query := fmt.Sprintf(`
		WITH latest AS (
			SELECT source_group, MAX(fetched_at) AS fetched_at
			FROM tles
			WHERE source_group IN (%s)
			GROUP BY source_group
		)
		SELECT t.norad_id, t.name, t.source_group, t.line1, t.line2, t.fetched_at
		FROM tles t
		JOIN latest l
		  ON t.source_group = l.source_group AND t.fetched_at = l.fetched_at
		WHERE t.source_group IN (%s)
	`, placeholders, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query latest tles: %w", err)
	}
	defer rows.Close()

	best := make(map[int]Object)
	parsed := 0
	for rows.Next() {
		var (
			noradID      int
			name, group  string
			line1, line2 string
			fetchedAt    time.Time
		)
		if err := rows.Scan(&noradID, &name, &group, &line1, &line2, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scan tle row: %w", err)
		}
		obj, err := ParseTLE(name, line1, line2)
		if err != nil {
			monitoring.Logf("[WARN] skipping stored TLE %d (%s): %v", noradID, group, err)
			continue
		}
		obj.SourceGroup = group
		obj.Class = ClassifyGroup(group)
		obj.FetchedAt = fetchedAt.UTC()
		parsed++

		prev, seen := best[obj.NoradID]
		if !seen || newerObject(obj, prev) {
			best[obj.NoradID] = obj
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Object, 0, len(best))
	for _, obj := range best {
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NoradID < out[j].NoradID })

	if maxObjects > 0 && len(out) > maxObjects {
		out = out[:maxObjects]
	}
	monitoring.Logf("[INFO] catalog load: groups=%d rows=%d unique=%d returned=%d",
		len(groups), parsed, len(best), len(out))
	return out, nil
}

// newerObject prefers the fresher element set when the same object appears
// in more than one group.
func newerObject(a, b Object) bool {
	if !a.Epoch.Equal(b.Epoch) {
		return a.Epoch.After(b.Epoch)
	}
	return a.FetchedAt.After(b.FetchedAt)
}
