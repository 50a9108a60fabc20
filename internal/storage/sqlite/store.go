// Package sqlite persists translation nodes between the sourcing step and
// the steps that query them.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"golang.org/x/xerrors"
	_ "modernc.org/sqlite"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/core"
	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/nodes"
)

const nodeColumns = "id, type, langcode, source, translation, media_type, content, content_digest"

// Store provides SQLite-backed persistence for translation nodes.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// Open opens and migrates the node store at path, creating its directory.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, xerrors.New("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, xerrors.Errorf("make store dir: %w", err)
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, xerrors.Errorf("open sqlite db: %w", err)
	}
	// one writer; per-language sourcing goroutines queue on the pool
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, xerrors.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, xerrors.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Question)}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateTypes records a node type definition, replacing any previous one.
func (s *Store) CreateTypes(ctx context.Context, name, sdl string) error {
	q := s.sb.Insert("node_types").
		Columns("name", "sdl", "updated_at").
		Values(name, strings.TrimSpace(sdl), time.Now().UTC().UnixMilli()).
		Suffix("ON CONFLICT(name) DO UPDATE SET sdl = excluded.sdl, updated_at = excluded.updated_at")
	if _, err := q.RunWith(s.db).ExecContext(ctx); err != nil {
		return xerrors.Errorf("create type %s: %w", name, err)
	}
	return nil
}

// TypeDefinition returns the SDL recorded for a node type.
func (s *Store) TypeDefinition(ctx context.Context, name string) (string, bool, error) {
	var sdl string
	err := s.sb.Select("sdl").From("node_types").Where(sq.Eq{"name": name}).
		RunWith(s.db).QueryRowContext(ctx).Scan(&sdl)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, xerrors.Errorf("get type %s: %w", name, err)
	}
	return sdl, true, nil
}

// ReplaceNodes swaps the stored translation nodes for ns in one
// transaction. On any error the previous nodes are kept. Nodes sharing an id
// are upserted, the last one wins.
func (s *Store) ReplaceNodes(ctx context.Context, ns []nodes.Node) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Errorf("begin replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := s.sb.Delete("translation_nodes").RunWith(tx).ExecContext(ctx); err != nil {
		return xerrors.Errorf("delete nodes: %w", err)
	}
	for _, n := range ns {
		if err := s.insertNode(ctx, tx, n); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return xerrors.Errorf("commit replace: %w", err)
	}
	return nil
}

func (s *Store) insertNode(ctx context.Context, runner sq.BaseRunner, n nodes.Node) error {
	if n.ID == "" {
		return xerrors.New("node id is required")
	}
	q := s.sb.Insert("translation_nodes").
		Columns("id", "type", "langcode", "source", "translation", "media_type", "content", "content_digest", "created_at").
		Values(n.ID, n.Internal.Type, n.Langcode, n.Source, n.Translation.Translation,
			n.Internal.MediaType, n.Internal.Content, n.Internal.ContentDigest, time.Now().UTC().UnixMilli()).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
		    langcode = excluded.langcode,
		    source = excluded.source,
		    translation = excluded.translation,
		    content = excluded.content,
		    content_digest = excluded.content_digest`)
	if _, err := q.RunWith(runner).ExecContext(ctx); err != nil {
		return xerrors.Errorf("create node %s: %w", n.ID, err)
	}
	return nil
}

func (s *Store) getNode(ctx context.Context, id string) (nodes.Node, bool, error) {
	row := s.sb.Select(nodeColumns).From("translation_nodes").Where(sq.Eq{"id": id}).
		RunWith(s.db).QueryRowContext(ctx)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nodes.Node{}, false, nil
	}
	if err != nil {
		return nodes.Node{}, false, xerrors.Errorf("get node %s: %w", id, err)
	}
	return n, true, nil
}

// AllTranslations returns every translation node ordered by langcode, then
// source. A node whose content no longer matches its digest is an error.
func (s *Store) AllTranslations(ctx context.Context) ([]core.Translation, error) {
	rows, err := s.sb.Select(nodeColumns).
		From("translation_nodes").
		Where(sq.Eq{"type": nodes.TypeName}).
		OrderBy("langcode", "source").
		RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, xerrors.Errorf("list translations: %w", err)
	}
	defer rows.Close()

	out := []core.Translation{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, xerrors.Errorf("scan translation: %w", err)
		}
		if err := n.Verify(); err != nil {
			return nil, err
		}
		out = append(out, n.Translation)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Errorf("list translations: %w", err)
	}
	return out, nil
}

// CountNodes returns the number of stored translation nodes.
func (s *Store) CountNodes(ctx context.Context) (int, error) {
	var n int
	if err := s.sb.Select("COUNT(*)").From("translation_nodes").
		RunWith(s.db).QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, xerrors.Errorf("count nodes: %w", err)
	}
	return n, nil
}

func scanNode(row sq.RowScanner) (nodes.Node, error) {
	var n nodes.Node
	if err := row.Scan(
		&n.ID,
		&n.Internal.Type,
		&n.Langcode,
		&n.Source,
		&n.Translation.Translation,
		&n.Internal.MediaType,
		&n.Internal.Content,
		&n.Internal.ContentDigest,
	); err != nil {
		return nodes.Node{}, err
	}
	n.Children = []string{}
	return n, nil
}
