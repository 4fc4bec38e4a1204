// Package postgres provides PostgreSQL-backed stores for the scanning domain.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/internal/domain/scanning"
	"github.com/scanhound/scanhound/internal/infra/storage"
)

var _ scanning.RepositoryStore = (*repositoryStore)(nil)

// repositoryStore manages repository persistence in PostgreSQL.
type repositoryStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewRepositoryStore creates a PostgreSQL-backed repository store.
func NewRepositoryStore(pool *pgxpool.Pool, tracer trace.Tracer) *repositoryStore {
	return &repositoryStore{pool: pool, tracer: tracer}
}

func (s *repositoryStore) Create(ctx context.Context, repo *scanning.Repository) error {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "RepositoryStore"),
		attribute.String("method", "Create"),
		attribute.String("repository_name", repo.RepositoryName),
	}
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.repositories.create", dbAttrs, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO repositories (id, project_key, repository_id, repository_name, repository_url, vcs_instance, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			repo.ID, repo.ProjectKey, repo.RepositoryID, repo.RepositoryName,
			repo.RepositoryURL, repo.VCSInstanceName, repo.CreatedAt, repo.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert error: %w", err)
		}
		return nil
	})
}

func (s *repositoryStore) GetByID(ctx context.Context, id uuid.UUID) (*scanning.Repository, error) {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "RepositoryStore"),
		attribute.String("method", "GetByID"),
		attribute.String("id", id.String()),
	}
	var repo scanning.Repository
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.repositories.get_by_id", dbAttrs, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT id, project_key, repository_id, repository_name, repository_url, vcs_instance, deleted_at, created_at, updated_at
			FROM repositories WHERE id = $1`, id)
		if err := scanRepository(row, &repo); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return scanning.ErrNotFound
			}
			return fmt.Errorf("query error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

func (s *repositoryStore) List(ctx context.Context, skip, limit int) ([]scanning.Repository, int64, error) {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "RepositoryStore"),
		attribute.String("method", "List"),
		attribute.Int("skip", skip),
		attribute.Int("limit", limit),
	}
	var (
		repos []scanning.Repository
		total int64
	)
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.repositories.list", dbAttrs, func(ctx context.Context) error {
		if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM repositories`).Scan(&total); err != nil {
			return fmt.Errorf("count error: %w", err)
		}

		rows, err := s.pool.Query(ctx, `
			SELECT id, project_key, repository_id, repository_name, repository_url, vcs_instance, deleted_at, created_at, updated_at
			FROM repositories ORDER BY created_at, id OFFSET $1 LIMIT $2`, skip, limit)
		if err != nil {
			return fmt.Errorf("query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var repo scanning.Repository
			if err := scanRepository(rows, &repo); err != nil {
				return fmt.Errorf("scan error: %w", err)
			}
			repos = append(repos, repo)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return repos, total, nil
}

func (s *repositoryStore) Update(ctx context.Context, repo *scanning.Repository) error {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "RepositoryStore"),
		attribute.String("method", "Update"),
		attribute.String("id", repo.ID.String()),
	}
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.repositories.update", dbAttrs, func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `
			UPDATE repositories
			SET project_key = $2, repository_id = $3, repository_name = $4, repository_url = $5, vcs_instance = $6, updated_at = $7
			WHERE id = $1`,
			repo.ID, repo.ProjectKey, repo.RepositoryID, repo.RepositoryName,
			repo.RepositoryURL, repo.VCSInstanceName, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("update error: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return scanning.ErrNotFound
		}
		return nil
	})
}

func (s *repositoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "RepositoryStore"),
		attribute.String("method", "Delete"),
		attribute.String("id", id.String()),
	}
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.repositories.delete", dbAttrs, func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM repositories WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete error: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return scanning.ErrNotFound
		}
		return nil
	})
}

// SyncActiveSet reconciles stored rows against a collector report inside a
// single transaction so a crashed sync never leaves half the project
// soft-deleted.
func (s *repositoryStore) SyncActiveSet(
	ctx context.Context,
	projectKey, vcsInstanceName string,
	active []scanning.ActiveRepository,
) (int64, error) {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "RepositoryStore"),
		attribute.String("method", "SyncActiveSet"),
		attribute.String("project_key", projectKey),
		attribute.String("vcs_instance", vcsInstanceName),
		attribute.Int("active_count", len(active)),
	}
	var deactivated int64
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.repositories.sync_active_set", dbAttrs, func(ctx context.Context) error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin error: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		activeIDs := make([]string, 0, len(active))
		now := time.Now().UTC()
		for _, a := range active {
			activeIDs = append(activeIDs, a.RepositoryID)

			// Restore or register each reported repository. The URL stays
			// empty until a scan task fills it in.
			_, err := tx.Exec(ctx, `
				INSERT INTO repositories (id, project_key, repository_id, repository_name, repository_url, vcs_instance, created_at, updated_at)
				VALUES ($1, $2, $3, $4, '', $5, $6, $6)
				ON CONFLICT (vcs_instance, project_key, repository_id)
				DO UPDATE SET repository_name = EXCLUDED.repository_name, deleted_at = NULL, updated_at = EXCLUDED.updated_at`,
				uuid.New(), projectKey, a.RepositoryID, a.RepositoryName, vcsInstanceName, now,
			)
			if err != nil {
				return fmt.Errorf("upsert error for %s: %w", a.RepositoryID, err)
			}
		}

		tag, err := tx.Exec(ctx, `
			UPDATE repositories SET deleted_at = $4, updated_at = $4
			WHERE vcs_instance = $1 AND project_key = $2 AND deleted_at IS NULL AND NOT (repository_id = ANY($3))`,
			vcsInstanceName, projectKey, activeIDs, now,
		)
		if err != nil {
			return fmt.Errorf("deactivate error: %w", err)
		}
		deactivated = tag.RowsAffected()

		return tx.Commit(ctx)
	})
	if err != nil {
		return 0, err
	}
	return deactivated, nil
}

func (s *repositoryStore) DistinctProjects(ctx context.Context, filter scanning.DistinctFilter) ([]string, error) {
	return s.distinctColumn(ctx, "DistinctProjects", "postgres.repositories.distinct_projects",
		"project_key", "repository_name", filter)
}

func (s *repositoryStore) DistinctRepositories(ctx context.Context, filter scanning.DistinctFilter) ([]string, error) {
	return s.distinctColumn(ctx, "DistinctRepositories", "postgres.repositories.distinct_repositories",
		"repository_name", "project_key", filter)
}

// distinctColumn selects distinct values of column from active repositories,
// with the substring filter applied to filterColumn.
func (s *repositoryStore) distinctColumn(
	ctx context.Context,
	method, spanName, column, filterColumn string,
	filter scanning.DistinctFilter,
) ([]string, error) {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "RepositoryStore"),
		attribute.String("method", method),
	}
	var values []string
	err := storage.ExecuteAndTrace(ctx, s.tracer, spanName, dbAttrs, func(ctx context.Context) error {
		query := fmt.Sprintf(`
			SELECT DISTINCT %s FROM repositories
			WHERE deleted_at IS NULL
			  AND (coalesce(cardinality($1::text[]), 0) = 0 OR vcs_instance = ANY($1))
			  AND ($2 = '' OR %s ILIKE '%%' || $2 || '%%')
			ORDER BY %s`, column, filterColumn, column)
		rows, err := s.pool.Query(ctx, query, filter.VCSInstanceNames, filter.NameContains)
		if err != nil {
			return fmt.Errorf("query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return fmt.Errorf("scan error: %w", err)
			}
			values = append(values, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func scanRepository(row pgx.Row, repo *scanning.Repository) error {
	return row.Scan(
		&repo.ID,
		&repo.ProjectKey,
		&repo.RepositoryID,
		&repo.RepositoryName,
		&repo.RepositoryURL,
		&repo.VCSInstanceName,
		&repo.DeletedAt,
		&repo.CreatedAt,
		&repo.UpdatedAt,
	)
}
