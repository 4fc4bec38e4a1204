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

var _ scanning.BranchStore = (*branchStore)(nil)

// branchStore manages branch persistence in PostgreSQL.
type branchStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewBranchStore creates a PostgreSQL-backed branch store.
func NewBranchStore(pool *pgxpool.Pool, tracer trace.Tracer) *branchStore {
	return &branchStore{pool: pool, tracer: tracer}
}

func (s *branchStore) Create(ctx context.Context, branch *scanning.Branch) error {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "BranchStore"),
		attribute.String("method", "Create"),
		attribute.String("repository_id", branch.RepositoryID.String()),
		attribute.String("branch_name", branch.BranchName),
	}
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.branches.create", dbAttrs, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO branches (id, repository_id, branch_id, branch_name, latest_commit, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (repository_id, branch_id)
			DO UPDATE SET branch_name = EXCLUDED.branch_name, latest_commit = EXCLUDED.latest_commit, updated_at = $7`,
			branch.ID, branch.RepositoryID, branch.BranchID, branch.BranchName,
			branch.LatestCommit, branch.CreatedAt, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert error: %w", err)
		}
		return nil
	})
}

func (s *branchStore) GetByID(ctx context.Context, id uuid.UUID) (*scanning.Branch, error) {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "BranchStore"),
		attribute.String("method", "GetByID"),
		attribute.String("id", id.String()),
	}
	var branch scanning.Branch
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.branches.get_by_id", dbAttrs, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT id, repository_id, branch_id, branch_name, latest_commit, created_at, updated_at
			FROM branches WHERE id = $1`, id)
		if err := scanBranch(row, &branch); err != nil {
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
	return &branch, nil
}

func (s *branchStore) ListByRepository(
	ctx context.Context,
	repositoryID uuid.UUID,
	skip, limit int,
) ([]scanning.Branch, int64, error) {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "BranchStore"),
		attribute.String("method", "ListByRepository"),
		attribute.String("repository_id", repositoryID.String()),
	}
	var (
		branches []scanning.Branch
		total    int64
	)
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.branches.list_by_repository", dbAttrs, func(ctx context.Context) error {
		if err := s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM branches WHERE repository_id = $1`, repositoryID,
		).Scan(&total); err != nil {
			return fmt.Errorf("count error: %w", err)
		}

		rows, err := s.pool.Query(ctx, `
			SELECT id, repository_id, branch_id, branch_name, latest_commit, created_at, updated_at
			FROM branches WHERE repository_id = $1 ORDER BY branch_name, id OFFSET $2 LIMIT $3`,
			repositoryID, skip, limit)
		if err != nil {
			return fmt.Errorf("query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var branch scanning.Branch
			if err := scanBranch(rows, &branch); err != nil {
				return fmt.Errorf("scan error: %w", err)
			}
			branches = append(branches, branch)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return branches, total, nil
}

func (s *branchStore) Delete(ctx context.Context, id uuid.UUID) error {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "BranchStore"),
		attribute.String("method", "Delete"),
		attribute.String("id", id.String()),
	}
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.branches.delete", dbAttrs, func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM branches WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete error: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return scanning.ErrNotFound
		}
		return nil
	})
}

func scanBranch(row pgx.Row, branch *scanning.Branch) error {
	return row.Scan(
		&branch.ID,
		&branch.RepositoryID,
		&branch.BranchID,
		&branch.BranchName,
		&branch.LatestCommit,
		&branch.CreatedAt,
		&branch.UpdatedAt,
	)
}
