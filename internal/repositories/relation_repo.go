package repositories

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-social/internal/models/po"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const relationColumns = `kind, subject_id, object_id, created_at`

// RelationRepository 统一维护 bookmark / like / follow 三类关系（social.relations）。
//
// 列表按插入顺序（seq）返回，收藏聚合依赖该顺序作为输出顺序。
type RelationRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewRelationRepository 构造 RelationRepository。
func NewRelationRepository(db *pgxpool.Pool, logger log.Logger) *RelationRepository {
	return &RelationRepository{db: db, log: log.NewHelper(logger)}
}

// Create 建立关系。关系已存在时不报错，返回 created=false。
func (r *RelationRepository) Create(ctx context.Context, sess txmanager.Session, kind po.RelationKind, subjectID, objectID uuid.UUID) (bool, error) {
	if !kind.Valid() {
		return false, ErrInvalidRelation
	}
	tag, err := conn(r.db, sess).Exec(ctx, `
INSERT INTO social.relations (kind, subject_id, object_id)
VALUES ($1, $2, $3)
ON CONFLICT (kind, subject_id, object_id) DO NOTHING`,
		string(kind), subjectID, objectID)
	if err != nil {
		return false, fmt.Errorf("insert %s relation: %w", kind, err)
	}
	created := tag.RowsAffected() == 1
	r.log.WithContext(ctx).Debugf("relation upserted: kind=%s subject=%s object=%s created=%v", kind, subjectID, objectID, created)
	return created, nil
}

// Delete 解除关系，返回是否确有记录被删除。
func (r *RelationRepository) Delete(ctx context.Context, sess txmanager.Session, kind po.RelationKind, subjectID, objectID uuid.UUID) (bool, error) {
	if !kind.Valid() {
		return false, ErrInvalidRelation
	}
	tag, err := conn(r.db, sess).Exec(ctx, `
DELETE FROM social.relations
WHERE kind = $1 AND subject_id = $2 AND object_id = $3`,
		string(kind), subjectID, objectID)
	if err != nil {
		return false, fmt.Errorf("delete %s relation: %w", kind, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Exists 判断关系是否存在。
func (r *RelationRepository) Exists(ctx context.Context, sess txmanager.Session, kind po.RelationKind, subjectID, objectID uuid.UUID) (bool, error) {
	var exists bool
	err := conn(r.db, sess).QueryRow(ctx, `
SELECT EXISTS (
  SELECT 1 FROM social.relations WHERE kind = $1 AND subject_id = $2 AND object_id = $3
)`, string(kind), subjectID, objectID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s relation: %w", kind, err)
	}
	return exists, nil
}

// ListBySubject 列出 subject 发起的全部关系，例如某用户的全部收藏。
func (r *RelationRepository) ListBySubject(ctx context.Context, sess txmanager.Session, kind po.RelationKind, subjectID uuid.UUID) ([]po.Relation, error) {
	return r.list(ctx, sess, `
SELECT `+relationColumns+` FROM social.relations
WHERE kind = $1 AND subject_id = $2
ORDER BY seq`, string(kind), subjectID)
}

// ListByObject 列出指向 object 的全部关系，例如某用户的全部粉丝。
func (r *RelationRepository) ListByObject(ctx context.Context, sess txmanager.Session, kind po.RelationKind, objectID uuid.UUID) ([]po.Relation, error) {
	return r.list(ctx, sess, `
SELECT `+relationColumns+` FROM social.relations
WHERE kind = $1 AND object_id = $2
ORDER BY seq`, string(kind), objectID)
}

// CountByObject 统计指向 object 的关系数量（点赞数、粉丝数）。
func (r *RelationRepository) CountByObject(ctx context.Context, sess txmanager.Session, kind po.RelationKind, objectID uuid.UUID) (int64, error) {
	var count int64
	err := conn(r.db, sess).QueryRow(ctx,
		`SELECT count(*) FROM social.relations WHERE kind = $1 AND object_id = $2`,
		string(kind), objectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s relations: %w", kind, err)
	}
	return count, nil
}

func (r *RelationRepository) list(ctx context.Context, sess txmanager.Session, query string, args ...any) ([]po.Relation, error) {
	rows, err := conn(r.db, sess).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	relations, err := pgx.CollectRows(rows, pgx.RowToStructByName[po.Relation])
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	return relations, nil
}
