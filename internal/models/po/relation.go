package po

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RelationKind 区分 social.relations 中的关系类型。
type RelationKind string

// 关系类型常量。subject 始终是发起方用户，object 视类型为视频或用户。
const (
	RelationBookmark RelationKind = "bookmark" // user -> video
	RelationLike     RelationKind = "like"     // user -> video
	RelationFollow   RelationKind = "follow"   // user -> user
)

// Valid 判断关系类型是否受支持。
func (k RelationKind) Valid() bool {
	switch k {
	case RelationBookmark, RelationLike, RelationFollow:
		return true
	default:
		return false
	}
}

// ParseRelationKind 解析字符串形式的关系类型。
func ParseRelationKind(value string) (RelationKind, error) {
	kind := RelationKind(value)
	if !kind.Valid() {
		return "", fmt.Errorf("unknown relation kind %q", value)
	}
	return kind, nil
}

// Relation 表示 social.relations 表的一行。
type Relation struct {
	Kind      RelationKind `db:"kind"`
	SubjectID uuid.UUID    `db:"subject_id"`
	ObjectID  uuid.UUID    `db:"object_id"`
	CreatedAt time.Time    `db:"created_at"`
}
