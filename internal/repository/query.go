package repository

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Column 允许参与查询/更新的列，避免把外部输入直接拼接为列名
type Column string

const (
	ColumnID           Column = "id"
	ColumnUsername     Column = "username"
	ColumnUserAccount  Column = "userAccount"
	ColumnAvatarURL    Column = "avatarUrl"
	ColumnGender       Column = "gender"
	ColumnUserPassword Column = "userPassword"
	ColumnPhone        Column = "phone"
	ColumnEmail        Column = "email"
	ColumnUserStatus   Column = "userStatus"
	ColumnUserRole     Column = "userRole"
	ColumnPlanetCode   Column = "planetCode"
	ColumnTags         Column = "tags"
)

// Operator 条件运算符
type Operator int

const (
	OpEq   Operator = iota // 等值
	OpLike                 // 子串匹配
)

// Condition 单个查询条件
type Condition struct {
	Column Column
	Op     Operator
	Value  interface{}
}

// Query 条件构造器，所有条件以 AND 连接
type Query struct {
	conds []Condition
}

// NewQuery 创建空查询（匹配全部）
func NewQuery() *Query {
	return &Query{}
}

// Eq 追加等值条件
func (q *Query) Eq(col Column, value interface{}) *Query {
	q.conds = append(q.conds, Condition{Column: col, Op: OpEq, Value: value})
	return q
}

// Like 追加子串匹配条件，value 中的通配符按字面量处理
func (q *Query) Like(col Column, value string) *Query {
	q.conds = append(q.conds, Condition{Column: col, Op: OpLike, Value: value})
	return q
}

// Conditions 返回条件副本
func (q *Query) Conditions() []Condition {
	if q == nil {
		return nil
	}
	out := make([]Condition, len(q.conds))
	copy(out, q.conds)
	return out
}

// apply 将条件转换为参数化的 WHERE 子句
func (q *Query) apply(db *gorm.DB) *gorm.DB {
	if q == nil {
		return db
	}
	for _, c := range q.conds {
		col := clause.Column{Name: string(c.Column)}
		switch c.Op {
		case OpLike:
			s, _ := c.Value.(string)
			db = db.Where(clause.Like{Column: col, Value: "%" + EscapeLike(s) + "%"})
		default:
			db = db.Where(clause.Eq{Column: col, Value: c.Value})
		}
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike 转义 LIKE 通配符（MySQL 默认转义符为反斜杠）
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Fields 按列更新的字段集合，只包含请求中出现的字段
type Fields map[Column]interface{}

func (f Fields) toMap() map[string]interface{} {
	m := make(map[string]interface{}, len(f))
	for col, v := range f {
		m[string(col)] = v
	}
	return m
}
