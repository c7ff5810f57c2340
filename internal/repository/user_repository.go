package repository

import (
	"context"
	"errors"
	"fmt"

	"user-center/internal/model"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// mysql 唯一键冲突错误码
const mysqlDuplicateEntry = 1062

var (
	// ErrNotFound 用户不存在
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate 唯一索引冲突（账号或星球编号重复）
	ErrDuplicate = errors.New("user already exists")
)

// UserRepository 用户数据仓储
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建UserRepository实例
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) scoped(ctx context.Context, q *Query) *gorm.DB {
	return q.apply(r.db.WithContext(ctx).Model(&model.User{}))
}

// Count 统计满足条件的用户数
func (r *UserRepository) Count(ctx context.Context, q *Query) (int64, error) {
	var count int64
	if err := r.scoped(ctx, q).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// FindOne 查询满足条件的第一个用户
func (r *UserRepository) FindOne(ctx context.Context, q *Query) (*model.User, error) {
	var u model.User
	if err := r.scoped(ctx, q).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// List 查询满足条件的全部用户
func (r *UserRepository) List(ctx context.Context, q *Query) ([]*model.User, error) {
	var users []*model.User
	if err := r.scoped(ctx, q).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetByID 根据ID获取用户
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.FindOne(ctx, NewQuery().Eq(ColumnID, id))
}

// Create 创建用户，成功后 user.ID 为自增主键
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateByID 按ID更新请求中出现的字段，返回受影响行数
func (r *UserRepository) UpdateByID(ctx context.Context, id int64, fields Fields) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where(string(ColumnID)+" = ?", id).
		Updates(fields.toMap())
	if result.Error != nil {
		var me *mysql.MySQLError
		if errors.As(result.Error, &me) && me.Number == mysqlDuplicateEntry {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("update user %d: %w", id, result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteByID 物理删除用户，返回受影响行数
func (r *UserRepository) DeleteByID(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().Delete(&model.User{}, id)
	if result.Error != nil {
		return 0, fmt.Errorf("delete user %d: %w", id, result.Error)
	}
	return result.RowsAffected, nil
}
