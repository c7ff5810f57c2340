package model

import (
	"time"

	"gorm.io/plugin/soft_delete"
)

// 用户角色
const (
	DefaultRole = 0 // 普通用户
	AdminRole   = 1 // 管理员
)

// User 用户模型
// 列名沿用驼峰命名（userAccount、planetCode 等），与已有库表保持一致
// 说明：密码仅存储加盐哈希（UserPassword），不存储明文
// 账号与星球编号唯一：注册时先做存在性校验，唯一索引兜底并发注册
// IsDelete 为逻辑删除标记，所有查询自动过滤已删除行；管理员删除为物理删除
type User struct {
	ID           int64                 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Username     string                `gorm:"column:username;type:varchar(256);comment:用户昵称" json:"username"`
	UserAccount  string                `gorm:"column:userAccount;type:varchar(256);uniqueIndex:uni_userAccount;comment:账号" json:"userAccount"`
	AvatarURL    string                `gorm:"column:avatarUrl;type:varchar(1024);comment:用户头像" json:"avatarUrl"`
	Gender       int8                  `gorm:"column:gender;type:tinyint;comment:性别" json:"gender"`
	UserPassword string                `gorm:"column:userPassword;type:varchar(512);not null;comment:密码" json:"-"`
	Phone        string                `gorm:"column:phone;type:varchar(128);comment:电话" json:"phone"`
	Email        string                `gorm:"column:email;type:varchar(512);comment:邮箱" json:"email"`
	UserStatus   int                   `gorm:"column:userStatus;type:int;not null;default:0;comment:状态 0-正常" json:"userStatus"`
	CreateTime   time.Time             `gorm:"column:createTime;autoCreateTime;comment:创建时间" json:"createTime"`
	UpdateTime   time.Time             `gorm:"column:updateTime;autoUpdateTime;comment:更新时间" json:"updateTime"`
	IsDelete     soft_delete.DeletedAt `gorm:"column:isDelete;type:tinyint;not null;default:0;softDelete:flag;comment:是否删除" json:"-"`
	UserRole     int                   `gorm:"column:userRole;type:int;not null;default:0;comment:用户角色 0-普通用户 1-管理员" json:"userRole"`
	PlanetCode   string                `gorm:"column:planetCode;type:varchar(512);uniqueIndex:uni_planetCode;comment:星球编号" json:"planetCode"`
	Tags         string                `gorm:"column:tags;type:varchar(1024);comment:标签列表(json)" json:"tags"`
}

// TableName 指定表名
func (User) TableName() string { return "user" }

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool { return u != nil && u.UserRole == AdminRole }

// SafetyUser 脱敏后的用户信息，不包含密码、角色、状态
type SafetyUser struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	UserAccount string    `json:"userAccount"`
	AvatarURL   string    `json:"avatarUrl"`
	Gender      int8      `json:"gender"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	PlanetCode  string    `json:"planetCode"`
	Tags        string    `json:"tags"`
	CreateTime  time.Time `json:"createTime"`
}

// LoginState 会话中保存的登录态
// Role 仅在服务端用于鉴权，不随 SafetyUser 返回给前端
type LoginState struct {
	User *SafetyUser `json:"user"`
	Role int         `json:"role"`
}

// UserID 登录用户ID
func (s *LoginState) UserID() int64 {
	if s == nil || s.User == nil {
		return 0
	}
	return s.User.ID
}

// IsAdmin 登录用户是否管理员
func (s *LoginState) IsAdmin() bool { return s != nil && s.Role == AdminRole }
