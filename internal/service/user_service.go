package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"user-center/internal/desensitize"
	"user-center/internal/model"
	"user-center/internal/repository"
	"user-center/internal/session"
	"user-center/pkg/errcode"
	"user-center/pkg/logger"
	"user-center/pkg/password"

	"go.uber.org/zap"
)

// UserStore 用户存储接口，由 repository.UserRepository 实现
type UserStore interface {
	Count(ctx context.Context, q *repository.Query) (int64, error)
	FindOne(ctx context.Context, q *repository.Query) (*model.User, error)
	List(ctx context.Context, q *repository.Query) ([]*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdateByID(ctx context.Context, id int64, fields repository.Fields) (int64, error)
	DeleteByID(ctx context.Context, id int64) (int64, error)
}

// ErrLoginMismatch 账号不存在或密码错误，两种情况不做区分
var ErrLoginMismatch = errcode.New(errcode.NullError, "账号或密码错误")

// UserService 用户业务
type UserService struct {
	repo     UserStore
	sessions session.Store
	hasher   *password.Hasher
}

// NewUserService 创建UserService实例
func NewUserService(repo UserStore, sessions session.Store, hasher *password.Hasher) *UserService {
	return &UserService{repo: repo, sessions: sessions, hasher: hasher}
}

// Register 注册，返回新用户ID
func (s *UserService) Register(ctx context.Context, account, plainPassword, checkPassword, planetCode string) (int64, error) {
	if isAnyBlank(account, plainPassword, checkPassword, planetCode) {
		return 0, errcode.New(errcode.ParamsError, msgParamsBlank)
	}
	if strLen(account) < MinAccountLen {
		return 0, errcode.New(errcode.ParamsError, msgAccountTooShort)
	}
	if strLen(plainPassword) < MinPasswordLen || strLen(checkPassword) < MinPasswordLen {
		return 0, errcode.New(errcode.ParamsError, msgPasswordTooShort)
	}
	if err := checkPlanetCode(planetCode); err != nil {
		return 0, err
	}
	if containsForbidden(account) {
		return 0, errcode.New(errcode.ParamsError, msgAccountIllegal)
	}
	if plainPassword != checkPassword {
		return 0, errcode.New(errcode.ParamsError, msgPasswordMismatch)
	}

	// 账号不能重复
	count, err := s.repo.Count(ctx, repository.NewQuery().Eq(repository.ColumnUserAccount, account))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, errcode.New(errcode.ParamsError, msgAccountExists)
	}
	// 星球编号不能重复
	count, err = s.repo.Count(ctx, repository.NewQuery().Eq(repository.ColumnPlanetCode, planetCode))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, errcode.New(errcode.ParamsError, msgPlanetCodeExists)
	}

	user := &model.User{
		UserAccount:  account,
		UserPassword: s.hasher.Hash(plainPassword),
		PlanetCode:   planetCode,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// 并发注册由唯一索引兜底
		if errors.Is(err, repository.ErrDuplicate) {
			return 0, errcode.New(errcode.ParamsError, "账号或编号重复")
		}
		return 0, err
	}
	logger.Info("用户注册成功", zap.Int64("user_id", user.ID), zap.String("account", account))
	return user.ID, nil
}

// Login 登录，成功后将脱敏用户写入会话
func (s *UserService) Login(ctx context.Context, sessionID, account, plainPassword string) (*model.SafetyUser, error) {
	if isAnyBlank(account, plainPassword) {
		return nil, errcode.New(errcode.ParamsError, msgParamsBlank)
	}
	if strLen(account) < MinAccountLen {
		return nil, errcode.New(errcode.ParamsError, msgAccountTooShort)
	}
	if strLen(plainPassword) < MinPasswordLen {
		return nil, errcode.New(errcode.ParamsError, msgPasswordTooShort)
	}
	if containsForbidden(account) {
		return nil, errcode.New(errcode.ParamsError, msgAccountIllegal)
	}

	user, err := s.repo.FindOne(ctx, repository.NewQuery().
		Eq(repository.ColumnUserAccount, account).
		Eq(repository.ColumnUserPassword, s.hasher.Hash(plainPassword)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("user login failed, userAccount cannot match userPassword", zap.String("account", account))
			return nil, ErrLoginMismatch
		}
		return nil, err
	}

	safetyUser := desensitize.User(user)
	state := &model.LoginState{User: safetyUser, Role: user.UserRole}
	if err := s.sessions.Set(ctx, sessionID, state); err != nil {
		return nil, err
	}
	return safetyUser, nil
}

// Logout 注销，清除会话中的登录态
func (s *UserService) Logout(ctx context.Context, sessionID string) (int, error) {
	if err := s.sessions.Clear(ctx, sessionID); err != nil {
		return 0, err
	}
	return 1, nil
}

// GetLoginUser 获取会话中的登录态，未登录返回 NOT_LOGIN
func (s *UserService) GetLoginUser(ctx context.Context, sessionID string) (*model.LoginState, error) {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil || state.User == nil {
		return nil, errcode.FromCode(errcode.NotLogin)
	}
	return state, nil
}

// RefreshLoginUser 从库中重新加载当前登录用户并刷新会话，鉴权以库中角色为准
// 用户已被删除时清除会话并返回 NOT_LOGIN
func (s *UserService) RefreshLoginUser(ctx context.Context, sessionID string) (*model.LoginState, error) {
	state, err := s.GetLoginUser(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, state.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if clearErr := s.sessions.Clear(ctx, sessionID); clearErr != nil {
				logger.Warn("清除失效会话失败", zap.Error(clearErr))
			}
			return nil, errcode.New(errcode.NotLogin, "用户不存在")
		}
		return nil, err
	}

	fresh := &model.LoginState{User: desensitize.User(user), Role: user.UserRole}
	if err := s.sessions.Set(ctx, sessionID, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// Current 获取当前登录用户（重新加载）
func (s *UserService) Current(ctx context.Context, sessionID string) (*model.SafetyUser, error) {
	state, err := s.RefreshLoginUser(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return state.User, nil
}

// RequireAdmin 校验当前登录用户在库中仍为管理员
func (s *UserService) RequireAdmin(ctx context.Context, sessionID string) (*model.LoginState, error) {
	state, err := s.RefreshLoginUser(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !state.IsAdmin() {
		return nil, errcode.New(errcode.NoAuth, "缺少管理员权限")
	}
	return state, nil
}

// GetSafetyUser 用户脱敏
func (s *UserService) GetSafetyUser(user *model.User) *model.SafetyUser {
	return desensitize.User(user)
}

// SearchUsers 按用户名子串搜索，用户名为空时返回全部用户
func (s *UserService) SearchUsers(ctx context.Context, username string) ([]*model.SafetyUser, error) {
	q := repository.NewQuery()
	if !isBlank(username) {
		q.Like(repository.ColumnUsername, username)
	}
	users, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return desensitize.Users(users), nil
}

// SearchUsersByTags 按标签搜索（SQL），每个标签以子串方式匹配 tags 列
func (s *UserService) SearchUsersByTags(ctx context.Context, tagNames []string) ([]*model.SafetyUser, error) {
	tags, err := normalizeTags(tagNames)
	if err != nil {
		return nil, err
	}
	q := repository.NewQuery()
	for _, tag := range tags {
		q.Like(repository.ColumnTags, tag)
	}
	users, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return desensitize.Users(users), nil
}

// SearchUsersByTagsInMemory 按标签搜索（内存），用户标签集合须包含全部请求标签
func (s *UserService) SearchUsersByTagsInMemory(ctx context.Context, tagNames []string) ([]*model.SafetyUser, error) {
	tags, err := normalizeTags(tagNames)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.List(ctx, repository.NewQuery())
	if err != nil {
		return nil, err
	}

	matched := make([]*model.User, 0)
	for _, u := range users {
		set, err := parseTags(u.Tags)
		if err != nil {
			logger.Warn("用户标签解析失败", zap.Int64("user_id", u.ID), zap.Error(err))
			continue
		}
		if containsAll(set, tags) {
			matched = append(matched, u)
		}
	}
	return desensitize.Users(matched), nil
}

func containsAll(set map[string]struct{}, tags []string) bool {
	for _, t := range tags {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// UserUpdate 用户更新内容，nil 字段表示不修改
// 不包含密码；UserRole、UserStatus 仅管理员可修改
type UserUpdate struct {
	ID          int64
	Username    *string
	UserAccount *string
	AvatarURL   *string
	Gender      *int8
	Phone       *string
	Email       *string
	PlanetCode  *string
	Tags        *string
	UserRole    *int
	UserStatus  *int
}

// UpdateUser 更新用户信息，本人或管理员可操作，返回受影响行数
func (s *UserService) UpdateUser(ctx context.Context, update *UserUpdate, loginUser *model.LoginState) (int64, error) {
	if update == nil || update.ID <= 0 {
		return 0, errcode.New(errcode.ParamsError, "用户ID非法")
	}
	if loginUser == nil || loginUser.User == nil {
		return 0, errcode.FromCode(errcode.NotLogin)
	}
	// 非管理员只能修改自己
	if !loginUser.IsAdmin() && update.ID != loginUser.UserID() {
		return 0, errcode.FromCode(errcode.NoAuth)
	}
	if _, err := s.repo.GetByID(ctx, update.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, errcode.New(errcode.NullError, "用户不存在")
		}
		return 0, err
	}

	fields, err := buildFields(update, loginUser.IsAdmin())
	if err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, nil
	}

	rows, err := s.repo.UpdateByID(ctx, update.ID, fields)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return 0, errcode.New(errcode.ParamsError, "账号或编号重复")
		}
		return 0, err
	}
	logger.Info("用户信息已更新",
		zap.Int64("user_id", update.ID),
		zap.Int64("operator", loginUser.UserID()),
		zap.Int64("rows", rows),
	)
	return rows, nil
}

func buildFields(u *UserUpdate, isAdmin bool) (repository.Fields, error) {
	fields := repository.Fields{}
	if u.Username != nil {
		fields[repository.ColumnUsername] = *u.Username
	}
	if u.UserAccount != nil {
		if err := checkAccount(*u.UserAccount); err != nil {
			return nil, err
		}
		fields[repository.ColumnUserAccount] = *u.UserAccount
	}
	if u.AvatarURL != nil {
		fields[repository.ColumnAvatarURL] = *u.AvatarURL
	}
	if u.Gender != nil {
		fields[repository.ColumnGender] = *u.Gender
	}
	if u.Phone != nil {
		fields[repository.ColumnPhone] = *u.Phone
	}
	if u.Email != nil {
		fields[repository.ColumnEmail] = *u.Email
	}
	if u.PlanetCode != nil {
		if isBlank(*u.PlanetCode) {
			return nil, errcode.New(errcode.ParamsError, msgParamsBlank)
		}
		if err := checkPlanetCode(*u.PlanetCode); err != nil {
			return nil, err
		}
		fields[repository.ColumnPlanetCode] = *u.PlanetCode
	}
	if u.Tags != nil {
		normalized, err := normalizeTagJSON(*u.Tags)
		if err != nil {
			return nil, err
		}
		fields[repository.ColumnTags] = normalized
	}
	if isAdmin {
		if u.UserRole != nil {
			fields[repository.ColumnUserRole] = *u.UserRole
		}
		if u.UserStatus != nil {
			fields[repository.ColumnUserStatus] = *u.UserStatus
		}
	}
	return fields, nil
}

// normalizeTagJSON 校验标签为JSON字符串数组并重新编码
func normalizeTagJSON(raw string) (string, error) {
	if isBlank(raw) {
		return "", nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return "", errcode.New(errcode.ParamsError, msgTagsInvalid)
	}
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

// DeleteUser 物理删除用户，id 非法时不访问存储
func (s *UserService) DeleteUser(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, errcode.New(errcode.ParamsError, "用户ID非法")
	}
	rows, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return false, err
	}
	if rows > 0 {
		logger.Info("用户已删除", zap.Int64("user_id", id))
	}
	return rows > 0, nil
}
