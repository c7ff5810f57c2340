package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"user-center/internal/model"
	"user-center/internal/repository"
	"user-center/internal/session"
	"user-center/pkg/errcode"
	"user-center/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo 内存版用户仓储，按 Query 条件过滤
type fakeRepo struct {
	mu        sync.Mutex
	users     map[int64]*model.User
	nextID    int64
	calls     int
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[int64]*model.User)}
}

func columnValue(u *model.User, col repository.Column) string {
	switch col {
	case repository.ColumnID:
		return fmt.Sprint(u.ID)
	case repository.ColumnUsername:
		return u.Username
	case repository.ColumnUserAccount:
		return u.UserAccount
	case repository.ColumnUserPassword:
		return u.UserPassword
	case repository.ColumnPlanetCode:
		return u.PlanetCode
	case repository.ColumnTags:
		return u.Tags
	case repository.ColumnPhone:
		return u.Phone
	case repository.ColumnEmail:
		return u.Email
	}
	return ""
}

func matches(u *model.User, q *repository.Query) bool {
	for _, c := range q.Conditions() {
		v := columnValue(u, c.Column)
		switch c.Op {
		case repository.OpLike:
			if !strings.Contains(v, c.Value.(string)) {
				return false
			}
		default:
			if v != fmt.Sprint(c.Value) {
				return false
			}
		}
	}
	return true
}

func (r *fakeRepo) filter(q *repository.Query) []*model.User {
	out := make([]*model.User, 0)
	for id := int64(1); id <= r.nextID; id++ {
		if u, ok := r.users[id]; ok && matches(u, q) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out
}

func (r *fakeRepo) Count(_ context.Context, q *repository.Query) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return int64(len(r.filter(q))), nil
}

func (r *fakeRepo) FindOne(_ context.Context, q *repository.Query) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	found := r.filter(q)
	if len(found) == 0 {
		return nil, repository.ErrNotFound
	}
	return found[0], nil
}

func (r *fakeRepo) List(_ context.Context, q *repository.Query) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.filter(q), nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.FindOne(ctx, repository.NewQuery().Eq(repository.ColumnID, id))
}

func (r *fakeRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.createErr != nil {
		return r.createErr
	}
	for _, u := range r.users {
		if u.UserAccount == user.UserAccount || u.PlanetCode == user.PlanetCode {
			return repository.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreateTime = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeRepo) UpdateByID(_ context.Context, id int64, fields repository.Fields) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	u, ok := r.users[id]
	if !ok || len(fields) == 0 {
		return 0, nil
	}
	for col, v := range fields {
		switch col {
		case repository.ColumnUsername:
			u.Username = v.(string)
		case repository.ColumnUserAccount:
			u.UserAccount = v.(string)
		case repository.ColumnAvatarURL:
			u.AvatarURL = v.(string)
		case repository.ColumnGender:
			u.Gender = v.(int8)
		case repository.ColumnPhone:
			u.Phone = v.(string)
		case repository.ColumnEmail:
			u.Email = v.(string)
		case repository.ColumnPlanetCode:
			u.PlanetCode = v.(string)
		case repository.ColumnTags:
			u.Tags = v.(string)
		case repository.ColumnUserRole:
			u.UserRole = v.(int)
		case repository.ColumnUserStatus:
			u.UserStatus = v.(int)
		}
	}
	return 1, nil
}

func (r *fakeRepo) DeleteByID(_ context.Context, id int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if _, ok := r.users[id]; !ok {
		return 0, nil
	}
	delete(r.users, id)
	return 1, nil
}

func (r *fakeRepo) put(u *model.User) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	u.ID = r.nextID
	cp := *u
	r.users[u.ID] = &cp
	return u
}

func (r *fakeRepo) get(id int64) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id]
}

func (r *fakeRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func setup(t *testing.T) (*UserService, *fakeRepo, *session.MemoryStore) {
	t.Helper()
	hasher, err := password.NewHasher("yupi", password.AlgorithmMD5)
	require.NoError(t, err)
	repo := newFakeRepo()
	store := session.NewMemoryStore(time.Hour)
	return NewUserService(repo, store, hasher), repo, store
}

func assertCode(t *testing.T, err error, code errcode.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code.Code, errcode.CodeOf(err), err.Error())
}

func ptr[T any](v T) *T { return &v }

func TestRegister_Success(t *testing.T) {
	svc, repo, _ := setup(t)

	id, err := svc.Register(context.Background(), "yupi", "12345678", "12345678", "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	stored := repo.get(id)
	require.NotNil(t, stored)
	assert.Equal(t, "b0dd3697a192885d7c055db46155b26a", stored.UserPassword)
	assert.Equal(t, "1", stored.PlanetCode)
	assert.Equal(t, model.DefaultRole, stored.UserRole)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name                           string
		account, pwd, check, planetCode string
		desc                           string
	}{
		{"blank account", "", "12345678", "12345678", "1", msgParamsBlank},
		{"whitespace password", "yupi", "        ", "12345678", "1", msgParamsBlank},
		{"blank planet code", "yupi", "12345678", "12345678", "", msgParamsBlank},
		{"short account", "yu", "12345678", "12345678", "1", msgAccountTooShort},
		{"short password", "yupi", "1234", "1234", "1", msgPasswordTooShort},
		{"short check password", "yupi", "12345678", "1234", "1", msgPasswordTooShort},
		{"long planet code", "yupi", "12345678", "12345678", "123456", msgPlanetCodeTooLong},
		{"half-width symbol", "yu pi!", "12345678", "12345678", "1", msgAccountIllegal},
		{"full-width symbol", "yupi，dog", "12345678", "12345678", "1", msgAccountIllegal},
		{"backslash", `ab\cd`, "12345678", "12345678", "1", msgAccountIllegal},
		{"mismatch", "yupi", "12345678", "123456789", "1", msgPasswordMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := setup(t)
			_, err := svc.Register(context.Background(), tt.account, tt.pwd, tt.check, tt.planetCode)
			assertCode(t, err, errcode.ParamsError)
			be, ok := errcode.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.desc, be.Description)
			assert.Zero(t, repo.callCount(), "validation must not touch storage")
		})
	}
}

func TestRegister_AllowsUnderscoreAndDash(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.Register(context.Background(), "yu_pi-dog", "12345678", "12345678", "1")
	assert.NoError(t, err)
}

func TestRegister_AllowsBracketsAndFullWidthVariants(t *testing.T) {
	for _, account := range []string{"ab[cd", "ab]cd", "ab～cd", "ab＠cd", "ab＃cd"} {
		t.Run(account, func(t *testing.T) {
			svc, _, _ := setup(t)
			_, err := svc.Register(context.Background(), account, "12345678", "12345678", "1")
			assert.NoError(t, err)
		})
	}
}

func TestRegister_Duplicates(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)
	_, err := svc.Register(ctx, "yupi", "12345678", "12345678", "1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "yupi", "87654321", "87654321", "2")
	assertCode(t, err, errcode.ParamsError)
	be, _ := errcode.As(err)
	assert.Equal(t, msgAccountExists, be.Description)

	_, err = svc.Register(ctx, "dogyupi", "87654321", "87654321", "1")
	assertCode(t, err, errcode.ParamsError)
	be, _ = errcode.As(err)
	assert.Equal(t, msgPlanetCodeExists, be.Description)
}

func TestRegister_UniqueIndexConflict(t *testing.T) {
	svc, repo, _ := setup(t)
	repo.createErr = repository.ErrDuplicate

	_, err := svc.Register(context.Background(), "yupi", "12345678", "12345678", "1")
	assertCode(t, err, errcode.ParamsError)
}

func TestRegister_StorageError(t *testing.T) {
	svc, repo, _ := setup(t)
	repo.createErr = errors.New("connection refused")

	_, err := svc.Register(context.Background(), "yupi", "12345678", "12345678", "1")
	assertCode(t, err, errcode.SystemError)
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	svc, repo, store := setup(t)
	_, err := svc.Register(ctx, "yupi", "12345678", "12345678", "1")
	require.NoError(t, err)
	repo.get(1).Phone = "13812345678"
	repo.get(1).Email = "test@example.com"
	repo.get(1).UserRole = model.AdminRole

	user, err := svc.Login(ctx, "sid", "yupi", "12345678")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "138****5678", user.Phone)
	assert.Equal(t, "te**@example.com", user.Email)

	state, err := store.Get(ctx, "sid")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, int64(1), state.UserID())
	assert.True(t, state.IsAdmin())
}

func TestLogin_MismatchIsIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc, _, store := setup(t)
	_, err := svc.Register(ctx, "yupi", "12345678", "12345678", "1")
	require.NoError(t, err)

	_, wrongPwd := svc.Login(ctx, "sid", "yupi", "wrongpassword")
	_, unknown := svc.Login(ctx, "sid", "nobody", "12345678")
	assert.Equal(t, ErrLoginMismatch, wrongPwd)
	assert.Equal(t, ErrLoginMismatch, unknown)

	state, _ := store.Get(ctx, "sid")
	assert.Nil(t, state)
}

func TestLogin_Validation(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	for _, tc := range [][2]string{
		{"", "12345678"},
		{"yupi", ""},
		{"yup", "12345678"},
		{"yupi", "1234567"},
		{"yu@pi", "12345678"},
	} {
		_, err := svc.Login(ctx, "sid", tc[0], tc[1])
		assertCode(t, err, errcode.ParamsError)
	}
	assert.Zero(t, repo.callCount())
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc, _, store := setup(t)
	_, err := svc.Register(ctx, "yupi", "12345678", "12345678", "1")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "sid", "yupi", "12345678")
	require.NoError(t, err)

	n, err := svc.Logout(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	state, _ := store.Get(ctx, "sid")
	assert.Nil(t, state)

	// 未登录时注销同样成功
	n, err = svc.Logout(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.GetLoginUser(ctx, "sid")
	assertCode(t, err, errcode.NotLogin)
}

func TestCurrent(t *testing.T) {
	ctx := context.Background()
	svc, repo, store := setup(t)
	_, err := svc.Register(ctx, "yupi", "12345678", "12345678", "1")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "sid", "yupi", "12345678")
	require.NoError(t, err)

	_, err = svc.Current(ctx, "other")
	assertCode(t, err, errcode.NotLogin)

	// 库中数据变更后重新加载
	repo.get(1).Username = "鱼皮"
	repo.get(1).UserRole = model.AdminRole
	user, err := svc.Current(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "鱼皮", user.Username)
	state, _ := store.Get(ctx, "sid")
	assert.True(t, state.IsAdmin())

	// 用户被删除后会话失效
	_, err = svc.DeleteUser(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Current(ctx, "sid")
	assertCode(t, err, errcode.NotLogin)
	state, _ = store.Get(ctx, "sid")
	assert.Nil(t, state)
}

func TestRequireAdmin(t *testing.T) {
	ctx := context.Background()
	svc, repo, store := setup(t)
	_, err := svc.Register(ctx, "yupi", "12345678", "12345678", "1")
	require.NoError(t, err)
	repo.get(1).UserRole = model.AdminRole
	_, err = svc.Login(ctx, "sid", "yupi", "12345678")
	require.NoError(t, err)

	_, err = svc.RequireAdmin(ctx, "other")
	assertCode(t, err, errcode.NotLogin)

	state, err := svc.RequireAdmin(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, state.IsAdmin())

	// 降权后会话中的角色同步刷新
	repo.get(1).UserRole = model.DefaultRole
	_, err = svc.RequireAdmin(ctx, "sid")
	assertCode(t, err, errcode.NoAuth)
	cached, _ := store.Get(ctx, "sid")
	require.NotNil(t, cached)
	assert.False(t, cached.IsAdmin())

	_, err = svc.DeleteUser(ctx, 1)
	require.NoError(t, err)
	_, err = svc.RequireAdmin(ctx, "sid")
	assertCode(t, err, errcode.NotLogin)
}

func TestSearchUsers(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	repo.put(&model.User{UserAccount: "a1", Username: "yupi", UserPassword: "x"})
	repo.put(&model.User{UserAccount: "a2", Username: "dogyupi", UserPassword: "x"})
	repo.put(&model.User{UserAccount: "a3", Username: "other", UserPassword: "x"})

	all, err := svc.SearchUsers(ctx, "  ")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	found, err := svc.SearchUsers(ctx, "yupi")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "yupi", found[0].Username)
	assert.Equal(t, "dogyupi", found[1].Username)
}

func seedTagUsers(repo *fakeRepo) {
	repo.put(&model.User{UserAccount: "java", Tags: `["Java","男"]`})
	repo.put(&model.User{UserAccount: "js", Tags: `["JavaScript","男"]`})
	repo.put(&model.User{UserAccount: "py", Tags: `["Python"]`})
	repo.put(&model.User{UserAccount: "none"})
	repo.put(&model.User{UserAccount: "bad", Tags: `not-json`})
}

func TestSearchUsersByTags_SQL(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	seedTagUsers(repo)

	found, err := svc.SearchUsersByTags(ctx, []string{"Java", "男"})
	require.NoError(t, err)
	// 子串匹配：JavaScript 同样命中 Java
	require.Len(t, found, 2)
	assert.Equal(t, "java", found[0].UserAccount)
	assert.Equal(t, "js", found[1].UserAccount)

	_, err = svc.SearchUsersByTags(ctx, nil)
	assertCode(t, err, errcode.ParamsError)
	_, err = svc.SearchUsersByTags(ctx, []string{" ", ""})
	assertCode(t, err, errcode.ParamsError)
}

func TestSearchUsersByTags_Memory(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	seedTagUsers(repo)

	found, err := svc.SearchUsersByTagsInMemory(ctx, []string{"Java", "男"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "java", found[0].UserAccount)

	found, err = svc.SearchUsersByTagsInMemory(ctx, []string{"Go"})
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = svc.SearchUsersByTagsInMemory(ctx, []string{})
	assertCode(t, err, errcode.ParamsError)
}

func loginState(id int64, role int) *model.LoginState {
	return &model.LoginState{User: &model.SafetyUser{ID: id}, Role: role}
}

func TestUpdateUser_Self(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	repo.put(&model.User{UserAccount: "yupi", PlanetCode: "1"})

	rows, err := svc.UpdateUser(ctx, &UserUpdate{
		ID:       1,
		Username: ptr("鱼皮"),
		Gender:   ptr(int8(1)),
		Tags:     ptr(`["Go", "Java"]`),
		UserRole: ptr(model.AdminRole),
	}, loginState(1, model.DefaultRole))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	u := repo.get(1)
	assert.Equal(t, "鱼皮", u.Username)
	assert.Equal(t, int8(1), u.Gender)
	assert.Equal(t, `["Go","Java"]`, u.Tags)
	// 普通用户不能给自己提权
	assert.Equal(t, model.DefaultRole, u.UserRole)
}

func TestUpdateUser_Authorization(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	repo.put(&model.User{UserAccount: "yupi", PlanetCode: "1"})
	repo.put(&model.User{UserAccount: "other", PlanetCode: "2"})

	_, err := svc.UpdateUser(ctx, &UserUpdate{ID: 2, Username: ptr("x")}, loginState(1, model.DefaultRole))
	assertCode(t, err, errcode.NoAuth)
	assert.Empty(t, repo.get(2).Username)

	_, err = svc.UpdateUser(ctx, &UserUpdate{ID: 2, Username: ptr("x")}, nil)
	assertCode(t, err, errcode.NotLogin)

	rows, err := svc.UpdateUser(ctx, &UserUpdate{ID: 2, UserRole: ptr(model.AdminRole), UserStatus: ptr(1)}, loginState(1, model.AdminRole))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.Equal(t, model.AdminRole, repo.get(2).UserRole)
	assert.Equal(t, 1, repo.get(2).UserStatus)
}

func TestUpdateUser_Errors(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	repo.put(&model.User{UserAccount: "yupi", PlanetCode: "1"})
	admin := loginState(1, model.AdminRole)

	_, err := svc.UpdateUser(ctx, &UserUpdate{ID: 0}, admin)
	assertCode(t, err, errcode.ParamsError)

	_, err = svc.UpdateUser(ctx, &UserUpdate{ID: 99, Username: ptr("x")}, admin)
	assertCode(t, err, errcode.NullError)

	_, err = svc.UpdateUser(ctx, &UserUpdate{ID: 1, Tags: ptr("Go,Java")}, admin)
	assertCode(t, err, errcode.ParamsError)

	_, err = svc.UpdateUser(ctx, &UserUpdate{ID: 1, PlanetCode: ptr("1234567")}, admin)
	assertCode(t, err, errcode.ParamsError)

	_, err = svc.UpdateUser(ctx, &UserUpdate{ID: 1, UserAccount: ptr("a!b?c")}, admin)
	assertCode(t, err, errcode.ParamsError)

	rows, err := svc.UpdateUser(ctx, &UserUpdate{ID: 1}, admin)
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	repo.put(&model.User{UserAccount: "yupi"})

	for _, id := range []int64{0, -1} {
		_, err := svc.DeleteUser(ctx, id)
		assertCode(t, err, errcode.ParamsError)
	}
	assert.Zero(t, repo.callCount())

	ok, err := svc.DeleteUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, repo.get(1))

	ok, err = svc.DeleteUser(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
