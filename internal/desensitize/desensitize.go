// Package desensitize 用户信息脱敏
package desensitize

import (
	"strings"

	"user-center/internal/model"
)

// Mask 固定掩码
const Mask = "****"

// User 将完整用户记录转换为脱敏视图
// 不携带密码、角色、状态；手机号与邮箱做掩码处理
func User(origin *model.User) *model.SafetyUser {
	if origin == nil {
		return nil
	}
	return &model.SafetyUser{
		ID:          origin.ID,
		Username:    origin.Username,
		UserAccount: origin.UserAccount,
		AvatarURL:   origin.AvatarURL,
		Gender:      origin.Gender,
		Phone:       Phone(origin.Phone),
		Email:       Email(origin.Email),
		PlanetCode:  origin.PlanetCode,
		Tags:        origin.Tags,
		CreateTime:  origin.CreateTime,
	}
}

// Users 批量脱敏
func Users(users []*model.User) []*model.SafetyUser {
	result := make([]*model.SafetyUser, 0, len(users))
	for _, u := range users {
		result = append(result, User(u))
	}
	return result
}

// Phone 手机号脱敏：13800138000 → 138****8000
func Phone(phone string) string {
	r := []rune(phone)
	if strings.TrimSpace(phone) == "" || len(r) < 7 {
		return Mask
	}
	return string(r[:3]) + Mask + string(r[7:])
}

// Email 邮箱脱敏：test@example.com → te**@example.com
// @ 位于前两位以内时整个本地部分替换为固定掩码
func Email(email string) string {
	if strings.TrimSpace(email) == "" {
		return Mask
	}
	at := strings.IndexRune(email, '@')
	if at < 0 {
		return Mask
	}
	local := []rune(email[:at])
	domain := email[at:]
	if len(local) <= 2 {
		return Mask + domain
	}
	return string(local[:2]) + strings.Repeat("*", len(local)-2) + domain
}
