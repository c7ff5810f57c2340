package service

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"user-center/pkg/errcode"
)

// 账号/密码/星球编号长度限制
const (
	MinAccountLen    = 4
	MinPasswordLen   = 8
	MaxPlanetCodeLen = 5
)

// forbiddenAccountChars 账号中不允许出现的半角与全角符号
// 方括号不在其中，反斜杠在其中
const forbiddenAccountChars = "`~!@#$%^&*()+=|{}':;,\\.<>/?" +
	"！￥…&*（）—+|{}【】‘；：”“’。，、？"

// 校验失败描述
const (
	msgParamsBlank       = "参数为空"
	msgAccountTooShort   = "用户账号过短"
	msgPasswordTooShort  = "用户密码过短"
	msgPlanetCodeTooLong = "星球编号过长"
	msgAccountIllegal    = "账号不能包含特殊字符"
	msgPasswordMismatch  = "两次输入的密码不一致"
	msgAccountExists     = "账号重复"
	msgPlanetCodeExists  = "编号重复"
	msgTagsInvalid       = "标签格式错误"
	msgTagsEmpty         = "标签列表为空"
)

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func isAnyBlank(values ...string) bool {
	for _, v := range values {
		if isBlank(v) {
			return true
		}
	}
	return false
}

func strLen(s string) int {
	return utf8.RuneCountInString(s)
}

// containsForbidden 账号是否包含特殊字符
func containsForbidden(account string) bool {
	return strings.ContainsAny(account, forbiddenAccountChars)
}

// checkAccount 账号长度与字符校验
func checkAccount(account string) error {
	if strLen(account) < MinAccountLen {
		return errcode.New(errcode.ParamsError, msgAccountTooShort)
	}
	if containsForbidden(account) {
		return errcode.New(errcode.ParamsError, msgAccountIllegal)
	}
	return nil
}

// checkPlanetCode 星球编号长度校验
func checkPlanetCode(planetCode string) error {
	if strLen(planetCode) > MaxPlanetCodeLen {
		return errcode.New(errcode.ParamsError, msgPlanetCodeTooLong)
	}
	return nil
}

// parseTags 解析用户标签（JSON字符串数组），空字符串视为空集合
func parseTags(raw string) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	if isBlank(raw) {
		return set, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set, nil
}

// normalizeTags 去掉空白标签，全部为空时返回参数错误
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, errcode.New(errcode.ParamsError, msgTagsEmpty)
	}
	return out, nil
}
