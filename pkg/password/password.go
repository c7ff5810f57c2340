package password

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// 支持的摘要算法
const (
	AlgorithmMD5      = "md5"      // md5Hex(salt + password)，兼容已有数据
	AlgorithmArgon2ID = "argon2id" // argon2id(password, salt)
)

// argon2id 参数
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// Hasher 使用固定盐值生成确定性的密码摘要
// 登录时按 账号+摘要 一次查询匹配，因此摘要必须可重复计算
type Hasher struct {
	salt      string
	algorithm string
}

// NewHasher 创建密码摘要器
func NewHasher(salt, algorithm string) (*Hasher, error) {
	if algorithm == "" {
		algorithm = AlgorithmMD5
	}
	switch algorithm {
	case AlgorithmMD5, AlgorithmArgon2ID:
	default:
		return nil, fmt.Errorf("unsupported password algorithm: %s", algorithm)
	}
	return &Hasher{salt: salt, algorithm: algorithm}, nil
}

// Hash 生成密码摘要
func (h *Hasher) Hash(plain string) string {
	switch h.algorithm {
	case AlgorithmArgon2ID:
		key := argon2.IDKey([]byte(plain), []byte(h.salt), argonTime, argonMemory, argonThreads, argonKeyLen)
		return hex.EncodeToString(key)
	default:
		sum := md5.Sum([]byte(h.salt + plain))
		return hex.EncodeToString(sum[:])
	}
}
