package pkg

import (
	"crypto/rand"

	"github.com/pkg/errors"
)

// DefaultCodeLength 邮箱验证码默认位数
const DefaultCodeLength = 6

// NewNumericCode 生成 n 位数字验证码，n <= 0 时取默认位数。
// 随机字节 >= 250 丢弃，保证每一位在 0-9 上均匀
func NewNumericCode(n int) (string, error) {
	if n <= 0 {
		n = DefaultCodeLength
	}
	code := make([]byte, 0, n)
	buf := make([]byte, n+n/2)
	for len(code) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Wrap(err, "read random")
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			code = append(code, '0'+b%10)
			if len(code) == n {
				break
			}
		}
	}
	return string(code), nil
}
