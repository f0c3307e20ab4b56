package config

import (
	"encoding/json"
)

// Secret 房间密码，日志与 JSON 输出时打码，YAML 保留原值以便回写
type Secret string

// String 打码后的值
func (s Secret) String() string {
	if len(s) == 0 {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return string(s[:2]) + "****" + string(s[len(s)-2:])
}

// Value 原值
func (s Secret) Value() string {
	return string(s)
}

func (s Secret) IsEmpty() bool {
	return len(s) == 0
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
