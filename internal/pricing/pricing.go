// Package pricing 负责报价读路径上的价格整形：有效价格、金额格式化与套餐特性解码。
// 所有金额均为以分为单位的整数。
package pricing

import (
	"encoding/json"
	"strings"

	"github.com/dustin/go-humanize"
)

// EffectivePrice 返回附加服务在报价中的实际价格。
// override 非 nil 时优先使用（包括 0），否则回落到原价。
func EffectivePrice(basePrice int64, override *int64) int64 {
	if override != nil {
		return *override
	}
	return basePrice
}

// FormatCents 将分转换为带千分位的美元字符串，例如 150000 -> "$1,500"，
// 123456 -> "$1,234.56"。小数部分末尾的 0 会被去掉。
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + "$" + humanize.Commaf(float64(cents)/100)
}

// ParseFeatures 解码套餐中序列化的特性列表，数据无效时返回空列表而不是错误。
func ParseFeatures(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	var features []string
	if err := json.Unmarshal([]byte(raw), &features); err != nil || features == nil {
		return []string{}
	}
	return features
}

// EncodeFeatures 是 ParseFeatures 的逆操作。
func EncodeFeatures(features []string) string {
	if len(features) == 0 {
		return "[]"
	}
	data, err := json.Marshal(features)
	if err != nil {
		return "[]"
	}
	return string(data)
}
