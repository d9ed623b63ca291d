package encoding

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// FixBase64Padding 修复缺失的 '=' 填充并按标准字母表解码。
// 订阅内容和 vmess 载荷经常缺失末尾填充，且整体编码的订阅里
// 会夹杂换行，这里先剥掉全部空白字符再补齐到 4 的倍数。
func FixBase64Padding(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return data, nil
}

// ConvertSizeToBytes 把 "20.55" + "GB" 形式的流量文本换算成字节数。
// 数字允许带千分位逗号；单位大小写不敏感，K/M/G/T 等缩写按带 B 的
// 形态处理。无法识别的单位按倍率 1 处理，数值原样保留。
func ConvertSizeToBytes(numText, unitText string) (int64, error) {
	num, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(numText), ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size number %q: %w", numText, err)
	}

	unit := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(unitText)), ".", "")
	var mul float64
	switch unit {
	case "B", "":
		mul = 1
	case "K", "KB":
		mul = 1 << 10
	case "M", "MB":
		mul = 1 << 20
	case "G", "GB":
		mul = 1 << 30
	case "T", "TB":
		mul = 1 << 40
	default:
		mul = 1
	}

	return int64(num * mul), nil
}

// GigabytesToBytes 把以 GB 计的流量阈值换算成字节数。
func GigabytesToBytes(gb float64) int64 {
	return int64(gb * (1 << 30))
}
