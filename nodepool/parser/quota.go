package parser

import (
	"regexp"
	"submerge/internal/shared/encoding"
	"submerge/nodepool/model"
)

// 备注中剩余流量的两种写法。带「剩余流量」标签的精确形态优先，
// 其次是中英混写的宽松形态；单位缩写 K/M/G/T 与带 B 的全称等价。
var (
	quotaLabeledPattern = regexp.MustCompile(`(?i)剩余流量[:：]\s*([0-9,.]+)\s*([KMGT]B|[KMGT]|B)`)
	quotaLoosePattern   = regexp.MustCompile(`(?i)(?:剩余|remaining|remain)[:：]?\s*([0-9,.]+)\s*([KMGT]B|[KMGT]|B)`)
)

// ExtractRemainingBytes 从节点备注中解析剩余流量（字节）。
// 第一个命中的形态生效；命中但数值损坏时按未知处理，不再尝试其他形态。
func ExtractRemainingBytes(remark string) int64 {
	if remark == "" {
		return model.RemainUnknown
	}

	for _, re := range []*regexp.Regexp{quotaLabeledPattern, quotaLoosePattern} {
		m := re.FindStringSubmatch(remark)
		if m == nil {
			continue
		}

		remainBytes, err := encoding.ConvertSizeToBytes(m[1], m[2])
		if err != nil {
			return model.RemainUnknown
		}
		return remainBytes
	}

	return model.RemainUnknown
}
