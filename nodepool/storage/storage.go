package storage

import (
	"os"
	"strconv"
	"strings"
	"submerge/internal/shared/logger"
	"submerge/nodepool/model"
)

const reportDelimiter = "|"

// Writer 接口定义了筛选结果落盘的行为。
type Writer interface {
	Save(nodes []*model.Node) error
}

// FileWriter 实现了 Writer 接口，把节点链接逐行写入纯文本文件。
// 行内只有链接本身，顺序就是传入顺序，已有文件会被整体覆盖。
type FileWriter struct {
	filePath string
}

// NewFileWriter 创建一个新的 FileWriter 实例。
func NewFileWriter(filePath string) *FileWriter {
	return &FileWriter{filePath: filePath}
}

// Save 把节点链接写入文件，每行一条。
func (w *FileWriter) Save(nodes []*model.Node) error {
	l := logger.WithComponent("NodePool/Storage")

	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(n.URI)
		sb.WriteString("\n")
	}

	if err := os.WriteFile(w.filePath, []byte(sb.String()), 0644); err != nil {
		return err
	}

	l.Info().Int("count", len(nodes)).Str("path", w.filePath).Msg("Successfully saved nodes to file.")
	return nil
}

// ReportWriter 实现了 Writer 接口，输出一份管道分隔的明细文件，
// 便于人工核对每个入选节点的延迟与剩余流量。
type ReportWriter struct {
	filePath string
}

// NewReportWriter 创建一个新的 ReportWriter 实例。
func NewReportWriter(filePath string) *ReportWriter {
	return &ReportWriter{filePath: filePath}
}

// Save 把节点明细写入报告文件，字段依次为
// latency_ms|remain_bytes|scheme|host|port|remark|uri。
func (w *ReportWriter) Save(nodes []*model.Node) error {
	l := logger.WithComponent("NodePool/Storage")

	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(formatNodeReport(n))
		sb.WriteString("\n")
	}

	if err := os.WriteFile(w.filePath, []byte(sb.String()), 0644); err != nil {
		return err
	}

	l.Info().Int("count", len(nodes)).Str("path", w.filePath).Msg("Successfully saved node report to file.")
	return nil
}

// formatNodeReport 把节点格式化为一行明细。备注里的分隔符
// 替换为空格，保证行结构稳定。
func formatNodeReport(n *model.Node) string {
	remark := strings.ReplaceAll(n.Remark, reportDelimiter, " ")
	return strings.Join([]string{
		strconv.FormatInt(n.Latency.Milliseconds(), 10),
		strconv.FormatInt(n.RemainBytes, 10),
		n.Scheme,
		n.Host,
		strconv.Itoa(n.Port),
		remark,
		n.URI,
	}, reportDelimiter)
}
