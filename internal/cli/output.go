package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"lanlink-core/internal/overlay/status"
	"lanlink-core/internal/session"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorWarning = color.New(color.FgYellow).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorBold    = color.New(color.Bold).SprintFunc()
	colorFaint   = color.New(color.Faint).SprintFunc()
)

// Output 终端输出
type Output struct {
	w io.Writer
}

// NewOutput 输出到 stdout
func NewOutput(noColor bool) *Output {
	return NewOutputTo(os.Stdout, noColor)
}

// NewOutputTo 输出到指定 writer
func NewOutputTo(w io.Writer, noColor bool) *Output {
	if noColor {
		color.NoColor = true
	}
	return &Output{w: w}
}

// Writer 底层 writer
func (o *Output) Writer() io.Writer {
	return o.w
}

func (o *Output) Success(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", colorSuccess("[ok]"), fmt.Sprintf(format, args...))
}

func (o *Output) Error(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", colorError("[error]"), fmt.Sprintf(format, args...))
}

func (o *Output) Warning(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", colorWarning("[warn]"), fmt.Sprintf(format, args...))
}

func (o *Output) Info(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", colorInfo("[info]"), fmt.Sprintf(format, args...))
}

// Plain 无颜色输出
func (o *Output) Plain(format string, args ...interface{}) {
	fmt.Fprintf(o.w, format+"\n", args...)
}

// Header 标题
func (o *Output) Header(title string) {
	fmt.Fprintln(o.w)
	fmt.Fprintln(o.w, colorBold(title))
	fmt.Fprintln(o.w, strings.Repeat("━", len(title)))
}

// Section 分节标题
func (o *Output) Section(title string) {
	fmt.Fprintln(o.w)
	fmt.Fprintln(o.w, colorBold(title))
	fmt.Fprintln(o.w, strings.Repeat("─", min(len(title), 80)))
}

// KeyValue 键值对
func (o *Output) KeyValue(key, value string) {
	fmt.Fprintf(o.w, "  %-18s %s\n", colorBold(key+":"), value)
}

// Separator 分隔线
func (o *Output) Separator() {
	fmt.Fprintln(o.w, colorFaint(strings.Repeat("━", 60)))
}

// StateLabel 带颜色的状态名
func StateLabel(c session.ConnectionState) string {
	switch c {
	case session.StateConnected:
		return colorSuccess(c.String())
	case session.StateConnecting, session.StateFindingHost:
		return colorWarning(c.String())
	case session.StateError:
		return colorError(c.String())
	default:
		return colorFaint(c.String())
	}
}

// State 打印会话状态
func (o *Output) State(s session.State) {
	o.KeyValue("State", StateLabel(s.Connection))
	if s.VirtualAddress != "" {
		o.KeyValue("Address", s.VirtualAddress)
	}
	o.KeyValue("Peers", fmt.Sprintf("%d", len(s.Peers)))
	if s.ErrorMessage != "" {
		o.KeyValue("Error", colorError(s.ErrorMessage))
	}
}

// Peers 打印成员表
func (o *Output) Peers(peers []status.PeerInfo) {
	if len(peers) == 0 {
		o.Plain("  (no peers)")
		return
	}
	table := NewTable("HOSTNAME", "ADDRESS", "LATENCY", "ROLE")
	for _, p := range peers {
		role := "guest"
		if session.IsHostPeer(p) {
			role = colorSuccess("host")
		}
		addr := p.VirtualAddress
		if addr == "" {
			addr = "-"
		}
		latency := "-"
		if p.HasLatency() {
			latency = fmt.Sprintf("%dms", p.LatencyMs)
		}
		table.AddRow(p.Hostname, addr, latency, role)
	}
	table.Render(o.w)
}

// Table 文本表格
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable 创建表格
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &Table{
		headers: headers,
		rows:    make([][]string, 0),
		widths:  widths,
	}
}

// AddRow 添加行
func (t *Table) AddRow(cols ...string) {
	for i, col := range cols {
		if i < len(t.widths) && len(col) > t.widths[i] {
			t.widths[i] = len(col)
		}
	}
	t.rows = append(t.rows, cols)
}

// Render 渲染到 w
func (t *Table) Render(w io.Writer) {
	for i, header := range t.headers {
		fmt.Fprintf(w, "%-*s  ", t.widths[i], header)
	}
	fmt.Fprintln(w)

	total := 0
	for _, width := range t.widths {
		total += width + 2
	}
	fmt.Fprintln(w, strings.Repeat("─", min(total, 120)))

	for _, row := range t.rows {
		for i, col := range row {
			if i < len(t.widths) {
				fmt.Fprintf(w, "%-*s  ", t.widths[i], col)
			}
		}
		fmt.Fprintln(w)
	}
}
