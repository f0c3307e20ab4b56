package cli

import (
	"sort"
	"strings"

	"github.com/chzyer/readline"
)

// commandNames 可补全的顶层命令
var commandNames = []string{
	"clear",
	"connect",
	"diagnose",
	"disconnect",
	"exit",
	"help",
	"peers",
	"quit",
	"status",
}

// NewCompleter 构建 readline 补全器
func NewCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commandNames))
	for _, name := range commandNames {
		if name == "connect" {
			items = append(items, readline.PcItem(name,
				readline.PcItem("--host"),
				readline.PcItem("--guest"),
			))
			continue
		}
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

// FilterCommands 返回以 prefix 开头的命令
func FilterCommands(prefix string) []string {
	prefix = strings.ToLower(prefix)
	var out []string
	for _, name := range commandNames {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
