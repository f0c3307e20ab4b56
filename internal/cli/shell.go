package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	corelog "lanlink-core/internal/core/log"
	"lanlink-core/internal/session"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
)

const prompt = "\033[32mlanlink>\033[0m "

// Shell 交互式命令行
type Shell struct {
	ctx      context.Context
	commands *Commands
	output   *Output
	readline *readline.Instance
	logger   corelog.Logger
}

// ShellConfig Shell 参数
type ShellConfig struct {
	Session  Session
	Diagnose DiagnoseFunc
	Defaults Defaults
	// Watch 非空时把状态变化打印到终端
	Watch       <-chan session.State
	HistoryFile string
	NoColor     bool
	Logger      corelog.Logger
}

// NewShell 创建交互式命令行，stdin 必须是终端
func NewShell(ctx context.Context, cfg ShellConfig) (*Shell, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return nil, fmt.Errorf("stdin is not a terminal (TTY required for interactive shell)")
	}
	if cfg.Logger == nil {
		cfg.Logger = corelog.Component("shell")
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = defaultHistoryFile()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     cfg.HistoryFile,
		HistoryLimit:    500,
		AutoComplete:    NewCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize readline: %w", err)
	}

	// 经 readline 输出，状态推送不会打断正在输入的行
	output := NewOutputTo(rl.Stdout(), cfg.NoColor)
	s := &Shell{
		ctx:      ctx,
		commands: NewCommands(ctx, cfg.Session, cfg.Diagnose, cfg.Defaults, output),
		output:   output,
		readline: rl,
		logger:   cfg.Logger,
	}
	if cfg.Watch != nil {
		go s.watch(cfg.Watch)
	}
	return s, nil
}

// Run 阻塞直到 exit / EOF / ctx 取消
func (s *Shell) Run() {
	defer s.readline.Close()

	s.output.Header("LanLink shell")
	s.output.Plain("  Type 'help' to see available commands, Tab to complete")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.ctx.Done():
			s.readline.Close()
		case <-done:
		}
	}()

	for {
		line, err := s.readline.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				s.output.Info("Use 'exit' to quit")
			}
			continue
		}
		if errors.Is(err, io.EOF) || s.ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Errorf("Shell: readline error: %v", err)
			return
		}

		if !s.commands.Execute(strings.TrimSpace(line)) {
			return
		}
	}
}

// watch 打印后台状态变化，跳过订阅时重放的当前值
func (s *Shell) watch(ch <-chan session.State) {
	first := true
	var last session.ConnectionState
	for st := range ch {
		if first {
			first = false
			last = st.Connection
			continue
		}
		if st.Connection == last {
			continue
		}
		last = st.Connection
		msg := fmt.Sprintf("State changed: %s", StateLabel(st.Connection))
		if st.ErrorMessage != "" {
			msg += " (" + st.ErrorMessage + ")"
		}
		s.output.Info("%s", msg)
		s.readline.Refresh()
	}
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lanlink_history")
}
