// Package chat keeps the in-memory transcript of an interactive question
// session and drives the terminal loop.
package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrEmptyInput = errors.New("问题不能为空，请重新输入。")

var quitWords = map[string]bool{"exit": true, "quit": true, "退出": true}

// Answerer turns a question into display text.
type Answerer interface {
	Ask(ctx context.Context, question string) string
}

type Turn struct {
	Role    string
	Content string
	At      time.Time
}

type Session struct {
	ID    string
	Turns []Turn

	answerer Answerer
}

func NewSession(answerer Answerer) *Session {
	return &Session{ID: uuid.NewString(), answerer: answerer}
}

// IsQuit reports whether input ends the session.
func IsQuit(input string) bool {
	return quitWords[strings.ToLower(strings.TrimSpace(input))]
}

// Ask answers question and records both turns.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyInput
	}
	s.Turns = append(s.Turns, Turn{Role: RoleUser, Content: question, At: time.Now()})
	log.Info().Str("session", s.ID).Str("question", question).Msg("Processing question")

	answer := s.answerer.Ask(ctx, question)
	s.Turns = append(s.Turns, Turn{Role: RoleAssistant, Content: answer, At: time.Now()})
	return answer, nil
}

func (s *Session) WriteTranscript(w io.Writer) error {
	for _, t := range s.Turns {
		if _, err := fmt.Fprintf(w, "[%s] %s: %s\n", t.At.Format(time.TimeOnly), t.Role, t.Content); err != nil {
			return err
		}
	}
	return nil
}

// Run reads questions line by line from in until a quit word, EOF or
// cancellation, writing answers to out.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	banner := strings.Repeat("=", 30)
	fmt.Fprintln(out, banner)
	fmt.Fprintln(out, "金融研报智能助手已启动")
	fmt.Fprintln(out, "输入 'exit' 或 'quit' 退出程序")
	fmt.Fprintln(out, banner)

	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, "\n请输入您的金融问题 > ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if IsQuit(line) {
			fmt.Fprintln(out, "程序已退出。")
			return nil
		}

		if strings.TrimSpace(line) == "" {
			fmt.Fprintln(out, ErrEmptyInput.Error())
			continue
		}

		fmt.Fprintln(out, "正在检索并分析中，请稍候...")
		answer, err := s.Ask(ctx, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "\n"+strings.Repeat("-", 20)+" 分析结果 "+strings.Repeat("-", 20))
		fmt.Fprintln(out, answer)
		fmt.Fprintln(out, strings.Repeat("-", 50))
	}
}
