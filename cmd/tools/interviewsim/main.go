// interviewsim 在终端里跑一遍面试脚本，不需要语音链路。
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/z-interview/backend/internal/config"
	"github.com/zhouzirui/z-interview/backend/internal/script"
	"github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/status"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	variant := flag.String("variant", cfg.Interview.Variant, "脚本版本: "+fmt.Sprint(script.Variants()))
	scriptPath := flag.String("script", cfg.Interview.ScriptPath, "自定义脚本 YAML 路径")
	room := flag.String("room", "console", "房间名")
	identity := flag.String("identity", "candidate", "参与者 ID")
	timeout := flag.Duration("timeout", cfg.Interview.MaxDuration, "面试最长时间")
	dump := flag.Bool("dump", false, "结束后以 JSON 输出会话记录")
	flag.Parse()

	resolve, err := script.NewResolver(*scriptPath)
	if err != nil {
		log.Fatalf("脚本加载失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	tracker := status.NewTracker()
	runner := interview.NewRunner(interview.NewRegistry(), tracker, nil, resolve)

	s, err := runner.Script(*variant)
	if err != nil {
		log.Fatalf("脚本版本无效: %v", err)
	}

	agent := newConsoleAgent(s.Interviewer, os.Stdin, os.Stdout)
	session, runErr := runner.Run(ctx, interview.CreateParams{
		RoomName:      *room,
		ParticipantID: *identity,
		Variant:       s.Name,
	}, agent)

	fmt.Fprintf(os.Stdout, "\n--- session %s %s (%d turns)\n", session.ID, session.State, len(session.Turns))
	if session.Scores != nil {
		fmt.Fprintf(os.Stdout, "knowledge=%d communication=%d\n", session.Scores.Knowledge, session.Scores.Communication)
	}
	if *dump {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(session); err != nil {
			log.Printf("[interviewsim] dump failed: %v", err)
		}
	}

	if snap := tracker.Snapshot(); snap.Running {
		log.Printf("[interviewsim] status still running after session end")
	}
	if runErr != nil {
		log.Fatalf("面试中止: %v", runErr)
	}
}

// consoleAgent 把面试官的台词打印到终端，从标准输入读取回答。
type consoleAgent struct {
	name  string
	out   io.Writer
	lines <-chan string
}

func newConsoleAgent(name string, in io.Reader, out io.Writer) *consoleAgent {
	if name == "" {
		name = "Interviewer"
	}
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return &consoleAgent{name: name, out: out, lines: lines}
}

func (a *consoleAgent) Say(ctx context.Context, text string, allowInterruptions bool) error {
	marker := ""
	if !allowInterruptions {
		marker = " [no interruptions]"
	}
	_, err := fmt.Fprintf(a.out, "%s %s:%s %s\n", time.Now().Format("15:04:05"), a.name, marker, text)
	return err
}

func (a *consoleAgent) Ask(ctx context.Context, text string) error {
	_, err := fmt.Fprintf(a.out, "%s %s: %s (no answer recorded)\n", time.Now().Format("15:04:05"), a.name, text)
	return err
}

func (a *consoleAgent) ListenForAnswer(ctx context.Context) (string, error) {
	fmt.Fprint(a.out, "> ")
	select {
	case line, ok := <-a.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
