package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/BaSui01/travelrag/api/handlers"
	"github.com/BaSui01/travelrag/internal/ctxkeys"
	"github.com/BaSui01/travelrag/rag"
	"go.uber.org/zap"
)

// =============================================================================
// 💬 ask 命令
// =============================================================================

const askPrompt = "\nEnter your travel question (or 'exit'): "

func runAsk(args []string) int {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	query := fs.String("query", "", "Answer a single question and exit")
	model := fs.String("model", "", "Override the chat model")
	verbose := fs.Bool("verbose", false, "Print stage timings and context")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	// 日志不与问答输出混在 stdout
	cfg.Log.OutputPaths = []string{"stderr"}
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, res, err := rag.NewPipelineFromConfig(ctx, cfg, nil, logger)
	defer func() {
		if cerr := res.Close(context.Background()); cerr != nil {
			logger.Warn("failed to close resources", zap.Error(cerr))
		}
	}()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		return 1
	}

	if m := strings.TrimSpace(*model); m != "" {
		ctx = ctxkeys.WithLLMModel(ctx, m)
	}

	if q := strings.TrimSpace(*query); q != "" {
		result, err := pipeline.Answer(ctx, q, rag.WithVerbose(*verbose))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		printResult(os.Stdout, result, *verbose)
		return 0
	}

	if err := askLoop(ctx, pipeline, os.Stdin, os.Stdout, *verbose); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// askLoop 逐行读取问题直到 exit/quit 或输入结束。
// 单个问题失败只打印错误，循环继续。
func askLoop(ctx context.Context, a handlers.Answerer, in io.Reader, out io.Writer, verbose bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		fmt.Fprint(out, askPrompt)
		if !scanner.Scan() {
			break
		}
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			continue
		}
		if isExitCommand(q) {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := a.Answer(ctx, q, rag.WithVerbose(verbose))
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		printResult(out, result, verbose)
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func isExitCommand(q string) bool {
	return strings.EqualFold(q, "exit") || strings.EqualFold(q, "quit")
}

func printResult(out io.Writer, r *rag.Result, verbose bool) {
	if r.Summary != "" {
		fmt.Fprintf(out, "\n=== Summary ===\n%s\n", r.Summary)
	}
	fmt.Fprintf(out, "\n=== Answer ===\n%s\n", r.Answer)

	for _, d := range r.Degraded {
		fmt.Fprintf(out, "\n(note: %s degraded: %s)\n", d.Stage, d.Message)
	}

	if !verbose {
		return
	}
	fmt.Fprintf(out, "\n=== Details ===\nintent: %s  matches: %d  facts: %d\n", r.Intent, len(r.Matches), len(r.Facts))
	stages := make([]string, 0, len(r.Timings))
	for s := range r.Timings {
		stages = append(stages, string(s))
	}
	slices.Sort(stages)
	for _, s := range stages {
		fmt.Fprintf(out, "  %-18s %s\n", s, r.Timings[rag.Stage(s)])
	}
	if r.Context != "" {
		fmt.Fprintf(out, "\n=== Context ===\n%s\n", r.Context)
	}
}
