package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BaSui01/travelrag/api/handlers"
	"github.com/BaSui01/travelrag/internal/cache"
	"github.com/BaSui01/travelrag/internal/tlsutil"
	"github.com/BaSui01/travelrag/rag"
	"go.uber.org/zap"
)

// =============================================================================
// 🏥 health 命令
// =============================================================================

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	addr := fs.String("addr", "", "Server address; empty runs checks locally")
	timeout := fs.Duration("timeout", 10*time.Second, "Overall timeout")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		status handlers.HealthStatus
		err    error
	)
	if *addr != "" {
		status, err = remoteHealth(ctx, *addr)
	} else {
		status, err = localHealth(ctx, *configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}

	printHealth(os.Stdout, status)
	if status.Status != "healthy" {
		return 1
	}
	return 0
}

// localHealth 按配置打开连接并执行与 /ready 相同的检查
func localHealth(ctx context.Context, configPath string) (handlers.HealthStatus, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return handlers.HealthStatus{}, err
	}
	cfg.Log.OutputPaths = []string{"stderr"}
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	_, res, err := rag.NewPipelineFromConfig(ctx, cfg, nil, logger)
	defer func() {
		if cerr := res.Close(context.Background()); cerr != nil {
			logger.Warn("failed to close resources", zap.Error(cerr))
		}
	}()
	if err != nil {
		return handlers.HealthStatus{}, err
	}

	h := handlers.NewHealthHandler(logger)
	registerChecks(h, res)
	status := h.Run(ctx)

	if res.Redis != nil {
		if st, err := res.Redis.GetStats(ctx); err == nil {
			printCacheStats(os.Stdout, st)
		}
	}
	return status, nil
}

func printCacheStats(out io.Writer, st *cache.Stats) {
	ratio := 0.0
	if total := st.Hits + st.Misses; total > 0 {
		ratio = float64(st.Hits) / float64(total)
	}
	fmt.Fprintf(out, "redis cache: %d keys, hit ratio %.2f, %d bytes used, %d clients\n",
		st.Keys, ratio, st.UsedMemory, st.Connections)
}

// remoteHealth 查询运行中服务的 /ready
func remoteHealth(ctx context.Context, addr string) (handlers.HealthStatus, error) {
	var status handlers.HealthStatus

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(addr, "/")+"/ready", nil)
	if err != nil {
		return status, err
	}
	resp, err := tlsutil.SecureHTTPClient(0).Do(req)
	if err != nil {
		return status, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return status, err
	}
	if err := json.Unmarshal(body, &status); err != nil || status.Status == "" {
		return status, fmt.Errorf("unexpected response: status %d", resp.StatusCode)
	}
	return status, nil
}

func printHealth(out io.Writer, status handlers.HealthStatus) {
	names := make([]string, 0, len(status.Checks))
	for name := range status.Checks {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		c := status.Checks[name]
		line := fmt.Sprintf("%-10s %-4s %s", name, strings.ToUpper(c.Status), c.Latency)
		if c.Message != "" {
			line += "  " + c.Message
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, strings.ToUpper(status.Status))
}
