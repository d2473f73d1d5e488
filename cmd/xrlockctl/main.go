// xrlockctl 是 xrlock 分布式锁的命令行工具，直接对 Redis 操作锁与键值。
//
// 用法:
//
//	xrlockctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config     配置文件路径（yaml/json），包含 redis/lock/log 三节
//	-r, --redis      Redis 地址，覆盖配置文件
//	    --ttl        锁存活时间，覆盖配置文件 (默认: 30s)
//	    --namespace  锁 key 前缀，覆盖配置文件
//	    --log-level  日志级别 debug/info/warn/error
//
// 命令:
//
//	acquire <TAG> [params...]   获取锁，成功时打印 key
//	release <TAG> [params...]   无条件释放锁
//	get <key>                   读取键值
//	set <key> <value>           写入键值，--ttl 指定过期时间
//	tags                        列出锁资源类别
//	race <TAG> [params...]      并发获取同一把锁，验证只有一个成功
//
// 退出码:
//
//	0: 成功
//	1: 锁被占用、键不存在或存储失败
//	2: 参数错误
//
// 示例:
//
//	xrlockctl -r 127.0.0.1:6379 acquire REDIS_KEY_TYPE_ONE order-42
//	xrlockctl -c xrlock.yaml release REDIS_KEY_TYPE_ONE order-42
//	xrlockctl race --workers 16 REDIS_KEY_TYPE_TWO job
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(runMain())
}

func runMain() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)
	return run(ctx, os.Args, os.Stdout, os.Stderr)
}

// run 执行命令并映射退出码
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)
	err := app.Run(ctx, args)
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.msg != "" {
			fmt.Fprintln(stderr, exitErr.msg)
		}
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		fmt.Fprintf(stderr, "参数错误: %v\n", err)
		return 2
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}

func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xrlockctl",
		Usage:     "xrlock 分布式锁命令行工具",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "配置文件路径（yaml/json）",
			},
			&cli.StringFlag{
				Name:    flagRedis,
				Aliases: []string{"r"},
				Usage:   "Redis 地址 host:port，覆盖配置文件",
			},
			&cli.DurationFlag{
				Name:  flagTTL,
				Usage: "锁存活时间；set 命令中为键的过期时间",
			},
			&cli.StringFlag{
				Name:  flagNamespace,
				Usage: "锁 key 前缀",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "日志级别 debug/info/warn/error",
			},
		},
		Commands: createCommands(),
		// 禁止 urfave/cli 直接 os.Exit，退出码统一由 run 映射
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

// exitError 命令已完成输出，只需要非零退出码
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// usageError 参数错误，退出码 2
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// isCLIUsageError 识别 urfave/cli 的 flag 解析错误
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, s := range []string{
		"flag provided but not defined",
		"invalid value",
		"flag needs an argument",
		"No help topic for",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
