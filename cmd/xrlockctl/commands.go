package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xrlock/pkg/distributed/xlock"
)

// 全局 flag 名
const (
	flagConfig    = "config"
	flagRedis     = "redis"
	flagTTL       = "ttl"
	flagNamespace = "namespace"
	flagLogLevel  = "log-level"
)

const defaultRaceWorkers = 8

func createCommands() []*cli.Command {
	return []*cli.Command{
		createAcquireCommand(),
		createReleaseCommand(),
		createGetCommand(),
		createSetCommand(),
		createTagsCommand(),
		createRaceCommand(),
	}
}

// withEnv 构建依赖并在命令结束后关闭
func withEnv(fn func(ctx context.Context, cmd *cli.Command, e *env) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		e, err := setup(ctx, cmd, cmd.Root().ErrWriter)
		if err != nil {
			return err
		}
		defer func() { _ = e.Close() }()
		return fn(ctx, cmd, e)
	}
}

// lockArgs 解析 <TAG> [params...]，TAG 必须已登记
func lockArgs(cmd *cli.Command) (xlock.Tag, []string, error) {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return "", nil, usagef("缺少 TAG 参数")
	}
	info, ok := xlock.LookupTag(args[0])
	if !ok {
		return "", nil, usagef("未知的 TAG: %s", args[0])
	}
	return info.Tag, args[1:], nil
}

func createAcquireCommand() *cli.Command {
	return &cli.Command{
		Name:      "acquire",
		Usage:     "获取锁，不等待",
		ArgsUsage: "<TAG> [params...]",
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			tag, params, err := lockArgs(cmd)
			if err != nil {
				return err
			}
			lock, err := e.locks.Acquire(ctx, tag, params...)
			if err != nil {
				if xlock.KindOf(err) == xlock.KindContention {
					return &exitError{code: 1, msg: fmt.Sprintf("锁被占用: %s", e.locks.Key(tag, params...))}
				}
				return err
			}
			out := cmd.Root().Writer
			fmt.Fprintln(out, lock.Key())
			if tok := lock.Token(); tok != "" {
				fmt.Fprintf(out, "token: %s\n", tok)
			}
			fmt.Fprintf(out, "ttl: %s\n", lock.TTL())
			return nil
		}),
	}
}

func createReleaseCommand() *cli.Command {
	return &cli.Command{
		Name:      "release",
		Usage:     "无条件释放锁",
		ArgsUsage: "<TAG> [params...]",
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			tag, params, err := lockArgs(cmd)
			if err != nil {
				return err
			}
			if err := e.locks.Release(ctx, tag, params...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, e.locks.Key(tag, params...))
			return nil
		}),
	}
}

func createGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "读取键值",
		ArgsUsage: "<key>",
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			if cmd.Args().Len() != 1 {
				return usagef("get 需要 1 个参数 <key>")
			}
			key := cmd.Args().First()
			v, ok := e.store.Get(ctx, key)
			if !ok {
				return &exitError{code: 1, msg: fmt.Sprintf("键不存在: %s", key)}
			}
			fmt.Fprintln(cmd.Root().Writer, v)
			return nil
		}),
	}
}

func createSetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "写入键值，未指定 --ttl 时永不过期",
		ArgsUsage: "<key> <value>",
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			if cmd.Args().Len() != 2 {
				return usagef("set 需要 2 个参数 <key> <value>")
			}
			var ttl time.Duration
			if cmd.IsSet(flagTTL) {
				ttl = cmd.Duration(flagTTL)
			}
			key := cmd.Args().Get(0)
			if !e.store.Set(ctx, key, cmd.Args().Get(1), ttl) {
				return &exitError{code: 1, msg: fmt.Sprintf("写入失败: %s", key)}
			}
			return nil
		}),
	}
}

func createTagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "列出锁资源类别",
		Action: func(_ context.Context, cmd *cli.Command) error {
			w := tabwriter.NewWriter(cmd.Root().Writer, 0, 0, 2, ' ', 0)
			for _, info := range xlock.Tags() {
				fmt.Fprintf(w, "%s\t%s\n", info.Tag, info.Description)
			}
			return w.Flush()
		},
	}
}

func createRaceCommand() *cli.Command {
	return &cli.Command{
		Name:      "race",
		Usage:     "并发获取同一把锁，验证只有一个成功",
		ArgsUsage: "<TAG> [params...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Value:   defaultRaceWorkers,
				Usage:   "并发数",
			},
		},
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			tag, params, err := lockArgs(cmd)
			if err != nil {
				return err
			}
			workers := cmd.Int("workers")
			if workers < 1 {
				return usagef("--workers 必须大于 0")
			}
			return race(ctx, cmd, e, workers, tag, params)
		}),
	}
}

// race 并发获取后释放胜者，胜者数不为 1 时退出码 1
func race(ctx context.Context, cmd *cli.Command, e *env, workers int, tag xlock.Tag, params []string) error {
	var (
		wins      atomic.Int64
		contended atomic.Int64
		winners   = make([]*xlock.Lock, workers)
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := range workers {
		g.Go(func() error {
			lock, err := e.locks.Acquire(gctx, tag, params...)
			switch {
			case err == nil:
				wins.Add(1)
				winners[i] = lock
				return nil
			case xlock.KindOf(err) == xlock.KindContention:
				contended.Add(1)
				return nil
			default:
				return err
			}
		})
	}
	raceErr := g.Wait()

	var relErrs []error
	for _, l := range winners {
		if l != nil {
			relErrs = append(relErrs, l.Release(context.WithoutCancel(ctx)))
		}
	}

	fmt.Fprintf(cmd.Root().Writer, "key: %s\nworkers: %d\nwins: %d\ncontended: %d\n",
		e.locks.Key(tag, params...), workers, wins.Load(), contended.Load())

	if err := errors.Join(raceErr, errors.Join(relErrs...)); err != nil {
		return err
	}
	if wins.Load() != 1 {
		return &exitError{code: 1, msg: fmt.Sprintf("期望 1 个胜者，实际 %d", wins.Load())}
	}
	return nil
}
