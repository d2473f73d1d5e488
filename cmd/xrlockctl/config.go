package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xrlock/pkg/config/xconf"
	"github.com/omeyang/xrlock/pkg/distributed/xlock"
	"github.com/omeyang/xrlock/pkg/observability/xlog"
	"github.com/omeyang/xrlock/pkg/observability/xmetrics"
	"github.com/omeyang/xrlock/pkg/resilience/xbreaker"
	"github.com/omeyang/xrlock/pkg/storage/xkv"
)

const defaultRedisAddr = "127.0.0.1:6379"

// logConfig 日志配置
type logConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// File 非空时写入按大小轮转的文件
	File string `koanf:"file"`
}

// appConfig 配置文件结构
type appConfig struct {
	Redis xkv.RedisConfig `koanf:"redis"`
	Lock  xlock.Config    `koanf:"lock"`
	Log   logConfig       `koanf:"log"`
}

func defaultAppConfig() *appConfig {
	return &appConfig{
		Redis: xkv.RedisConfig{
			Addrs:        []string{defaultRedisAddr},
			PingOnCreate: true,
		},
		Lock: xlock.DefaultConfig(),
		Log:  logConfig{Level: "warn", Format: "text"},
	}
}

// loadConfig 读取配置文件（可选）并应用命令行覆盖
func loadConfig(cmd *cli.Command) (*appConfig, error) {
	cfg := defaultAppConfig()

	if path := cmd.String(flagConfig); path != "" {
		c, err := xconf.New(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		if err := c.Unmarshal("", cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if addr := cmd.String(flagRedis); addr != "" {
		cfg.Redis.Addrs = []string{addr}
	}
	if cmd.IsSet(flagTTL) {
		cfg.Lock.TTL = cmd.Duration(flagTTL)
	}
	if cmd.IsSet(flagNamespace) {
		cfg.Lock.Namespace = cmd.String(flagNamespace)
	}
	if lvl := cmd.String(flagLogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}

	if err := cfg.Lock.Validate(); err != nil {
		return nil, &usageError{msg: err.Error()}
	}
	return cfg, nil
}

// env 一次命令执行所需的依赖
type env struct {
	cfg     *appConfig
	logger  xlog.Logger
	store   xkv.Store
	locks   *xlock.Coordinator
	cleanup func() error
}

func (e *env) Close() error {
	var errs []error
	if e.store != nil {
		if err := e.store.Close(); err != nil && !errors.Is(err, xkv.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if e.cleanup != nil {
		errs = append(errs, e.cleanup())
	}
	return errors.Join(errs...)
}

// setup 按配置构建日志、存储与锁协调器
func setup(ctx context.Context, cmd *cli.Command, stderr io.Writer) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	b := xlog.New().
		SetLevelString(cfg.Log.Level).
		SetFormat(cfg.Log.Format).
		SetOutput(stderr).
		SetComponent("xrlockctl")
	if cfg.Log.File != "" {
		b = b.SetRotation(cfg.Log.File)
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return nil, &usageError{msg: fmt.Sprintf("log: %v", err)}
	}
	e := &env{cfg: cfg, logger: logger, cleanup: cleanup}

	client, err := xkv.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, errors.Join(err, e.Close())
	}

	observer, err := xmetrics.NewOTelObserver(xmetrics.WithInstrumentationName("xrlockctl"))
	if err != nil {
		observer = xmetrics.NoopObserver{}
	}

	storeOpts := append(cfg.Lock.StoreOptions(),
		xkv.WithLogger(logger),
		xkv.WithBreaker(xbreaker.NewBreaker("redis")),
		xkv.WithObserver(observer),
	)
	store, err := xkv.NewRedis(client, storeOpts...)
	if err != nil {
		return nil, errors.Join(err, client.Close(), e.Close())
	}
	e.store = store

	lockOpts := append(cfg.Lock.Options(),
		xlock.WithLogger(logger),
		xlock.WithObserver(observer),
	)
	locks, err := xlock.New(store, lockOpts...)
	if err != nil {
		return nil, errors.Join(err, e.Close())
	}
	e.locks = locks
	return e, nil
}
