package xkv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// 默认连接参数
const (
	defaultDialTimeout          = 5 * time.Second
	defaultDialKeepAliveTime    = 10 * time.Second
	defaultDialKeepAliveTimeout = 3 * time.Second
)

// RedisConfig Redis 连接配置，支持 koanf 反序列化。
//
// 单个地址创建单机客户端，多个地址创建集群客户端（由 redis.NewUniversalClient 决定）。
type RedisConfig struct {
	// Addrs 地址列表，格式 "host:port"，必填
	Addrs    []string `koanf:"addrs"`
	Password string   `koanf:"password"`
	DB       int      `koanf:"db"`

	// 零值使用 go-redis 默认值，DialTimeout 默认 5 秒
	DialTimeout  time.Duration `koanf:"dialTimeout"`
	ReadTimeout  time.Duration `koanf:"readTimeout"`
	WriteTimeout time.Duration `koanf:"writeTimeout"`
	PoolSize     int           `koanf:"poolSize"`

	// PingOnCreate 创建后立即 PING，失败时关闭客户端并返回错误
	PingOnCreate bool `koanf:"pingOnCreate"`
}

// Validate 检查必填字段
func (c *RedisConfig) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	return validateAddrs(c.Addrs)
}

// NewRedisClient 根据配置创建 go-redis 客户端
func NewRedisClient(ctx context.Context, cfg *RedisConfig) (redis.UniversalClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addrs,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	if cfg.PingOnCreate {
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, errors.Join(fmt.Errorf("xkv: ping redis: %w", err), client.Close())
		}
	}
	return client, nil
}

// EtcdConfig etcd 连接配置，支持 koanf 反序列化
type EtcdConfig struct {
	// Endpoints 端点列表，格式 "host:port"，必填
	Endpoints []string `koanf:"endpoints"`
	Username  string   `koanf:"username"`
	Password  string   `koanf:"password"`

	// DialTimeout 零值时为 5 秒
	DialTimeout time.Duration `koanf:"dialTimeout"`

	// keepalive 探测间隔与超时，零值时分别为 10 秒与 3 秒
	DialKeepAliveTime    time.Duration `koanf:"dialKeepAliveTime"`
	DialKeepAliveTimeout time.Duration `koanf:"dialKeepAliveTimeout"`
}

// Validate 检查必填字段
func (c *EtcdConfig) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	return validateAddrs(c.Endpoints)
}

func (c *EtcdConfig) applyDefaults() EtcdConfig {
	cfg := *c
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.DialKeepAliveTime <= 0 {
		cfg.DialKeepAliveTime = defaultDialKeepAliveTime
	}
	if cfg.DialKeepAliveTimeout <= 0 {
		cfg.DialKeepAliveTimeout = defaultDialKeepAliveTimeout
	}
	return cfg
}

// clientConfig 转换为 clientv3.Config。keepalive 只通过 DialOptions 设置。
func (c *EtcdConfig) clientConfig() clientv3.Config {
	cfg := c.applyDefaults()
	return clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DialOptions: []grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                cfg.DialKeepAliveTime,
				Timeout:             cfg.DialKeepAliveTimeout,
				PermitWithoutStream: true,
			}),
		},
	}
}

// NewEtcdClient 根据配置创建 etcd v3 客户端
func NewEtcdClient(cfg *EtcdConfig) (*clientv3.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := clientv3.New(cfg.clientConfig())
	if err != nil {
		return nil, fmt.Errorf("xkv: create etcd client: %w", err)
	}
	return client, nil
}

func validateAddrs(addrs []string) error {
	if len(addrs) == 0 {
		return ErrNoAddrs
	}
	for i, addr := range addrs {
		if addr == "" || !strings.Contains(addr, ":") {
			return fmt.Errorf("%w: addrs[%d]=%q, expected host:port", ErrInvalidAddr, i, addr)
		}
	}
	return nil
}
