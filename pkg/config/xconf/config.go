package xconf

import "github.com/knadh/koanf/v2"

// Format 定义配置文件格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 定义配置接口。
type Config interface {
	// Client 返回底层的 koanf 实例。
	Client() *koanf.Koanf

	// Unmarshal 将 path 下的配置反序列化到 target，path 为空时反序列化整个配置。
	Unmarshal(path string, target any) error

	// Exists 判断 key 是否存在。
	Exists(key string) bool

	// Set 覆盖单个 key 的值，用于命令行参数覆盖文件配置。
	// 覆盖值在 Reload 后失效。
	Set(key string, value any) error

	// Reload 重新加载配置文件，从字节数据创建的 Config 返回 [ErrReloadUnsupported]。
	Reload() error

	// Path 返回配置文件路径，从字节数据创建时为空。
	Path() string

	// Format 返回配置格式。
	Format() Format
}
