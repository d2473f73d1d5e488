// Package xconf 基于 koanf 的配置加载。
//
// 支持 YAML 与 JSON，文件格式按扩展名识别；也可以从字节数据加载。
// 只提供加载、反序列化与覆盖三类增值功能，其余操作通过 Client() 直接使用 koanf。
//
//	cfg, err := xconf.New("/etc/xrlock/xrlock.yaml")
//	if err != nil {
//		return err
//	}
//	cfg.Set("redis.addrs", []string{"10.0.0.1:6379"}) // 命令行参数覆盖
//
//	var lockCfg xlock.Config
//	if err := cfg.Unmarshal("lock", &lockCfg); err != nil {
//		return err
//	}
//
// 结构体字段使用 `koanf` 标签映射，time.Duration 字段接受 "30s" 形式的字符串，
// 实现 encoding.TextUnmarshaler 的类型（如 xlog.Level）直接从字符串解析。
package xconf
