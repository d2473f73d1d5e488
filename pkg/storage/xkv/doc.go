// Package xkv 提供分布式锁所需的最小 KV 驱动原语。
//
// # 原语
//
//   - Get / Set：读写字符串值，Set 在 ttl > 0 时一并设置过期时间
//   - SetIfAbsent：仅当 key 不存在时创建（原子），锁获取的唯一同步点
//   - Expire：为已存在的 key 设置剩余存活时间
//   - Delete：无条件删除
//   - CompareAndDelete：值匹配时才删除，用于持有者令牌释放
//
// 布尔返回的原语在驱动边界吞掉传输错误：记录日志后返回 false，从不 panic。
// SetIfAbsent 与 CompareAndDelete 额外返回 *StoreError，
// 让调用方区分"key 已存在"与"结果不确定"，据此选择失败关闭。
//
// # 后端
//
//   - [NewRedis]：go-redis v9，默认 SET NX PX 原子地创建并绑定 TTL；
//     WithTwoStepCreate(true) 退化为 SETNX + PEXPIRE 两步，需要调用方补偿
//   - [NewEtcd]：etcd v3，事务 CreateRevision == 0 + 租约，TTL 按秒向上取整
//
// # 对象辅助
//
// SetObject / GetObject / GetList / Update 在 Store 之上提供 JSON 编解码：
// 字符串原样存储，其他值 JSON 编码；解码失败或空白值视为不存在。
package xkv

//go:generate mockgen -destination=xkvmock/store.go -package=xkvmock github.com/omeyang/xrlock/pkg/storage/xkv Store
