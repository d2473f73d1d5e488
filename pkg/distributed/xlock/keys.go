package xlock

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Separator 锁 key 各段之间的分隔符。参数中的分隔符不会被转义。
const Separator = ":"

// Tag 锁资源类别，作为锁 key 的第一段
type Tag string

// 内置资源类别
const (
	TagTypeOne Tag = "REDIS_KEY_TYPE_ONE"
	TagTypeTwo Tag = "REDIS_KEY_TYPE_TWO"
)

// DefaultTag AcquireDefault 与 ReleaseDefault 使用的资源类别
const DefaultTag = TagTypeOne

// TagInfo 资源类别及其说明
type TagInfo struct {
	Tag         Tag
	Description string
}

var catalog = newTagCatalog(
	TagInfo{Tag: TagTypeOne, Description: "业务类型1的锁前缀"},
	TagInfo{Tag: TagTypeTwo, Description: "业务类型2的锁前缀"},
)

type tagCatalog struct {
	mu    sync.RWMutex
	byTag map[Tag]TagInfo
	order []Tag
}

func newTagCatalog(builtin ...TagInfo) *tagCatalog {
	c := &tagCatalog{byTag: make(map[Tag]TagInfo, len(builtin))}
	for _, info := range builtin {
		c.byTag[info.Tag] = info
		c.order = append(c.order, info.Tag)
	}
	return c
}

// RegisterTag 向目录追加资源类别
//
// tag 不能为空白、不能包含分隔符，也不能与已有类别重复。
func RegisterTag(tag Tag, description string) error {
	if strings.TrimSpace(string(tag)) == "" {
		return ErrEmptyTag
	}
	if strings.Contains(string(tag), Separator) {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidTag, tag, Separator)
	}

	catalog.mu.Lock()
	defer catalog.mu.Unlock()
	if _, ok := catalog.byTag[tag]; ok {
		return fmt.Errorf("%w: %q", ErrTagExists, tag)
	}
	catalog.byTag[tag] = TagInfo{Tag: tag, Description: description}
	catalog.order = append(catalog.order, tag)
	return nil
}

// LookupTag 按名称查找资源类别
func LookupTag(code string) (TagInfo, bool) {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	info, ok := catalog.byTag[Tag(code)]
	return info, ok
}

// Tags 按注册顺序返回全部资源类别
func Tags() []TagInfo {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	out := make([]TagInfo, 0, len(catalog.order))
	for _, tag := range catalog.order {
		out = append(out, catalog.byTag[tag])
	}
	return out
}

// unregisterTag 仅供测试清理
func unregisterTag(tag Tag) {
	catalog.mu.Lock()
	defer catalog.mu.Unlock()
	delete(catalog.byTag, tag)
	catalog.order = slices.DeleteFunc(catalog.order, func(t Tag) bool { return t == tag })
}

// BuildKey 拼接锁 key：tag:p1:p2...
//
// 纯函数，结果只取决于输入；参数顺序不同得到不同的 key。
func BuildKey(tag Tag, params ...string) string {
	n := len(tag)
	for _, p := range params {
		n += len(Separator) + len(p)
	}

	var b strings.Builder
	b.Grow(n)
	b.WriteString(string(tag))
	for _, p := range params {
		b.WriteString(Separator)
		b.WriteString(p)
	}
	return b.String()
}

// KeyBuilder 带命名空间前缀的 key 构造器，零值等价于 BuildKey
type KeyBuilder struct {
	Namespace string
}

// Build 非空命名空间时返回 namespace:tag:p1:...
func (b KeyBuilder) Build(tag Tag, params ...string) string {
	key := BuildKey(tag, params...)
	if b.Namespace == "" {
		return key
	}
	return b.Namespace + Separator + key
}
