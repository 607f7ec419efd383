package types

import (
	"errors"
	"sync/atomic"
)

// ErrStaleHandle 句柄来自更早的一次页面获取, 或页面已被某次操作修改
var ErrStaleHandle = errors.New("control handle is stale: page was re-fetched or mutated")

// ControlHandle 与某一次页面获取绑定的按钮句柄, 具体类型由各个会话后端决定
type ControlHandle interface {
	// Generation 返回产生该句柄的页面获取序号
	Generation() uint64
}

// ControlElement 页面上一个管理按钮, Value 为按钮的 value 属性(display/delete/...)
type ControlElement struct {
	Value  string
	Handle ControlHandle
}

// RawPageElements 一个列表页面上按行并列的元素组.
// Controls 是所有行的按钮平铺在一起的列表, Dates 每行两个.
type RawPageElements struct {
	PageNumber     int
	Rows           int
	Statuses       []string
	Controls       []ControlElement
	Titles         []string
	AreaCategories []string
	Dates          []string
	PostingIDs     []string
}

// Generation 页面获取计数器. 每次获取页面或成功调用按钮后递增, 旧句柄随即失效.
type Generation struct {
	current atomic.Uint64
}

// Next 开始新的一次页面获取, 返回新序号
func (g *Generation) Next() uint64 {
	return g.current.Add(1)
}

// Invalidate 页面被修改, 当前序号的所有句柄作废
func (g *Generation) Invalidate() {
	g.current.Add(1)
}

// Check 句柄不属于当前页面时返回 ErrStaleHandle
func (g *Generation) Check(h ControlHandle) error {
	if h == nil || h.Generation() != g.current.Load() {
		return ErrStaleHandle
	}
	return nil
}
