package model

import (
	"slices"
	"time"

	"github.com/LouYuanbo1/postmanager/internal/infra/crawler/types"
)

// Status 帖子状态, 由页面上的状态文本直接得到
type Status string

const (
	StatusActive  Status = "Active"
	StatusDeleted Status = "Deleted"
)

// ActionKind 帖子行上管理按钮可以执行的操作, 取值与按钮的 value 属性一致
type ActionKind string

const (
	ActionDisplay ActionKind = "display"
	ActionDelete  ActionKind = "delete"
	ActionRepost  ActionKind = "repost"
	ActionEdit    ActionKind = "edit"
)

func ActionKinds() []ActionKind {
	return []ActionKind{ActionDisplay, ActionDelete, ActionRepost, ActionEdit}
}

func (a ActionKind) IsValid() bool {
	return slices.Contains(ActionKinds(), a)
}

// PostingRecord 每次获取页面后重新构建, 只属于当前这一轮扫描.
// Actions 中的句柄在页面被重新获取或任意一次操作成功后即失效.
type PostingRecord struct {
	ID       string
	Status   Status
	Title    string
	Area     string
	SubArea  string
	Category string
	PostedAt time.Time
	Actions  map[ActionKind]types.ControlHandle
}

// ActionedIDs 本次运行中已经成功执行过操作的帖子ID, 只增不减
type ActionedIDs struct {
	ids   map[string]struct{}
	order []string
}

func NewActionedIDs() *ActionedIDs {
	return &ActionedIDs{ids: make(map[string]struct{})}
}

func (a *ActionedIDs) Add(id string) {
	if _, ok := a.ids[id]; ok {
		return
	}
	a.ids[id] = struct{}{}
	a.order = append(a.order, id)
}

func (a *ActionedIDs) Has(id string) bool {
	if a == nil {
		return false
	}
	_, ok := a.ids[id]
	return ok
}

func (a *ActionedIDs) Len() int {
	if a == nil {
		return 0
	}
	return len(a.order)
}

// InOrder 按加入顺序返回所有ID的副本
func (a *ActionedIDs) InOrder() []string {
	if a == nil {
		return nil
	}
	return slices.Clone(a.order)
}
