package service

import (
	"context"

	"github.com/LouYuanbo1/postmanager/internal/domain/model"
	"github.com/LouYuanbo1/postmanager/internal/infra/crawler/types"
)

// Invoker 触发页面上的一个按钮, 返回是否确实触发
type Invoker interface {
	InvokeControl(ctx context.Context, handle types.ControlHandle) (bool, error)
}

// Dispatch 对记录执行一次操作.
// 试运行时不触发按钮, 直接返回 true. 触发后页面可能被异步修改, 这里不等待也不检查.
func Dispatch(ctx context.Context, invoker Invoker, r *model.PostingRecord, kind model.ActionKind, dryRun bool) (bool, error) {
	handle, ok := r.Actions[kind]
	if !ok {
		return false, &MissingActionError{PostingID: r.ID, Status: r.Status, Action: kind}
	}
	if dryRun {
		return true, nil
	}
	return invoker.InvokeControl(ctx, handle)
}
