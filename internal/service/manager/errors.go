package service

import (
	"errors"
	"fmt"

	"github.com/LouYuanbo1/postmanager/internal/domain/model"
)

// ErrRefetchLimit 同一页码上的操作次数超过上限
var ErrRefetchLimit = errors.New("too many actions on one page")

// ConfigurationError 互斥的两个筛选条件同时给出. 不是致命错误:
// Used 生效, Ignored 被忽略, 运行继续.
type ConfigurationError struct {
	Used    string
	Ignored string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("value(s) for %s will be used to override value(s) of %s", e.Used, e.Ignored)
}

// ExtractionAlignmentError 页面元素组与每行预期数量不一致, 继续下去会把按钮对应到错误的帖子上
type ExtractionAlignmentError struct {
	Page      int
	Row       int
	PostingID string
	Reason    string
}

func (e *ExtractionAlignmentError) Error() string {
	if e.PostingID != "" {
		return fmt.Sprintf("page %d row %d (posting %s): %s", e.Page, e.Row, e.PostingID, e.Reason)
	}
	return fmt.Sprintf("page %d row %d: %s", e.Page, e.Row, e.Reason)
}

// MissingActionError 该行的状态下没有所请求的操作按钮
type MissingActionError struct {
	PostingID string
	Status    model.Status
	Action    model.ActionKind
}

func (e *MissingActionError) Error() string {
	return fmt.Sprintf("posting %s with status %s has no %q control", e.PostingID, e.Status, e.Action)
}

// RunError 中止运行的错误, 带上出错时的页码与帖子ID
type RunError struct {
	Page      int
	PostingID string
	Err       error
}

func (e *RunError) Error() string {
	if e.PostingID != "" {
		return fmt.Sprintf("page %d, posting %s: %v", e.Page, e.PostingID, e.Err)
	}
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
