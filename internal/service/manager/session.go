package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/LouYuanbo1/postmanager/internal/infra/credential"
	"github.com/LouYuanbo1/postmanager/internal/infra/crawler/types"
)

// PageSource 已登录会话提供的页面获取与按钮触发能力
type PageSource interface {
	Invoker
	FetchListingPage(ctx context.Context, page int) (*types.RawPageElements, error)
}

// Session 浏览器会话, 整个运行期间由调用方独占
type Session interface {
	PageSource
	Login(ctx context.Context, creds credential.Credentials) error
	Logout(ctx context.Context) error
	Close() error
}

// RunSession 登录后执行 fn, 之后登出. 任何路径下都会关闭会话.
func RunSession(ctx context.Context, sess Session, creds credential.Credentials, fn func(ctx context.Context, src PageSource) error) (err error) {
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("关闭会话失败: %w", cerr))
		}
	}()

	if err := sess.Login(ctx, creds); err != nil {
		return fmt.Errorf("登录失败: %w", err)
	}
	fnErr := fn(ctx, sess)
	// 运行中止后仍然尝试登出
	if lerr := sess.Logout(context.WithoutCancel(ctx)); lerr != nil {
		return errors.Join(fnErr, fmt.Errorf("登出失败: %w", lerr))
	}
	return fnErr
}
