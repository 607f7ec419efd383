package chrome

import (
	"context"
	"fmt"
	"time"

	"github.com/LouYuanbo1/postmanager/internal/config"
	"github.com/LouYuanbo1/postmanager/internal/infra/credential"
	"github.com/LouYuanbo1/postmanager/internal/infra/crawler/types"
)

// ChromeSession 浏览器会话: 登录/登出, 获取账户列表页, 触发管理按钮.
// 同一时间只能被一个调用方使用, 不支持并发.
type ChromeSession interface {
	Login(ctx context.Context, creds credential.Credentials) error
	Logout(ctx context.Context) error
	FetchListingPage(ctx context.Context, page int) (*types.RawPageElements, error)
	InvokeControl(ctx context.Context, handle types.ControlHandle) (bool, error)
	Close() error
}

// InitChromeSession 根据 session.driver 创建对应的浏览器会话
func InitChromeSession(ctx context.Context, cfg *config.Config) (ChromeSession, error) {
	switch cfg.Session.Driver {
	case config.DriverRod:
		return InitRodSession(cfg)
	case config.DriverChromedp:
		return InitChromedpSession(ctx, cfg)
	case config.DriverPlaywright:
		return InitPlaywrightSession(cfg)
	default:
		return nil, fmt.Errorf("驱动 %q 不是浏览器会话", cfg.Session.Driver)
	}
}

// PostingPageURL 第 page 页账户列表页的地址
func PostingPageURL(cfg *config.Config, page int) string {
	return fmt.Sprintf(cfg.Craigslist.PostingPageURL, page)
}

// fetchContext 为单次页面获取或按钮调用加上配置的超时
func fetchContext(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.Session.FetchTimeoutSeconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(cfg.Session.FetchTimeoutSeconds)*time.Second)
}

// waitAfterLogin 登录提交后等待跳转完成
func waitAfterLogin(ctx context.Context, cfg *config.Config) error {
	select {
	case <-time.After(time.Duration(cfg.Session.LoginWaitSeconds) * time.Second):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// checkHandle 取出具体后端的句柄, 类型不符或已过期时返回错误
func checkHandle[H types.ControlHandle](gen *types.Generation, handle types.ControlHandle) (H, error) {
	var zero H
	h, ok := handle.(H)
	if !ok {
		return zero, fmt.Errorf("句柄类型不匹配: %T", handle)
	}
	if err := gen.Check(h); err != nil {
		return zero, err
	}
	return h, nil
}
