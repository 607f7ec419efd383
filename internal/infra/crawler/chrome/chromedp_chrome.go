package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LouYuanbo1/postmanager/internal/config"
	"github.com/LouYuanbo1/postmanager/internal/infra/credential"
	"github.com/LouYuanbo1/postmanager/internal/infra/crawler/types"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

type chromedpHandle struct {
	gen  uint64
	node *cdp.Node
}

func (h *chromedpHandle) Generation() uint64 {
	return h.gen
}

type chromedpSession struct {
	cfg           *config.Config
	gen           types.Generation
	allocCtxFuc   context.CancelFunc
	pageCtx       context.Context
	pageCtxFuc    context.CancelFunc
	timeoutCtxFuc context.CancelFunc
}

func InitChromedpSession(ctx context.Context, cfg *config.Config) (ChromeSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Chromedp.Headless),
		chromedp.Flag("incognito", cfg.Chromedp.Incognito),
		chromedp.Flag("disable-dev-shm-usage", cfg.Chromedp.DisableDevShmUsage),
		chromedp.Flag("no-sandbox", cfg.Chromedp.NoSandbox),
	)
	if cfg.Chromedp.DisableBlinkFeatures != "" {
		opts = append(opts, chromedp.Flag("disable-blink-features", cfg.Chromedp.DisableBlinkFeatures))
	}
	if cfg.Chromedp.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.Chromedp.UserDataDir))
	}
	if cfg.Chromedp.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.Chromedp.UserAgent))
	}

	// life_time 限制整个浏览器的存活时间, 0 表示不限制
	var (
		timeoutCtx    context.Context
		cancelTimeout context.CancelFunc
	)
	if cfg.Chromedp.LifeTime > 0 {
		timeoutCtx, cancelTimeout = context.WithTimeout(ctx, time.Duration(cfg.Chromedp.LifeTime)*time.Second)
	} else {
		timeoutCtx, cancelTimeout = context.WithCancel(ctx)
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(timeoutCtx, opts...)
	pageCtx, cancelPage := chromedp.NewContext(allocCtx)

	// 首次 Run 时才真正启动浏览器
	if err := chromedp.Run(pageCtx); err != nil {
		cancelPage()
		cancelAlloc()
		cancelTimeout()
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	return &chromedpSession{
		cfg:           cfg,
		allocCtxFuc:   cancelAlloc,
		pageCtx:       pageCtx,
		pageCtxFuc:    cancelPage,
		timeoutCtxFuc: cancelTimeout,
	}, nil
}

// run 在页面上下文中执行动作, 同时受调用方 ctx 与单次超时约束
func (cs *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := fetchContext(cs.pageCtx, cs.cfg)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (cs *chromedpSession) Login(ctx context.Context, creds credential.Credentials) error {
	sel := cs.cfg.Craigslist.Selectors
	err := cs.run(ctx,
		chromedp.Navigate(cs.cfg.Craigslist.LoginURL),
		chromedp.SendKeys(sel.EmailInput, creds.Email, chromedp.ByQuery),
		chromedp.SendKeys(sel.PasswordInput, creds.Password, chromedp.ByQuery),
		chromedp.SendKeys(sel.LoginButton, kb.Enter, chromedp.ByQuery),
	)
	cs.gen.Invalidate()
	if err != nil {
		return fmt.Errorf("登录失败: %w", err)
	}
	return waitAfterLogin(ctx, cs.cfg)
}

func (cs *chromedpSession) Logout(ctx context.Context) error {
	cs.gen.Invalidate()
	if err := cs.run(ctx, chromedp.Navigate(cs.cfg.Craigslist.LogoutURL)); err != nil {
		return fmt.Errorf("打开登出页失败: %w", err)
	}
	return nil
}

func jsString(s string) string {
	quoted, _ := json.Marshal(s)
	return string(quoted)
}

// textsJS 返回所有匹配元素的可见文本
func textsJS(selector string) string {
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%s), el => el.innerText)`, jsString(selector))
}

func (cs *chromedpSession) FetchListingPage(ctx context.Context, page int) (*types.RawPageElements, error) {
	sel := cs.cfg.Craigslist.Selectors
	gen := cs.gen.Next()
	raw := &types.RawPageElements{PageNumber: page}

	var rowCount int
	var nodes []*cdp.Node
	err := cs.run(ctx,
		chromedp.Navigate(PostingPageURL(cs.cfg, page)),
		chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(sel.Row)), &rowCount),
		chromedp.Evaluate(textsJS(sel.Status), &raw.Statuses),
		chromedp.Evaluate(textsJS(sel.Title), &raw.Titles),
		chromedp.Evaluate(textsJS(sel.AreaCategory), &raw.AreaCategories),
		chromedp.Evaluate(textsJS(sel.Dates), &raw.Dates),
		chromedp.Evaluate(textsJS(sel.PostingID), &raw.PostingIDs),
		chromedp.Nodes(sel.Control, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("获取第 %d 页失败: %w", page, err)
	}
	raw.Rows = rowCount

	for _, node := range nodes {
		raw.Controls = append(raw.Controls, types.ControlElement{
			Value:  node.AttributeValue("value"),
			Handle: &chromedpHandle{gen: gen, node: node},
		})
	}
	return raw, nil
}

func (cs *chromedpSession) InvokeControl(ctx context.Context, handle types.ControlHandle) (bool, error) {
	h, err := checkHandle[*chromedpHandle](&cs.gen, handle)
	if err != nil {
		return false, err
	}
	if _, disabled := h.node.Attribute("disabled"); disabled {
		return false, nil
	}
	err = cs.run(ctx, chromedp.SendKeys([]cdp.NodeID{h.node.NodeID}, kb.Enter, chromedp.ByNodeID))
	if err != nil {
		return false, fmt.Errorf("触发按钮失败: %w", err)
	}
	cs.gen.Invalidate()
	return true, nil
}

func (cs *chromedpSession) Close() error {
	cs.gen.Invalidate()
	cs.pageCtxFuc()
	cs.allocCtxFuc()
	cs.timeoutCtxFuc()
	return nil
}
