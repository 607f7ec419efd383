package chrome

import (
	"context"
	"errors"
	"fmt"

	"github.com/LouYuanbo1/postmanager/internal/config"
	"github.com/LouYuanbo1/postmanager/internal/infra/credential"
	"github.com/LouYuanbo1/postmanager/internal/infra/crawler/types"
	"github.com/playwright-community/playwright-go"
)

type playwrightHandle struct {
	gen     uint64
	locator playwright.Locator
}

func (h *playwrightHandle) Generation() uint64 {
	return h.gen
}

// playwright 的调用不接受 context, 只能在调用前检查取消并用超时选项限制单次调用
type playwrightSession struct {
	cfg     *config.Config
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	gen     types.Generation
}

func InitPlaywrightSession(cfg *config.Config) (ChromeSession, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("启动 playwright 失败: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Playwright.Headless),
	}
	if cfg.Playwright.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(cfg.Playwright.SlowMo)
	}
	if cfg.Playwright.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(cfg.Playwright.ExecutablePath)
	}
	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{}
	if cfg.Playwright.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(cfg.Playwright.UserAgent)
	}
	browserCtx, err := browser.NewContext(ctxOpts)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("创建浏览器上下文失败: %w", err)
	}
	page, err := browserCtx.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}

	return &playwrightSession{
		cfg:     cfg,
		pw:      pw,
		browser: browser,
		page:    page,
	}, nil
}

// timeoutMillis 0 表示不限制
func (ps *playwrightSession) timeoutMillis() *float64 {
	return playwright.Float(float64(ps.cfg.Session.FetchTimeoutSeconds) * 1000)
}

func (ps *playwrightSession) gotoPage(url string) error {
	_, err := ps.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   ps.timeoutMillis(),
	})
	return err
}

func (ps *playwrightSession) Login(ctx context.Context, creds credential.Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sel := ps.cfg.Craigslist.Selectors
	if err := ps.gotoPage(ps.cfg.Craigslist.LoginURL); err != nil {
		return fmt.Errorf("打开登录页失败: %w", err)
	}
	if err := ps.page.Locator(sel.EmailInput).Fill(creds.Email); err != nil {
		return fmt.Errorf("输入邮箱失败: %w", err)
	}
	if err := ps.page.Locator(sel.PasswordInput).Fill(creds.Password); err != nil {
		return fmt.Errorf("输入密码失败: %w", err)
	}
	if err := ps.page.Locator(sel.LoginButton).Press("Enter"); err != nil {
		return fmt.Errorf("提交登录失败: %w", err)
	}
	ps.gen.Invalidate()
	return waitAfterLogin(ctx, ps.cfg)
}

func (ps *playwrightSession) Logout(ctx context.Context) error {
	ps.gen.Invalidate()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ps.gotoPage(ps.cfg.Craigslist.LogoutURL); err != nil {
		return fmt.Errorf("打开登出页失败: %w", err)
	}
	return nil
}

func (ps *playwrightSession) FetchListingPage(ctx context.Context, page int) (*types.RawPageElements, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gen := ps.gen.Next()
	if err := ps.gotoPage(PostingPageURL(ps.cfg, page)); err != nil {
		return nil, fmt.Errorf("打开第 %d 页失败: %w", page, err)
	}

	sel := ps.cfg.Craigslist.Selectors
	raw := &types.RawPageElements{PageNumber: page}
	rows, err := ps.page.Locator(sel.Row).Count()
	if err != nil {
		return nil, fmt.Errorf("统计帖子行失败: %w", err)
	}
	raw.Rows = rows

	groups := []struct {
		selector string
		dst      *[]string
	}{
		{sel.Status, &raw.Statuses},
		{sel.Title, &raw.Titles},
		{sel.AreaCategory, &raw.AreaCategories},
		{sel.Dates, &raw.Dates},
		{sel.PostingID, &raw.PostingIDs},
	}
	for _, g := range groups {
		if *g.dst, err = ps.page.Locator(g.selector).AllInnerTexts(); err != nil {
			return nil, fmt.Errorf("读取 %s 文本失败: %w", g.selector, err)
		}
	}

	controls, err := ps.page.Locator(sel.Control).All()
	if err != nil {
		return nil, fmt.Errorf("查找管理按钮失败: %w", err)
	}
	for _, loc := range controls {
		value, err := loc.GetAttribute("value")
		if err != nil {
			return nil, fmt.Errorf("读取按钮 value 失败: %w", err)
		}
		raw.Controls = append(raw.Controls, types.ControlElement{
			Value:  value,
			Handle: &playwrightHandle{gen: gen, locator: loc},
		})
	}
	return raw, nil
}

func (ps *playwrightSession) InvokeControl(ctx context.Context, handle types.ControlHandle) (bool, error) {
	h, err := checkHandle[*playwrightHandle](&ps.gen, handle)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	disabled, err := h.locator.IsDisabled()
	if err != nil {
		return false, fmt.Errorf("读取按钮状态失败: %w", err)
	}
	if disabled {
		return false, nil
	}
	if err := h.locator.Press("Enter", playwright.LocatorPressOptions{Timeout: ps.timeoutMillis()}); err != nil {
		return false, fmt.Errorf("触发按钮失败: %w", err)
	}
	ps.gen.Invalidate()
	return true, nil
}

func (ps *playwrightSession) Close() error {
	ps.gen.Invalidate()
	return errors.Join(ps.browser.Close(), ps.pw.Stop())
}
