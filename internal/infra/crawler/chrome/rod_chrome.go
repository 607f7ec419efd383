package chrome

import (
	"context"
	"fmt"

	"github.com/LouYuanbo1/postmanager/internal/config"
	"github.com/LouYuanbo1/postmanager/internal/infra/credential"
	"github.com/LouYuanbo1/postmanager/internal/infra/crawler/options"
	"github.com/LouYuanbo1/postmanager/internal/infra/crawler/types"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

type rodHandle struct {
	gen uint64
	el  *rod.Element
}

func (h *rodHandle) Generation() uint64 {
	return h.gen
}

type rodSession struct {
	cfg     *config.Config
	browser *rod.Browser
	page    *rod.Page
	gen     types.Generation
}

func InitRodSession(cfg *config.Config) (ChromeSession, error) {
	l := options.CreateLauncher(cfg.Rod.UserMode,
		options.WithBin(cfg.Rod.Bin),
		options.WithUserDataDir(cfg.Rod.UserDataDir),
		options.WithHeadless(cfg.Rod.Headless),
		options.WithDisableBlinkFeatures(cfg.Rod.DisableBlinkFeatures),
		options.WithIncognito(cfg.Rod.Incognito),
		options.WithDisableDevShmUsage(cfg.Rod.DisableDevShmUsage),
		options.WithNoSandbox(cfg.Rod.NoSandbox),
		options.WithUserAgent(cfg.Rod.UserAgent),
		options.WithLeakless(cfg.Rod.Leakless),
	)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Trace(cfg.Rod.Trace)
	if err := connectBrowser(browser, l.Kill); err != nil {
		return nil, err
	}

	var page *rod.Page
	if cfg.Rod.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}

	return &rodSession{
		cfg:     cfg,
		browser: browser,
		page:    page,
	}, nil
}

// connectBrowser 连接失败时结束已经启动的浏览器进程
func connectBrowser(browser interface{ Connect() error }, kill func()) error {
	if err := browser.Connect(); err != nil {
		kill()
		return fmt.Errorf("连接浏览器失败: %w", err)
	}
	return nil
}

func (rs *rodSession) Login(ctx context.Context, creds credential.Credentials) error {
	sel := rs.cfg.Craigslist.Selectors
	p := rs.page.Context(ctx)
	if err := p.Navigate(rs.cfg.Craigslist.LoginURL); err != nil {
		return fmt.Errorf("打开登录页失败: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("等待登录页加载失败: %w", err)
	}

	email, err := p.Element(sel.EmailInput)
	if err != nil {
		return fmt.Errorf("查找邮箱输入框失败: %w", err)
	}
	if err := email.Input(creds.Email); err != nil {
		return fmt.Errorf("输入邮箱失败: %w", err)
	}
	password, err := p.Element(sel.PasswordInput)
	if err != nil {
		return fmt.Errorf("查找密码输入框失败: %w", err)
	}
	if err := password.Input(creds.Password); err != nil {
		return fmt.Errorf("输入密码失败: %w", err)
	}
	button, err := p.Element(sel.LoginButton)
	if err != nil {
		return fmt.Errorf("查找登录按钮失败: %w", err)
	}
	if err := button.Type(input.Enter); err != nil {
		return fmt.Errorf("提交登录失败: %w", err)
	}

	rs.gen.Invalidate()
	return waitAfterLogin(ctx, rs.cfg)
}

func (rs *rodSession) Logout(ctx context.Context) error {
	rs.gen.Invalidate()
	p := rs.page.Context(ctx)
	if err := p.Navigate(rs.cfg.Craigslist.LogoutURL); err != nil {
		return fmt.Errorf("打开登出页失败: %w", err)
	}
	return p.WaitLoad()
}

func (rs *rodSession) FetchListingPage(ctx context.Context, page int) (*types.RawPageElements, error) {
	ctx, cancel := fetchContext(ctx, rs.cfg)
	defer cancel()

	gen := rs.gen.Next()
	p := rs.page.Context(ctx)
	if err := p.Navigate(PostingPageURL(rs.cfg, page)); err != nil {
		return nil, fmt.Errorf("打开第 %d 页失败: %w", page, err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("等待第 %d 页加载失败: %w", page, err)
	}

	sel := rs.cfg.Craigslist.Selectors
	raw := &types.RawPageElements{PageNumber: page}
	rows, err := p.Elements(sel.Row)
	if err != nil {
		return nil, fmt.Errorf("查找帖子行失败: %w", err)
	}
	raw.Rows = len(rows)

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
		if *g.dst, err = rodTexts(p, g.selector); err != nil {
			return nil, err
		}
	}

	controls, err := p.Elements(sel.Control)
	if err != nil {
		return nil, fmt.Errorf("查找管理按钮失败: %w", err)
	}
	for _, el := range controls {
		value, err := el.Attribute("value")
		if err != nil {
			return nil, fmt.Errorf("读取按钮 value 失败: %w", err)
		}
		control := types.ControlElement{Handle: &rodHandle{gen: gen, el: el}}
		if value != nil {
			control.Value = *value
		}
		raw.Controls = append(raw.Controls, control)
	}
	return raw, nil
}

func rodTexts(p *rod.Page, selector string) ([]string, error) {
	els, err := p.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("查找 %s 失败: %w", selector, err)
	}
	texts := make([]string, 0, len(els))
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			return nil, fmt.Errorf("读取 %s 文本失败: %w", selector, err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// InvokeControl 对按钮发送回车. 按钮被禁用时不触发, 返回 false.
func (rs *rodSession) InvokeControl(ctx context.Context, handle types.ControlHandle) (bool, error) {
	h, err := checkHandle[*rodHandle](&rs.gen, handle)
	if err != nil {
		return false, err
	}
	ctx, cancel := fetchContext(ctx, rs.cfg)
	defer cancel()

	el := h.el.Context(ctx)
	disabled, err := el.Attribute("disabled")
	if err != nil {
		return false, fmt.Errorf("读取按钮状态失败: %w", err)
	}
	if disabled != nil {
		return false, nil
	}
	if err := el.Type(input.Enter); err != nil {
		return false, fmt.Errorf("触发按钮失败: %w", err)
	}
	rs.gen.Invalidate()
	return true, nil
}

func (rs *rodSession) Close() error {
	rs.gen.Invalidate()
	return rs.browser.Close()
}
