package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/LouYuanbo1/postmanager/internal/config"
	"github.com/LouYuanbo1/postmanager/internal/infra/credential"
	"github.com/LouYuanbo1/postmanager/internal/infra/crawler/types"
	"github.com/gocolly/colly/v2"
)

type snapshotHandle struct {
	gen   uint64
	index int
}

func (h *snapshotHandle) Generation() uint64 {
	return h.gen
}

type collyCollector struct {
	cfg       *config.Config
	transport *http.Transport
	gen       types.Generation
}

func InitCollyCollector(cfg *config.Config) (CollyCollector, error) {
	if strings.Count(cfg.Snapshot.PageURL, "%d") != 1 {
		return nil, fmt.Errorf("snapshot.page_url 必须包含且只包含一个 %%d 占位符: %q", cfg.Snapshot.PageURL)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// 支持 file:// 地址, 读取本地保存的页面
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
	return &collyCollector{
		cfg:       cfg,
		transport: transport,
	}, nil
}

// 每次获取都使用新的 Collector, 避免回调在多次获取之间累积
func (cc *collyCollector) newCollector(ctx context.Context) *colly.Collector {
	opts := []colly.CollectorOption{
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.StdlibContext(ctx),
	}
	if cc.cfg.Snapshot.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cc.cfg.Snapshot.UserAgent))
	}
	c := colly.NewCollector(opts...)
	c.WithTransport(cc.transport)
	return c
}

func (cc *collyCollector) Login(ctx context.Context, creds credential.Credentials) error {
	return ctx.Err()
}

func (cc *collyCollector) Logout(ctx context.Context) error {
	cc.gen.Invalidate()
	return nil
}

func (cc *collyCollector) FetchListingPage(ctx context.Context, page int) (*types.RawPageElements, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gen := cc.gen.Next()
	sel := cc.cfg.Craigslist.Selectors
	raw := &types.RawPageElements{PageNumber: page}

	c := cc.newCollector(ctx)
	var found bool
	c.OnHTML("html", func(e *colly.HTMLElement) {
		found = true
		e.ForEach(sel.Row, func(int, *colly.HTMLElement) { raw.Rows++ })
		collectTexts(e, sel.Status, &raw.Statuses)
		collectTexts(e, sel.Title, &raw.Titles)
		collectTexts(e, sel.AreaCategory, &raw.AreaCategories)
		collectTexts(e, sel.Dates, &raw.Dates)
		collectTexts(e, sel.PostingID, &raw.PostingIDs)
		e.ForEach(sel.Control, func(i int, el *colly.HTMLElement) {
			raw.Controls = append(raw.Controls, types.ControlElement{
				Value:  el.Attr("value"),
				Handle: &snapshotHandle{gen: gen, index: i},
			})
		})
	})
	var respErr error
	c.OnError(func(r *colly.Response, err error) {
		respErr = fmt.Errorf("状态码 %d: %w", r.StatusCode, err)
	})

	url := fmt.Sprintf(cc.cfg.Snapshot.PageURL, page)
	if err := c.Visit(url); err != nil {
		if respErr != nil {
			err = respErr
		}
		return nil, fmt.Errorf("读取第 %d 页失败: %w", page, err)
	}
	c.Wait()
	if respErr != nil {
		return nil, fmt.Errorf("读取第 %d 页失败: %w", page, respErr)
	}
	if !found {
		return nil, fmt.Errorf("第 %d 页不是 HTML 页面: %s", page, url)
	}
	return raw, nil
}

func collectTexts(e *colly.HTMLElement, selector string, dst *[]string) {
	e.ForEach(selector, func(_ int, el *colly.HTMLElement) {
		*dst = append(*dst, el.Text)
	})
}

// InvokeControl 已保存的页面不能被修改, 按钮永远不会被触发
func (cc *collyCollector) InvokeControl(ctx context.Context, handle types.ControlHandle) (bool, error) {
	if _, ok := handle.(*snapshotHandle); !ok {
		return false, fmt.Errorf("句柄类型不匹配: %T", handle)
	}
	if err := cc.gen.Check(handle); err != nil {
		return false, err
	}
	return false, nil
}

func (cc *collyCollector) Close() error {
	cc.gen.Invalidate()
	cc.transport.CloseIdleConnections()
	return nil
}
