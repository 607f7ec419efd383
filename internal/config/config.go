package config

import (
	"github.com/LouYuanbo1/postmanager/internal/domain/model"
)

// 会话驱动
const (
	DriverRod        = "rod"
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
	DriverSnapshot   = "snapshot"
)

type Config struct {
	Craigslist struct {
		LoginURL string `json:"login_url"`
		// 退出登录只需要访问该地址
		LogoutURL string `json:"logout_url"`
		// fmt 模板, 唯一的占位符为页码, 例如 ...?filter_page=%d&show_tab=postings
		PostingPageURL string `json:"posting_page_url"`
		PageRowsLimit  int    `json:"page_rows_limit"`
		// 每种状态的行所带的管理按钮数量, Active=4, Deleted=3
		ControlsPerStatus map[string]int `json:"controls_per_status"`
		DatesPerRow       int            `json:"dates_per_row"`
		Selectors         Selectors      `json:"selectors"`
	} `json:"craigslist"`

	Session struct {
		Driver string `json:"driver"`
		// 单次页面获取/按钮调用的超时(秒), 0 表示不限制
		FetchTimeoutSeconds int `json:"fetch_timeout_seconds"`
		// 登录后等待页面稳定的时间(秒)
		LoginWaitSeconds int `json:"login_wait_seconds"`
	} `json:"session"`

	Rod struct {
		// 使用系统中已安装并登录过的浏览器
		UserMode             bool   `json:"user_mode"`
		UserDataDir          string `json:"user_data_dir"`
		Headless             bool   `json:"headless"`
		DisableBlinkFeatures string `json:"disable_blink_features"`
		Incognito            bool   `json:"incognito"`
		DisableDevShmUsage   bool   `json:"disable_dev_shm_usage"`
		NoSandbox            bool   `json:"no_sandbox"`
		UserAgent            string `json:"user_agent"`
		Leakless             bool   `json:"leakless"`
		Bin                  string `json:"bin"`
		Stealth              bool   `json:"stealth"`
		Trace                bool   `json:"trace"`
	} `json:"rod"`

	Chromedp struct {
		LifeTime             int    `json:"life_time"`
		UserDataDir          string `json:"user_data_dir"`
		Headless             bool   `json:"headless"`
		DisableBlinkFeatures string `json:"disable_blink_features"`
		Incognito            bool   `json:"incognito"`
		DisableDevShmUsage   bool   `json:"disable_dev_shm_usage"`
		NoSandbox            bool   `json:"no_sandbox"`
		UserAgent            string `json:"user_agent"`
	} `json:"chromedp"`

	Playwright struct {
		Headless bool    `json:"headless"`
		SlowMo   float64 `json:"slow_mo"`
		// 为空时使用 playwright 自带的 Chromium
		ExecutablePath string `json:"executable_path"`
		UserAgent      string `json:"user_agent"`
	} `json:"playwright"`

	Snapshot struct {
		// 已保存页面的地址模板, 支持 http(s):// 与 file://, 唯一占位符为页码
		PageURL   string `json:"page_url"`
		UserAgent string `json:"user_agent"`
	} `json:"snapshot"`

	Log struct {
		Level string `json:"level"`
		// text, json, tint
		Format string `json:"format"`
		Fluent struct {
			Enabled   bool   `json:"enabled"`
			Host      string `json:"host"`
			Port      int    `json:"port"`
			TagPrefix string `json:"tag_prefix"`
		} `json:"fluent"`
	} `json:"log"`
}

// Selectors 账户页面上各元素组对应的 CSS 选择器
type Selectors struct {
	Row           string `json:"row"`
	Status        string `json:"status"`
	Control       string `json:"control"`
	Title         string `json:"title"`
	AreaCategory  string `json:"area_category"`
	Dates         string `json:"dates"`
	PostingID     string `json:"posting_id"`
	EmailInput    string `json:"email_input"`
	PasswordInput string `json:"password_input"`
	LoginButton   string `json:"login_button"`
}

// Layout 根据配置生成不可变的页面布局, 供记录提取使用
func (c *Config) Layout() model.Layout {
	controls := make(map[model.Status]int, len(c.Craigslist.ControlsPerStatus))
	for status, n := range c.Craigslist.ControlsPerStatus {
		controls[model.Status(status)] = n
	}
	return model.NewLayout(controls, c.Craigslist.DatesPerRow)
}
