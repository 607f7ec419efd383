package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultLoginURL       = "https://accounts.craigslist.org/login/home"
	defaultLogoutURL      = "https://accounts.craigslist.org/logout"
	defaultPostingPageURL = "https://accounts.craigslist.org/login/home?filter_page=%d&show_tab=postings"
	defaultPageRowsLimit  = 50
)

func ParseConfig(byteConfig []byte) (*Config, error) {
	var cfg Config
	err := json.Unmarshal(byteConfig, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	for _, dir := range []*string{&cfg.Chromedp.UserDataDir, &cfg.Rod.UserDataDir} {
		if *dir == "" {
			continue
		}
		absPath, err := filepath.Abs(*dir)
		if err != nil {
			return nil, err
		}
		*dir = absPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseConfigFile 读取磁盘上的配置文件, 用于覆盖内嵌的默认配置
func ParseConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return ParseConfig(data)
}

func (c *Config) applyDefaults() {
	cl := &c.Craigslist
	if cl.LoginURL == "" {
		cl.LoginURL = defaultLoginURL
	}
	if cl.LogoutURL == "" {
		cl.LogoutURL = defaultLogoutURL
	}
	if cl.PostingPageURL == "" {
		cl.PostingPageURL = defaultPostingPageURL
	}
	if cl.PageRowsLimit <= 0 {
		cl.PageRowsLimit = defaultPageRowsLimit
	}
	if len(cl.ControlsPerStatus) == 0 {
		cl.ControlsPerStatus = map[string]int{"Active": 4, "Deleted": 3}
	}
	if cl.DatesPerRow <= 0 {
		cl.DatesPerRow = 2
	}

	s := &cl.Selectors
	setDefault(&s.Row, ".posting-row")
	setDefault(&s.Status, ".status")
	setDefault(&s.Control, ".managebtn")
	setDefault(&s.Title, ".title")
	setDefault(&s.AreaCategory, ".areacat")
	setDefault(&s.Dates, ".dates")
	setDefault(&s.PostingID, ".postingID")
	setDefault(&s.EmailInput, "#inputEmailHandle")
	setDefault(&s.PasswordInput, "#inputPassword")
	setDefault(&s.LoginButton, "#login")

	if c.Session.Driver == "" {
		c.Session.Driver = DriverRod
	}
	if c.Session.LoginWaitSeconds <= 0 {
		c.Session.LoginWaitSeconds = 3
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "tint"
	}
	if c.Log.Fluent.TagPrefix == "" {
		c.Log.Fluent.TagPrefix = "postmanager"
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	switch c.Session.Driver {
	case DriverRod, DriverChromedp, DriverPlaywright:
	case DriverSnapshot:
		if c.Snapshot.PageURL == "" {
			return fmt.Errorf("snapshot 驱动需要配置 snapshot.page_url")
		}
		if strings.Count(c.Snapshot.PageURL, "%d") != 1 {
			return fmt.Errorf("snapshot.page_url 必须包含且只包含一个 %%d 占位符: %q", c.Snapshot.PageURL)
		}
	default:
		return fmt.Errorf("未知的会话驱动: %q", c.Session.Driver)
	}
	if strings.Count(c.Craigslist.PostingPageURL, "%d") != 1 {
		return fmt.Errorf("craigslist.posting_page_url 必须包含且只包含一个 %%d 占位符: %q", c.Craigslist.PostingPageURL)
	}
	for status, n := range c.Craigslist.ControlsPerStatus {
		if n <= 0 {
			return fmt.Errorf("状态 %s 的按钮数量必须为正数, 当前为 %d", status, n)
		}
	}
	if c.Session.FetchTimeoutSeconds < 0 {
		return fmt.Errorf("session.fetch_timeout_seconds 不能为负数")
	}
	if c.Log.Fluent.Enabled && (c.Log.Fluent.Host == "" || c.Log.Fluent.Port <= 0) {
		return fmt.Errorf("启用 fluent 时必须配置 host 与 port")
	}
	return nil
}
