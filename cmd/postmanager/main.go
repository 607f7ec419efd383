package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/LouYuanbo1/postmanager/internal/config"
	"github.com/LouYuanbo1/postmanager/internal/domain/model"
	"github.com/LouYuanbo1/postmanager/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/postmanager/internal/infra/crawler/collector"
	"github.com/LouYuanbo1/postmanager/internal/infra/credential"
	"github.com/LouYuanbo1/postmanager/internal/logger"
	"github.com/LouYuanbo1/postmanager/param"

	service "github.com/LouYuanbo1/postmanager/internal/service/manager"
)

// 使用go:embed嵌入默认配置, 可以用 -config 指定磁盘上的配置文件覆盖
//
//go:embed appconfig/appconfig.json
var appConfig []byte

type flags struct {
	configPath   string
	criteriaPath string
	action       string
	dryRun       bool
	strict       bool
	email        string
	password     string
	driver       string
}

func parseFlags() *flags {
	f := &flags{}
	flag.StringVar(&f.configPath, "config", "", "配置文件路径(JSON), 为空时使用内嵌配置")
	flag.StringVar(&f.criteriaPath, "criteria", "", "筛选条件文件路径(YAML)")
	flag.StringVar(&f.action, "action", string(model.ActionDisplay), "要执行的操作: display, delete, repost, edit")
	flag.BoolVar(&f.dryRun, "dry-run", false, "只列出匹配的帖子, 不点击按钮")
	flag.BoolVar(&f.strict, "strict", false, "匹配的帖子缺少所请求的按钮时中止运行")
	flag.StringVar(&f.email, "email", "", "账户邮箱, 也可以通过 "+credential.EnvEmail+" 提供")
	flag.StringVar(&f.password, "password", "", "账户密码, 也可以通过 "+credential.EnvPassword+" 提供")
	flag.StringVar(&f.driver, "driver", "", "会话驱动: rod, chromedp, playwright, snapshot")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()

	appcfg, err := loadConfig(f)
	if err != nil {
		log.Fatalf("解析配置失败: %v", err)
	}

	logg, closeLog, err := logger.New(appcfg, os.Stderr)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	result, err := run(ctx, f, appcfg, logg)
	stop()

	if result != nil {
		for _, id := range result.ActionedIDs {
			fmt.Println(id)
		}
	}
	if err != nil {
		logg.Error("运行失败", "error", err)
		closeLog()
		os.Exit(1)
	}
	closeLog()
}

func loadConfig(f *flags) (*config.Config, error) {
	var (
		appcfg *config.Config
		err    error
	)
	if f.configPath != "" {
		appcfg, err = config.ParseConfigFile(f.configPath)
	} else {
		appcfg, err = config.ParseConfig(appConfig)
	}
	if err != nil {
		return nil, err
	}
	if f.driver != "" {
		appcfg.Session.Driver = f.driver
		if err := appcfg.Validate(); err != nil {
			return nil, err
		}
	}
	return appcfg, nil
}

func run(ctx context.Context, f *flags, appcfg *config.Config, logg *slog.Logger) (*service.Result, error) {
	kind := model.ActionKind(f.action)
	if !kind.IsValid() {
		return nil, fmt.Errorf("未知的操作类型: %q", f.action)
	}

	var criteriaParam param.Criteria
	if f.criteriaPath != "" {
		p, err := config.LoadCriteria(f.criteriaPath)
		if err != nil {
			return nil, err
		}
		criteriaParam = *p
	}
	criteria, err := service.NewCriteria(criteriaParam)
	if err != nil {
		return nil, fmt.Errorf("筛选条件无效: %w", err)
	}

	creds, err := resolveCredentials(f, appcfg)
	if err != nil {
		return nil, err
	}

	sess, err := initSession(ctx, appcfg)
	if err != nil {
		return nil, err
	}
	logg.Info("会话已创建", "driver", appcfg.Session.Driver)

	var result *service.Result
	err = service.RunSession(ctx, sess, creds, func(ctx context.Context, src service.PageSource) error {
		manager, err := service.InitPostManager(src, criteria, appcfg.Layout(), &param.ManageOptions{
			Strict:            f.strict,
			MaxActionsPerPage: appcfg.Craigslist.PageRowsLimit,
		}, logg)
		if err != nil {
			return err
		}
		var runErr error
		result, runErr = manager.ManagePosts(ctx, kind, f.dryRun)
		return runErr
	})
	return result, err
}

// 离线快照不需要登录
func resolveCredentials(f *flags, appcfg *config.Config) (credential.Credentials, error) {
	if appcfg.Session.Driver == config.DriverSnapshot {
		return credential.Credentials{}, nil
	}
	resolver := credential.NewResolver(credential.NewTerminalPrompter(), ".env")
	creds, err := resolver.Resolve(credential.Credentials{Email: f.email, Password: f.password})
	if errors.Is(err, credential.ErrMissing) {
		return creds, fmt.Errorf("缺少登录信息, 请通过 -email/-password 或环境变量 %s/%s 提供: %w",
			credential.EnvEmail, credential.EnvPassword, err)
	}
	return creds, err
}

func initSession(ctx context.Context, appcfg *config.Config) (service.Session, error) {
	if appcfg.Session.Driver == config.DriverSnapshot {
		sess, err := collector.InitCollyCollector(appcfg)
		if err != nil {
			return nil, fmt.Errorf("初始化快照会话失败: %w", err)
		}
		return sess, nil
	}
	sess, err := chrome.InitChromeSession(ctx, appcfg)
	if err != nil {
		return nil, fmt.Errorf("初始化浏览器会话失败: %w", err)
	}
	return sess, nil
}
