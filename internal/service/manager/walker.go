package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LouYuanbo1/postmanager/internal/domain/model"
	"github.com/LouYuanbo1/postmanager/param"
	"github.com/google/uuid"
)

// PostManager 按页遍历账户页面, 对满足条件的帖子逐个执行操作
type PostManager interface {
	ManagePosts(ctx context.Context, kind model.ActionKind, dryRun bool) (*Result, error)
}

// Result 一次运行的结果. 运行中止时也会返回已完成的部分.
type Result struct {
	RunID       string
	Action      model.ActionKind
	DryRun      bool
	ActionedIDs []string
	// Fetches 页面获取次数
	Fetches int
	// Pages 已经处理完的页码
	Pages []int
}

type postManager struct {
	source    PageSource
	criteria  *Criteria
	extractor *Extractor
	opts      param.ManageOptions
	logger    *slog.Logger
}

func InitPostManager(source PageSource, criteria *Criteria, layout model.Layout, opts *param.ManageOptions, logger *slog.Logger) (PostManager, error) {
	if source == nil {
		return nil, errors.New("页面来源不能为空")
	}
	if criteria == nil {
		return nil, errors.New("筛选条件不能为空")
	}
	o := param.ManageOptions{}
	if opts != nil {
		if !opts.IsValid() {
			return nil, fmt.Errorf("每页操作上限无效: %d", opts.MaxActionsPerPage)
		}
		o = *opts
	}
	if o.MaxActionsPerPage == 0 {
		o.MaxActionsPerPage = param.DefaultMaxActionsPerPage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &postManager{
		source:    source,
		criteria:  criteria,
		extractor: NewExtractor(layout),
		opts:      o,
		logger:    logger,
	}, nil
}

func (pm *postManager) ManagePosts(ctx context.Context, kind model.ActionKind, dryRun bool) (*Result, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("未知的操作类型: %q", kind)
	}

	result := &Result{
		RunID:  uuid.NewString(),
		Action: kind,
		DryRun: dryRun,
	}
	logger := pm.logger.With("run_id", result.RunID, "action", string(kind), "dry_run", dryRun)
	for _, w := range pm.criteria.Warnings() {
		logger.Warn("筛选条件冲突", "used", w.Used, "ignored", w.Ignored)
	}

	actioned := model.NewActionedIDs()
	pages := pm.criteria.PageNumbers()
	logger.Info("开始管理帖子", "pages", pages)

	for _, page := range pages {
		err := pm.managePage(ctx, logger.With("page", page), page, kind, dryRun, actioned, result)
		result.ActionedIDs = actioned.InOrder()
		if err != nil {
			logger.Error("运行中止", "error", err)
			return result, err
		}
		result.Pages = append(result.Pages, page)
	}

	logger.Info("帖子管理完成", "actioned", actioned.Len(), "fetches", result.Fetches)
	return result, nil
}

// managePage 反复获取同一页, 每次成功操作后整页重新获取, 直到一轮扫描没有任何操作
func (pm *postManager) managePage(
	ctx context.Context,
	logger *slog.Logger,
	page int,
	kind model.ActionKind,
	dryRun bool,
	actioned *model.ActionedIDs,
	result *Result,
) error {
	actedOnPage := 0
	skipped := make(map[string]struct{})
	for {
		if err := ctx.Err(); err != nil {
			return &RunError{Page: page, Err: err}
		}

		raw, err := pm.source.FetchListingPage(ctx, page)
		result.Fetches++
		if err != nil {
			return &RunError{Page: page, Err: fmt.Errorf("获取页面失败: %w", err)}
		}
		records, err := pm.extractor.Extract(raw)
		if err != nil {
			runErr := &RunError{Page: page, Err: err}
			var alignErr *ExtractionAlignmentError
			if errors.As(err, &alignErr) {
				runErr.PostingID = alignErr.PostingID
			}
			return runErr
		}
		logger.Debug("页面已获取", "rows", len(records))

		id, err := pm.scan(ctx, logger, page, records, kind, dryRun, actioned, actedOnPage, skipped)
		if err != nil {
			return err
		}
		if id == "" {
			logger.Debug("本页没有更多匹配的帖子", "actioned_on_page", actedOnPage)
			return nil
		}
		actioned.Add(id)
		actedOnPage++
	}
}

// scan 按页面顺序查找第一条匹配并成功执行操作的记录, 返回其ID; 没有则返回空字符串.
// 一旦操作成功立即返回, 剩余记录的句柄已不可用.
func (pm *postManager) scan(
	ctx context.Context,
	logger *slog.Logger,
	page int,
	records []model.PostingRecord,
	kind model.ActionKind,
	dryRun bool,
	actioned *model.ActionedIDs,
	actedOnPage int,
	skipped map[string]struct{},
) (string, error) {
	for i := range records {
		r := &records[i]
		if !pm.criteria.Matches(r, actioned) {
			continue
		}
		if actedOnPage >= pm.opts.MaxActionsPerPage {
			return "", &RunError{Page: page, PostingID: r.ID, Err: ErrRefetchLimit}
		}

		ok, err := Dispatch(ctx, pm.source, r, kind, dryRun)
		if err != nil {
			var missing *MissingActionError
			if errors.As(err, &missing) && !pm.opts.Strict {
				if _, seen := skipped[r.ID]; !seen {
					skipped[r.ID] = struct{}{}
					logger.Warn("跳过缺少操作按钮的帖子", "posting_id", r.ID, "status", string(r.Status))
				}
				continue
			}
			return "", &RunError{Page: page, PostingID: r.ID, Err: err}
		}
		if !ok {
			logger.Warn("按钮未被触发, 继续扫描", "posting_id", r.ID)
			continue
		}

		logger.Info("已执行操作", "posting_id", r.ID, "title", r.Title)
		return r.ID, nil
	}
	return "", nil
}
