package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/LouYuanbo1/postmanager/internal/domain/model"
	"github.com/LouYuanbo1/postmanager/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, src PageSource, criteria param.Criteria, opts *param.ManageOptions) PostManager {
	t.Helper()
	pm, err := InitPostManager(src, mustCriteria(t, criteria), model.DefaultLayout(), opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return pm
}

func TestManagePosts_DryRunScenario(t *testing.T) {
	src := newFakeSource(map[int][]fakeRow{
		1: {activeRow("1", "table"), activeRow("2", "chair"), deletedRow("3", "lamp")},
	})
	pm := newTestManager(t, src, param.Criteria{
		Statuses:   []string{"Active"},
		PostingIDs: []string{"1", "2"},
		Pages:      []int{1},
	}, nil)

	result, err := pm.ManagePosts(context.Background(), model.ActionDisplay, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, result.ActionedIDs)
	assert.Equal(t, []int{1, 1, 1}, src.fetches)
	assert.Equal(t, 3, result.Fetches)
	assert.Equal(t, []int{1}, result.Pages)
	assert.Empty(t, src.invoked)
	assert.True(t, result.DryRun)
	assert.Equal(t, model.ActionDisplay, result.Action)
	assert.NotEmpty(t, result.RunID)
}

func TestManagePosts_DryRunIsIdempotent(t *testing.T) {
	src := newFakeSource(map[int][]fakeRow{
		1: {activeRow("1", "table"), deletedRow("2", "lamp"), activeRow("3", "desk")},
		2: {activeRow("4", "bike")},
	})
	pm := newTestManager(t, src, param.Criteria{FromPage: param.Int(1), ToPage: param.Int(3)}, nil)

	first, err := pm.ManagePosts(context.Background(), model.ActionDisplay, true)
	require.NoError(t, err)
	second, err := pm.ManagePosts(context.Background(), model.ActionDisplay, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3", "4"}, first.ActionedIDs)
	assert.Equal(t, first.ActionedIDs, second.ActionedIDs)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, []int{1, 2, 3}, first.Pages)
}

func TestManagePosts_RefetchAfterSuccess(t *testing.T) {
	src := newFakeSource(map[int][]fakeRow{
		1: {activeRow("1", "a"), activeRow("2", "b"), activeRow("3", "c")},
	})
	var fetchesAtInvoke []int
	src.onInvoke = func(s *fakeSource, h fakeHandle) (bool, error) {
		fetchesAtInvoke = append(fetchesAtInvoke, len(s.fetches))
		s.removeRow(h.page, h.id)
		return true, nil
	}
	pm := newTestManager(t, src, param.Criteria{Pages: []int{1}}, nil)

	result, err := pm.ManagePosts(context.Background(), model.ActionDelete, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, src.invokedIDs())
	assert.Equal(t, []string{"1", "2", "3"}, result.ActionedIDs)
	// 每次成功操作之前都恰好有一次新的页面获取
	assert.Equal(t, []int{1, 2, 3}, fetchesAtInvoke)
	assert.Equal(t, 4, result.Fetches)
	assert.Empty(t, src.pages[1])
}

func TestManagePosts_SecondRowSuccessRefetches(t *testing.T) {
	src := newFakeSource(map[int][]fakeRow{
		1: {activeRow("1", "a"), activeRow("2", "b"), activeRow("3", "c")},
	})
	pm := newTestManager(t, src, param.Criteria{PostingIDs: []string{"2"}, Pages: []int{1}}, nil)

	result, err := pm.ManagePosts(context.Background(), model.ActionDisplay, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, src.invokedIDs())
	assert.Equal(t, []int{1, 1}, src.fetches)
	assert.Equal(t, []string{"2"}, result.ActionedIDs)
}

func TestManagePosts_DispatchFailureContinuesScan(t *testing.T) {
	src := newFakeSource(map[int][]fakeRow{
		1: {activeRow("1", "a"), activeRow("2", "b")},
	})
	src.onInvoke = func(s *fakeSource, h fakeHandle) (bool, error) {
		return h.id != "1", nil
	}
	pm := newTestManager(t, src, param.Criteria{Pages: []int{1}}, nil)

	result, err := pm.ManagePosts(context.Background(), model.ActionDisplay, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, result.ActionedIDs)
	// 第一次获取: 1 失败, 2 成功; 第二次获取: 1 再次失败, 2 已处理
	assert.Equal(t, []string{"1", "2", "1"}, src.invokedIDs())
	assert.Equal(t, []int{1, 1}, src.fetches)
}

func TestManagePosts_MissingAction(t *testing.T) {
	pages := func() map[int][]fakeRow {
		return map[int][]fakeRow{1: {activeRow("1", "a"), deletedRow("2", "b")}}
	}

	t.Run("non-strict skips the row", func(t *testing.T) {
		src := newFakeSource(pages())
		pm := newTestManager(t, src, param.Criteria{Pages: []int{1}}, nil)
		result, err := pm.ManagePosts(context.Background(), model.ActionRepost, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"2"}, result.ActionedIDs)
		assert.Equal(t, []string{"2"}, src.invokedIDs())
	})

	t.Run("strict aborts the run", func(t *testing.T) {
		src := newFakeSource(pages())
		pm := newTestManager(t, src, param.Criteria{Pages: []int{1}}, &param.ManageOptions{Strict: true})
		result, err := pm.ManagePosts(context.Background(), model.ActionRepost, false)

		var runErr *RunError
		require.ErrorAs(t, err, &runErr)
		assert.Equal(t, 1, runErr.Page)
		assert.Equal(t, "1", runErr.PostingID)
		var missing *MissingActionError
		assert.ErrorAs(t, err, &missing)
		assert.Empty(t, result.ActionedIDs)
		assert.Empty(t, src.invoked)
	})
}

func TestManagePosts_AlignmentAbortsRun(t *testing.T) {
	src := newFakeSource(map[int][]fakeRow{
		1: {activeRow("1", "a")},
		2: {activeRow("2", "b"), {ID: "3", Status: "Active", Title: "c", AreaCat: "sfbay bikes", Date: "2024-03-05 14:30", Controls: []string{"display", "edit"}}},
		3: {activeRow("4", "d")},
	})
	pm := newTestManager(t, src, param.Criteria{Pages: []int{1, 2, 3}}, nil)

	result, err := pm.ManagePosts(context.Background(), model.ActionDisplay, true)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, 2, runErr.Page)
	assert.Equal(t, "3", runErr.PostingID)
	var alignErr *ExtractionAlignmentError
	assert.ErrorAs(t, err, &alignErr)

	require.NotNil(t, result)
	assert.Equal(t, []int{1}, result.Pages)
	assert.Equal(t, []string{"1"}, result.ActionedIDs)
	assert.NotContains(t, src.fetches, 3)
}

func TestManagePosts_RefetchLimit(t *testing.T) {
	src := newFakeSource(map[int][]fakeRow{1: {activeRow("1", "a")}})
	// 每次操作后该行以新的ID重新出现
	src.onInvoke = func(s *fakeSource, h fakeHandle) (bool, error) {
		row := s.pages[h.page][0]
		row.ID += "r"
		s.pages[h.page][0] = row
		return true, nil
	}
	pm := newTestManager(t, src, param.Criteria{Pages: []int{1}}, &param.ManageOptions{MaxActionsPerPage: 3})

	result, err := pm.ManagePosts(context.Background(), model.ActionDisplay, false)
	require.ErrorIs(t, err, ErrRefetchLimit)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "1rrr", runErr.PostingID)
	assert.Equal(t, []string{"1", "1r", "1rr"}, result.ActionedIDs)
	assert.Equal(t, 4, result.Fetches)
}

func TestManagePosts_SourceErrors(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		src := newFakeSource(nil)
		src.fetchErr = errors.New("connection reset")
		pm := newTestManager(t, src, param.Criteria{Pages: []int{4}}, nil)
		_, err := pm.ManagePosts(context.Background(), model.ActionDisplay, true)
		var runErr *RunError
		require.ErrorAs(t, err, &runErr)
		assert.Equal(t, 4, runErr.Page)
		assert.ErrorIs(t, err, src.fetchErr)
	})

	t.Run("invoke", func(t *testing.T) {
		boom := errors.New("element detached")
		src := newFakeSource(map[int][]fakeRow{1: {activeRow("1", "a")}})
		src.onInvoke = func(*fakeSource, fakeHandle) (bool, error) { return false, boom }
		pm := newTestManager(t, src, param.Criteria{Pages: []int{1}}, nil)
		_, err := pm.ManagePosts(context.Background(), model.ActionDisplay, false)
		var runErr *RunError
		require.ErrorAs(t, err, &runErr)
		assert.Equal(t, "1", runErr.PostingID)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancelled", func(t *testing.T) {
		src := newFakeSource(map[int][]fakeRow{1: {activeRow("1", "a")}})
		pm := newTestManager(t, src, param.Criteria{Pages: []int{1}}, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := pm.ManagePosts(ctx, model.ActionDisplay, true)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, src.fetches)
	})
}

func TestManagePosts_InvalidAction(t *testing.T) {
	src := newFakeSource(nil)
	pm := newTestManager(t, src, param.Criteria{}, nil)
	_, err := pm.ManagePosts(context.Background(), model.ActionKind("renew"), true)
	require.Error(t, err)
	assert.Empty(t, src.fetches)
}

func TestInitPostManager_Validation(t *testing.T) {
	c := mustCriteria(t, param.Criteria{})
	_, err := InitPostManager(nil, c, model.DefaultLayout(), nil, nil)
	assert.Error(t, err)
	_, err = InitPostManager(newFakeSource(nil), nil, model.DefaultLayout(), nil, nil)
	assert.Error(t, err)
	_, err = InitPostManager(newFakeSource(nil), c, model.DefaultLayout(), &param.ManageOptions{MaxActionsPerPage: -1}, nil)
	assert.Error(t, err)
}
