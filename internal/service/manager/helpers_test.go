package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/LouYuanbo1/postmanager/internal/domain/model"
	"github.com/LouYuanbo1/postmanager/internal/infra/credential"
	"github.com/LouYuanbo1/postmanager/internal/infra/crawler/types"
	"github.com/LouYuanbo1/postmanager/param"
)

type fakeRow struct {
	ID      string
	Status  string
	Title   string
	AreaCat string
	Date    string
	// Controls 为空时按状态使用默认按钮
	Controls []string
}

func activeRow(id, title string) fakeRow {
	return fakeRow{ID: id, Status: "Active", Title: title, AreaCat: "sfbay - sfc furniture - by owner", Date: "2024-03-05 14:30"}
}

func deletedRow(id, title string) fakeRow {
	return fakeRow{ID: id, Status: "Deleted", Title: title, AreaCat: "sfbay free stuff", Date: "2024-03-01 09:00"}
}

func defaultControls(status string) []string {
	switch status {
	case "Active":
		return []string{"display", "edit", "delete", "renew"}
	case "Deleted":
		return []string{"display", "repost", "undelete"}
	}
	return nil
}

type fakeHandle struct {
	gen  uint64
	page int
	id   string
	kind string
}

func (h fakeHandle) Generation() uint64 { return h.gen }

type invocation struct {
	Page int
	ID   string
	Kind string
}

// fakeSource 模拟账户页面. 每次获取生成新的句柄代号, 成功触发后旧句柄全部作废.
type fakeSource struct {
	pages map[int][]fakeRow
	gen   types.Generation

	fetches []int
	invoked []invocation

	// onInvoke 决定触发是否成功, 并可以修改页面; 为空时总是成功且不修改页面
	onInvoke func(s *fakeSource, h fakeHandle) (bool, error)
	fetchErr error
}

func newFakeSource(pages map[int][]fakeRow) *fakeSource {
	return &fakeSource{pages: pages}
}

func (s *fakeSource) FetchListingPage(ctx context.Context, page int) (*types.RawPageElements, error) {
	s.fetches = append(s.fetches, page)
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	gen := s.gen.Next()
	raw := &types.RawPageElements{PageNumber: page}
	for _, row := range s.pages[page] {
		raw.Rows++
		raw.Statuses = append(raw.Statuses, row.Status)
		controls := row.Controls
		if controls == nil {
			controls = defaultControls(row.Status)
		}
		for _, c := range controls {
			raw.Controls = append(raw.Controls, types.ControlElement{
				Value:  c,
				Handle: fakeHandle{gen: gen, page: page, id: row.ID, kind: c},
			})
		}
		raw.Titles = append(raw.Titles, row.Title)
		raw.AreaCategories = append(raw.AreaCategories, row.AreaCat)
		raw.Dates = append(raw.Dates, row.Date, "2024-04-05 14:30")
		raw.PostingIDs = append(raw.PostingIDs, row.ID)
	}
	return raw, nil
}

func (s *fakeSource) InvokeControl(ctx context.Context, handle types.ControlHandle) (bool, error) {
	if err := s.gen.Check(handle); err != nil {
		return false, err
	}
	h, ok := handle.(fakeHandle)
	if !ok {
		return false, fmt.Errorf("unexpected handle %T", handle)
	}
	s.invoked = append(s.invoked, invocation{Page: h.page, ID: h.id, Kind: h.kind})
	clicked := true
	if s.onInvoke != nil {
		var err error
		if clicked, err = s.onInvoke(s, h); err != nil {
			return false, err
		}
	}
	if clicked {
		s.gen.Invalidate()
	}
	return clicked, nil
}

// removeRow 模拟删除操作后该行从页面消失
func (s *fakeSource) removeRow(page int, id string) {
	rows := s.pages[page]
	for i, r := range rows {
		if r.ID == id {
			s.pages[page] = append(rows[:i:i], rows[i+1:]...)
			return
		}
	}
}

func (s *fakeSource) invokedIDs() []string {
	var ids []string
	for _, inv := range s.invoked {
		ids = append(ids, inv.ID)
	}
	return ids
}

type fakeSession struct {
	*fakeSource
	calls     []string
	loginErr  error
	logoutErr error
	closeErr  error
	creds     credential.Credentials
}

func (s *fakeSession) Login(ctx context.Context, creds credential.Credentials) error {
	s.calls = append(s.calls, "login")
	s.creds = creds
	return s.loginErr
}

func (s *fakeSession) Logout(ctx context.Context) error {
	s.calls = append(s.calls, "logout")
	return s.logoutErr
}

func (s *fakeSession) Close() error {
	s.calls = append(s.calls, "close")
	return s.closeErr
}

func mustCriteria(t testing.TB, p param.Criteria) *Criteria {
	t.Helper()
	c, err := NewCriteria(p)
	if err != nil {
		t.Fatalf("NewCriteria: %v", err)
	}
	return c
}

func actioned(ids ...string) *model.ActionedIDs {
	a := model.NewActionedIDs()
	for _, id := range ids {
		a.Add(id)
	}
	return a
}
