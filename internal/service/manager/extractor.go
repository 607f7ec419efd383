package service

import (
	"fmt"
	"strings"

	"github.com/LouYuanbo1/postmanager/internal/domain/model"
	"github.com/LouYuanbo1/postmanager/internal/infra/crawler/types"
	"github.com/araddon/dateparse"
)

// Extractor 把一页的原始元素组还原为帖子记录
type Extractor struct {
	layout model.Layout
}

func NewExtractor(layout model.Layout) *Extractor {
	return &Extractor{layout: layout}
}

// Extract 按行顺序构建记录.
// 按钮列表是所有行平铺在一起的, 每行占用的数量由该行状态决定,
// 所以必须先读状态, 再从当前偏移处切出对应数量的按钮. 任何一行出错都直接返回,
// 因为错位会使后续每一行的按钮对应关系全部出错.
func (ex *Extractor) Extract(raw *types.RawPageElements) ([]model.PostingRecord, error) {
	if raw == nil {
		return nil, &ExtractionAlignmentError{Reason: "no page elements"}
	}
	if err := ex.checkGroups(raw); err != nil {
		return nil, err
	}

	datesPerRow := ex.layout.DatesPerRow()
	records := make([]model.PostingRecord, 0, raw.Rows)
	offset := 0
	for i := range raw.Rows {
		id := strings.TrimSpace(raw.PostingIDs[i])
		fail := func(format string, args ...any) error {
			return &ExtractionAlignmentError{Page: raw.PageNumber, Row: i, PostingID: id, Reason: fmt.Sprintf(format, args...)}
		}
		if id == "" {
			return nil, fail("empty posting id")
		}

		status := model.Status(strings.TrimSpace(raw.Statuses[i]))
		width, ok := ex.layout.ControlsFor(status)
		if !ok {
			return nil, fail("unknown status %q", status)
		}
		if offset+width > len(raw.Controls) {
			return nil, fail("status %s needs %d controls at offset %d, only %d left", status, width, offset, len(raw.Controls)-offset)
		}
		actions := make(map[model.ActionKind]types.ControlHandle, width)
		for _, control := range raw.Controls[offset : offset+width] {
			kind := model.ActionKind(strings.TrimSpace(control.Value))
			if kind == "" {
				return nil, fail("control without value")
			}
			if _, dup := actions[kind]; dup {
				return nil, fail("duplicate %q control", kind)
			}
			actions[kind] = control.Handle
		}
		offset += width

		area, subArea, category, err := ParseAreaCategory(raw.AreaCategories[i])
		if err != nil {
			return nil, fail("%v", err)
		}

		// 每行两个日期, 只有第一个是发布日期
		dateText := strings.TrimSpace(raw.Dates[i*datesPerRow])
		postedAt, err := dateparse.ParseAny(dateText)
		if err != nil {
			return nil, fail("unparsable posted date %q: %v", dateText, err)
		}

		records = append(records, model.PostingRecord{
			ID:       id,
			Status:   status,
			Title:    strings.TrimSpace(raw.Titles[i]),
			Area:     area,
			SubArea:  subArea,
			Category: category,
			PostedAt: postedAt,
			Actions:  actions,
		})
	}

	if offset != len(raw.Controls) {
		return nil, &ExtractionAlignmentError{
			Page:   raw.PageNumber,
			Row:    raw.Rows,
			Reason: fmt.Sprintf("%d controls left over after %d rows", len(raw.Controls)-offset, raw.Rows),
		}
	}
	return records, nil
}

func (ex *Extractor) checkGroups(raw *types.RawPageElements) error {
	if ex.layout.DatesPerRow() < 1 {
		return &ExtractionAlignmentError{Page: raw.PageNumber, Reason: "layout has no dates per row"}
	}
	if raw.Rows < 0 {
		return &ExtractionAlignmentError{Page: raw.PageNumber, Reason: fmt.Sprintf("negative row count %d", raw.Rows)}
	}
	groups := []struct {
		name string
		have int
		want int
	}{
		{"statuses", len(raw.Statuses), raw.Rows},
		{"titles", len(raw.Titles), raw.Rows},
		{"area/category texts", len(raw.AreaCategories), raw.Rows},
		{"posting ids", len(raw.PostingIDs), raw.Rows},
		{"dates", len(raw.Dates), raw.Rows * ex.layout.DatesPerRow()},
	}
	for _, g := range groups {
		if g.have == g.want {
			continue
		}
		// 数量少时出错的是第一条缺失数据的行, 数量多时多出的元素使所有行错位, 记为最后一行之后
		row := min(g.have, g.want)
		if g.name == "dates" {
			row /= ex.layout.DatesPerRow()
		}
		return &ExtractionAlignmentError{
			Page:   raw.PageNumber,
			Row:    row,
			Reason: fmt.Sprintf("%s group has %d entries, want exactly %d", g.name, g.have, g.want),
		}
	}
	return nil
}

// ParseAreaCategory 拆分 "area/category" 文本.
// 第一个词是地区; 若第二个词是 "-", 第三个词是子地区, 其余为类别; 否则其余全部为类别.
func ParseAreaCategory(text string) (area, subArea, category string, err error) {
	tokens := strings.Fields(text)
	switch {
	case len(tokens) == 0:
		return "", "", "", fmt.Errorf("empty area/category text")
	case len(tokens) == 1:
		return tokens[0], "", "", nil
	case tokens[1] == "-":
		if len(tokens) < 3 {
			return "", "", "", fmt.Errorf("area/category text %q has a separator but no sub-area", text)
		}
		return tokens[0], tokens[2], strings.Join(tokens[3:], " "), nil
	default:
		return tokens[0], "", strings.Join(tokens[1:], " "), nil
	}
}
