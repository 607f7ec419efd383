package service

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/LouYuanbo1/postmanager/internal/domain/model"
	"github.com/LouYuanbo1/postmanager/param"
	"github.com/araddon/dateparse"
)

// Criteria 编译后的筛选条件, 构建后只读
type Criteria struct {
	postingIDs  map[string]struct{}
	statuses    map[model.Status]struct{}
	titles      map[string]struct{}
	titlesRegex *regexp.Regexp
	areas       map[string]struct{}
	subAreas    map[string]struct{}
	categories  map[string]struct{}
	postedDates []time.Time
	pages       []int

	warnings []*ConfigurationError
}

// NewCriteria 编译用户给出的筛选条件.
// 互斥条件同时给出时以显式的一方为准并记录警告; 正则或日期无法解析时返回错误.
func NewCriteria(p param.Criteria) (*Criteria, error) {
	c := &Criteria{
		postingIDs: toSet(p.PostingIDs, func(s string) string { return s }),
		statuses:   toSet(p.Statuses, func(s string) model.Status { return model.Status(s) }),
		titles:     toSet(p.Titles, func(s string) string { return s }),
		areas:      toSet(p.Areas, func(s string) string { return s }),
		subAreas:   toSet(p.SubAreas, func(s string) string { return s }),
		categories: toSet(p.Categories, func(s string) string { return s }),
	}

	for _, text := range p.PostedDates {
		t, err := dateparse.ParseAny(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("解析发布日期 %q 失败: %w", text, err)
		}
		c.postedDates = append(c.postedDates, t)
	}

	if len(p.Titles) > 0 {
		if p.TitlesRegex != "" {
			c.warnings = append(c.warnings, &ConfigurationError{Used: "titles", Ignored: "titles_regex"})
		}
	} else if p.TitlesRegex != "" {
		// 只要求从开头匹配, 不要求匹配到结尾
		re, err := regexp.Compile(`^(?:` + p.TitlesRegex + `)`)
		if err != nil {
			return nil, fmt.Errorf("编译标题正则 %q 失败: %w", p.TitlesRegex, err)
		}
		c.titlesRegex = re
	}

	if len(p.Pages) > 0 {
		if p.FromPage != nil {
			c.warnings = append(c.warnings, &ConfigurationError{Used: "pages", Ignored: "from_page"})
		}
		if p.ToPage != nil {
			c.warnings = append(c.warnings, &ConfigurationError{Used: "pages", Ignored: "to_page"})
		}
		c.pages = slices.Clone(p.Pages)
	} else {
		from, to := param.DefaultFromPage, param.DefaultToPage
		if p.FromPage != nil {
			from = *p.FromPage
		}
		if p.ToPage != nil {
			to = *p.ToPage
		}
		if from < 1 || to < from {
			return nil, fmt.Errorf("页码范围无效: from_page=%d to_page=%d", from, to)
		}
		for n := from; n <= to; n++ {
			c.pages = append(c.pages, n)
		}
	}
	for _, n := range c.pages {
		if n < 1 {
			return nil, fmt.Errorf("页码无效: %d", n)
		}
	}

	return c, nil
}

func toSet[T comparable](values []string, conv func(string) T) map[T]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[T]struct{}, len(values))
	for _, v := range values {
		set[conv(v)] = struct{}{}
	}
	return set
}

// Warnings 构建时发现的互斥条件冲突
func (c *Criteria) Warnings() []*ConfigurationError {
	return slices.Clone(c.warnings)
}

// PageNumbers 需要遍历的页码, 按给出的顺序
func (c *Criteria) PageNumbers() []int {
	return slices.Clone(c.pages)
}

// Matches 判断记录是否满足所有条件. 空条件不做限制, 已处理过的ID一律排除.
func (c *Criteria) Matches(r *model.PostingRecord, actioned *model.ActionedIDs) bool {
	if actioned.Has(r.ID) {
		return false
	}
	if !inSet(c.postingIDs, r.ID) {
		return false
	}
	if !inSet(c.statuses, r.Status) {
		return false
	}
	if c.titles != nil {
		if _, ok := c.titles[r.Title]; !ok {
			return false
		}
	} else if c.titlesRegex != nil && !c.titlesRegex.MatchString(r.Title) {
		return false
	}
	if !inSet(c.areas, r.Area) {
		return false
	}
	if !inSet(c.subAreas, r.SubArea) {
		return false
	}
	if !inSet(c.categories, r.Category) {
		return false
	}
	if len(c.postedDates) > 0 && !slices.ContainsFunc(c.postedDates, r.PostedAt.Equal) {
		return false
	}
	return true
}

func inSet[T comparable](set map[T]struct{}, v T) bool {
	if set == nil {
		return true
	}
	_, ok := set[v]
	return ok
}
