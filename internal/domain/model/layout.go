package model

import "maps"

// Layout 账户页面的行结构: 每种状态对应的按钮数量, 以及每行的日期条目数.
// 启动时构建一次, 之后只读.
type Layout struct {
	controlsPerStatus map[Status]int
	datesPerRow       int
}

func NewLayout(controlsPerStatus map[Status]int, datesPerRow int) Layout {
	return Layout{
		controlsPerStatus: maps.Clone(controlsPerStatus),
		datesPerRow:       datesPerRow,
	}
}

// DefaultLayout 对应当前的页面: Active 行 4 个按钮, Deleted 行 3 个按钮, 每行两个日期
func DefaultLayout() Layout {
	return NewLayout(map[Status]int{StatusActive: 4, StatusDeleted: 3}, 2)
}

// ControlsFor 返回该状态的行所占用的按钮数量, 未知状态返回 false
func (l Layout) ControlsFor(status Status) (int, bool) {
	n, ok := l.controlsPerStatus[status]
	return n, ok
}

func (l Layout) DatesPerRow() int {
	return l.datesPerRow
}
