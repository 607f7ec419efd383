package param

// ManageOptions 控制一次批量管理运行的行为
type ManageOptions struct {
	// Strict 为 true 时, 某一行缺少所请求的操作按钮会中止整个运行;
	// 否则只记录警告并跳过该行
	Strict bool `json:"strict"`
	// MaxActionsPerPage 同一页码上最多执行的操作次数, 超过即中止.
	// 重新发布会产生新的帖子ID, 没有上限时可能在同一页上无限循环. 0 表示使用页面行数上限.
	MaxActionsPerPage int `json:"max_actions_per_page"`
}

func (mo *ManageOptions) IsValid() bool {
	return mo.MaxActionsPerPage >= 0
}

// DefaultMaxActionsPerPage 与账户页面每页的行数上限一致
const DefaultMaxActionsPerPage = 50
