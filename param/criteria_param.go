package param

// Criteria 用户给出的筛选条件, 原样来自条件文件或命令行.
// 所有列表为空时表示该字段不做限制.
type Criteria struct {
	Statuses []string `yaml:"statuses" json:"statuses"`
	// Pages 与 FromPage/ToPage 互斥, 同时给出时以 Pages 为准
	Pages    []int `yaml:"pages" json:"pages"`
	FromPage *int  `yaml:"from_page" json:"from_page"`
	ToPage   *int  `yaml:"to_page" json:"to_page"`

	Areas       []string `yaml:"areas" json:"areas"`
	SubAreas    []string `yaml:"sub_areas" json:"sub_areas"`
	Categories  []string `yaml:"categories" json:"categories"`
	PostedDates []string `yaml:"posted_dates" json:"posted_dates"`
	PostingIDs  []string `yaml:"posting_ids" json:"posting_ids"`

	// Titles 与 TitlesRegex 互斥, 同时给出时以 Titles 为准
	Titles      []string `yaml:"titles" json:"titles"`
	TitlesRegex string   `yaml:"titles_regex" json:"titles_regex"`
}

const (
	DefaultFromPage = 1
	DefaultToPage   = 10
)

// Int 返回指针, 方便构造 FromPage/ToPage
func Int(v int) *int {
	return &v
}
