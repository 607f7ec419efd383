package collector

import (
	"context"

	"github.com/LouYuanbo1/postmanager/internal/infra/credential"
	"github.com/LouYuanbo1/postmanager/internal/infra/crawler/types"
)

// CollyCollector 从已保存的账户页面(本地文件或 http 地址)读取帖子列表.
// 页面是只读的: 登录/登出不做任何事, 按钮永远不会被触发.
type CollyCollector interface {
	Login(ctx context.Context, creds credential.Credentials) error
	Logout(ctx context.Context) error
	FetchListingPage(ctx context.Context, page int) (*types.RawPageElements, error)
	InvokeControl(ctx context.Context, handle types.ControlHandle) (bool, error)
	Close() error
}
