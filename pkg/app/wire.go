package app

import (
	"github.com/google/wire"
)

// AppComponents Wire 收集的服务与资源
type AppComponents struct {
	Servers []Server
	Closers []Closer
}

// ProviderSet Wire 提供者集合
var ProviderSet = wire.NewSet(
	NewBaseApp,
)

// InitApp 将组件绑定到 BaseApp
func InitApp(app *BaseApp, comps AppComponents) Application {
	app.AppendServer(comps.Servers...)
	app.AppendCloser(comps.Closers...)
	return app
}

// CloserFunc 函数适配 Closer
type CloserFunc func() error

func (f CloserFunc) Close() error {
	return f()
}

// MapCloser 将无返回值的关闭函数适配为 Closer
func MapCloser(fn func()) Closer {
	return CloserFunc(func() error {
		fn()
		return nil
	})
}
