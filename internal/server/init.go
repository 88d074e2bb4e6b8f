package server

import "github.com/google/wire"

// ProviderSet 暴露 HTTP Server、路由与指标组件。
var ProviderSet = wire.NewSet(NewTelemetry, NewRoutes, NewHTTPServer)
