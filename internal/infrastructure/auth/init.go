package auth

import "github.com/google/wire"

// ProviderSet 暴露身份解析中间件构造器。
var ProviderSet = wire.NewSet(ProvideAuthenticator)
