package gcs

import "github.com/google/wire"

// ProviderSet 暴露上传签名器构造器。
var ProviderSet = wire.NewSet(ProvideUploadSigner)
