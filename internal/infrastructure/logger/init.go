package logger

import "github.com/google/wire"

// ProviderSet wires the root logger for dependency injection.
var ProviderSet = wire.NewSet(NewLogger)
