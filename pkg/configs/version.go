package configs

// AppName 应用名称.
const AppName = "mediavault"

// AppVersion 应用版本，发布时通过 ldflags 覆盖.
var AppVersion = "dev"
