package common

// Version is set at build time with -ldflags "-X .../common.Version=v1.2.3".
var Version = "dev"

// PackageName is the metrics namespace and default log service tag.
const PackageName = "civicseal"
