package app

import (
	"fmt"
	"runtime"
)

// 编译时通过 -ldflags "-X 'github.com/lk2023060901/xdooria-gacha/pkg/app.Version=v1.0.0'" 注入
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	AppName   = "gacha"
)

// Info 版本信息
type Info struct {
	AppName   string `json:"app_name"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo 获取当前版本信息
func GetInfo() Info {
	return Info{
		AppName:   AppName,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit: %s, build: %s, go: %s, plat: %s)",
		i.AppName, i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}
