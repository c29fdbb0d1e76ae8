package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，GACHA_POSTGRES_MASTER_HOST 对应 postgres.master.host
const EnvPrefix = "GACHA"

var (
	configPath string
	logPath    string
)

// LoadConfig 加载配置到 target
// 优先级：命令行参数 > 环境变量 > 配置文件 > 默认值
func LoadConfig(target any, opts ...config.Option) error {
	execDir, err := GetExecDir()
	if err != nil {
		return fmt.Errorf("failed to get executable directory: %w", err)
	}
	defaultConfig := filepath.Join(execDir, "config.yaml")
	defaultLog := filepath.Join(execDir, "logs", AppName+".log")

	if pflag.Lookup("config") == nil {
		pflag.StringVarP(&configPath, "config", "c", defaultConfig, "path to config file")
	}
	if pflag.Lookup("log.path") == nil {
		pflag.StringVar(&logPath, "log.path", defaultLog, "output path for logs")
	}
	if !pflag.Parsed() {
		pflag.Parse()
	}

	path := configPath
	if !pflag.CommandLine.Changed("config") {
		if env := os.Getenv(EnvPrefix + "_CONFIG"); env != "" {
			path = env
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("config file not found at %s", path)
	}
	configPath = path

	v := viper.New()
	v.SetDefault("log.output_path", defaultLog)
	if pflag.CommandLine.Changed("log.path") {
		v.Set("log.output_path", logPath)
	}

	mgr := config.NewManager(append(opts, config.WithViper(v), config.WithEnvPrefix(EnvPrefix))...)
	if err := mgr.LoadFile(configPath); err != nil {
		return err
	}
	if err := mgr.Unmarshal(target); err != nil {
		return err
	}

	logPath = mgr.GetString("log.output_path")
	if v.GetBool("log.enable_file") {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return nil
}

// GetExecDir 可执行文件所在目录（解析符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}

// GetConfigPath 最终使用的配置文件路径
func GetConfigPath() string {
	return configPath
}
