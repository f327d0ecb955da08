package ols

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// 数值口径的可调参数, 不配置时走编译期默认值
type Config struct {
	CollinearTol float64 `yaml:"collinear_tol"` // QR对角线判共线阈值
	Alpha        float64 `yaml:"alpha"`         // 置信区间显著性水平
}

const (
	DEFAULT_COLLINEAR_TOL = 1e-10
	DEFAULT_ALPHA         = 0.05
)

// 用 atomic.Value 存当前配置，支持热更新时无锁读取
var cfgValue atomic.Value // stores *Config

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read yaml: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if c.CollinearTol == 0 {
		c.CollinearTol = DEFAULT_COLLINEAR_TOL
	}
	if c.Alpha == 0 {
		c.Alpha = DEFAULT_ALPHA
	}
	if c.CollinearTol < 0 {
		return nil, fmt.Errorf("invalid collinear_tol: %v", c.CollinearTol)
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return nil, fmt.Errorf("invalid alpha: %v", c.Alpha)
	}
	return &c, nil
}

func Init(path string) error {
	c, err := Load(path)
	if err != nil {
		return err
	}
	cfgValue.Store(c)
	return nil
}

// O(1)读取: 未初始化则返回默认值
func GetCollinearTol() float64 {
	cAny := cfgValue.Load()
	if cAny == nil {
		return DEFAULT_COLLINEAR_TOL
	}
	return cAny.(*Config).CollinearTol
}

func GetAlpha() float64 {
	cAny := cfgValue.Load()
	if cAny == nil {
		return DEFAULT_ALPHA
	}
	return cAny.(*Config).Alpha
}
