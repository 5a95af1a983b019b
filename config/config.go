package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/gcodesolid/convert"
	canvaskernel "github.com/ByLCY/gcodesolid/kernel/canvas"
	"github.com/ByLCY/gcodesolid/outline"
)

// Infeasible policies for segments whose outline cannot be built.
const (
	SkipSegment = string(convert.SkipSegment)
	AbortLayer  = string(convert.AbortLayer)
)

// DefaultNameTemplate yields <base>-<layer>.<ext> next to the input.
const DefaultNameTemplate = "${base}-${layer}.${ext}"

// Config 是一次转换的全部设置，可由 YAML 文件加载，再被命令行参数覆盖。
type Config struct {
	Input string `yaml:"input"`

	LineWidth   float64 `yaml:"line_width"`
	LayerHeight float64 `yaml:"layer_height"`
	Eps         float64 `yaml:"eps"`
	Accuracy    string  `yaml:"accuracy"`

	// HeightFallback builds layers without a declared height at LayerHeight
	// instead of skipping them.
	HeightFallback bool `yaml:"height_fallback"`

	Format       string `yaml:"format"`
	OutputDir    string `yaml:"output_dir"` // empty: directory of the input
	NameTemplate string `yaml:"name_template"`

	OnInfeasible string `yaml:"on_infeasible"`
	Workers      int    `yaml:"workers"`

	MetricsFile string `yaml:"metrics_file"`
	LogLevel    string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LineWidth:    0.4,
		LayerHeight:  0.2,
		Eps:          1e-8,
		Accuracy:     string(outline.Fillet),
		Format:       string(canvaskernel.SVG),
		NameTemplate: DefaultNameTemplate,
		OnInfeasible: SkipSegment,
		Workers:      runtime.NumCPU(),
		LogLevel:     "info",
	}
}

// Load reads a YAML file on top of Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	cfg.fill()
	return cfg, nil
}

// fill restores defaults for fields a config file zeroed out.
func (c *Config) fill() {
	def := Default()
	if c.LineWidth <= 0 {
		c.LineWidth = def.LineWidth
	}
	if c.LayerHeight <= 0 {
		c.LayerHeight = def.LayerHeight
	}
	if c.Eps <= 0 {
		c.Eps = def.Eps
	}
	if c.Accuracy == "" {
		c.Accuracy = def.Accuracy
	}
	if c.Format == "" {
		c.Format = def.Format
	}
	if c.NameTemplate == "" {
		c.NameTemplate = def.NameTemplate
	}
	if c.OnInfeasible == "" {
		c.OnInfeasible = def.OnInfeasible
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate 检查配置是否完整且取值合法，返回第一个发现的问题。
func (c Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("缺少输入文件路径")
	}
	if c.LineWidth <= 0 {
		return fmt.Errorf("line_width 必须为正数，当前为 %g", c.LineWidth)
	}
	if c.LayerHeight <= 0 {
		return fmt.Errorf("layer_height 必须为正数，当前为 %g", c.LayerHeight)
	}
	if c.Eps <= 0 {
		return fmt.Errorf("eps 必须为正数，当前为 %g", c.Eps)
	}
	if _, err := outline.ParseMode(c.Accuracy); err != nil {
		return err
	}
	if _, err := canvaskernel.ParseFormat(c.Format); err != nil {
		return err
	}
	if c.OnInfeasible != SkipSegment && c.OnInfeasible != AbortLayer {
		return fmt.Errorf("on_infeasible 只能是 %q 或 %q，当前为 %q", SkipSegment, AbortLayer, c.OnInfeasible)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers 必须为正数，当前为 %d", c.Workers)
	}
	return nil
}
