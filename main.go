package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ByLCY/gcodesolid/config"
	"github.com/ByLCY/gcodesolid/convert"
	canvaskernel "github.com/ByLCY/gcodesolid/kernel/canvas"
	"github.com/ByLCY/gcodesolid/logging"
	"github.com/ByLCY/gcodesolid/metrics"
	"github.com/ByLCY/gcodesolid/outline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		debugPath  string
		flags      = config.Default()
	)
	cmd := &cobra.Command{
		Use:   "gcodesolid [flags] <file.gcode>",
		Short: "将切片 G-code 逐层转换为挤出轮廓",
		Long: `gcodesolid 读取切片软件生成的 G-code，按层重建每段挤出的轮廓，
合并为每层一个实体并导出为 SVG 或 PDF。`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd.Flags(), flags, &cfg)
			if len(args) == 1 {
				cfg.Input = args[0]
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, debugPath, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&configPath, "config", "c", "", "YAML 配置文件路径")
	fs.StringVar(&debugPath, "debug", "", "逐层挤出结果调试 JSON 输出路径")
	bindFlags(fs, &flags)
	return cmd
}

// bindFlags 注册可覆盖配置文件的参数，默认值取自 config.Default。
func bindFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVarP(&cfg.Accuracy, "accuracy", "a", cfg.Accuracy, "轮廓精度：simple、fillet 或 chamfer")
	fs.StringVarP(&cfg.Format, "format", "f", cfg.Format, "导出格式：svg 或 pdf")
	fs.StringVarP(&cfg.OutputDir, "out-dir", "o", cfg.OutputDir, "输出目录，默认为输入文件所在目录")
	fs.StringVar(&cfg.NameTemplate, "name", cfg.NameTemplate, "输出文件名模板，可用 ${base} ${layer} ${ext}")
	fs.Float64Var(&cfg.LineWidth, "line-width", cfg.LineWidth, "未声明线宽时使用的默认线宽 (mm)")
	fs.Float64Var(&cfg.LayerHeight, "layer-height", cfg.LayerHeight, "启用 --height-fallback 时使用的层高 (mm)")
	fs.Float64Var(&cfg.Eps, "eps", cfg.Eps, "几何容差")
	fs.BoolVar(&cfg.HeightFallback, "height-fallback", cfg.HeightFallback, "缺少层高的层按 --layer-height 处理而不是跳过")
	fs.StringVar(&cfg.OnInfeasible, "on-infeasible", cfg.OnInfeasible, "轮廓无法生成时的处理方式：skip 或 abort")
	fs.IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "并行生成轮廓的协程数")
	fs.StringVar(&cfg.MetricsFile, "metrics", cfg.MetricsFile, "Prometheus textfile 输出路径")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "日志级别：debug、info、warn 或 error")
}

// applyFlags 只覆盖命令行上显式给出的参数。
func applyFlags(fs *pflag.FlagSet, flags config.Config, cfg *config.Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "accuracy":
			cfg.Accuracy = flags.Accuracy
		case "format":
			cfg.Format = flags.Format
		case "out-dir":
			cfg.OutputDir = flags.OutputDir
		case "name":
			cfg.NameTemplate = flags.NameTemplate
		case "line-width":
			cfg.LineWidth = flags.LineWidth
		case "layer-height":
			cfg.LayerHeight = flags.LayerHeight
		case "eps":
			cfg.Eps = flags.Eps
		case "height-fallback":
			cfg.HeightFallback = flags.HeightFallback
		case "on-infeasible":
			cfg.OnInfeasible = flags.OnInfeasible
		case "workers":
			cfg.Workers = flags.Workers
		case "metrics":
			cfg.MetricsFile = flags.MetricsFile
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		}
	})
}

// run 串联配置、几何内核与转换流程，并输出汇总。
func run(ctx context.Context, cfg config.Config, debugPath string, out io.Writer) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := logging.New(level)

	mode, err := outline.ParseMode(cfg.Accuracy)
	if err != nil {
		return err
	}
	format, err := canvaskernel.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	k := canvaskernel.NewKernel(canvaskernel.Options{
		Format:  format,
		Title:   filepath.Base(cfg.Input),
		Creator: "gcodesolid",
	})

	var fallback float64
	if cfg.HeightFallback {
		fallback = cfg.LayerHeight
	}
	m := metrics.New()

	report, err := convert.Run(ctx, cfg.Input, k, convert.Options{
		DefaultWidth:   cfg.LineWidth,
		FallbackHeight: fallback,
		Eps:            cfg.Eps,
		Mode:           mode,
		OnInfeasible:   convert.Policy(cfg.OnInfeasible),
		Workers:        cfg.Workers,
		OutputDir:      cfg.OutputDir,
		NameTemplate:   cfg.NameTemplate,
		DebugPath:      debugPath,
		Logger:         log,
		Metrics:        m,
	})
	if cfg.MetricsFile != "" {
		if werr := m.WriteTextfile(cfg.MetricsFile); werr != nil {
			log.Warn("write metrics textfile", "path", cfg.MetricsFile, "err", werr)
		}
	}
	if err != nil {
		return fmt.Errorf("转换失败: %w", err)
	}

	fmt.Fprint(out, renderSummary(report))
	return nil
}
