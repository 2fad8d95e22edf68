package main

import (
	"fmt"
	"os"

	"github.com/benoitkugler/svgoverlay/subfilter"
	"github.com/benoitkugler/svgoverlay/svgtemplate"
	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Build information
var (
	version = "dev"
	commit  = "unknown"
)

var logFlags = logger.Flags{
	Level:       "info",
	LogToStderr: true,
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bindLogFlags(flags *pflag.FlagSet) {
	flags.CountVarP(&logFlags.LevelCount, "loglevel", "v", "Increase logging level")
	flags.StringVar(&logFlags.Level, "log-level", "info", "Set the default log level")
	flags.BoolVar(&logFlags.JsonLogs, "json-logs", false, "Print logs in json format to stderr")
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "svgsub",
		Short: "Render SVG or plain text subtitles as YUVA subpictures",
		Long: `svgsub drives an SVG text renderer the way a media player does:
each cue of a cue sheet is rendered at the output size and written
as a PNG preview or as raw YUVA 4:2:0 planes.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Configure(logFlags)
		},
	}
	bindLogFlags(root.PersistentFlags())

	root.AddCommand(newRenderCommand(), newTemplateCommand(), newDemoCommand(), newVersionCommand())
	return root
}

// filterFlags are shared by the commands creating a filter.
type filterFlags struct {
	configFile string
	cfg        subfilter.Config
}

func (ff *filterFlags) bind(flags *pflag.FlagSet) {
	flags.StringVar(&ff.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&ff.cfg.TemplateFile, "template", "", "SVG template file used for plain text (default: built-in)")
	flags.IntVar(&ff.cfg.Width, "width", 720, "Output width")
	flags.IntVar(&ff.cfg.Height, "height", 576, "Output height")
	flags.StringVar(&ff.cfg.Backend, "backend", "oksvg", "Rasterizer backend (oksvg, canvas)")
	flags.StringVar(&ff.cfg.ErrorMode, "error-mode", "ignore", "Unsupported SVG elements handling (ignore, warn, strict)")
	flags.IntVar(&ff.cfg.Workers, "workers", 1, "Goroutines used to convert pixels")
}

// resolve merges the configuration file with the flags set
// on the command line, which take precedence.
func (ff *filterFlags) resolve(flags *pflag.FlagSet) (subfilter.Config, error) {
	if ff.configFile == "" {
		return ff.cfg, nil
	}
	cfg, err := subfilter.LoadConfig(ff.configFile)
	if err != nil {
		return cfg, err
	}
	override := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	override("template", func() { cfg.TemplateFile = ff.cfg.TemplateFile })
	override("width", func() { cfg.Width = ff.cfg.Width })
	override("height", func() { cfg.Height = ff.cfg.Height })
	override("backend", func() { cfg.Backend = ff.cfg.Backend })
	override("error-mode", func() { cfg.ErrorMode = ff.cfg.ErrorMode })
	override("workers", func() { cfg.Workers = ff.cfg.Workers })
	if cfg.Width == 0 {
		cfg.Width = ff.cfg.Width
	}
	if cfg.Height == 0 {
		cfg.Height = ff.cfg.Height
	}
	return cfg, nil
}

func newRenderCommand() *cobra.Command {
	var (
		ff     filterFlags
		outDir string
		format string
	)
	cmd := &cobra.Command{
		Use:   "render CUES.yaml",
		Short: "Render every cue of a cue sheet",
		Example: `  svgsub render cues.yaml --out frames/
  svgsub render cues.yaml --format yuva --width 1280 --height 720 --template subtitle.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ff.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			enc, err := encoderFor(format)
			if err != nil {
				return err
			}
			sheet, err := loadCueSheet(args[0])
			if err != nil {
				return err
			}
			filter, err := subfilter.NewFromConfig(cfg, subfilter.WithLogger(logger.GetLogger("svg")))
			if err != nil {
				return err
			}
			report, err := renderSheet(filter, sheet, outDir, enc)
			if err != nil {
				return err
			}
			fmt.Println(report.summary(filter.Stats()))
			return nil
		},
	}
	ff.bind(cmd.Flags())
	cmd.Flags().StringVarP(&outDir, "out", "o", "out", "Output directory")
	cmd.Flags().StringVar(&format, "format", "png", "Output format (png, yuva)")
	return cmd
}

func newTemplateCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Print the SVG template used for plain text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(svgtemplate.Resolve(path, logger.GetLogger("svg")))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "template", "", "SVG template file")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("svgsub %s (%s)\n", version, commit)
		},
	}
}
