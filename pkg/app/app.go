package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/zurustar/entplay/pkg/bundle"
	"github.com/zurustar/entplay/pkg/cli"
	"github.com/zurustar/entplay/pkg/compiler"
	"github.com/zurustar/entplay/pkg/logger"
	"github.com/zurustar/entplay/pkg/opcode"
	"github.com/zurustar/entplay/pkg/player"
	"github.com/zurustar/entplay/pkg/project"
	"github.com/zurustar/entplay/pkg/scene"
	"github.com/zurustar/entplay/pkg/vm"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config  *cli.Config
	log     *slog.Logger
	logFile io.Closer
	bundle  *bundle.Bundle
	sched   *vm.Scheduler
	scene   *scene.Scene
	result  player.Result // ヘッドレス実行の結果
}

// New Applicationを作成
func New() *Application {
	return &Application{}
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp()
		return nil
	}

	// 2. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer app.closeLog()

	app.log.Info("Application started", "project", app.config.ProjectPath, "config", app.config.ConfigFile)

	if app.config.ProjectPath == "" {
		return fmt.Errorf("no project specified (see --help)")
	}

	// 3. プロジェクトの読み込みとコンパイル
	b, err := app.loadBundle(app.config.ProjectPath)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	app.bundle = b

	// 4. コンパイル結果の書き出し（--dump）
	if app.config.DumpPath != "" {
		if err := bundle.Save(app.config.DumpPath, b); err != nil {
			return err
		}
		app.log.Info("Bundle written", "path", app.config.DumpPath, "scripts", len(b.Scripts))
		return nil
	}

	// 5. シーンの構築とスクリプトの登録
	if err := app.install(); err != nil {
		return fmt.Errorf("failed to install project: %w", err)
	}

	// 6. 実行
	if err := app.runPlayer(); err != nil {
		return fmt.Errorf("failed to run player: %w", err)
	}

	app.log.Info("Application terminated normally")
	return nil
}

// parseArgs コマンドライン引数を解析
// --config が無い場合は既定の設定ファイルを探して読み込む
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	if config.ConfigFile == "" && !config.ShowHelp {
		if found := findConfig(config.ProjectPath); found != "" {
			config, err = cli.ParseArgs(append([]string{"--config", found}, args...))
			if err != nil {
				return err
			}
		}
	}
	app.config = config
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if app.config.LogFile != "" {
		closer, err := logger.InitLoggerWithFile(app.config.LogLevel, app.config.LogFile)
		if err != nil {
			return err
		}
		app.logFile = closer
	} else if err := logger.InitLogger(app.config.LogLevel); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

func (app *Application) closeLog() {
	if app.logFile != nil {
		app.logFile.Close()
		app.logFile = nil
	}
}

// loadBundle プロジェクト（.json）をコンパイルするか、コンパイル済みバンドル（.cbor）を読み込む
func (app *Application) loadBundle(path string) (*bundle.Bundle, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbor":
		b, err := bundle.Load(path)
		if err != nil {
			return nil, err
		}
		app.log.Info("Bundle loaded", "path", path, "objects", len(b.Objects), "scripts", len(b.Scripts))
		return b, nil

	case ".json":
		p, err := project.Load(path)
		if err != nil {
			return nil, err
		}
		b, rep, err := bundle.Build(p, compiler.New(compiler.WithLogger(app.log)), app.log)
		if err != nil {
			return nil, err
		}
		app.log.Info("Project compiled",
			"path", path,
			"objects", len(b.Objects),
			"compiled", rep.Compiled,
			"no_trigger", rep.NoTrigger,
			"malformed", rep.Malformed,
			"warnings", rep.Warnings)
		for _, s := range b.Scripts {
			app.log.Debug("Program", "owner", s.Owner, "trigger", s.Trigger, "instructions", formatProgramPreview(s.Program, 10))
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unsupported project file %q (want .json or .cbor)", path)
	}
}

// install シーンを構築し、開始トリガーを配送する
func (app *Application) install() error {
	triggers := []opcode.Trigger{opcode.TriggerStart}
	for _, t := range app.config.Triggers {
		if !opcode.IsTrigger(t) {
			return fmt.Errorf("unknown trigger %q", t)
		}
		triggers = append(triggers, opcode.Trigger(t))
	}

	app.sched = vm.NewScheduler(vm.WithLogger(app.log))
	s, err := app.bundle.Install(app.sched)
	if err != nil {
		return err
	}
	app.scene = s

	for _, t := range triggers {
		app.sched.Deliver(t)
	}
	app.log.Info("Project installed", "scripts", len(app.sched.Scripts()), "triggers", triggers)
	return nil
}

// runPlayer ヘッドレスまたはウィンドウでプレイヤーを実行
func (app *Application) runPlayer() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if app.config.Headless {
		app.log.Info("Headless mode", "tps", app.config.TPS, "timeout", app.config.Timeout)
		res, err := player.RunHeadless(ctx, app.sched, app.scene, player.HeadlessConfig{
			TPS:      app.config.TPS,
			MaxTicks: uint64(app.config.Timeout.Seconds() * float64(app.config.TPS)),
			Logger:   app.log,
		})
		app.result = res
		if err != nil && err != context.Canceled {
			return err
		}
		app.log.Info("Headless run finished",
			"ticks", res.Ticks, "steps", res.Steps, "completed", res.Completed, "failed", res.Failed, "idle", res.Idle)
		return nil
	}

	return player.Run(app.sched, app.scene, player.Config{
		TPS:     app.config.TPS,
		Timeout: app.config.Timeout,
		Width:   app.config.Window.Width,
		Height:  app.config.Window.Height,
		Scale:   app.config.Window.Scale,
		Title:   "entplay - " + filepath.Base(app.config.ProjectPath),
		Logger:  app.log,
	})
}

// formatProgramPreview プログラムのプレビューを生成（デバッグ用）
func formatProgramPreview(prog opcode.Program, maxCount int) string {
	if len(prog) == 0 {
		return "[]"
	}

	count := min(len(prog), maxCount)
	parts := make([]string, 0, count+1)
	for _, in := range prog[:count] {
		parts = append(parts, string(in.Op))
	}
	if len(prog) > maxCount {
		parts = append(parts, fmt.Sprintf("... (%d more)", len(prog)-maxCount))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
