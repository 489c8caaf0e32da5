package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// 既定値
const (
	DefaultLogLevel = "info"
	DefaultTPS      = 60
	MaxTPS          = 1000

	DefaultWindowWidth  = 480
	DefaultWindowHeight = 270
	DefaultWindowScale  = 2.0
)

// Config はコマンドライン引数・環境変数・設定ファイルから解析された設定を保持する
type Config struct {
	ProjectPath string        // プロジェクト（.json）またはバンドル（.cbor）のパス
	Timeout     time.Duration // タイムアウト時間（0は無制限）
	LogLevel    string        // ログレベル（debug, info, warn, error）
	LogFile     string        // ログファイルのパス（空なら標準出力のみ）
	Headless    bool          // ヘッドレスモード
	TPS         int           // 1秒あたりのティック数
	ConfigFile  string        // TOML設定ファイルのパス
	DumpPath    string        // コンパイル結果の出力先（.cbor）
	Triggers    []string      // 開始時に追加で送るトリガー
	Window      WindowConfig  // ウィンドウ設定
	ShowHelp    bool          // ヘルプ表示フラグ
}

// WindowConfig はウィンドウの大きさを表す
type WindowConfig struct {
	Width  int     `toml:"width"`
	Height int     `toml:"height"`
	Scale  float64 `toml:"scale"`
}

// fileConfig はTOML設定ファイルの内容（未指定の項目はnil）
type fileConfig struct {
	Project  *string       `toml:"project"`
	Timeout  *int          `toml:"timeout"`
	LogLevel *string       `toml:"log_level"`
	LogFile  *string       `toml:"log_file"`
	Headless *bool         `toml:"headless"`
	TPS      *int          `toml:"tps"`
	Window   *WindowConfig `toml:"window"`
}

// boolFlags 値を取らないフラグ
var boolFlags = map[string]bool{
	"-h": true, "--h": true,
	"-help": true, "--help": true,
	"-headless": true, "--headless": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
// 優先順位: コマンドラインフラグ > 環境変数 > 設定ファイル > 既定値
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("entplay", flag.ContinueOnError)

	var (
		timeoutSec int
		logLevel   string
		logFile    string
		headless   bool
		tps        int
		configFile string
		dumpPath   string
		triggers   string
		showHelp   bool
	)
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.StringVar(&logLevel, "log-level", DefaultLogLevel, "ログレベル（debug, info, warn, error）")
	fs.StringVar(&logLevel, "l", DefaultLogLevel, "ログレベル（短縮形）")
	fs.StringVar(&logFile, "log-file", "", "ログファイル")
	fs.BoolVar(&headless, "headless", false, "ヘッドレスモード")
	fs.IntVar(&tps, "tps", DefaultTPS, "1秒あたりのティック数")
	fs.StringVar(&configFile, "config", "", "TOML設定ファイル")
	fs.StringVar(&dumpPath, "dump", "", "コンパイル結果をCBORで出力")
	fs.StringVar(&triggers, "trigger", "", "開始時に送るトリガー（カンマ区切り）")
	fs.BoolVar(&showHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&showHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 明示的に指定されたフラグ
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	config := &Config{
		LogLevel: DefaultLogLevel,
		TPS:      DefaultTPS,
		Window: WindowConfig{
			Width:  DefaultWindowWidth,
			Height: DefaultWindowHeight,
			Scale:  DefaultWindowScale,
		},
		ConfigFile: configFile,
		DumpPath:   dumpPath,
		ShowHelp:   showHelp,
	}
	timeout := 0

	// 設定ファイル
	if configFile != "" {
		fc, err := loadFile(configFile)
		if err != nil {
			return nil, err
		}
		fc.apply(config, &timeout)
	}

	// 環境変数
	applyEnv(config, &timeout)

	// コマンドラインフラグ
	if set["timeout"] || set["t"] {
		timeout = timeoutSec
	}
	if set["log-level"] || set["l"] {
		config.LogLevel = logLevel
	}
	if set["log-file"] {
		config.LogFile = logFile
	}
	if set["headless"] {
		config.Headless = headless
	}
	if set["tps"] {
		config.TPS = tps
	}
	if triggers != "" {
		for _, t := range strings.Split(triggers, ",") {
			if t = strings.TrimSpace(t); t != "" {
				config.Triggers = append(config.Triggers, t)
			}
		}
	}

	// 位置引数（プロジェクトのパス）
	if fs.NArg() > 0 {
		config.ProjectPath = fs.Arg(0)
	}

	// タイムアウトの検証
	if timeout < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeout)
	}
	config.Timeout = time.Duration(timeout) * time.Second

	// ログレベルの検証
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	// TPSの検証
	if config.TPS < 1 || config.TPS > MaxTPS {
		return nil, fmt.Errorf("tps must be between 1 and %d, got %d", MaxTPS, config.TPS)
	}

	// ウィンドウの検証
	if config.Window.Width <= 0 || config.Window.Height <= 0 || config.Window.Scale <= 0 {
		return nil, fmt.Errorf("invalid window size %dx%d scale %v", config.Window.Width, config.Window.Height, config.Window.Scale)
	}

	return config, nil
}

// loadFile TOML設定ファイルを読み込む
func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &fc, nil
}

func (fc *fileConfig) apply(c *Config, timeout *int) {
	if fc.Project != nil {
		c.ProjectPath = *fc.Project
	}
	if fc.Timeout != nil {
		*timeout = *fc.Timeout
	}
	if fc.LogLevel != nil {
		c.LogLevel = strings.ToLower(*fc.LogLevel)
	}
	if fc.LogFile != nil {
		c.LogFile = *fc.LogFile
	}
	if fc.Headless != nil {
		c.Headless = *fc.Headless
	}
	if fc.TPS != nil {
		c.TPS = *fc.TPS
	}
	if fc.Window != nil {
		if fc.Window.Width != 0 {
			c.Window.Width = fc.Window.Width
		}
		if fc.Window.Height != 0 {
			c.Window.Height = fc.Window.Height
		}
		if fc.Window.Scale != 0 {
			c.Window.Scale = fc.Window.Scale
		}
	}
}

// applyEnv 環境変数からの設定
func applyEnv(c *Config, timeout *int) {
	if headlessEnv := os.Getenv("HEADLESS"); headlessEnv != "" {
		c.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
	}
	if timeoutEnv := os.Getenv("TIMEOUT"); timeoutEnv != "" {
		if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
			*timeout = t
		}
	}
	if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
		c.LogLevel = strings.ToLower(logLevelEnv)
	}
	if tpsEnv := os.Getenv("TPS"); tpsEnv != "" {
		if t, err := strconv.Atoi(tpsEnv); err == nil {
			c.TPS = t
		}
	}
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			// -t 5 のように値が続く場合は次の引数も追加（--tps=30 の形式は除く）
			if !boolFlags[arg] && !strings.Contains(arg, "=") &&
				i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `entplay - block program player

Usage:
  entplay [options] <project>

Arguments:
  project       プロジェクトファイル（.json）またはコンパイル済みバンドル（.cbor）

Options:
  -t, --timeout <seconds>     指定秒数後にプログラムを終了（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --log-file <path>           ログをファイルにも出力
  --headless                  ヘッドレスモード（GUIなし）
  --tps <n>                   1秒あたりのティック数（デフォルト: 60）
  --config <file.toml>        設定ファイル
  --dump <out.cbor>           コンパイル結果を書き出して終了
  --trigger <name,...>        開始時に追加で送るトリガー
  -h, --help                  このヘルプを表示

Environment Variables:
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  TPS=<n>                     1秒あたりのティック数

Config file (TOML):
  project = "game.json"
  timeout = 10
  log_level = "debug"
  log_file = "entplay.log"
  headless = false
  tps = 60

  [window]
  width = 480
  height = 270
  scale = 2.0

Examples:
  entplay game.json                       ウィンドウで実行
  entplay --headless --timeout 5 game.json  ヘッドレスで5秒間実行
  entplay --dump game.cbor game.json      コンパイルのみ
  entplay game.cbor                       コンパイル済みバンドルを実行
`)
}
