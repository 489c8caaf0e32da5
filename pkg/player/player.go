package player

import (
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/zurustar/entplay/pkg/logger"
	"github.com/zurustar/entplay/pkg/opcode"
	"github.com/zurustar/entplay/pkg/scene"
	"github.com/zurustar/entplay/pkg/vm"
)

var (
	// 背景色 #0087C8
	backgroundColor = color.RGBA{0x00, 0x87, 0xC8, 0xFF}
	// テキスト色（白）
	textColor = color.White
	// オブジェクトのマーカー色（黄色）
	markerColor = color.RGBA{0xFF, 0xFF, 0x00, 0xFF}
	// オーバーレイの背景色（半透明黒）
	overlayBgColor = color.RGBA{0x00, 0x00, 0x00, 0x80}
	// デフォルトフォント
	defaultFace = text.NewGoXFace(basicfont.Face7x13)
)

const (
	markerSize = 8  // 拡大率1のときのマーカーの一辺（ピクセル）
	lineHeight = 14 // オーバーレイの行の高さ
)

// Config はプレイヤーの設定を表す
type Config struct {
	TPS     int           // 1秒あたりのティック数
	Timeout time.Duration // タイムアウト時間（0は無制限）
	Width   int           // 論理画面の幅
	Height  int           // 論理画面の高さ
	Scale   float64       // ウィンドウの拡大率
	Title   string        // ウィンドウタイトル
	Logger  *slog.Logger
}

// Game はEbitengineのゲームインターフェースを実装する
type Game struct {
	sched     *vm.Scheduler
	scene     *scene.Scene
	cfg       Config
	log       *slog.Logger
	startTime time.Time

	stats       vm.Stats // 最後のティックの統計
	showOverlay bool     // 変数オーバーレイの表示
}

// NewGame 新しいGameを作成
func NewGame(sched *vm.Scheduler, s *scene.Scene, cfg Config) *Game {
	if cfg.TPS <= 0 {
		cfg.TPS = ebiten.DefaultTPS
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = scene.Width, scene.Height
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	return &Game{
		sched:       sched,
		scene:       s,
		cfg:         cfg,
		log:         log,
		startTime:   time.Now(),
		showOverlay: true,
	}
}

// Update はEbitengineから毎ティック呼ばれる
func (g *Game) Update() error {
	// タイムアウトチェック
	if g.cfg.Timeout > 0 && time.Since(g.startTime) >= g.cfg.Timeout {
		g.log.Info("Timeout reached, terminating")
		return ebiten.Termination
	}

	// ESCキーで終了
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	// F1キーでオーバーレイの表示切り替え
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		g.showOverlay = !g.showOverlay
	}

	g.processMouseEvents()

	// Deleteキーでポインタの下のオブジェクトを削除
	if inpututil.IsKeyJustPressed(ebiten.KeyDelete) {
		g.removeAtPointer()
	}

	g.step()
	return nil
}

// processMouseEvents はマウスの状態をシーンとトリガーに反映する
func (g *Game) processMouseEvents() {
	mouseX, mouseY := ebiten.CursorPosition()
	g.handlePointer(mouseX, mouseY,
		inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
		inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft))
}

// handlePointer 画面座標のポインタをステージ座標に変換し、クリックをトリガーとして配送する
func (g *Game) handlePointer(screenX, screenY int, pressed, released bool) {
	x, y := scene.ScreenToStage(screenX, screenY, g.cfg.Width, g.cfg.Height)
	g.scene.SetPointer(x, y)

	if pressed {
		g.sched.Deliver(opcode.TriggerMouseClicked)
	}
	if released {
		g.sched.Deliver(opcode.TriggerMouseClickCanceled)
	}
}

// objectAt ステージ座標(x, y)にマーカーが重なるオブジェクトを返す（手前に描画されたものを優先）
func (g *Game) objectAt(x, y float64) (*scene.Object, bool) {
	// 画面1ピクセルあたりのステージ座標
	unit := float64(scene.Width) / float64(g.cfg.Width)
	objects := g.scene.Objects()
	for i := len(objects) - 1; i >= 0; i-- {
		o := objects[i]
		hw := markerSize * o.ScaleX / 2 * unit
		hh := markerSize * o.ScaleY / 2 * unit
		if x >= o.X-hw && x <= o.X+hw && y >= o.Y-hh && y <= o.Y+hh {
			return o, true
		}
	}
	return nil, false
}

// removeAtPointer ポインタの下のオブジェクトを削除する
func (g *Game) removeAtPointer() (string, bool) {
	o, ok := g.objectAt(g.scene.Pointer())
	if !ok {
		return "", false
	}
	return o.ID, g.removeObject(o.ID)
}

// removeObject オブジェクトをシーンから削除し、そのスクリプトとランナーを止める
func (g *Game) removeObject(id string) bool {
	if !g.scene.RemoveObject(id) {
		return false
	}
	scripts := g.sched.Unregister(id)
	runners := g.sched.Cancel(id)
	g.log.Info("Object removed", "object", id, "scripts", scripts, "runners", runners)
	return true
}

// step 1ティック分スケジューラを進める
func (g *Game) step() {
	g.stats = g.sched.Tick(vm.Context{
		Delta: 1 / float64(g.cfg.TPS),
		Stage: g.scene,
	})
	if g.stats.Failed > 0 {
		g.log.Debug("Tick finished with failures", "tick", g.sched.Ticks(), "failed", g.stats.Failed)
	}
}

// Draw は画面を描画する
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	for _, o := range g.scene.Objects() {
		g.drawObject(screen, o)
	}

	if g.showOverlay {
		g.drawOverlay(screen)
	}
}

// drawObject オブジェクトの位置にマーカーと名前を描画
func (g *Game) drawObject(screen *ebiten.Image, o *scene.Object) {
	px, py := scene.StageToScreen(o.X, o.Y, g.cfg.Width, g.cfg.Height)
	w := float32(markerSize * o.ScaleX)
	h := float32(markerSize * o.ScaleY)
	vector.FillRect(screen, float32(px)-w/2, float32(py)-h/2, w, h, markerColor, false)

	op := &text.DrawOptions{}
	op.GeoM.Translate(px+float64(w/2)+2, py-float64(h/2))
	op.ColorScale.ScaleWithColor(textColor)
	text.Draw(screen, o.Name, defaultFace, op)
}

// drawOverlay 変数の値とスケジューラの状態を左上に描画
func (g *Game) drawOverlay(screen *ebiten.Image) {
	lines := g.overlayLines()
	if len(lines) == 0 {
		return
	}

	width := 0
	for _, l := range lines {
		if n := len(l) * 7; n > width {
			width = n
		}
	}
	vector.FillRect(screen, 2, 2, float32(width+8), float32(len(lines)*lineHeight+6), overlayBgColor, false)

	for i, l := range lines {
		op := &text.DrawOptions{}
		op.GeoM.Translate(6, float64(4+i*lineHeight))
		op.ColorScale.ScaleWithColor(textColor)
		text.Draw(screen, l, defaultFace, op)
	}
}

// overlayLines オーバーレイに表示する行
func (g *Game) overlayLines() []string {
	lines := []string{
		fmt.Sprintf("tick %d  runners %d", g.sched.Ticks(), len(g.sched.Runners())),
	}
	for _, v := range g.scene.Variables() {
		lines = append(lines, fmt.Sprintf("%s: %s", v.Name, v.Value))
	}
	return lines
}

// Layout は論理画面サイズを返す
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}

// Run GUIモードでウィンドウを実行
func Run(sched *vm.Scheduler, s *scene.Scene, cfg Config) error {
	game := NewGame(sched, s, cfg)

	// ウィンドウ設定
	ebiten.SetWindowSize(int(float64(game.cfg.Width)*game.cfg.Scale), int(float64(game.cfg.Height)*game.cfg.Scale))
	title := game.cfg.Title
	if title == "" {
		title = "entplay"
	}
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(game.cfg.TPS)

	// ゲームを実行
	if err := ebiten.RunGame(game); err != nil {
		return fmt.Errorf("failed to run game: %w", err)
	}
	return nil
}
