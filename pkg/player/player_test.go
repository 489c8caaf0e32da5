package player

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/zurustar/entplay/pkg/block"
	"github.com/zurustar/entplay/pkg/compiler"
	"github.com/zurustar/entplay/pkg/opcode"
	"github.com/zurustar/entplay/pkg/scene"
	"github.com/zurustar/entplay/pkg/value"
	"github.com/zurustar/entplay/pkg/vm"
)

func newScene(t *testing.T) *scene.Scene {
	t.Helper()
	s := scene.New()
	if _, err := s.AddObject(scene.Object{ID: "cat", Name: "Cat"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddVariable(scene.Variable{ID: "v", Name: "score", Value: value.Number(3)}); err != nil {
		t.Fatal(err)
	}
	return s
}

func compile(t *testing.T, stmts ...*block.Block) opcode.Program {
	t.Helper()
	prog, err := compiler.New().CompileStatements(stmts)
	if err != nil {
		t.Fatalf("CompileStatements: %v", err)
	}
	return prog
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestNewGame_Defaults(t *testing.T) {
	g := NewGame(vm.NewScheduler(), scene.New(), Config{})
	if g.cfg.TPS != 60 {
		t.Errorf("TPS = %d, want 60", g.cfg.TPS)
	}
	if w, h := g.Layout(1000, 1000); w != scene.Width || h != scene.Height {
		t.Errorf("Layout = %dx%d, want %dx%d", w, h, scene.Width, scene.Height)
	}
	if g.cfg.Scale != 1 {
		t.Errorf("Scale = %v, want 1", g.cfg.Scale)
	}
}

func TestHandlePointer(t *testing.T) {
	s := newScene(t)
	sched := vm.NewScheduler(vm.WithLogger(quietLogger()))
	sched.Register("cat", opcode.TriggerMouseClicked, compile(t, block.New("mx", "move_x", block.Number(5))))
	sched.Register("cat", opcode.TriggerMouseClickCanceled, compile(t, block.New("my", "move_y", block.Number(2))))

	g := NewGame(sched, s, Config{TPS: 60, Width: 960, Height: 540, Logger: quietLogger()})

	// 画面中央はステージ原点
	g.handlePointer(480, 270, false, false)
	if x, y := s.Pointer(); x != 0 || y != 0 {
		t.Errorf("pointer = (%v, %v), want (0, 0)", x, y)
	}

	// 左上はステージの(-240, 135)
	g.handlePointer(0, 0, true, false)
	if x, y := s.Pointer(); x != -240 || y != 135 {
		t.Errorf("pointer = (%v, %v), want (-240, 135)", x, y)
	}
	g.step()
	cat, _ := s.Object("cat")
	if cat.X != 5 || cat.Y != 0 {
		t.Errorf("after click: cat = (%v, %v), want (5, 0)", cat.X, cat.Y)
	}

	g.handlePointer(0, 0, false, true)
	g.step()
	if cat.X != 5 || cat.Y != 2 {
		t.Errorf("after release: cat = (%v, %v), want (5, 2)", cat.X, cat.Y)
	}
	if g.stats.Completed != 1 {
		t.Errorf("stats = %+v", g.stats)
	}
}

func TestRemoveAtPointer(t *testing.T) {
	s := newScene(t)
	cat, _ := s.Object("cat")
	cat.X, cat.Y = 100, 50
	if _, err := s.AddObject(scene.Object{ID: "dog", Name: "Dog"}); err != nil {
		t.Fatal(err)
	}

	sched := vm.NewScheduler(vm.WithLogger(quietLogger()))
	forever := compile(t, block.New("loop", "repeat_inf").WithBody(block.New("my", "move_y", block.Number(1))))
	sched.Register("cat", opcode.TriggerStart, forever)
	sched.Register("cat", opcode.TriggerMouseClicked, compile(t, block.New("mx", "move_x", block.Number(1))))
	sched.Register("dog", opcode.TriggerStart, forever)
	sched.Deliver(opcode.TriggerStart)

	g := NewGame(sched, s, Config{TPS: 60, Logger: quietLogger()})
	g.step()
	if len(sched.Runners()) != 2 {
		t.Fatalf("runners = %d, want 2", len(sched.Runners()))
	}

	// 何もない場所では削除しない
	s.SetPointer(-200, -100)
	if _, ok := g.removeAtPointer(); ok {
		t.Error("removed an object at an empty position")
	}

	// catのマーカーの内側（移動後のy=51付近）
	s.SetPointer(101, 52)
	id, ok := g.removeAtPointer()
	if !ok || id != "cat" {
		t.Fatalf("removeAtPointer = (%q, %v), want (cat, true)", id, ok)
	}
	if _, ok := s.Object("cat"); ok {
		t.Error("cat is still in the scene")
	}
	if rs := sched.Runners(); len(rs) != 1 || rs[0].Owner != "dog" {
		t.Errorf("runners = %+v, want only dog", rs)
	}

	// 削除したオブジェクトのスクリプトはクリックでも起動しない
	sched.Deliver(opcode.TriggerMouseClicked)
	g.step()
	if g.stats.Spawned != 0 || g.stats.Failed != 0 {
		t.Errorf("stats after click = %+v", g.stats)
	}
}

func TestOverlayLines(t *testing.T) {
	s := newScene(t)
	g := NewGame(vm.NewScheduler(), s, Config{Logger: quietLogger()})
	lines := g.overlayLines()
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[0], "tick 0") {
		t.Errorf("status line = %q", lines[0])
	}
	if lines[1] != "score: 3" {
		t.Errorf("variable line = %q, want %q", lines[1], "score: 3")
	}
}

func TestRunHeadless(t *testing.T) {
	repeat := block.New("rep", "repeat_basic", block.Nested(block.New("n", "number", block.Number(3)))).
		WithBody(block.New("mx", "move_x", block.Number(10)))
	forever := block.New("loop", "repeat_inf").WithBody(block.New("my", "move_y", block.Number(1)))

	tests := []struct {
		name      string
		stmts     []*block.Block
		maxTicks  uint64
		wantIdle  bool
		wantTicks uint64
	}{
		{name: "キューが空になるまで実行", stmts: []*block.Block{repeat}, wantIdle: true, wantTicks: 4},
		{name: "最大ティック数で停止", stmts: []*block.Block{forever}, maxTicks: 25, wantTicks: 25},
		{name: "何も登録されていない", stmts: nil, wantIdle: true, wantTicks: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScene(t)
			sched := vm.NewScheduler(vm.WithLogger(quietLogger()))
			if tt.stmts != nil {
				sched.Register("cat", opcode.TriggerStart, compile(t, tt.stmts...))
			}
			sched.Deliver(opcode.TriggerStart)

			res, err := RunHeadless(context.Background(), sched, s, HeadlessConfig{
				TPS:      60,
				MaxTicks: tt.maxTicks,
				Logger:   quietLogger(),
			})
			if err != nil {
				t.Fatalf("RunHeadless: %v", err)
			}
			if res.Idle != tt.wantIdle || res.Ticks != tt.wantTicks {
				t.Errorf("result = %+v, want idle=%v ticks=%d", res, tt.wantIdle, tt.wantTicks)
			}
		})
	}
}

func TestRunHeadless_Cancel(t *testing.T) {
	s := newScene(t)
	sched := vm.NewScheduler(vm.WithLogger(quietLogger()))
	sched.Register("cat", opcode.TriggerStart, compile(t,
		block.New("loop", "repeat_inf").WithBody(block.New("mx", "move_x", block.Number(1)))))
	sched.Deliver(opcode.TriggerStart)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := RunHeadless(ctx, sched, s, HeadlessConfig{TPS: 100, Pace: true, Logger: quietLogger()})
	if err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want %v", err, context.DeadlineExceeded)
	}
	if res.Idle {
		t.Error("an endless loop must not become idle")
	}
	if res.Ticks == 0 || res.Ticks > 10 {
		t.Errorf("ticks = %d, want a handful at 100 TPS for 50ms", res.Ticks)
	}
}

func TestRunHeadless_WaitUsesTickDelta(t *testing.T) {
	s := newScene(t)
	sched := vm.NewScheduler(vm.WithLogger(quietLogger()))
	sched.Register("cat", opcode.TriggerStart, compile(t,
		block.New("w", "wait_second", block.Number(0.5)),
		block.New("mx", "move_x", block.Number(1))))
	sched.Deliver(opcode.TriggerStart)

	res, err := RunHeadless(context.Background(), sched, s, HeadlessConfig{TPS: 10, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("RunHeadless: %v", err)
	}
	// 0.1秒ずつ5ティックで待機が終わり、そのティックで移動して完了する
	if res.Ticks != 5 || !res.Idle || res.Completed != 1 {
		t.Errorf("result = %+v, want 5 ticks", res)
	}
	if cat, _ := s.Object("cat"); cat.X != 1 {
		t.Errorf("cat.x = %v, want 1", cat.X)
	}
}
