package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/zurustar/entplay/pkg/opcode"
)

// 開始時に3回x方向へ10移動し、クリックでy方向へ1移動する
const catScript = `[
  [{"id":"ev","type":"when_run_button_click","params":[],"statements":[]},
   {"id":"rp","type":"repeat_basic","params":[{"id":"n","type":"number","params":["3"],"statements":[]}],
    "statements":[[{"id":"mx","type":"move_x","params":[10],"statements":[]}]]}],
  [{"id":"ck","type":"mouse_clicked","params":[],"statements":[]},
   {"id":"my","type":"move_y","params":[1],"statements":[]}]
]`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HEADLESS", "TIMEOUT", "LOG_LEVEL", "TPS"} {
		t.Setenv(k, "")
	}
}

func writeProject(t *testing.T, dir string) string {
	t.Helper()
	p := map[string]any{
		"objects": []map[string]any{
			{"id": "cat", "name": "Cat", "script": catScript},
		},
		"variables": []map[string]any{
			{"id": "v", "name": "score", "value": 0},
		},
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "game.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func catPosition(t *testing.T, app *Application) (float64, float64) {
	t.Helper()
	if app.scene == nil {
		t.Fatal("scene was not installed")
	}
	cat, ok := app.scene.Object("cat")
	if !ok {
		t.Fatal("cat missing")
	}
	return cat.X, cat.Y
}

func TestRun_HeadlessProject(t *testing.T) {
	clearEnv(t)
	path := writeProject(t, t.TempDir())

	app := New()
	if err := app.Run([]string{"--headless", "-l", "error", path}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if x, y := catPosition(t, app); x != 30 || y != 0 {
		t.Errorf("cat = (%v, %v), want (30, 0)", x, y)
	}
	if !app.result.Idle || app.result.Ticks != 4 || app.result.Failed != 0 {
		t.Errorf("result = %+v", app.result)
	}
}

func TestRun_ExtraTrigger(t *testing.T) {
	clearEnv(t)
	path := writeProject(t, t.TempDir())

	app := New()
	if err := app.Run([]string{"--headless", "-l", "error", "--trigger", string(opcode.TriggerMouseClicked), path}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if x, y := catPosition(t, app); x != 30 || y != 1 {
		t.Errorf("cat = (%v, %v), want (30, 1)", x, y)
	}
}

func TestRun_DumpAndReplay(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeProject(t, dir)
	out := filepath.Join(dir, "game.cbor")

	dump := New()
	if err := dump.Run([]string{"-l", "error", "--dump", out, path}); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if dump.scene != nil {
		t.Error("--dump must not start the player")
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("bundle not written: %v", err)
	}

	replay := New()
	if err := replay.Run([]string{"--headless", "-l", "error", out}); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if x, _ := catPosition(t, replay); x != 30 {
		t.Errorf("cat.x = %v, want 30", x)
	}
}

func TestRun_Timeout(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	script := `[[{"id":"ev","type":"when_run_button_click","params":[],"statements":[]},
	  {"id":"lp","type":"repeat_inf","params":[],"statements":[[{"id":"mx","type":"move_x","params":[1],"statements":[]}]]}]]`
	data, _ := json.Marshal(map[string]any{
		"objects": []map[string]any{{"id": "cat", "script": script}},
	})
	path := filepath.Join(dir, "loop.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	app := New()
	if err := app.Run([]string{"--headless", "-l", "error", "--tps", "10", "-t", "2", path}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 2秒 x 10TPS = 20ティック、1ティックにつき1回移動する
	if app.result.Idle || app.result.Ticks != 20 {
		t.Errorf("result = %+v, want 20 ticks", app.result)
	}
	if x, _ := catPosition(t, app); x != 20 {
		t.Errorf("cat.x = %v, want 20", x)
	}
}

func TestRun_ConfigNextToProject(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeProject(t, dir)
	conf := "headless = true\nlog_level = \"error\"\ntps = 30\n"
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigName), []byte(conf), 0o644); err != nil {
		t.Fatal(err)
	}

	app := New()
	if err := app.Run([]string{path}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if app.config.TPS != 30 || !app.config.Headless {
		t.Errorf("config = %+v", app.config)
	}
	if x, _ := catPosition(t, app); x != 30 {
		t.Errorf("cat.x = %v, want 30", x)
	}
}

func TestRun_Errors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	project := writeProject(t, dir)
	txt := filepath.Join(dir, "game.txt")
	if err := os.WriteFile(txt, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"プロジェクト未指定", []string{"--headless", "-l", "error"}},
		{"存在しないファイル", []string{"--headless", "-l", "error", filepath.Join(dir, "missing.json")}},
		{"未対応の拡張子", []string{"--headless", "-l", "error", txt}},
		{"未知のトリガー", []string{"--headless", "-l", "error", "--trigger", "key_pressed", project}},
		{"無効なフラグ", []string{"--tps", "0", project}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := New().Run(tt.args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestFindConfig(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "game.json")
	if got := findConfig(project); got != "" {
		t.Errorf("findConfig = %q, want empty", got)
	}
	want := filepath.Join(dir, DefaultConfigName)
	if err := os.WriteFile(want, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := findConfig(project); got != want {
		t.Errorf("findConfig = %q, want %q", got, want)
	}
}

func TestFormatProgramPreview(t *testing.T) {
	prog := opcode.Program{
		{ID: "a", Op: opcode.MoveX},
		{ID: "b", Op: opcode.MoveY},
		{ID: "c", Op: opcode.MoveX},
	}
	tests := []struct {
		name string
		prog opcode.Program
		max  int
		want string
	}{
		{"空", nil, 10, "[]"},
		{"全件", prog, 10, "[move_x, move_y, move_x]"},
		{"省略", prog, 2, "[move_x, move_y, ... (1 more)]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatProgramPreview(tt.prog, tt.max); got != tt.want {
				t.Errorf("formatProgramPreview = %q, want %q", got, tt.want)
			}
		})
	}
}
