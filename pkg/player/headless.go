package player

import (
	"context"
	"log/slog"
	"time"

	"github.com/zurustar/entplay/pkg/logger"
	"github.com/zurustar/entplay/pkg/scene"
	"github.com/zurustar/entplay/pkg/vm"
)

// HeadlessConfig はヘッドレス実行の設定を表す
type HeadlessConfig struct {
	TPS      int    // 1秒あたりのティック数
	MaxTicks uint64 // 最大ティック数（0は無制限）
	Pace     bool   // trueなら実時間に合わせて1/TPS秒ごとにティックする
	Logger   *slog.Logger
}

// Result はヘッドレス実行の結果を表す
type Result struct {
	Ticks     uint64 // 実行したティック数
	Steps     int    // 実行した命令数
	Completed int    // 完了したランナー数
	Failed    int    // 異常終了したランナー数
	Idle      bool   // キューが空になって終了したか
}

// RunHeadless GUIなしでスケジューラを回す
// キューが空になるか、MaxTicksに達するか、ctxがキャンセルされるまで実行する
func RunHeadless(ctx context.Context, sched *vm.Scheduler, s *scene.Scene, cfg HeadlessConfig) (Result, error) {
	if cfg.TPS <= 0 {
		cfg.TPS = 60
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	var ticker *time.Ticker
	if cfg.Pace {
		ticker = time.NewTicker(time.Second / time.Duration(cfg.TPS))
		defer ticker.Stop()
	}

	tc := vm.Context{Delta: 1 / float64(cfg.TPS), Stage: s}
	var res Result
	for {
		if sched.Idle() {
			res.Idle = true
			log.Info("All runners finished", "ticks", res.Ticks)
			return res, nil
		}
		if cfg.MaxTicks > 0 && res.Ticks >= cfg.MaxTicks {
			log.Info("Tick limit reached, terminating", "ticks", res.Ticks, "runners", len(sched.Runners()))
			return res, nil
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return res, err
		}

		st := sched.Tick(tc)
		res.Ticks++
		res.Steps += st.Steps
		res.Completed += st.Completed
		res.Failed += st.Failed
	}
}
