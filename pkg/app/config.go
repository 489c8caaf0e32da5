package app

import (
	"os"
	"path/filepath"
)

// DefaultConfigName は自動で探す設定ファイル名
const DefaultConfigName = "entplay.toml"

// findConfig は --config が指定されていない場合に設定ファイルを以下の順序で探す
// 1. カレントディレクトリ
// 2. プロジェクトファイルと同じディレクトリ
// 見つからなければ空文字列を返す
func findConfig(projectPath string) string {
	// 1. カレントディレクトリ
	if fileExists(DefaultConfigName) {
		return DefaultConfigName
	}

	// 2. プロジェクトのディレクトリ
	if projectPath != "" {
		p := filepath.Join(filepath.Dir(projectPath), DefaultConfigName)
		if fileExists(p) {
			return p
		}
	}

	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
