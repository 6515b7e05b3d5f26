package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Controller
		"Job %s submitted for %s (%d frames at %.2f fps)": "ジョブ %s を %s 用に登録しました (%d フレーム, %.2f fps)",
		"Job %s renderer failed to open: %s":              "ジョブ %s のレンダラー起動に失敗しました: %s",
		"Job %s rendering failed after %d frames: %s":     "ジョブ %s のレンダリングが %d フレームで失敗しました: %s",
		"Job %s stopped with %d frames staged":            "ジョブ %s は %d フレームを保存して停止しました",
		"Job %s encode failed: %s":                        "ジョブ %s のエンコードに失敗しました: %s",
		"Job %s completed: %s (%d ms, %d gap fills)":      "ジョブ %s が完了しました: %s (%d ms, %d ギャップ補完)",
		"Job %s staging cleanup failed: %s":               "ジョブ %s のステージング削除に失敗しました: %s",
		"Job %s expired from retention":                   "ジョブ %s は保持期間を過ぎたため削除しました",

		// Sampler
		"Sampling %d frames at %.2f fps (%s interval)": "%d フレームを %.2f fps でサンプリング中 (間隔 %s)",
		"Sampling stopped at index %d":                 "サンプリングをインデックス %d で停止しました",
		"Sampling complete: %d frames, %d gaps":        "サンプリング完了: %d フレーム, %d ギャップ",
		"Frame %d recorded as gap: %s":                 "フレーム %d をギャップとして記録しました: %s",
		"Retrying capture, attempt %d":                 "キャプチャを再試行中 (%d 回目)",

		// Assemble
		"Encoding %d positions (%d gaps) at %.2f fps, %dx%d": "%d ポジション (%d ギャップ) を %.2f fps, %dx%d でエンコード中",
		"Frame %d unreadable, duplicating prior: %s":         "フレーム %d を読み取れないため直前のフレームで補完します: %s",
		"Artifact written: %s (%d bytes, %d ms)":             "成果物を書き込みました: %s (%d バイト, %d ms)",

		// CLI
		"Wrote %s (%d frames, %d gap fills, %d ms)": "%s を書き込みました (%d フレーム, %d ギャップ補完, %d ms)",
		"Interrupted, shutting down...":             "中断されました。シャットダウン中...",
		"Listening on %s":                           "%s で待ち受け中",
		"Shutting down":                             "シャットダウン中",
	})
}
