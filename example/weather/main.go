package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	"github.com/spf13/cobra"

	"github.com/tigerroll/weather_etl/example/weather/app"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

//go:embed resources/application.yaml
var embeddedConfig []byte

//go:embed resources/job.yaml
var embeddedJSL []byte

func newRootCmd(exitCode *int) *cobra.Command {
	defaultEnvFile := os.Getenv("ENV_FILE_PATH")
	if defaultEnvFile == "" {
		defaultEnvFile = ".env"
	}

	var (
		envFilePath string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "weather_etl",
		Short: "Lagos の天気予報を取得し、生データとクリーンデータを保存するバッチ",
		Long: `天気APIから Lagos の時間別予報を1回取得し、次の順に処理します。

  1. 生の JSON をローカルファイルに保存
  2. 生データをドキュメントストアの raw コレクションに保存
  3. 観測値ごとに平坦化して clean コレクションに保存

接続先などの設定は環境変数 (.env) で指定します。ジョブが完了した場合のみ終了コード 0 を返します。`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// シグナルハンドリング (Ctrl+C などで安全に終了するため)
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			go func() {
				select {
				case sig := <-sigChan:
					logger.Warnf("シグナル '%v' を受信しました。ジョブの停止を試みます...", sig)
					cancel()
				case <-ctx.Done():
				}
			}()

			*exitCode = app.RunApplication(ctx, app.Options{
				EnvFilePath:    envFilePath,
				LogLevel:       logLevel,
				EmbeddedConfig: embeddedConfig,
				EmbeddedJSL:    embeddedJSL,
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&envFilePath, "env-file", defaultEnvFile, "読み込む .env ファイルのパス (ENV_FILE_PATH でも指定可)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "ログレベル (DEBUG, INFO, WARN, ERROR)。設定ファイルより優先されます")
	return cmd
}

func main() {
	exitCode := 0
	if err := newRootCmd(&exitCode).ExecuteContext(context.Background()); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
