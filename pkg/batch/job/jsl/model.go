package jsl

// Job は JSL ファイルのトップレベル構造を表します。
type Job struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Flow        Flow           `yaml:"flow"`
	Listeners   []ComponentRef `yaml:"listeners,omitempty"`
	Incrementer ComponentRef   `yaml:"incrementer,omitempty"`
}

// Flow はステップの実行順序を表します。
type Flow struct {
	StartElement string          `yaml:"start-element"`
	Elements     map[string]Step `yaml:"elements"`
}

// Step はジョブ内の単一の処理単位 (Tasklet ステップ) を表します。
type Step struct {
	ID                        string                     `yaml:"id"`
	Description               string                     `yaml:"description,omitempty"`
	Tasklet                   ComponentRef               `yaml:"tasklet"`
	Transitions               []Transition               `yaml:"transitions,omitempty"`
	Listeners                 []ComponentRef             `yaml:"listeners,omitempty"`
	ExecutionContextPromotion *ExecutionContextPromotion `yaml:"execution-context-promotion,omitempty"`
}

// ComponentRef は登録済みのコンポーネントへの参照です。
type ComponentRef struct {
	Ref        string            `yaml:"ref"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// Transition は ExitStatus に応じた次の要素を定義します。
type Transition struct {
	On   string `yaml:"on"`             // "COMPLETED", "FAILED", "*" など
	To   string `yaml:"to,omitempty"`   // 次に実行する要素のID
	End  bool   `yaml:"end,omitempty"`  // ジョブを完了する
	Fail bool   `yaml:"fail,omitempty"` // ジョブを失敗として終了する
	Stop bool   `yaml:"stop,omitempty"` // ジョブを停止する
}

// ExecutionContextPromotion は StepExecutionContext から JobExecutionContext へのプロモーション設定を定義します。
type ExecutionContextPromotion struct {
	Keys         []string          `yaml:"keys,omitempty"`
	JobLevelKeys map[string]string `yaml:"job-level-keys,omitempty"`
}
