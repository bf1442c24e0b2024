package core

// Transition はステップから次の要素への遷移ルールを定義します。
// On には ExitStatus の値、または任意のステータスに一致する "*" を指定します。
type Transition struct {
	On   string `yaml:"on"`
	To   string `yaml:"to,omitempty"`
	End  bool   `yaml:"end,omitempty"`
	Fail bool   `yaml:"fail,omitempty"`
	Stop bool   `yaml:"stop,omitempty"`
}

// TransitionRule は特定の遷移元要素からの単一の遷移ルールを定義します。
type TransitionRule struct {
	From       string
	Transition Transition
}

// FlowDefinition はジョブの実行フロー全体を定義します。
type FlowDefinition struct {
	StartElement    string
	Elements        map[string]FlowElement
	TransitionRules []TransitionRule
}

// NewFlowDefinition は新しい FlowDefinition を作成します。
func NewFlowDefinition(startElement string) *FlowDefinition {
	return &FlowDefinition{
		StartElement: startElement,
		Elements:     make(map[string]FlowElement),
	}
}

// AddElement はフロー要素を追加します。
func (f *FlowDefinition) AddElement(id string, element FlowElement) {
	f.Elements[id] = element
}

// AddTransitionRule は遷移ルールを追加します。
func (f *FlowDefinition) AddTransitionRule(from string, t Transition) {
	f.TransitionRules = append(f.TransitionRules, TransitionRule{From: from, Transition: t})
}

// GetTransitionRule は遷移元要素と ExitStatus に一致する遷移ルールを返します。
// 完全一致するルールが "*" より優先されます。isError が true で ExitStatus が未確定の場合は FAILED として扱います。
func (f *FlowDefinition) GetTransitionRule(from string, exitStatus ExitStatus, isError bool) (Transition, bool) {
	if isError && (exitStatus == "" || exitStatus == ExitStatusUnknown) {
		exitStatus = ExitStatusFailed
	}

	var wildcard *Transition
	for i := range f.TransitionRules {
		rule := &f.TransitionRules[i]
		if rule.From != from {
			continue
		}
		if rule.Transition.On == string(exitStatus) {
			return rule.Transition, true
		}
		if rule.Transition.On == "*" && wildcard == nil {
			wildcard = &rule.Transition
		}
	}
	if wildcard != nil {
		return *wildcard, true
	}
	return Transition{}, false
}

// ExecutionContextPromotion は StepExecutionContext から JobExecutionContext へのプロモーション設定を定義します。
type ExecutionContextPromotion struct {
	Keys         []string
	JobLevelKeys map[string]string
}
