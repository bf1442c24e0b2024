package jsl

import (
	"sort"

	config "github.com/tigerroll/weather_etl/pkg/batch/config"
	component "github.com/tigerroll/weather_etl/pkg/batch/job/component"
	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/job"
	step "github.com/tigerroll/weather_etl/pkg/batch/step"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// ConvertJSLToCoreFlow は JSL の Flow 定義を core.FlowDefinition に変換します。
// 各ステップの Tasklet とリスナーは、登録済みのビルダーから生成されます。
func ConvertJSLToCoreFlow(
	jslFlow Flow,
	taskletBuilders map[string]component.TaskletBuilder,
	stepListenerBuilders map[string]component.StepListenerBuilder,
	jobRepository job.JobRepository,
	cfg *config.Config,
) (*core.FlowDefinition, error) {
	module := "jsl_converter"
	if err := ValidateFlow(jslFlow); err != nil {
		return nil, err
	}

	flowDef := core.NewFlowDefinition(jslFlow.StartElement)

	// 遷移ルールの順序を安定させるため、ID 順に処理します。
	ids := make([]string, 0, len(jslFlow.Elements))
	for id := range jslFlow.Elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		jslStep := jslFlow.Elements[id]

		builder, ok := taskletBuilders[jslStep.Tasklet.Ref]
		if !ok {
			return nil, exception.NewBatchErrorf(module, "タスクレット '%s' のビルダーが見つかりません", jslStep.Tasklet.Ref)
		}
		tasklet, err := builder(cfg, jslStep.Tasklet.Properties)
		if err != nil {
			return nil, exception.NewBatchErrorf(module, "タスクレット '%s' のビルドに失敗しました", jslStep.Tasklet.Ref, err)
		}

		var listeners []core.StepExecutionListener
		for _, ref := range jslStep.Listeners {
			lb, found := stepListenerBuilders[ref.Ref]
			if !found {
				return nil, exception.NewBatchErrorf(module, "StepExecutionListener '%s' のビルダーが登録されていません", ref.Ref)
			}
			l, err := lb(cfg)
			if err != nil {
				return nil, exception.NewBatchErrorf(module, "StepExecutionListener '%s' のビルドに失敗しました", ref.Ref, err)
			}
			listeners = append(listeners, l)
		}

		var promotion *core.ExecutionContextPromotion
		if p := jslStep.ExecutionContextPromotion; p != nil {
			promotion = &core.ExecutionContextPromotion{Keys: p.Keys, JobLevelKeys: p.JobLevelKeys}
		}

		flowDef.AddElement(id, step.NewTaskletStep(id, tasklet, jobRepository, listeners, promotion))
		for _, t := range jslStep.Transitions {
			flowDef.AddTransitionRule(id, core.Transition{On: t.On, To: t.To, End: t.End, Fail: t.Fail, Stop: t.Stop})
		}
		logger.Debugf("タスクレットステップ '%s' を構築しました。", id)
	}

	return flowDef, nil
}
