package jsl

import (
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
)

// ValidateFlow はフロー定義の整合性を検証します。
func ValidateFlow(flow Flow) error {
	module := "jsl_loader"
	if flow.StartElement == "" {
		return exception.NewBatchError(module, "フローに 'start-element' が定義されていません", nil)
	}
	if len(flow.Elements) == 0 {
		return exception.NewBatchError(module, "フローに 'elements' が定義されていません", nil)
	}
	if _, ok := flow.Elements[flow.StartElement]; !ok {
		return exception.NewBatchErrorf(module, "フローの 'start-element' '%s' が 'elements' に見つかりません", flow.StartElement)
	}

	for id, step := range flow.Elements {
		if step.ID != "" && step.ID != id {
			return exception.NewBatchErrorf(module, "ステップ '%s' のIDがマップのキー '%s' と一致しません", step.ID, id)
		}
		if step.Tasklet.Ref == "" {
			return exception.NewBatchErrorf(module, "ステップ '%s' に 'tasklet' が定義されていません", id)
		}
		for _, t := range step.Transitions {
			if err := validateTransition(id, t, flow.Elements); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateTransition は単一の遷移ルールを検証します。to / end / fail / stop はいずれか一つだけ指定できます。
func validateTransition(fromElementID string, t Transition, allElements map[string]Step) error {
	module := "jsl_loader"
	if t.On == "" {
		return exception.NewBatchErrorf(module, "フロー要素 '%s' の遷移ルールに 'on' が定義されていません", fromElementID)
	}

	exclusiveCount := 0
	for _, set := range []bool{t.End, t.Fail, t.Stop, t.To != ""} {
		if set {
			exclusiveCount++
		}
	}
	if exclusiveCount == 0 {
		return exception.NewBatchErrorf(module, "フロー要素 '%s' の遷移ルール (on: '%s') に 'to', 'end', 'fail', 'stop' のいずれも定義されていません", fromElementID, t.On)
	}
	if exclusiveCount > 1 {
		return exception.NewBatchErrorf(module, "フロー要素 '%s' の遷移ルール (on: '%s') は 'to', 'end', 'fail', 'stop' のうち複数定義されています", fromElementID, t.On)
	}

	if t.To != "" {
		if _, ok := allElements[t.To]; !ok {
			return exception.NewBatchErrorf(module, "フロー要素 '%s' の遷移ルール (on: '%s') の 'to' で指定された要素 '%s' が見つかりません", fromElementID, t.On, t.To)
		}
	}
	return nil
}
