package jsl

import (
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// Registry はロード済みの JSL ジョブ定義をジョブIDで保持します。
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewRegistry は空の Registry を作成します。
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]Job)}
}

// LoadFromBytes は単一の JSL YAML のバイトデータからジョブ定義をロードし、検証して登録します。
func (r *Registry) LoadFromBytes(data []byte) (Job, error) {
	var jobDef Job
	if err := yaml.Unmarshal(data, &jobDef); err != nil {
		return Job{}, exception.NewBatchError("jsl_loader", "JSL ファイルのパースに失敗しました", err)
	}

	if jobDef.ID == "" {
		return Job{}, exception.NewBatchError("jsl_loader", "JSL ファイルに 'id' が定義されていません", nil)
	}
	if jobDef.Name == "" {
		return Job{}, exception.NewBatchErrorf("jsl_loader", "JSL ジョブ '%s' に 'name' が定義されていません", jobDef.ID)
	}
	if err := ValidateFlow(jobDef.Flow); err != nil {
		return Job{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[jobDef.ID]; exists {
		return Job{}, exception.NewBatchErrorf("jsl_loader", "JSL ジョブID '%s' が重複しています", jobDef.ID)
	}
	r.jobs[jobDef.ID] = jobDef
	logger.Infof("JSL ジョブ '%s' をロードしました。ステップ数: %d", jobDef.ID, len(jobDef.Flow.Elements))
	return jobDef, nil
}

// Get はジョブIDで JSL ジョブ定義を取得します。
func (r *Registry) Get(jobID string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	return job, ok
}

// Count はロード済みのジョブ定義の数を返します。
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
