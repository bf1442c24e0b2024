package core

import "strings"

// ExecutionContext はジョブやステップの状態を共有するためのキー-値ストアです。
// "a.b.c" 形式のキーで入れ子の値を扱う GetNested / PutNested を提供します。
type ExecutionContext map[string]interface{}

// NewExecutionContext は新しい空の ExecutionContext を作成します。
func NewExecutionContext() ExecutionContext {
	return make(ExecutionContext)
}

// Put は指定されたキーと値で ExecutionContext に値を設定します。
func (ec ExecutionContext) Put(key string, value interface{}) {
	ec[key] = value
}

// Get は指定されたキーの値を取得します。
func (ec ExecutionContext) Get(key string) (interface{}, bool) {
	v, ok := ec[key]
	return v, ok
}

// GetString は指定されたキーの値を文字列として取得します。
func (ec ExecutionContext) GetString(key string) (string, bool) {
	v, ok := ec[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt は指定されたキーの値を int として取得します。
func (ec ExecutionContext) GetInt(key string) (int, bool) {
	v, ok := ec[key]
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// Copy は ExecutionContext の浅いコピーを返します。
func (ec ExecutionContext) Copy() ExecutionContext {
	out := make(ExecutionContext, len(ec))
	for k, v := range ec {
		out[k] = v
	}
	return out
}

// GetNested はドット区切りのキーで入れ子になった値を取得します。
func (ec ExecutionContext) GetNested(key string) (interface{}, bool) {
	parts := strings.Split(key, ".")
	var current interface{} = ec
	for _, p := range parts {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// PutNested はドット区切りのキーで入れ子になった値を設定します。途中の階層は必要に応じて作成されます。
func (ec ExecutionContext) PutNested(key string, value interface{}) {
	parts := strings.Split(key, ".")
	current := ec
	for _, p := range parts[:len(parts)-1] {
		next, ok := asMap(current[p])
		if !ok {
			next = NewExecutionContext()
			current[p] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func asMap(v interface{}) (ExecutionContext, bool) {
	switch m := v.(type) {
	case ExecutionContext:
		return m, true
	case map[string]interface{}:
		return ExecutionContext(m), true
	default:
		return nil, false
	}
}
