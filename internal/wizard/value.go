package wizard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Value — ответ на один шаг: пусто, строка (одиночный выбор, текст, ссылка на файл)
// или множество id вариантов (множественный выбор).
type Value struct {
	scalar string
	set    []string
	multi  bool
}

// Null — неотвеченный шаг.
var Null = Value{}

func Scalar(s string) Value { return Value{scalar: s} }

// Multi собирает множество: порядок не важен, дубликаты схлопываются.
func Multi(ids ...string) Value {
	set := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		set = append(set, id)
	}
	sort.Strings(set)
	return Value{set: set, multi: true}
}

func (v Value) IsMulti() bool { return v.multi }

// IsEmpty — null, пустая строка или пустое множество.
func (v Value) IsEmpty() bool {
	if v.multi {
		return len(v.set) == 0
	}
	return strings.TrimSpace(v.scalar) == ""
}

// String — скалярное значение ("" для множества).
func (v Value) String() string { return v.scalar }

// IDs — выбранные id: для скаляра один элемент, для множества все.
func (v Value) IDs() []string {
	if v.multi {
		return append([]string(nil), v.set...)
	}
	if v.scalar == "" {
		return nil
	}
	return []string{v.scalar}
}

func (v Value) Contains(id string) bool {
	for _, x := range v.IDs() {
		if x == id {
			return true
		}
	}
	return false
}

func (v Value) Equal(o Value) bool {
	if v.multi != o.multi || v.scalar != o.scalar || len(v.set) != len(o.set) {
		return false
	}
	for i := range v.set {
		if v.set[i] != o.set[i] {
			return false
		}
	}
	return true
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.multi:
		if v.set == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.set)
	case v.scalar == "":
		return []byte("null"), nil
	default:
		return json.Marshal(v.scalar)
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = Null
	case len(b) > 0 && b[0] == '[':
		var ids []string
		if err := json.Unmarshal(b, &ids); err != nil {
			return err
		}
		*v = Multi(ids...)
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Scalar(s)
	default:
		return fmt.Errorf("wizard: unsupported value %s", b)
	}
	return nil
}

// Selections — ответы пользователя: productID -> stepID -> значение.
type Selections map[string]map[string]Value

// Get возвращает значение шага или Null.
func (s Selections) Get(productID, stepID string) Value {
	if s == nil {
		return Null
	}
	return s[productID][stepID]
}

// Set заменяет значение шага, не трогая остальные.
func (s Selections) Set(productID, stepID string, v Value) {
	m, ok := s[productID]
	if !ok {
		m = map[string]Value{}
		s[productID] = m
	}
	m[stepID] = v
}

func (s Selections) Clone() Selections {
	out := make(Selections, len(s))
	for p, steps := range s {
		m := make(map[string]Value, len(steps))
		for k, v := range steps {
			m[k] = v
		}
		out[p] = m
	}
	return out
}
