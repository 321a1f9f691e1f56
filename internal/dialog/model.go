package dialog

import (
	"encoding/json"
	"fmt"
)

type State string

const (
	StateIdle State = "idle"

	// Регистрация экспонента
	StateAwaitCompany State = "await_company"

	// Визард стенда: снимок сессии лежит в payload под ключом KeyWizard
	StateWizard State = "wizard"

	// Админка
	StateAdmMenu          State = "adm_menu"
	StateAdmCatalogImport State = "adm_catalog_import" // ожидание Excel с каталогом
)

const KeyWizard = "wizard"

type Payload map[string]any

type Item struct {
	ChatID  int64
	State   State
	Payload Payload
}

// Decode раскладывает значение payload[key] в out через JSON.
// ok=false, если ключа нет.
func Decode(p Payload, key string, out any) (ok bool, err error) {
	v, found := p[key]
	if !found || v == nil {
		return false, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("dialog: encode %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("dialog: decode %s: %w", key, err)
	}
	return true, nil
}

// Encode кладёт в payload значение в JSON-виде (map/slice), как оно вернётся из базы.
func Encode(p Payload, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("dialog: encode %s: %w", key, err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	p[key] = generic
	return nil
}

// GetString Helper для безопасного чтения строк из payload
func GetString(p Payload, key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
